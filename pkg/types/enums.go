// Package types holds the closed enumerations and shared value types that
// every Adjuster package computes over: process states, adj tiers,
// scheduling groups, capability bits, bind flags and oom-adj reasons.
package types

// ProcState is the ordered, user-visible role of a process. Lower values
// are more important. Slot index in the procstate priority queue equals
// the numerical value.
type ProcState uint8

const (
	ProcStatePersistent ProcState = iota
	ProcStatePersistentUI
	ProcStateTop
	ProcStateBoundTop
	ProcStateForegroundService
	ProcStateBoundForegroundService
	ProcStateImportantForeground
	ProcStateImportantBackground
	ProcStateTransientBackground
	ProcStateBackup
	ProcStateService
	ProcStateReceiver
	ProcStateTopSleeping
	ProcStateHeavyWeight
	ProcStateHome
	ProcStateLastActivity
	ProcStateCachedActivity
	ProcStateCachedActivityClient
	ProcStateCachedRecent
	ProcStateCachedEmpty
	ProcStateUnknown

	numProcStates = int(ProcStateUnknown) + 1
)

var procStateNames = [...]string{
	"PERSISTENT", "PERSISTENT_UI", "TOP", "BOUND_TOP", "FOREGROUND_SERVICE",
	"BOUND_FOREGROUND_SERVICE", "IMPORTANT_FOREGROUND", "IMPORTANT_BACKGROUND",
	"TRANSIENT_BACKGROUND", "BACKUP", "SERVICE", "RECEIVER", "TOP_SLEEPING",
	"HEAVY_WEIGHT", "HOME", "LAST_ACTIVITY", "CACHED_ACTIVITY",
	"CACHED_ACTIVITY_CLIENT", "CACHED_RECENT", "CACHED_EMPTY", "UNKNOWN",
}

func (p ProcState) String() string {
	if int(p) < len(procStateNames) {
		return procStateNames[p]
	}
	return "INVALID_PROC_STATE"
}

// NumProcStates returns the number of procstate slots; slots are
// contiguous 0..N-1.
func NumProcStates() int { return numProcStates }

// Cached reports whether this procstate belongs to the cached tier.
// The cached tier is properly adj-based, but a process is commonly
// considered "cached" from procstate too, starting at CACHED_ACTIVITY.
func (p ProcState) Cached() bool { return p >= ProcStateCachedActivity }

// Adj is the oom-adj score. Lower is more important. It always lies
// in [NativeAdj, UnknownAdj].
type Adj int16

// Adj tiers. CachedMin..CachedMax is a contiguous band the LRU ladder
// assigns within.
const (
	NativeAdj            Adj = -1000
	SystemAdj            Adj = -900
	PersistentProcAdj    Adj = -800
	PersistentServiceAdj Adj = -700
	ForegroundAppAdj     Adj = 0
	PerceptibleRecentFG  Adj = 50
	VisibleAppAdj        Adj = 100
	VisibleAppMaxAdj     Adj = 199
	PerceptibleAppAdj    Adj = 200
	PerceptibleMediumApp Adj = 225
	PerceptibleLowAppAdj Adj = 250
	BackupAppAdj         Adj = 300
	HeavyWeightAppAdj    Adj = 400
	ServiceAdj           Adj = 500
	HomeAppAdj           Adj = 600
	PreviousAppAdj       Adj = 700
	ServiceBAdj          Adj = 800
	CachedAppMinAdj      Adj = 900
	CachedAppMaxAdj      Adj = 999
	UnknownAdj           Adj = 1001
)

// SchedGroup controls kernel scheduling aggressiveness for a process.
type SchedGroup uint8

const (
	SchedGroupBackground SchedGroup = iota
	SchedGroupRestricted
	SchedGroupDefault
	SchedGroupForegroundWindow
	SchedGroupTopAppBound
	SchedGroupTopApp
)

func (g SchedGroup) String() string {
	switch g {
	case SchedGroupBackground:
		return "BACKGROUND"
	case SchedGroupRestricted:
		return "RESTRICTED"
	case SchedGroupDefault:
		return "DEFAULT"
	case SchedGroupForegroundWindow:
		return "FOREGROUND_WINDOW"
	case SchedGroupTopAppBound:
		return "TOP_APP_BOUND"
	case SchedGroupTopApp:
		return "TOP_APP"
	default:
		return "INVALID_SCHED_GROUP"
	}
}

// Capability is a bit-flag set governing privileged operations a process
// may perform while in its current procstate.
type Capability uint32

const (
	CapBFSL Capability = 1 << iota
	CapFGLocation
	CapFGCamera
	CapFGMicrophone
	CapFGAudioControl
	CapPowerRestrictedNetwork
	CapUserRestrictedNetwork
	CapCPUTime
	CapImplicitCPUTime

	CapAll  = CapBFSL | CapFGLocation | CapFGCamera | CapFGMicrophone | CapFGAudioControl
	CapNone = Capability(0)
)

func (c Capability) Has(bit Capability) bool { return c&bit != 0 }

// BindFlags is the set of flags attached to a ConnectionRecord that
// controls how importance propagates from client to host.
type BindFlags uint32

const (
	BindAboveClient BindFlags = 1 << iota
	BindAllowOomManagement
	BindWaivePriority
	BindAdjustWithActivity
	BindImportant
	BindNotPerceptible
	BindAlmostPerceptible
	BindNotVisible
	BindNotForeground
	BindImportantBackground
	BindIncludeCapabilities
	BindForegroundService
	BindForegroundServiceWhileAwake
	BindScheduleLikeTopApp
	BindTreatLikeActivity
	BindTreatLikeVisibleForegroundService
	BindShowingUI
	BindBypassPowerNetworkRestrictions
	BindBypassUserNetworkRestrictions
	BindSimulateAllowFreeze
	BindAllowFreeze
)

func (f BindFlags) Has(bit BindFlags) bool { return f&bit != 0 }

// OomAdjReason records why a pass/update was triggered, for diagnostics.
type OomAdjReason string

const (
	ReasonNone               OomAdjReason = "none"
	ReasonActivity           OomAdjReason = "activity"
	ReasonFinishReceiver     OomAdjReason = "finish_receiver"
	ReasonStartReceiver      OomAdjReason = "start_receiver"
	ReasonBindService        OomAdjReason = "bind_service"
	ReasonUnbindService      OomAdjReason = "unbind_service"
	ReasonStartService       OomAdjReason = "start_service"
	ReasonStopService        OomAdjReason = "stop_service"
	ReasonExecutingService   OomAdjReason = "executing_service"
	ReasonGetProvider        OomAdjReason = "get_provider"
	ReasonRemoveProvider     OomAdjReason = "remove_provider"
	ReasonUIVisibility       OomAdjReason = "ui_visibility"
	ReasonAllowlist          OomAdjReason = "allowlist"
	ReasonProcessBegin       OomAdjReason = "process_begin"
	ReasonProcessEnd         OomAdjReason = "process_end"
	ReasonShortFGSTimeout    OomAdjReason = "short_fgs_timeout"
	ReasonSystemInit         OomAdjReason = "system_init"
	ReasonBackup             OomAdjReason = "backup"
	ReasonShell              OomAdjReason = "shell"
	ReasonRemoveTask         OomAdjReason = "remove_task"
	ReasonUIDIdle            OomAdjReason = "uid_idle"
	ReasonRestrictionChange  OomAdjReason = "restriction_change"
	ReasonComponentDisabled  OomAdjReason = "component_disabled"
	ReasonFollowUp           OomAdjReason = "follow_up"
	ReasonReconfiguration    OomAdjReason = "reconfiguration"
	ReasonServiceBinderCall  OomAdjReason = "service_binder_call"
)

// AdjType records the specific decision-waterfall rule that produced
// the final adj/procstate assignment, as a stable identifier string
// from an enumerated set. Diagnostic-only, for observability.
type AdjType string

const (
	AdjTypeFixed                AdjType = "fixed"
	AdjTypeTop                  AdjType = "top"
	AdjTypeRemoteAnim           AdjType = "remote_anim"
	AdjTypeInstrumentation      AdjType = "instrumentation"
	AdjTypeReceiver             AdjType = "receiver"
	AdjTypeExecutingService     AdjType = "executing_service"
	AdjTypeTopSleeping          AdjType = "top_sleeping"
	AdjTypeCachedEmpty          AdjType = "cached_empty"
	AdjTypeVisible              AdjType = "visible"
	AdjTypePaused               AdjType = "paused"
	AdjTypeStopping             AdjType = "stopping"
	AdjTypeCachedActivity       AdjType = "cached_activity"
	AdjTypePerceptibleRecent    AdjType = "perceptible_recent"
	AdjTypeFGS                  AdjType = "fgs"
	AdjTypeShortFGS             AdjType = "short_fgs"
	AdjTypeOverlayUI            AdjType = "overlay_ui"
	AdjTypeRecentFGSGrace       AdjType = "recent_fgs_grace"
	AdjTypeAlmostPerceptible    AdjType = "almost_perceptible"
	AdjTypeForcingImportant     AdjType = "forcing_important"
	AdjTypeHeavyWeight          AdjType = "heavy_weight"
	AdjTypeHome                 AdjType = "home"
	AdjTypePrevious             AdjType = "previous"
	AdjTypeBackup               AdjType = "backup"
	AdjTypeStartedService       AdjType = "started_service"
	AdjTypeLadder               AdjType = "ladder"
	AdjTypeConnection           AdjType = "connection"
)
