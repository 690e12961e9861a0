package types

import "time"

// ProcessID stably identifies a ProcessRecord for the lifetime of the
// process. Bindings resolve their host through a ProcessID (HostID)
// rather than a pointer, so traversal can detect and skip a host that
// has left the Process Store, including across cyclic binding graphs.
type ProcessID int32

// UID identifies the Android-style user/app uid a set of processes share.
type UID int32

// QueueLink is the embedded prev/next node used by one priority-index
// queue — each process stores two embedded link nodes. Zero value
// means "not linked". Generation records which Reset epoch of the
// owning Index last linked this node; the Index compares it against
// its own counter rather than trusting a bare linked flag, so a node
// left over from a prior pass (Reset bumps the counter in O(1) instead
// of walking every record) reads as unlinked without needing to be
// cleared explicitly. Exported so pkg/priorityindex, which owns the
// traversal logic, can splice without the Process Store or the record
// itself needing to know about list mechanics.
type QueueLink struct {
	Prev, Next *ProcessRecord
	Slot       int
	Generation int
}

// ServiceRecord is one service hosted by a process.
type ServiceRecord struct {
	Name             string
	IsStartRequested bool
	IsForeground     bool
	FGSTypeMask      uint32
	LastActivityMs   int64
	KeepWarming      bool
	ShortFGS         bool
	ShortFGSTimedOut bool

	// Outgoing is intentionally absent: a ServiceRecord is the *host*
	// side; the client-side view lives in the client's
	// ProcessRecord.ServiceBindings. Connections lists every
	// ConnectionRecord bound to this service.
	Connections []*ConnectionRecord
}

// ContentProviderRecord is one content provider hosted by a process.
type ContentProviderRecord struct {
	Name                string
	HasExternalHandles  bool
	Connections         []*ContentProviderConnection
	LastProviderTimeMs  int64
}

// ConnectionRecord is a service binding: client binds to a service hosted
// by some other (or the same) process.
type ConnectionRecord struct {
	Client            *ProcessRecord
	Service           *ServiceRecord
	HostID            ProcessID // resolved owner of Service, for stale-edge detection
	Flags             BindFlags
	HasActivityHolder bool
	AttributedClient  *ProcessRecord // non-nil for sandbox/isolated attribution
}

// ContentProviderConnection is a provider binding, a simplified subset
// of ConnectionRecord's fields.
type ContentProviderConnection struct {
	Client   *ProcessRecord
	Provider *ContentProviderRecord
	HostID   ProcessID
}

// ProcessRecord is the central per-process data structure. The Process
// Store exclusively owns instances of this type, indexed by
// ProcessID; a ProcessRecord exclusively owns its service/provider/binding
// slices. Computed attributes (cur_*) are written only by the Attribute
// Computer / Connection Propagator / Update Driver under lock S.
type ProcessRecord struct {
	PID          ProcessID
	UID          UID
	UserID       int32
	PackageNames map[string]struct{}

	// Intrinsic state.
	HasForegroundActivities bool
	HasVisibleActivities    bool
	HasOverlayUI            bool
	HasTopUI                bool
	HasShownUI              bool
	IsRunningRemoteAnim     bool
	HasActiveInstrumentation bool
	IsBackupTarget          bool
	IsHeavyWeight           bool
	IsHome                  bool
	IsPrevious              bool
	IsReceivingBroadcast    bool
	BroadcastSchedGroup     SchedGroup
	IsPendingFinishAttach   bool
	IsKilled                bool
	IsSdkSandbox            bool
	IsIsolated              bool

	// Activity visibility detail used by the monotone "Activities
	// (non-top)" adjustment rule.
	ActivityState        ActivityVisibility
	ActivityTaskLayer    int
	PerceptibleStopTimeMs int64
	HasRecentTasks       bool
	ForcingToImportant   bool
	RecentlyPerceptibleTimeMs int64

	// Hosted components.
	Services  []*ServiceRecord
	Providers []*ContentProviderRecord

	// Outgoing bindings (client-side view).
	ServiceBindings  []*ConnectionRecord
	ProviderBindings []*ContentProviderConnection

	// Executing-service bookkeeping for the decision waterfall.
	ExecutingServices int
	ExecutingFGBound  bool // DEFAULT sched group while executing if true, BACKGROUND if false

	// Grace-window bookkeeping for the monotone adjustment rules.
	IsAlmostPerceptible      bool
	AlmostPerceptibleSinceMs int64

	// FreezeExempt mirrors a static per-package configuration entry the
	// freezer policy consults; the Adjuster never mutates it.
	FreezeExempt bool

	// Computed attributes (read by everyone, written only by the Adjuster).
	CurAdj            Adj
	CurRawAdj         Adj
	CurProcState      ProcState
	CurRawProcState   ProcState
	CurSchedGroup     SchedGroup
	CurCapability     Capability
	CurCPUTimeReasons uint32
	ShouldNotFreeze   bool
	ShouldNotFreezeReason uint32
	CurAdjType        AdjType

	// Committed attributes (last applied values observed by collaborators).
	SetAdj         Adj
	SetProcState   ProcState
	SetSchedGroup  SchedGroup
	SetCapability  Capability

	// Bookkeeping.
	AdjSeq               uint64
	CompletedAdjSeq      uint64
	Reachable            bool
	FollowupUpdateUptime *int64 // nil = no pending followup
	LastTopTimeMs        int64
	LastStateTimeMs      int64
	MaxAdj               Adj
	HasFixedMaxAdj       bool

	// LRU bookkeeping, owned by the collaborator that maintains the LRU
	// list; the Adjuster reads CachedSinceMs only (never reorders it).
	CachedSinceMs int64
	ConnectionGroup string // shared-slot grouping for the distributed ladder

	// Priority-index link nodes, one per queue.
	ProcStateNode QueueLink
	AdjNode       QueueLink
}

// ActivityVisibility classifies the non-top activity state a process
// hosts, feeding the "Activities (non-top)" monotone rule.
type ActivityVisibility uint8

const (
	ActivityNone ActivityVisibility = iota
	ActivityVisible
	ActivityPaused
	ActivityStopping
	ActivityStoppingFinishing
)

// NewProcessRecord builds a ProcessRecord with UnknownAdj/CachedEmpty
// defaults, matching the state a freshly attached process has before its
// first update pass.
func NewProcessRecord(pid ProcessID, uid UID, userID int32) *ProcessRecord {
	return &ProcessRecord{
		PID:          pid,
		UID:          uid,
		UserID:       userID,
		PackageNames: make(map[string]struct{}),
		CurAdj:       UnknownAdj,
		CurRawAdj:    UnknownAdj,
		CurProcState: ProcStateCachedEmpty,
		CurRawProcState: ProcStateCachedEmpty,
		MaxAdj:       UnknownAdj,
		SetAdj:       UnknownAdj,
		SetProcState: ProcStateCachedEmpty,
	}
}

// UidRecord aggregates the most important attributes across all
// processes sharing a uid.
type UidRecord struct {
	UID          UID
	NumProcs     int
	CurProcState ProcState
	CurCapability Capability
	Idle         bool
	Active       bool
	Ephemeral    bool

	// SetProcState is the last externally-observed procstate, used to
	// compute the IDLE/ACTIVE/CACHED/UNCACHED transition flags.
	SetProcState  ProcState
	LastStateTimeMs int64
}

// UidChangeFlags mirrors a closed set of per-uid transition bits.
type UidChangeFlags uint8

const (
	UidChangeIdle UidChangeFlags = 1 << iota
	UidChangeActive
	UidChangeCached
	UidChangeUncached
	UidChangeCapability
	UidChangeProcState
	UidChangeProcAdj
)

// Time helpers: the Adjuster always takes "now" as an explicit monotonic
// uptime in milliseconds rather than calling time.Now() internally, so
// passes are reproducible in tests.
func UptimeMillis(t time.Time) int64 { return t.UnixMilli() }
