// Package attrcompute implements the per-process attribute computation:
// from a ProcessRecord's intrinsic facts alone (no binding graph) it
// derives cur_adj, cur_raw_adj, cur_proc_state, cur_sched_group,
// cur_capability and a diagnostic adj_type. Styled after a
// load-balancer scoring table — a first-match waterfall over weighted
// conditions — adapted to a fixed decision order instead of a
// weighted sum, since here the order itself is the contract.
package attrcompute

import (
	"github.com/khryptorgraphics/procadj/internal/config"
	"github.com/khryptorgraphics/procadj/pkg/types"
)

// Computer derives attributes for one process at a time. It is
// stateless; all inputs are passed explicitly so passes are
// reproducible and parallelizable across independent processes.
type Computer struct {
	cfg *config.AdjusterConfig
}

// New builds a Computer bound to a fixed tunable set. Re-create (or
// swap cfg) only between passes, never mid-pass.
func New(cfg *config.AdjusterConfig) *Computer {
	return &Computer{cfg: cfg}
}

// Compute writes p's intrinsic-mode attributes: the decision waterfall
// followed by monotone-only refinements and capability composition.
// top is the current global top process id; topState is the current
// global top's procstate (TOP vs TOP_SLEEPING variants). now is a
// monotonic uptime in milliseconds.
func (c *Computer) Compute(p *types.ProcessRecord, top types.ProcessID, topState types.ProcState, now int64) {
	isTop := p.PID == top

	adj, procState, schedGroup, adjType := c.waterfall(p, isTop, topState)
	procState, adj, adjType = c.applyMonotoneRules(p, procState, adj, adjType, now)

	if p.HasFixedMaxAdj && p.MaxAdj <= types.ForegroundAppAdj {
		adj = p.MaxAdj
	} else if adj > p.MaxAdj {
		adj = p.MaxAdj
	}

	p.CurRawAdj = adj
	p.CurAdj = adj
	p.CurRawProcState = procState
	p.CurProcState = procState

	capBits := c.capabilityDefault(procState)
	capBits |= c.fgsCapabilities(p)
	capBits |= c.cpuTimeCapabilities(p)
	if procState > types.ProcStateBoundForegroundService {
		capBits &^= types.CapBFSL
	}
	if adjType == types.AdjTypeShortFGS {
		// A short FGS grants its procstate floor but never BFSL: the
		// grace period exists to keep the process from dropping too far
		// too fast, not to grant it foreground-service privileges.
		capBits &^= types.CapBFSL
	}
	p.CurSchedGroup = schedGroup
	p.CurCapability = capBits
	p.CurAdjType = adjType
}

// waterfall implements the first-match decision table. Rows are
// checked in the documented order; the first match sets the baseline
// (adj, procstate, sched_group) that later monotone rules may only
// improve on.
func (c *Computer) waterfall(p *types.ProcessRecord, isTop bool, topState types.ProcState) (types.Adj, types.ProcState, types.SchedGroup, types.AdjType) {
	switch {
	case p.HasFixedMaxAdj && p.MaxAdj <= types.ForegroundAppAdj:
		ps := types.ProcStatePersistent
		if p.HasTopUI || p.HasVisibleActivities {
			ps = types.ProcStatePersistentUI
		}
		sg := types.SchedGroupDefault
		if isTop {
			sg = types.SchedGroupTopApp
		}
		return p.MaxAdj, ps, sg, types.AdjTypeFixed

	case isTop && topState == types.ProcStateTop:
		return types.ForegroundAppAdj, types.ProcStateTop, types.SchedGroupTopApp, types.AdjTypeTop

	case p.IsRunningRemoteAnim:
		return types.VisibleAppAdj, topState, types.SchedGroupTopApp, types.AdjTypeRemoteAnim

	case p.HasActiveInstrumentation:
		return types.ForegroundAppAdj, types.ProcStateForegroundService, types.SchedGroupDefault, types.AdjTypeInstrumentation

	case p.IsReceivingBroadcast:
		return types.ForegroundAppAdj, types.ProcStateReceiver, p.BroadcastSchedGroup, types.AdjTypeReceiver

	case p.ExecutingServices > 0:
		sg := types.SchedGroupBackground
		if p.ExecutingFGBound {
			sg = types.SchedGroupDefault
		}
		return types.ForegroundAppAdj, types.ProcStateService, sg, types.AdjTypeExecutingService

	case isTop:
		return types.ForegroundAppAdj, topState, types.SchedGroupBackground, types.AdjTypeTopSleeping

	default:
		return types.UnknownAdj, types.ProcStateCachedEmpty, types.SchedGroupBackground, types.AdjTypeCachedEmpty
	}
}

// applyMonotoneRules refines (procState, adj) only in the important
// direction (lower numerical value). Each rule is evaluated
// independently against the running best, never against its own prior
// output, so rule order does not change the resulting procstate and
// adj; adj_type names the last rule that improved either of them.
func (c *Computer) applyMonotoneRules(p *types.ProcessRecord, procState types.ProcState, adj types.Adj, adjType types.AdjType, now int64) (types.ProcState, types.Adj, types.AdjType) {
	improve := func(candPS types.ProcState, candAdj types.Adj, candType types.AdjType) {
		changed := false
		if candPS < procState {
			procState = candPS
			changed = true
		}
		if candAdj < adj {
			adj = candAdj
			changed = true
		}
		if changed {
			adjType = candType
		}
	}

	switch p.ActivityState {
	case types.ActivityVisible:
		offset := p.ActivityTaskLayer
		candAdj := types.VisibleAppAdj + types.Adj(offset)
		if candAdj > types.VisibleAppMaxAdj {
			candAdj = types.VisibleAppMaxAdj
		}
		improve(types.ProcStateImportantForeground, candAdj, types.AdjTypeVisible)
	case types.ActivityPaused:
		improve(types.ProcStateImportantForeground, types.PerceptibleAppAdj, types.AdjTypePaused)
	case types.ActivityStopping:
		improve(types.ProcStateLastActivity, adj, types.AdjTypeStopping)
	case types.ActivityStoppingFinishing:
		improve(types.ProcStateCachedActivity, adj, types.AdjTypeCachedActivity)
	}

	if p.RecentlyPerceptibleTimeMs > 0 && now-p.RecentlyPerceptibleTimeMs <= c.cfg.RecentPerceptibleTimeout.Milliseconds() {
		improve(types.ProcStatePersistentUI, types.PerceptibleMediumApp, types.AdjTypePerceptibleRecent)
	}

	if fgs, short, overlay := foregroundServiceState(p); fgs {
		switch {
		case overlay:
			improve(types.ProcStateImportantForeground, types.PerceptibleAppAdj, types.AdjTypeOverlayUI)
		case short:
			improve(types.ProcStateForegroundService, types.PerceptibleMediumApp+1, types.AdjTypeShortFGS)
		default:
			improve(types.ProcStateForegroundService, types.PerceptibleAppAdj, types.AdjTypeFGS)
		}
	}

	if hadFGS, wasTopRecently := recentTopWithFGS(p, now, c.cfg.TopToFGSGrace.Milliseconds()); hadFGS && wasTopRecently {
		graceAdj := types.PerceptibleRecentFG
		if _, short, _ := foregroundServiceState(p); short {
			graceAdj++
		}
		improve(types.ProcStateImportantForeground, graceAdj, types.AdjTypeRecentFGSGrace)
	}

	if p.IsAlmostPerceptible && now-p.AlmostPerceptibleSinceMs <= c.cfg.AlmostPerceptibleGrace.Milliseconds() {
		improve(types.ProcStateImportantForeground, types.PerceptibleRecentFG+2, types.AdjTypeAlmostPerceptible)
	}

	if p.ForcingToImportant {
		improve(types.ProcStateTransientBackground, types.PerceptibleAppAdj, types.AdjTypeForcingImportant)
	}

	if p.IsHeavyWeight {
		improve(types.ProcStateHeavyWeight, types.HeavyWeightAppAdj, types.AdjTypeHeavyWeight)
	}
	if p.IsHome {
		improve(types.ProcStateHome, types.HomeAppAdj, types.AdjTypeHome)
	}
	if p.IsPrevious {
		if now-p.LastTopTimeMs > c.cfg.MaxPreviousTime.Milliseconds() {
			improve(types.ProcStateLastActivity, adj, types.AdjTypePrevious)
		} else {
			improve(types.ProcStateLastActivity, types.PreviousAppAdj, types.AdjTypePrevious)
		}
	}
	if p.IsBackupTarget {
		improve(procState, min(adj, types.BackupAppAdj), types.AdjTypeBackup)
	}

	if hasStartedService(p) {
		if serviceRecentlyActive(p, now, c.cfg.MaxServiceInactivity.Milliseconds()) {
			improve(types.ProcStateService, types.ServiceAdj, types.AdjTypeStartedService)
		}
	}

	return procState, adj, adjType
}

func foregroundServiceState(p *types.ProcessRecord) (hasFGS, short, overlay bool) {
	for _, s := range p.Services {
		if !s.IsForeground {
			continue
		}
		hasFGS = true
		if s.ShortFGS && !s.ShortFGSTimedOut {
			short = true
		}
	}
	overlay = p.HasOverlayUI && hasFGS
	return hasFGS, short, overlay
}

func recentTopWithFGS(p *types.ProcessRecord, now, graceMs int64) (hadFGS, wasTopRecently bool) {
	hadFGS, _, _ = foregroundServiceState(p)
	wasTopRecently = p.LastTopTimeMs > 0 && now-p.LastTopTimeMs <= graceMs
	return hadFGS, wasTopRecently
}

func hasStartedService(p *types.ProcessRecord) bool {
	for _, s := range p.Services {
		if s.IsStartRequested {
			return true
		}
	}
	return false
}

func serviceRecentlyActive(p *types.ProcessRecord, now, maxInactivityMs int64) bool {
	for _, s := range p.Services {
		if s.IsStartRequested && now-s.LastActivityMs <= maxInactivityMs {
			return true
		}
	}
	return false
}

// capabilityDefault derives the baseline capability set implied by a
// procstate alone, before FGS-type and CPU-time bits are composed in.
// Processes at FOREGROUND_SERVICE or better are exempt from the
// power-save and data-saver network restrictions by default; anything
// past that tier starts restricted and can only regain network access
// through a binding that carries one of the bypass flags.
func (c *Computer) capabilityDefault(ps types.ProcState) types.Capability {
	var capBits types.Capability
	switch {
	case ps <= types.ProcStateTop || ps == types.ProcStateBoundTop:
		capBits = types.CapAll
	case ps <= types.ProcStateBoundForegroundService:
		capBits = types.CapBFSL
	default:
		capBits = types.CapNone
	}
	if ps <= types.ProcStateForegroundService {
		capBits |= types.CapPowerRestrictedNetwork | types.CapUserRestrictedNetwork
	}
	return capBits
}

// fgsCapabilities derives the FGS-type-driven capability bits
// (location granted when a foreground service declares the location
// type; camera/microphone gated by the platform-compat default carried
// in config when no collaborator is wired: with the gate enabled they
// follow the declared types, with it disabled any foreground service
// grants both).
func (c *Computer) fgsCapabilities(p *types.ProcessRecord) types.Capability {
	var mask uint32
	hasFGS := false
	for _, s := range p.Services {
		if s.IsForeground {
			hasFGS = true
			mask |= s.FGSTypeMask
		}
	}
	if !hasFGS {
		return types.CapNone
	}
	var capBits types.Capability
	const (
		fgsTypeLocation   uint32 = 1 << 0
		fgsTypeCamera     uint32 = 1 << 1
		fgsTypeMicrophone uint32 = 1 << 2
	)
	if mask&fgsTypeLocation != 0 {
		capBits |= types.CapFGLocation
	}
	if c.cfg.CameraMicrophoneCapabilityDefault {
		if mask&fgsTypeCamera != 0 {
			capBits |= types.CapFGCamera
		}
		if mask&fgsTypeMicrophone != 0 {
			capBits |= types.CapFGMicrophone
		}
	} else {
		capBits |= types.CapFGCamera | types.CapFGMicrophone
	}
	return capBits
}

// cpuTimeCapabilities composes the CPU-time reason bits already
// accumulated on the process plus the implicit grant for any adj
// strictly below the freezer adj cutoff (CACHED_MIN).
func (c *Computer) cpuTimeCapabilities(p *types.ProcessRecord) types.Capability {
	var capBits types.Capability
	if p.CurCPUTimeReasons != 0 {
		capBits |= types.CapCPUTime
	}
	if p.CurAdj < types.CachedAppMinAdj {
		capBits |= types.CapImplicitCPUTime
	}
	return capBits
}
