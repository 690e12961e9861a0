// Package connprop implements the Connection Propagator: given a
// client ProcessRecord and one of its outgoing bindings, it computes
// the impact on the binding's host. Styled after a dispatch-by-flag
// eligibility gate — a sequence of independent flag checks feeding one
// mutable result — generalized from worker-assignment flags to bind
// flags.
package connprop

import (
	"github.com/khryptorgraphics/procadj/pkg/types"
)

// Propagator evaluates binding effects. Stateless; the same value
// serves every binding in a pass.
type Propagator struct{}

// New returns a Propagator.
func New() *Propagator { return &Propagator{} }

// Result carries the fields a binding evaluation may change on the
// host, plus whether anything changed at all.
type Result struct {
	Changed          bool
	Adj              types.Adj
	ProcState        types.ProcState
	SchedGroup       types.SchedGroup
	Capability       types.Capability
	ShouldNotFreeze  bool
	CPUTimeReasons   uint32
}

// ComputeServiceHost evaluates one service binding's effect on its
// host. In apply mode (dryRun=false) it mutates host's computed
// attributes in place and returns whether anything changed. In
// dry-run mode it leaves host untouched and only reports whether the
// binding would promote it.
func (p *Propagator) ComputeServiceHost(client, host *types.ProcessRecord, conn *types.ConnectionRecord, dryRun bool) bool {
	if host.IsPendingFinishAttach {
		return false
	}

	res := evaluateServiceBinding(client, host, conn.Flags, conn.AttributedClient != nil && conn.AttributedClient != client)

	if !res.Changed {
		return false
	}
	if dryRun {
		return true
	}

	applyResult(host, res)
	return true
}

// ComputeProviderHost evaluates one provider binding's effect on its
// host: a strict subset of the service-binding rules (no bind flags on
// a ContentProviderConnection).
func (p *Propagator) ComputeProviderHost(client, host *types.ProcessRecord, dryRun bool) bool {
	if host.IsPendingFinishAttach {
		return false
	}

	wantAdj := client.CurAdj
	if wantAdj < types.ForegroundAppAdj {
		wantAdj = types.ForegroundAppAdj
	}
	if wantAdj > host.MaxAdj {
		wantAdj = host.MaxAdj
	}
	wantPS := host.CurProcState
	switch {
	case client.CurProcState == types.ProcStateTop:
		wantPS = types.ProcStateBoundTop
	case client.CurProcState <= types.ProcStateBoundForegroundService:
		wantPS = types.ProcStateBoundForegroundService
	}

	changed := false
	if wantAdj < host.CurAdj {
		changed = true
	}
	if wantPS < host.CurProcState {
		changed = true
	}
	wantCap := host.CurCapability
	if client.CurCapability.Has(types.CapBFSL) {
		wantCap |= types.CapBFSL
	}
	if wantCap != host.CurCapability {
		changed = true
	}

	if !changed || dryRun {
		return changed
	}

	if wantAdj < host.CurAdj {
		host.CurAdj = wantAdj
	}
	if wantPS < host.CurProcState {
		host.CurProcState = wantPS
	}
	host.CurCapability = wantCap
	return true
}

// evaluateServiceBinding computes the candidate result of one service
// binding without touching host, so apply and dry-run share one code
// path.
func evaluateServiceBinding(client, host *types.ProcessRecord, flags types.BindFlags, isolatedChild bool) Result {
	res := Result{
		Adj:             host.CurAdj,
		ProcState:       host.CurProcState,
		SchedGroup:      host.CurSchedGroup,
		Capability:      host.CurCapability,
		ShouldNotFreeze: host.ShouldNotFreeze,
		CPUTimeReasons:  host.CurCPUTimeReasons,
	}

	// Capability propagation always applies, regardless of flags.
	if host.CurProcState <= types.ProcStateBoundForegroundService && client.CurCapability.Has(types.CapBFSL) {
		if !res.Capability.Has(types.CapBFSL) {
			res.Capability |= types.CapBFSL
			res.Changed = true
		}
	}
	if client.CurCPUTimeReasons != 0 && res.CPUTimeReasons&client.CurCPUTimeReasons != client.CurCPUTimeReasons {
		res.CPUTimeReasons |= client.CurCPUTimeReasons
		res.Changed = true
	}
	if flags.Has(types.BindBypassPowerNetworkRestrictions) && !res.Capability.Has(types.CapPowerRestrictedNetwork) {
		res.Capability |= types.CapPowerRestrictedNetwork
		res.Changed = true
	}
	if flags.Has(types.BindBypassUserNetworkRestrictions) && !res.Capability.Has(types.CapUserRestrictedNetwork) {
		res.Capability |= types.CapUserRestrictedNetwork
		res.Changed = true
	}

	if flags.Has(types.BindWaivePriority) {
		if client.CurProcState < types.ProcStateCachedActivity && !res.ShouldNotFreeze {
			res.ShouldNotFreeze = true
			res.Changed = true
		}
		if flags.Has(types.BindTreatLikeActivity) {
			res = applyTreatLikeActivity(res, client)
		}
		return res
	}

	clientPS := client.CurProcState
	if clientPS >= types.ProcStateCachedActivity {
		clientPS = types.ProcStateCachedEmpty
	}
	clientAdj := client.CurAdj

	if flags.Has(types.BindAllowOomManagement) {
		if clientAdj >= types.CachedAppMinAdj {
			if !res.ShouldNotFreeze {
				res.ShouldNotFreeze = true
				res.Changed = true
			}
		}
	}

	if host.CurAdj > clientAdj {
		newAdj := computeBoundAdj(clientAdj, clientPS, host.CurAdj, flags)
		if newAdj < host.CurAdj {
			res.Adj = newAdj
			res.Changed = true
		}
		if isolatedChild {
			candidate := clientAdj + 1
			if candidate < res.Adj {
				res.Adj = candidate
				res.Changed = true
			}
		}
	}

	if !flags.Has(types.BindNotForeground) && !flags.Has(types.BindImportantBackground) {
		wantGroup := client.CurSchedGroup
		if !flags.Has(types.BindImportant) && wantGroup > types.SchedGroupDefault {
			wantGroup = types.SchedGroupDefault
		}
		if flags.Has(types.BindScheduleLikeTopApp) && client.IsSdkSandbox {
			wantGroup = types.SchedGroupTopApp
		}
		if wantGroup > res.SchedGroup {
			res.SchedGroup = wantGroup
			res.Changed = true
		}
	}

	newPS := computeBoundProcState(clientPS, flags)
	if newPS < res.ProcState {
		res.ProcState = newPS
		res.Changed = true
	}

	if flags.Has(types.BindTreatLikeActivity) {
		res = applyTreatLikeActivity(res, client)
	}
	if flags.Has(types.BindAdjustWithActivity) && client.HasVisibleActivities {
		if types.ForegroundAppAdj < res.Adj {
			res.Adj = types.ForegroundAppAdj
			res.Changed = true
		}
	}

	return res
}

// computeBoundAdj implements the clamp-rule ladder for a host whose
// adj is currently worse than its client's.
func computeBoundAdj(clientAdj types.Adj, clientPS types.ProcState, hostAdj types.Adj, flags types.BindFlags) types.Adj {
	switch {
	case flags.Has(types.BindAboveClient) && flags.Has(types.BindImportant) && clientPS < types.ProcStateBackup:
		return types.PersistentServiceAdj
	case flags.Has(types.BindNotPerceptible) && clientAdj <= types.PerceptibleAppAdj && hostAdj >= types.PerceptibleLowAppAdj:
		return types.PerceptibleLowAppAdj
	case flags.Has(types.BindAlmostPerceptible) && !flags.Has(types.BindNotForeground):
		return types.PerceptibleAppAdj + 1
	case flags.Has(types.BindAlmostPerceptible) && flags.Has(types.BindNotForeground):
		return types.PerceptibleMediumApp + 2
	case flags.Has(types.BindNotVisible):
		return types.PerceptibleAppAdj
	case flags.Has(types.BindTreatLikeVisibleForegroundService) && clientAdj <= types.VisibleAppAdj:
		return types.VisibleAppAdj
	case clientPS == types.ProcStateTop:
		return types.VisibleAppAdj
	case clientPS <= types.ProcStateBoundForegroundService &&
		(flags.Has(types.BindForegroundService) || flags.Has(types.BindForegroundServiceWhileAwake)):
		return types.PerceptibleAppAdj
	default:
		if clientAdj < hostAdj {
			return clientAdj
		}
		return hostAdj
	}
}

// computeBoundProcState implements the procstate propagation rules: a
// top client grants BOUND_TOP; an FGS-flagged binding from an
// FGS-or-better client grants BOUND_FOREGROUND_SERVICE; otherwise the
// host gets a floor depending on the importance-background flag.
func computeBoundProcState(clientPS types.ProcState, flags types.BindFlags) types.ProcState {
	switch {
	case clientPS == types.ProcStateTop:
		return types.ProcStateBoundTop
	case clientPS <= types.ProcStateBoundForegroundService &&
		(flags.Has(types.BindForegroundService) || flags.Has(types.BindForegroundServiceWhileAwake)):
		return types.ProcStateBoundForegroundService
	case flags.Has(types.BindImportantBackground):
		return types.ProcStateImportantBackground
	case clientPS <= types.ProcStateImportantForeground:
		return types.ProcStateImportantForeground
	default:
		return types.ProcStateTransientBackground
	}
}

func applyTreatLikeActivity(res Result, client *types.ProcessRecord) Result {
	if res.ProcState >= types.ProcStateCachedActivity && client.CurProcState < types.ProcStateCachedActivity {
		res.ProcState = types.ProcStateCachedActivity
		res.Changed = true
	}
	return res
}

func applyResult(host *types.ProcessRecord, res Result) {
	host.CurAdj = res.Adj
	host.CurProcState = res.ProcState
	host.CurSchedGroup = res.SchedGroup
	host.CurCapability = res.Capability
	host.ShouldNotFreeze = res.ShouldNotFreeze
	host.CurCPUTimeReasons = res.CPUTimeReasons
}

// Unimportant reports whether host is already at least as important
// as client in adj, procstate, capability (host holds a superset) and
// should-not-freeze, so the caller can skip evaluation entirely. It
// does not look at the binding's flags or at either sched group.
func Unimportant(client, host *types.ProcessRecord) bool {
	return host.CurAdj <= client.CurAdj &&
		host.CurProcState <= client.CurProcState &&
		host.CurCapability&client.CurCapability == client.CurCapability &&
		(host.ShouldNotFreeze || !client.ShouldNotFreeze)
}
