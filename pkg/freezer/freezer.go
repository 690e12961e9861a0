// Package freezer implements the freezer policy gate: given a process's
// already-computed attributes, decide whether it should be frozen (at
// the earliest point or asynchronously) or unfrozen; every decision is
// one of those three. The actual freeze mechanism (cgroup/cpuset
// manipulation) belongs to a collaborator; this package only decides.
//
// Styled after a small, pure eligibility-gate function deciding
// whether a worker may accept new work, re-purposed from worker
// eligibility to freeze eligibility.
package freezer

import (
	"github.com/khryptorgraphics/procadj/internal/config"
	"github.com/khryptorgraphics/procadj/pkg/types"
)

// Kind is the freezer action emitted for a process.
type Kind int

const (
	FreezeAtEarliest Kind = iota
	FreezeAsync
	Unfreeze
)

func (k Kind) String() string {
	switch k {
	case FreezeAtEarliest:
		return "freeze_at_earliest"
	case FreezeAsync:
		return "freeze_async"
	case Unfreeze:
		return "unfreeze"
	default:
		return "invalid_freezer_kind"
	}
}

// Decision is one freezer policy outcome for one process.
type Decision struct {
	Kind   Kind
	Reason string
}

// ShouldFreeze implements the capability-based policy (default): a
// process holding either CPU-time capability is never frozen, nor is
// one flagged freeze-exempt by static per-package configuration.
func ShouldFreeze(p *types.ProcessRecord) bool {
	if p.CurCapability.Has(types.CapCPUTime) || p.CurCapability.Has(types.CapImplicitCPUTime) {
		return false
	}
	if p.FreezeExempt {
		return false
	}
	return true
}

// LegacyShouldFreeze implements the pre-capability-policy fallback:
// freeze solely on adj crossing into the cached band, gated by
// should_not_freeze and freeze_exempt. Selected via
// AdjusterConfig.LegacyFreezePolicy for deployments that have not yet
// adopted the capability-based gate.
func LegacyShouldFreeze(p *types.ProcessRecord) bool {
	return p.CurAdj >= types.CachedAppMinAdj && !p.ShouldNotFreeze && !p.FreezeExempt
}

// Decide evaluates the configured policy for one process and reports
// the action the Adjuster should emit. A process with no hosted
// components pending work is asked to freeze at the earliest
// opportunity; one with executing services or pending broadcast
// delivery freezes asynchronously, giving in-flight work a chance to
// finish before the freeze actually lands.
func Decide(p *types.ProcessRecord, cfg *config.AdjusterConfig) Decision {
	freeze := ShouldFreeze(p)
	if cfg.LegacyFreezePolicy {
		freeze = LegacyShouldFreeze(p)
	}
	if !freeze {
		reason := "capability"
		if cfg.LegacyFreezePolicy {
			reason = "legacy_adj_threshold"
		}
		return Decision{Kind: Unfreeze, Reason: reason}
	}
	if p.ExecutingServices > 0 || p.IsReceivingBroadcast {
		return Decision{Kind: FreezeAsync}
	}
	return Decision{Kind: FreezeAtEarliest}
}
