package updatedriver

import (
	"time"

	"github.com/khryptorgraphics/procadj/pkg/freezer"
	"github.com/khryptorgraphics/procadj/pkg/metrics"
	"github.com/khryptorgraphics/procadj/pkg/types"
)

func startTimer(reg *metrics.Registry, kind string) func() {
	if reg == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		reg.PassDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}

func processName(p *types.ProcessRecord) string {
	for name := range p.PackageNames {
		return name
	}
	return ""
}

// apply walks every touched process: for each computed attribute that
// differs from its committed value, emit the matching callback, then
// roll the committed value forward. Unchanged values never emit
// (idempotence).
func (d *Driver) apply(now int64) {
	touchedUIDs := make(map[types.UID]bool)
	adjChangedUIDs := make(map[types.UID]bool)

	for _, p := range d.store.All() {
		touchedUIDs[p.UID] = true
		changedAny := false

		if p.CurAdj != p.SetAdj {
			p.SetAdj = p.CurAdj
			d.observer.OnOomAdj(p.PID, p.UID, p.CurAdj)
			if d.metrics != nil {
				d.metrics.OomAdjChanges.Inc()
			}
			adjChangedUIDs[p.UID] = true
			changedAny = true
		}
		if p.CurSchedGroup != p.SetSchedGroup {
			p.SetSchedGroup = p.CurSchedGroup
			d.observer.OnProcessGroup(p.PID, p.CurSchedGroup, processName(p))
			changedAny = true
		}
		if p.CurProcState != p.SetProcState {
			p.SetProcState = p.CurProcState
			p.LastStateTimeMs = now
			d.observer.OnProcState(p.PID, p.CurProcState)
			if d.metrics != nil {
				d.metrics.ProcStateChanges.Inc()
			}
			changedAny = true
		}
		if p.CurCapability != p.SetCapability {
			p.SetCapability = p.CurCapability
			d.observer.OnCapability(p.PID, p.CurCapability)
			if d.metrics != nil {
				d.metrics.CapabilityChanges.Inc()
			}
			changedAny = true
		}

		decision := freezer.Decide(p, d.cfg)
		if prev := d.lastFreeze[p.PID]; prev == nil || *prev != decision.Kind {
			kind := decision.Kind
			d.lastFreeze[p.PID] = &kind
			d.observer.OnFreezerDecision(p.PID, decision)
			if d.metrics != nil {
				d.metrics.FreezerDecisions.WithLabelValues(decision.Kind.String()).Inc()
			}
		}

		if changedAny && d.metrics != nil {
			d.metrics.ProcessesUpdated.WithLabelValues("pass").Inc()
		}
	}

	for uid := range touchedUIDs {
		d.applyUid(uid, adjChangedUIDs[uid])
	}
}

// applyUid recomputes uid's aggregate (most-important member procstate
// plus union of capability bits) and emits one on_uid_change event
// carrying every transition flag that fired.
func (d *Driver) applyUid(uid types.UID, adjChanged bool) {
	rec, ok := d.uids[uid]
	if !ok {
		rec = &types.UidRecord{UID: uid, SetProcState: types.ProcStateCachedEmpty}
		d.uids[uid] = rec
	}

	best := types.ProcStateCachedEmpty
	var capAgg types.Capability
	n := 0
	for _, p := range d.store.All() {
		if p.UID != uid {
			continue
		}
		n++
		if p.CurProcState < best {
			best = p.CurProcState
		}
		capAgg |= p.CurCapability
	}
	if n == 0 {
		delete(d.uids, uid)
		return
	}

	var flags types.UidChangeFlags
	wasIdle := rec.SetProcState >= types.ProcStateCachedEmpty
	isIdle := best >= types.ProcStateCachedEmpty
	if isIdle && !wasIdle {
		flags |= types.UidChangeIdle
	}
	if !isIdle && wasIdle {
		flags |= types.UidChangeActive
	}

	wasCached := rec.SetProcState.Cached()
	isCached := best.Cached()
	if isCached && !wasCached {
		flags |= types.UidChangeCached
	}
	if !isCached && wasCached {
		flags |= types.UidChangeUncached
	}

	if capAgg != rec.CurCapability {
		flags |= types.UidChangeCapability
	}
	if best != rec.SetProcState {
		flags |= types.UidChangeProcState
	}
	if adjChanged {
		flags |= types.UidChangeProcAdj
	}

	rec.NumProcs = n
	rec.CurProcState = best
	rec.CurCapability = capAgg
	rec.Idle = isIdle
	rec.Active = !isIdle

	if flags == 0 {
		return
	}
	rec.SetProcState = best
	d.observer.OnUidChange(uid, flags)
}
