package updatedriver

import (
	"github.com/khryptorgraphics/procadj/pkg/types"
)

// ladderPass assigns a final adj to every process the decision
// waterfall left at or above UNKNOWN, walking procs in the order
// given (callers pass LRU order, most-recently-used first).
func (d *Driver) ladderPass(procs []*types.ProcessRecord, now int64) {
	if d.cfg.LadderMode == "distributed" {
		d.distributedLadder(procs)
		return
	}
	d.tieredLadder(procs, now)
}

// tieredLadder implements the "Tiered" ladder mode: a small
// contiguous band for processes that have shown UI, a fixed "old
// cached" adj past the decay time, the base adj for freeze-exempt
// processes, and one flat adj for everything else.
func (d *Driver) tieredLadder(procs []*types.ProcessRecord, now int64) {
	uiBase := types.CachedAppMinAdj + 10
	uiSpan := types.Adj(d.cfg.UITierSize)
	if uiSpan < 1 {
		uiSpan = 1
	}
	uiCap := uiBase + uiSpan - 1
	oldCachedAdj := types.CachedAppMinAdj + 40 + uiSpan
	flatAdj := types.CachedAppMinAdj + 10 + uiSpan
	decayMs := d.cfg.CachedDecayTime.Milliseconds()

	uiSlot := types.Adj(0)
	for _, p := range procs {
		if p.CurAdj < types.UnknownAdj {
			continue
		}

		var adj types.Adj
		switch {
		case p.FreezeExempt:
			adj = types.CachedAppMinAdj
		case p.HasShownUI:
			adj = uiBase + uiSlot
			if adj > uiCap {
				adj = uiCap
			} else {
				uiSlot++
			}
		case decayMs > 0 && p.CachedSinceMs > 0 && now-p.CachedSinceMs > decayMs:
			adj = oldCachedAdj
		default:
			adj = flatAdj
		}

		p.CurAdj = adj
		p.CurRawAdj = adj
		p.CurAdjType = types.AdjTypeLadder
	}
}

// distributedLadder implements the "Distributed" ladder mode:
// cached and empty processes are bucketed separately by LRU position
// into up to CachedAppImportanceLevels steps spanning
// [CACHED_MIN, CACHED_MAX], bounded by CurMaxCachedProcesses /
// CurMaxEmptyProcesses slots respectively. Processes sharing a
// connection group occupy one slot.
func (d *Driver) distributedLadder(procs []*types.ProcessRecord) {
	var empty, cached []*types.ProcessRecord
	for _, p := range procs {
		if p.CurAdj < types.UnknownAdj {
			continue
		}
		if p.CurProcState >= types.ProcStateCachedEmpty {
			empty = append(empty, p)
		} else {
			cached = append(cached, p)
		}
	}
	d.ladderGroup(empty, d.cfg.CurMaxEmptyProcesses)
	d.ladderGroup(cached, d.cfg.CurMaxCachedProcesses)
}

func (d *Driver) ladderGroup(procs []*types.ProcessRecord, maxSlots int) {
	if len(procs) == 0 {
		return
	}
	levels := d.cfg.CachedAppImportanceLevels
	if levels < 1 {
		levels = 1
	}
	if maxSlots < 1 {
		maxSlots = 1
	}
	slots := levels
	if maxSlots < slots {
		slots = maxSlots
	}
	span := types.CachedAppMaxAdj - types.CachedAppMinAdj
	step := span / types.Adj(slots)
	if step < 1 {
		step = 1
	}

	groupSlot := make(map[string]types.Adj)
	slot := types.Adj(0)
	for _, p := range procs {
		var adj types.Adj
		if p.ConnectionGroup != "" {
			if existing, ok := groupSlot[p.ConnectionGroup]; ok {
				adj = existing
			} else {
				adj = types.CachedAppMinAdj + slot*step
				groupSlot[p.ConnectionGroup] = adj
				slot++
			}
		} else {
			adj = types.CachedAppMinAdj + slot*step
			slot++
		}
		if adj > types.CachedAppMaxAdj {
			adj = types.CachedAppMaxAdj
		}
		p.CurAdj = adj
		p.CurRawAdj = adj
		p.CurAdjType = types.AdjTypeLadder
	}
}
