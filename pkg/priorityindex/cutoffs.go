package priorityindex

import (
	"sort"

	"github.com/khryptorgraphics/procadj/pkg/types"
)

// DefaultAdjCutoffs is the fixed adj cut-off table: ascending,
// inclusive upper bounds of each adj slot. Slot indices computed by
// binary search over this table (AdjSlot) are always consistent with
// the underlying numerical adj value.
func DefaultAdjCutoffs() []types.Adj {
	return []types.Adj{
		types.NativeAdj,
		types.SystemAdj,
		types.PersistentProcAdj,
		types.PersistentServiceAdj,
		types.ForegroundAppAdj,
		types.PerceptibleRecentFG,
		types.VisibleAppMaxAdj,
		types.PerceptibleAppAdj,
		types.PerceptibleMediumApp,
		types.PerceptibleLowAppAdj,
		types.BackupAppAdj,
		types.HeavyWeightAppAdj,
		types.ServiceAdj,
		types.HomeAppAdj,
		types.PreviousAppAdj,
		types.ServiceBAdj,
		types.CachedAppMaxAdj,
		types.UnknownAdj,
	}
}

// AdjSlot returns the index of the first cutoff whose value is >= adj,
// i.e. the slot adj falls into. Cutoffs must be sorted ascending; adj
// values past the last cutoff clamp to the last slot.
func AdjSlot(adj types.Adj, cutoffs []types.Adj) int {
	slot := sort.Search(len(cutoffs), func(i int) bool { return cutoffs[i] >= adj })
	if slot >= len(cutoffs) {
		return len(cutoffs) - 1
	}
	return slot
}
