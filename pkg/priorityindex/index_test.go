package priorityindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khryptorgraphics/procadj/pkg/types"
)

func newProc(id types.ProcessID, ps types.ProcState, adj types.Adj) *types.ProcessRecord {
	p := types.NewProcessRecord(id, types.UID(id), 0)
	p.CurProcState = ps
	p.CurRawAdj = adj
	return p
}

func TestProcStateIndex_SlotMatchesAttribute(t *testing.T) {
	ix := NewProcStateIndex()
	a := newProc(1, types.ProcStateTop, 0)
	ix.Offer(a)
	require.True(t, ix.Linked(a))
	assert.Equal(t, int(types.ProcStateTop), a.ProcStateNode.Slot)
}

func TestProcStateIndex_PollOrdersByImportance(t *testing.T) {
	ix := NewProcStateIndex()
	top := newProc(1, types.ProcStateTop, 0)
	cached := newProc(2, types.ProcStateCachedEmpty, 900)
	persistent := newProc(3, types.ProcStatePersistent, -800)

	ix.Offer(cached)
	ix.Offer(top)
	ix.Offer(persistent)

	first, ok := ix.Poll()
	require.True(t, ok)
	assert.Equal(t, persistent, first)

	second, ok := ix.Poll()
	require.True(t, ok)
	assert.Equal(t, top, second)

	third, ok := ix.Poll()
	require.True(t, ok)
	assert.Equal(t, cached, third)

	_, ok = ix.Poll()
	assert.False(t, ok)
}

func TestProcStateIndex_FIFOWithinSlot(t *testing.T) {
	ix := NewProcStateIndex()
	a := newProc(1, types.ProcStateService, 500)
	b := newProc(2, types.ProcStateService, 500)
	c := newProc(3, types.ProcStateService, 500)
	ix.Offer(a)
	ix.Offer(b)
	ix.Offer(c)

	got := []types.ProcessID{}
	for {
		p, ok := ix.Poll()
		if !ok {
			break
		}
		got = append(got, p.PID)
	}
	assert.Equal(t, []types.ProcessID{1, 2, 3}, got)
}

func TestIndex_UnlinkThenReOffer(t *testing.T) {
	ix := NewProcStateIndex()
	a := newProc(1, types.ProcStateCachedEmpty, 900)
	ix.Offer(a)
	ix.Unlink(a)
	assert.False(t, ix.Linked(a))
	assert.Equal(t, 0, ix.Len())

	a.CurProcState = types.ProcStateTop
	ix.Offer(a)
	assert.True(t, ix.Linked(a))
	assert.Equal(t, int(types.ProcStateTop), a.ProcStateNode.Slot)
}

func TestIndex_ReOfferMovesSlot(t *testing.T) {
	ix := NewProcStateIndex()
	a := newProc(1, types.ProcStateCachedEmpty, 900)
	ix.Offer(a)
	a.CurProcState = types.ProcStateTop
	ix.Offer(a)

	p, ok := ix.Poll()
	require.True(t, ok)
	assert.Equal(t, a, p)
	assert.Equal(t, 0, ix.Len())
}

func TestIndex_Reset(t *testing.T) {
	ix := NewProcStateIndex()
	a := newProc(1, types.ProcStateTop, 0)
	b := newProc(2, types.ProcStateHome, 600)
	ix.Offer(a)
	ix.Offer(b)
	require.Equal(t, 2, ix.Len())

	ix.Reset()
	assert.Equal(t, 0, ix.Len())
	assert.True(t, ix.Empty())
	_, ok := ix.Poll()
	assert.False(t, ok)
}

func TestAdjIndex_SlotsFollowCutoffTable(t *testing.T) {
	ix := NewAdjIndex(nil)
	native := newProc(1, types.ProcStateUnknown, types.NativeAdj)
	cached := newProc(2, types.ProcStateUnknown, types.CachedAppMaxAdj)
	unknown := newProc(3, types.ProcStateUnknown, types.UnknownAdj)

	ix.Offer(native)
	ix.Offer(cached)
	ix.Offer(unknown)

	assert.Less(t, native.AdjNode.Slot, cached.AdjNode.Slot)
	assert.Less(t, cached.AdjNode.Slot, unknown.AdjNode.Slot)
	assert.Equal(t, len(DefaultAdjCutoffs())-1, unknown.AdjNode.Slot)
}

func TestAdjIndex_OrdersByRawAdjWithinSlot(t *testing.T) {
	ix := NewAdjIndex(nil)
	lo := newProc(1, types.ProcStateUnknown, types.CachedAppMinAdj)
	hi := newProc(2, types.ProcStateUnknown, types.CachedAppMaxAdj)
	mid := newProc(3, types.ProcStateUnknown, types.CachedAppMinAdj+10)

	ix.Offer(hi)
	ix.Offer(lo)
	ix.Offer(mid)

	first, _ := ix.Poll()
	second, _ := ix.Poll()
	third, _ := ix.Poll()
	assert.Equal(t, lo, first)
	assert.Equal(t, mid, second)
	assert.Equal(t, hi, third)
}

func TestAdjSlot_ClampsPastLastCutoff(t *testing.T) {
	cutoffs := DefaultAdjCutoffs()
	assert.Equal(t, len(cutoffs)-1, AdjSlot(types.UnknownAdj+500, cutoffs))
}

// Two processes sharing a slot across two consecutive Reset+Offer
// passes must both come back out linked: a stale link left on one of
// them from the first pass must never corrupt the second pass's
// splice of the other.
func TestIndex_TwoConsecutivePassesWithSharedSlot(t *testing.T) {
	ix := NewProcStateIndex()
	a := newProc(1, types.ProcStateCachedEmpty, 900)
	b := newProc(2, types.ProcStateCachedEmpty, 900)

	ix.Offer(a)
	ix.Offer(b)
	require.Equal(t, 2, ix.Len())

	first, ok := ix.Poll()
	require.True(t, ok)
	second, ok := ix.Poll()
	require.True(t, ok)
	assert.ElementsMatch(t, []types.ProcessID{1, 2}, []types.ProcessID{first.PID, second.PID})

	ix.Reset()
	ix.Offer(a)
	ix.Offer(b)
	require.Equal(t, 2, ix.Len(), "both processes must be linked again after a second Reset+Offer pass")

	require.True(t, ix.Linked(a))
	require.True(t, ix.Linked(b))

	third, ok := ix.Poll()
	require.True(t, ok)
	fourth, ok := ix.Poll()
	require.True(t, ok)
	assert.ElementsMatch(t, []types.ProcessID{1, 2}, []types.ProcessID{third.PID, fourth.PID})
	assert.Equal(t, 0, ix.Len())
}
