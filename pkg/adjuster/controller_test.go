package adjuster

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khryptorgraphics/procadj/internal/config"
	"github.com/khryptorgraphics/procadj/pkg/freezer"
	"github.com/khryptorgraphics/procadj/pkg/metrics"
	"github.com/khryptorgraphics/procadj/pkg/procstore"
	"github.com/khryptorgraphics/procadj/pkg/types"
)

type fakeObserver struct {
	oomAdj     []types.ProcessID
	procStates []types.ProcessID
	freezes    []freezer.Decision
}

func (f *fakeObserver) OnOomAdj(pid types.ProcessID, uid types.UID, adj types.Adj) {
	f.oomAdj = append(f.oomAdj, pid)
}
func (f *fakeObserver) OnProcessGroup(pid types.ProcessID, group types.SchedGroup, name string) {}
func (f *fakeObserver) OnProcState(pid types.ProcessID, ps types.ProcState) {
	f.procStates = append(f.procStates, pid)
}
func (f *fakeObserver) OnCapability(pid types.ProcessID, cap types.Capability) {}
func (f *fakeObserver) OnFreezerDecision(pid types.ProcessID, d freezer.Decision) {
	f.freezes = append(f.freezes, d)
}
func (f *fakeObserver) OnUidChange(uid types.UID, flags types.UidChangeFlags) {}

type fakeTopListener struct {
	changes []*types.ProcessID
}

func (f *fakeTopListener) OnTopChanged(pid *types.ProcessID) {
	f.changes = append(f.changes, pid)
}

func newTestController() (*Controller, *procstore.Store, *fakeObserver, *fakeTopListener) {
	store := procstore.New()
	obs := &fakeObserver{}
	top := &fakeTopListener{}
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	c := New(store, config.Default(), obs, reg, top)
	return c, store, obs, top
}

func TestController_SetTopThenRunFullUpdate(t *testing.T) {
	ctrl, _, obs, top := newTestController()
	ctrl.SetClock(func() int64 { return 1000 })

	a := ctrl.AttachProcess(1, 100, 0)
	b := ctrl.AttachProcess(2, 200, 0)

	pid := types.ProcessID(1)
	ctrl.Mutate(func(s *Session) { s.SetTop(&pid, true) })

	ctrl.RunFullUpdate(types.ReasonActivity)

	assert.Equal(t, types.ForegroundAppAdj, a.CurAdj)
	assert.Equal(t, types.ProcStateTop, a.CurProcState)
	assert.GreaterOrEqual(t, b.CurAdj, types.CachedAppMinAdj)
	assert.Contains(t, obs.oomAdj, types.ProcessID(1))
	require.Len(t, top.changes, 1)
	require.NotNil(t, top.changes[0])
	assert.Equal(t, pid, *top.changes[0])
}

func TestController_BoundTopPropagationViaConnection(t *testing.T) {
	ctrl, _, _, _ := newTestController()
	ctrl.SetClock(func() int64 { return 1000 })

	ctrl.AttachProcess(1, 100, 0)
	ctrl.AttachProcess(3, 300, 0)

	pid := types.ProcessID(1)
	ctrl.Mutate(func(s *Session) {
		s.SetTop(&pid, true)
		s.AddConnection(1, 3, "svc", 0, false, nil)
		s.RequestFullUpdate()
	})

	cProc, ok := ctrl.store.Get(3)
	require.True(t, ok)
	assert.Equal(t, types.ProcStateBoundTop, cProc.CurProcState)
	assert.Equal(t, types.VisibleAppAdj, cProc.CurAdj)

	ctrl.Mutate(func(s *Session) {
		s.RemoveConnection(1, 3, "svc")
		s.RequestFullUpdate()
	})

	cProc, _ = ctrl.store.Get(3)
	assert.Equal(t, types.ProcStateCachedEmpty, cProc.CurProcState)
	assert.GreaterOrEqual(t, cProc.CurAdj, types.CachedAppMinAdj)
}

func TestSession_NestedOnlyOutermostCloseFlushes(t *testing.T) {
	ctrl, _, _, _ := newTestController()
	ctrl.SetClock(func() int64 { return 1000 })
	ctrl.AttachProcess(1, 100, 0)

	outer := ctrl.BeginSession()
	inner := ctrl.BeginSession()

	inner.SetHasShownUI(1, true)
	inner.Close()

	p, _ := ctrl.store.Get(1)
	assert.False(t, p.HasShownUI, "inner close must not flush while outer session is still open")

	outer.Close()

	p, _ = ctrl.store.Get(1)
	assert.True(t, p.HasShownUI, "outermost close must flush staged mutations")
}

// A RequestFullUpdate call made on an inner session must still trigger
// a pass when the outer session closes, even though the outer session
// itself never asks for one.
func TestSession_NestedRequestFullUpdateReachesOutermostClose(t *testing.T) {
	ctrl, store, _, _ := newTestController()
	ctrl.SetClock(func() int64 { return 1000 })
	ctrl.AttachProcess(1, 100, 0)

	outer := ctrl.BeginSession()
	inner := ctrl.BeginSession()

	inner.RequestFullUpdate()
	inner.Close()

	outer.Close()

	p, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, types.AdjTypeLadder, p.CurAdjType, "full pass requested by the inner session must have run and assigned a ladder adj_type")
}

func TestController_ShortFGSThenTimeout(t *testing.T) {
	ctrl, _, _, _ := newTestController()
	ctrl.SetClock(func() int64 { return 1000 })
	ctrl.AttachProcess(1, 100, 0)

	ctrl.Mutate(func(s *Session) {
		s.SetShortFGSInfo(1, "svc")
		s.RequestFullUpdate()
	})

	p, _ := ctrl.store.Get(1)
	assert.Equal(t, types.ProcStateForegroundService, p.CurProcState)
	assert.False(t, p.CurCapability.Has(types.CapBFSL))

	ctrl.Mutate(func(s *Session) {
		s.ClearShortFGSInfo(1, "svc")
		s.RequestFullUpdate()
	})

	p, _ = ctrl.store.Get(1)
	assert.GreaterOrEqual(t, p.CurProcState, types.ProcStateService)
}

func TestController_FreezerDecisionOnAdjTransition(t *testing.T) {
	ctrl, store, obs, _ := newTestController()
	ctrl.SetClock(func() int64 { return 1000 })
	ctrl.AttachProcess(1, 100, 0)

	// A paused activity lands the process at PERCEPTIBLE_APP_ADJ, below
	// the cached band, so cpuTimeCapabilities grants it the implicit
	// CPU-time capability and the freezer must not freeze it.
	ctrl.Mutate(func(s *Session) {
		s.SetActivityFlags(1, types.ActivityPaused, 0, 0)
		s.RequestFullUpdate()
	})

	p, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, types.PerceptibleAppAdj, p.CurAdj)
	require.Len(t, obs.freezes, 1)
	assert.Equal(t, freezer.Unfreeze, obs.freezes[0].Kind)

	// Clearing the activity state drops the process back to the cached
	// default baseline, above the cutoff: no capability survives and
	// the freezer must now ask to freeze at the earliest opportunity.
	ctrl.SetClock(func() int64 { return 2000 })
	ctrl.Mutate(func(s *Session) {
		s.SetActivityFlags(1, types.ActivityNone, 0, 0)
		s.RequestFullUpdate()
	})

	p2, _ := store.Get(1)
	assert.GreaterOrEqual(t, p2.CurAdj, types.CachedAppMinAdj)
	require.Len(t, obs.freezes, 2)
	assert.Equal(t, freezer.FreezeAtEarliest, obs.freezes[1].Kind)
}

func TestController_RunFollowupUpdateEnqueuesElapsedProcesses(t *testing.T) {
	ctrl, store, _, _ := newTestController()
	ctrl.SetClock(func() int64 { return 5000 })

	p := ctrl.AttachProcess(1, 100, 0)
	followupAt := int64(4000)
	p.FollowupUpdateUptime = &followupAt
	ctrl.mu.Lock()
	ctrl.followupAt = &followupAt
	ctrl.mu.Unlock()

	ctrl.RunFollowupUpdate()

	p2, ok := store.Get(1)
	require.True(t, ok)
	assert.Nil(t, p2.FollowupUpdateUptime)
}
