package connprop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khryptorgraphics/procadj/pkg/types"
)

func topProcess(id types.ProcessID) *types.ProcessRecord {
	p := types.NewProcessRecord(id, types.UID(id), 0)
	p.CurAdj = types.ForegroundAppAdj
	p.CurProcState = types.ProcStateTop
	p.CurSchedGroup = types.SchedGroupTopApp
	p.MaxAdj = types.UnknownAdj
	return p
}

func cachedProcess(id types.ProcessID) *types.ProcessRecord {
	p := types.NewProcessRecord(id, types.UID(id), 0)
	p.MaxAdj = types.UnknownAdj
	return p
}

func TestComputeServiceHost_BoundTopPropagation(t *testing.T) {
	prop := New()
	a := topProcess(1)
	c := cachedProcess(3)
	conn := &types.ConnectionRecord{Client: a, Flags: 0}

	changed := prop.ComputeServiceHost(a, c, conn, false)

	require.True(t, changed)
	assert.Equal(t, types.ProcStateBoundTop, c.CurProcState)
	assert.Equal(t, types.VisibleAppAdj, c.CurAdj)
	assert.Equal(t, types.SchedGroupDefault, c.CurSchedGroup)
}

func TestComputeServiceHost_WaivePriorityDoesNotPromote(t *testing.T) {
	prop := New()
	a := topProcess(1)
	c := cachedProcess(3)
	conn := &types.ConnectionRecord{Client: a, Flags: types.BindWaivePriority}

	prop.ComputeServiceHost(a, c, conn, false)

	assert.Equal(t, types.ProcStateCachedEmpty, c.CurProcState)
	assert.True(t, c.ShouldNotFreeze)
}

func TestComputeServiceHost_PendingFinishAttachSkipped(t *testing.T) {
	prop := New()
	a := topProcess(1)
	c := cachedProcess(3)
	c.IsPendingFinishAttach = true
	conn := &types.ConnectionRecord{Client: a, Flags: 0}

	changed := prop.ComputeServiceHost(a, c, conn, false)

	assert.False(t, changed)
	assert.Equal(t, types.ProcStateCachedEmpty, c.CurProcState)
}

func TestComputeServiceHost_DryRunDoesNotMutate(t *testing.T) {
	prop := New()
	a := topProcess(1)
	c := cachedProcess(3)
	conn := &types.ConnectionRecord{Client: a, Flags: 0}

	wouldChange := prop.ComputeServiceHost(a, c, conn, true)

	assert.True(t, wouldChange)
	assert.Equal(t, types.ProcStateCachedEmpty, c.CurProcState)
}

func TestComputeProviderHost_TopClientGivesBoundTop(t *testing.T) {
	prop := New()
	a := topProcess(1)
	c := cachedProcess(3)

	changed := prop.ComputeProviderHost(a, c, false)

	require.True(t, changed)
	assert.Equal(t, types.ProcStateBoundTop, c.CurProcState)
	assert.Equal(t, types.ForegroundAppAdj, c.CurAdj)
}

func TestUnimportant_SkipsAlreadyMoreImportantHost(t *testing.T) {
	a := cachedProcess(1)
	host := topProcess(2)

	assert.True(t, Unimportant(a, host))
}

func TestComputeServiceHost_BypassNetworkRestrictionFlagsGrantHostCapability(t *testing.T) {
	prop := New()
	a := cachedProcess(1)
	c := cachedProcess(3)
	conn := &types.ConnectionRecord{
		Client: a,
		Flags:  types.BindBypassPowerNetworkRestrictions | types.BindBypassUserNetworkRestrictions,
	}

	changed := prop.ComputeServiceHost(a, c, conn, false)

	require.True(t, changed)
	assert.True(t, c.CurCapability.Has(types.CapPowerRestrictedNetwork))
	assert.True(t, c.CurCapability.Has(types.CapUserRestrictedNetwork))
}

func TestComputeServiceHost_NoBypassFlagsLeaveNetworkCapabilityUnset(t *testing.T) {
	prop := New()
	a := cachedProcess(1)
	c := cachedProcess(3)
	conn := &types.ConnectionRecord{Client: a, Flags: 0}

	prop.ComputeServiceHost(a, c, conn, false)

	assert.False(t, c.CurCapability.Has(types.CapPowerRestrictedNetwork))
	assert.False(t, c.CurCapability.Has(types.CapUserRestrictedNetwork))
}
