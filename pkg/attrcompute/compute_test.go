package attrcompute

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/khryptorgraphics/procadj/internal/config"
	"github.com/khryptorgraphics/procadj/pkg/types"
)

func newComputer() *Computer {
	return New(config.Default())
}

func TestCompute_TopAppTagging(t *testing.T) {
	c := newComputer()
	p := types.NewProcessRecord(1, 100, 0)

	c.Compute(p, 1, types.ProcStateTop, 0)

	assert.Equal(t, types.ForegroundAppAdj, p.CurAdj)
	assert.Equal(t, types.ProcStateTop, p.CurProcState)
	assert.Equal(t, types.SchedGroupTopApp, p.CurSchedGroup)
	assert.Equal(t, types.CapAll|types.CapPowerRestrictedNetwork|types.CapUserRestrictedNetwork|types.CapImplicitCPUTime, p.CurCapability)
}

func TestCompute_NonTopDefaultsToCachedEmpty(t *testing.T) {
	c := newComputer()
	p := types.NewProcessRecord(2, 100, 0)

	c.Compute(p, 1, types.ProcStateTop, 0)

	assert.Equal(t, types.UnknownAdj, p.CurAdj)
	assert.Equal(t, types.ProcStateCachedEmpty, p.CurProcState)
}

func TestCompute_FGSCapabilityGating_Enabled(t *testing.T) {
	c := newComputer()
	p := types.NewProcessRecord(3, 100, 0)
	p.Services = []*types.ServiceRecord{
		{IsForeground: true, FGSTypeMask: 0b110}, // camera|microphone bits
	}

	c.Compute(p, 0, types.ProcStateTop, 0)

	assert.True(t, p.CurCapability.Has(types.CapFGCamera))
	assert.True(t, p.CurCapability.Has(types.CapFGMicrophone))
}

func TestCompute_FGSCapabilityGating_EnabledWithoutTypeBitsGrantsNeither(t *testing.T) {
	c := newComputer()
	p := types.NewProcessRecord(3, 100, 0)
	p.Services = []*types.ServiceRecord{
		{IsForeground: true, FGSTypeMask: 0b001}, // location only
	}

	c.Compute(p, 0, types.ProcStateTop, 0)

	assert.False(t, p.CurCapability.Has(types.CapFGCamera))
	assert.False(t, p.CurCapability.Has(types.CapFGMicrophone))
	assert.True(t, p.CurCapability.Has(types.CapFGLocation))
}

func TestCompute_FGSCapabilityGating_Disabled(t *testing.T) {
	cfg := config.Default()
	cfg.CameraMicrophoneCapabilityDefault = false
	c := New(cfg)
	p := types.NewProcessRecord(3, 100, 0)
	p.Services = []*types.ServiceRecord{
		{IsForeground: true, FGSTypeMask: 0b001}, // location only, no camera/mic bit
	}

	c.Compute(p, 0, types.ProcStateTop, 0)

	assert.True(t, p.CurCapability.Has(types.CapFGCamera))
	assert.True(t, p.CurCapability.Has(types.CapFGMicrophone))
	assert.True(t, p.CurCapability.Has(types.CapFGLocation))
}

func TestCompute_ShortFGSHasNoBFSL(t *testing.T) {
	c := newComputer()
	p := types.NewProcessRecord(4, 100, 0)
	p.Services = []*types.ServiceRecord{
		{IsForeground: true, ShortFGS: true},
	}

	c.Compute(p, 0, types.ProcStateTop, 0)

	assert.Equal(t, types.ProcStateForegroundService, p.CurProcState)
	assert.False(t, p.CurCapability.Has(types.CapBFSL))
}

func TestCompute_RegularFGSHasBFSL(t *testing.T) {
	c := newComputer()
	p := types.NewProcessRecord(5, 100, 0)
	p.Services = []*types.ServiceRecord{
		{IsForeground: true},
	}

	c.Compute(p, 0, types.ProcStateTop, 0)

	assert.True(t, p.CurCapability.Has(types.CapBFSL))
}

func TestCompute_PrivilegedProcessReturnsEarly(t *testing.T) {
	c := newComputer()
	p := types.NewProcessRecord(6, 0, 0)
	p.HasFixedMaxAdj = true
	p.MaxAdj = types.PersistentProcAdj

	c.Compute(p, 0, types.ProcStateTop, 0)

	assert.Equal(t, types.PersistentProcAdj, p.CurAdj)
	assert.Equal(t, types.ProcStatePersistent, p.CurProcState)
	assert.Equal(t, types.CapAll|types.CapPowerRestrictedNetwork|types.CapUserRestrictedNetwork|types.CapImplicitCPUTime, p.CurCapability)
}

func TestCompute_HeavyWeightCap(t *testing.T) {
	c := newComputer()
	p := types.NewProcessRecord(7, 100, 0)
	p.IsHeavyWeight = true

	c.Compute(p, 0, types.ProcStateTop, 0)

	assert.Equal(t, types.HeavyWeightAppAdj, p.CurAdj)
	assert.Equal(t, types.ProcStateHeavyWeight, p.CurProcState)
}

func TestCompute_MaxAdjClampsResult(t *testing.T) {
	c := newComputer()
	p := types.NewProcessRecord(8, 100, 0)
	p.MaxAdj = types.PerceptibleAppAdj // a non-privileged, finite cap

	c.Compute(p, 0, types.ProcStateTop, 0)

	assert.LessOrEqual(t, p.CurAdj, types.PerceptibleAppAdj)
}
