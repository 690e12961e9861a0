package freezer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/khryptorgraphics/procadj/internal/config"
	"github.com/khryptorgraphics/procadj/pkg/types"
)

func TestDecide_CPUTimeCapabilityNeverFreezes(t *testing.T) {
	cfg := config.Default()
	p := types.NewProcessRecord(1, 100, 0)
	p.CurCapability = types.CapCPUTime

	d := Decide(p, cfg)

	assert.Equal(t, Unfreeze, d.Kind)
}

func TestDecide_FreezeExemptNeverFreezes(t *testing.T) {
	cfg := config.Default()
	p := types.NewProcessRecord(2, 100, 0)
	p.FreezeExempt = true

	d := Decide(p, cfg)

	assert.Equal(t, Unfreeze, d.Kind)
}

func TestDecide_CachedProcessFreezesAtEarliest(t *testing.T) {
	cfg := config.Default()
	p := types.NewProcessRecord(3, 100, 0)

	d := Decide(p, cfg)

	assert.Equal(t, FreezeAtEarliest, d.Kind)
}

func TestDecide_ExecutingServiceFreezesAsync(t *testing.T) {
	cfg := config.Default()
	p := types.NewProcessRecord(4, 100, 0)
	p.ExecutingServices = 1

	d := Decide(p, cfg)

	assert.Equal(t, FreezeAsync, d.Kind)
}

func TestLegacyShouldFreeze_RespectsShouldNotFreeze(t *testing.T) {
	p := types.NewProcessRecord(5, 100, 0)
	p.CurAdj = types.CachedAppMinAdj
	p.ShouldNotFreeze = true

	assert.False(t, LegacyShouldFreeze(p))
}

func TestDecide_LegacyPolicySelectedByConfig(t *testing.T) {
	cfg := config.Default()
	cfg.LegacyFreezePolicy = true
	p := types.NewProcessRecord(6, 100, 0)
	p.CurAdj = types.ForegroundAppAdj
	p.CurCapability = types.CapCPUTime // irrelevant under legacy policy

	d := Decide(p, cfg)

	assert.Equal(t, Unfreeze, d.Kind)
	assert.Equal(t, "legacy_adj_threshold", d.Reason)
}
