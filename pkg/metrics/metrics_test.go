package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_CountersStartAtZero(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.OomAdjChanges.Inc()
	m.FreezerDecisions.WithLabelValues("freeze").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)

	var found bool
	for _, f := range families {
		if f.GetName() == "procadj_oom_adj_changes_total" {
			found = true
			require.Len(t, f.Metric, 1)
			require.Equal(t, float64(1), f.Metric[0].GetCounter().GetValue())
		}
	}
	require.True(t, found, "expected procadj_oom_adj_changes_total to be registered")
}
