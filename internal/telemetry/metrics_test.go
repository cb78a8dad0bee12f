package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veracity-dev/ess/internal/esserr"
)

func counterValue(t *testing.T, m *Metrics) float64 {
	t.Helper()
	families, err := m.Registry.Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != "query_count_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestObserveQueryIncrementsCounterAndHistogram(t *testing.T) {
	m := NewMetrics()
	m.ObserveQuery("demo", "success", 0.12)
	require.Equal(t, float64(1), counterValue(t, m))
}

func TestSyncCircuitStateSetsGauge(t *testing.T) {
	m := NewMetrics()
	m.SyncCircuitState(map[string]esserr.Snapshot{
		"graph": {Service: "graph", State: esserr.StateOpen},
	})

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() != "circuit_state" {
			continue
		}
		for _, metric := range f.GetMetric() {
			found = true
			require.Equal(t, float64(2), metric.GetGauge().GetValue())
		}
	}
	require.True(t, found)
}
