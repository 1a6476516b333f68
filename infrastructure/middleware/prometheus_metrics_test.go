package middleware

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherNames(t *testing.T, registry *prometheus.Registry) map[string]bool {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestPrometheusMetrics_RecordsAllKinds(t *testing.T) {
	pm, registry := NewPrometheusMetrics()

	pm.RecordLatency("competition_round", 250*time.Millisecond, map[string]string{"status": "scored"})
	pm.RecordCounter("competition_rounds_total", 1, map[string]string{"status": "scored"})
	pm.RecordGauge("active_roster_size", 4, nil)
	pm.RecordHistogram("llm_request_seconds", 1.2, map[string]string{"model": "gpt", "status": "success"})

	names := gatherNames(t, registry)
	assert.True(t, names["arena_operation_duration_seconds"])
	assert.True(t, names["arena_operations_total"])
	assert.True(t, names["arena_system_state"])
	assert.True(t, names["arena_observations"])
}

func TestPrometheusMetrics_DefaultStatus(t *testing.T) {
	pm, registry := NewPrometheusMetrics()

	// Missing status labels default rather than panic.
	pm.RecordCounter("competition_rounds_total", 1, nil)
	pm.RecordLatency("competition_round", time.Second, nil)

	families, err := registry.Gather()
	require.NoError(t, err)
	for _, f := range families {
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "status" {
					assert.Equal(t, "success", l.GetValue())
				}
			}
		}
	}
}

func TestPrometheusMetrics_IsolatedRegistries(t *testing.T) {
	pm1, reg1 := NewPrometheusMetrics()
	pm2, reg2 := NewPrometheusMetrics()

	pm1.RecordCounter("only_on_first", 1, nil)
	pm2.RecordGauge("only_on_second", 2, nil)

	families1, err := reg1.Gather()
	require.NoError(t, err)
	families2, err := reg2.Gather()
	require.NoError(t, err)

	assert.NotEmpty(t, families1)
	assert.NotEmpty(t, families2)
}
