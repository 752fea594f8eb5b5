// FILE: lixenwraith/sinklog/metrics/collector_test.go
package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/sinklog"
)

type fixedStats map[string]sinklog.StatsSnapshot

func (f fixedStats) Stats() map[string]sinklog.StatsSnapshot { return f }

func TestCollectorExposition(t *testing.T) {
	source := fixedStats{
		"app":     {Submitted: 10, Processed: 8, Dropped: 2, Rotations: 1},
		"console": {Submitted: 10, Processed: 10},
	}
	c := NewCollector("test", source)

	expected := `
# HELP test_sinklog_dropped_total Records discarded by overflow, write failure or shutdown.
# TYPE test_sinklog_dropped_total counter
test_sinklog_dropped_total{sink="app"} 2
test_sinklog_dropped_total{sink="console"} 0
# HELP test_sinklog_processed_total Records written to the sink.
# TYPE test_sinklog_processed_total counter
test_sinklog_processed_total{sink="app"} 8
test_sinklog_processed_total{sink="console"} 10
# HELP test_sinklog_rotations_total Completed file rollovers.
# TYPE test_sinklog_rotations_total counter
test_sinklog_rotations_total{sink="app"} 1
test_sinklog_rotations_total{sink="console"} 0
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"test_sinklog_dropped_total", "test_sinklog_processed_total", "test_sinklog_rotations_total")
	assert.NoError(t, err)

	// 8 counters per sink
	assert.Equal(t, 16, testutil.CollectAndCount(c))
}

func TestCollectorPedanticRegistry(t *testing.T) {
	logger, err := sinklog.NewBuilder().
		Sink("null", sinklog.DefaultSinkConfig(sinklog.SinkNull)).
		Build()
	require.NoError(t, err)
	defer logger.Shutdown()

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector("", logger)))

	logger.Info("one")
	logger.Info("two")
	require.NoError(t, logger.Flush(time.Second))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 8)

	var processed float64
	for _, mf := range families {
		if mf.GetName() == "sinklog_processed_total" {
			require.Len(t, mf.GetMetric(), 1)
			processed = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(2), processed)
}
