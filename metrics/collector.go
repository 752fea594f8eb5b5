// FILE: lixenwraith/sinklog/metrics/collector.go
// Package metrics exposes sinklog counters as Prometheus metrics.
package metrics

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lixenwraith/sinklog"
)

// StatsSource is implemented by *sinklog.Logger
type StatsSource interface {
	Stats() map[string]sinklog.StatsSnapshot
}

type counterDesc struct {
	desc  *prometheus.Desc
	value func(sinklog.StatsSnapshot) uint64
}

// Collector reads the per-sink counters on every scrape. Counters are
// labelled by sink name.
type Collector struct {
	source   StatsSource
	counters []counterDesc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector for source. namespace prefixes every
// metric name and may be empty.
func NewCollector(namespace string, source StatsSource) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sinklog", name),
			help, []string{"sink"}, nil)
	}

	return &Collector{
		source: source,
		counters: []counterDesc{
			{desc("submitted_total", "Records handed to the sink queue."),
				func(s sinklog.StatsSnapshot) uint64 { return s.Submitted }},
			{desc("processed_total", "Records written to the sink."),
				func(s sinklog.StatsSnapshot) uint64 { return s.Processed }},
			{desc("dropped_total", "Records discarded by overflow, write failure or shutdown."),
				func(s sinklog.StatsSnapshot) uint64 { return s.Dropped }},
			{desc("write_errors_total", "Records whose write failed after all retries."),
				func(s sinklog.StatsSnapshot) uint64 { return s.WriteErrors }},
			{desc("rotations_total", "Completed file rollovers."),
				func(s sinklog.StatsSnapshot) uint64 { return s.Rotations }},
			{desc("rotation_errors_total", "Failed rollovers and retention passes."),
				func(s sinklog.StatsSnapshot) uint64 { return s.RotationErrors }},
			{desc("compressions_total", "Rotated files compressed."),
				func(s sinklog.StatsSnapshot) uint64 { return s.Compressions }},
			{desc("compression_errors_total", "Failed or abandoned compressions."),
				func(s sinklog.StatsSnapshot) uint64 { return s.CompressionErrors }},
		},
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, cd := range c.counters {
		ch <- cd.desc
	}
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()

	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		snap := stats[name]
		for _, cd := range c.counters {
			ch <- prometheus.MustNewConstMetric(cd.desc, prometheus.CounterValue, float64(cd.value(snap)), name)
		}
	}
}
