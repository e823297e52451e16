// Package metrics provides run metrics for toposplit using Prometheus
// collectors registered on a private registry.
//
// # Overview
//
// A Collector counts geometries by grouping outcome, states and arcs
// written, output bytes, and the duration of each pipeline stage. Once a
// run finishes the registry can be written in the text exposition format
// for the node_exporter textfile collector.
//
// # Basic Usage
//
//	c := metrics.NewCollector("toposplit")
//	timer := metrics.NewTimer("group")
//	groupGeometries()
//	c.ObserveStage("group", timer.Stop())
//	if err := c.WriteTextfile("toposplit.prom"); err != nil {
//	    return err
//	}
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ajitpratap0/toposplit/pkg/errors"
)

// Grouping outcomes of a single geometry
const (
	OutcomeGrouped      = "grouped"
	OutcomeUnknownState = "unknown_state"
	OutcomeMissingID    = "missing_id"
)

// Collector holds the counters of one run
type Collector struct {
	registry       *prometheus.Registry
	geometries     *prometheus.CounterVec   // by outcome
	statesWritten  prometheus.Counter       // documents stored
	statesFiltered prometheus.Counter       // states rejected by the filter
	arcsWritten    prometheus.Counter       // arcs across all documents
	bytesWritten   prometheus.Counter       // encoded bytes stored
	stageDuration  *prometheus.HistogramVec // by stage
}

// NewCollector creates a collector whose metric names carry namespace
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		geometries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "geometries_total",
				Help:      "Geometries seen, by grouping outcome",
			},
			[]string{"outcome"},
		),
		statesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "states_written_total",
			Help:      "Per-state documents written",
		}),
		statesFiltered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "states_filtered_total",
			Help:      "States excluded by the state filter",
		}),
		arcsWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arcs_written_total",
			Help:      "Arcs written across all per-state documents",
		}),
		bytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Encoded bytes written",
		}),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of each pipeline stage",
				Buckets: []float64{
					0.001, // 1ms - single small state
					0.01,  // 10ms
					0.1,   // 100ms - nationwide grouping
					1,     // 1s - nationwide decode
					10,    // 10s
				},
			},
			[]string{"stage"},
		),
	}
}

// RecordGeometries adds n geometries under outcome
func (c *Collector) RecordGeometries(outcome string, n int) {
	c.geometries.WithLabelValues(outcome).Add(float64(n))
}

// RecordState records one written document
func (c *Collector) RecordState(arcs int, bytes int64) {
	c.statesWritten.Inc()
	c.arcsWritten.Add(float64(arcs))
	c.bytesWritten.Add(float64(bytes))
}

// RecordFiltered records one state excluded by the filter
func (c *Collector) RecordFiltered() {
	c.statesFiltered.Inc()
}

// ObserveStage records the duration of a stage
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// WriteTextfile writes every metric to path in the text exposition format
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write metrics file").WithDetail("path", path)
	}
	return nil
}

// Timer measures the duration of one operation
type Timer struct {
	start time.Time
	name  string
}

// NewTimer starts a timer
func NewTimer(name string) *Timer {
	return &Timer{start: time.Now(), name: name}
}

// Name returns the timer's name
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the time elapsed since the timer started. It may be called
// more than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
