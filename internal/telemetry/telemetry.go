// Package telemetry exposes pipeline metrics. Until InitializeTelemetry is
// called every metric is a no-op. A batch job has no scrape endpoint, so
// metrics are flushed once per run to a Pushgateway or a node-exporter
// textfile.
package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"

	"github.com/BartekS5/orderlake/internal/config"
)

const namespace = "orderlake"

var registry *prometheus.Registry

type Counter interface {
	Inc()
	Add(float64)
}

type Gauge interface {
	Set(float64)
}

type Histogram interface {
	Observe(float64)
}

type CounterVec interface {
	With(labels ...string) Counter
}

type HistogramVec interface {
	With(labels ...string) Histogram
}

type NoopStat struct{}

func (NoopStat) Inc()            {}
func (NoopStat) Add(float64)     {}
func (NoopStat) Set(float64)     {}
func (NoopStat) Observe(float64) {}

type noopCounterVec struct{}
type noopHistogramVec struct{}

func (noopCounterVec) With(...string) Counter     { return NoopStat{} }
func (noopHistogramVec) With(...string) Histogram { return NoopStat{} }

type prometheusCounterVec struct {
	vec *prometheus.CounterVec
}

func (p prometheusCounterVec) With(labels ...string) Counter {
	return p.vec.WithLabelValues(labels...)
}

type prometheusHistogramVec struct {
	vec *prometheus.HistogramVec
}

func (p prometheusHistogramVec) With(labels ...string) Histogram {
	return p.vec.WithLabelValues(labels...)
}

// StepBuckets covers sub-second local steps up to multi-minute extractions.
var StepBuckets = []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 900}

var (
	// RunsTotal counts finished runs by outcome
	RunsTotal CounterVec = noopCounterVec{}

	// RowsExtractedTotal counts rows written to artifacts
	RowsExtractedTotal Counter = NoopStat{}

	// PublishAttemptsTotal counts upload attempts by result (success, transient, terminal)
	PublishAttemptsTotal CounterVec = noopCounterVec{}

	// WatermarkSeconds is the recorded watermark as unix seconds
	WatermarkSeconds Gauge = NoopStat{}

	// StepDurationSeconds measures each pipeline step
	StepDurationSeconds HistogramVec = noopHistogramVec{}
)

// InitializeTelemetry swaps the no-op metrics for registered collectors.
func InitializeTelemetry() {
	registry = prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Pipeline runs by outcome.",
	}, []string{"outcome"})
	rows := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rows_extracted_total",
		Help:      "Rows written to staged artifacts.",
	})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "publish_attempts_total",
		Help:      "Object uploads by result.",
	}, []string{"result"})
	wm := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "watermark_seconds",
		Help:      "Recorded watermark as unix seconds.",
	})
	steps := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "step_duration_seconds",
		Help:      "Duration of pipeline steps.",
		Buckets:   StepBuckets,
	}, []string{"step"})

	registry.MustRegister(runs, rows, attempts, wm, steps)

	RunsTotal = prometheusCounterVec{vec: runs}
	RowsExtractedTotal = rows
	PublishAttemptsTotal = prometheusCounterVec{vec: attempts}
	WatermarkSeconds = wm
	StepDurationSeconds = prometheusHistogramVec{vec: steps}
}

// Registry returns the active registry, nil before InitializeTelemetry.
func Registry() *prometheus.Registry {
	return registry
}

// Flush delivers the current metric values to the configured sinks.
func Flush(ctx context.Context, cfg config.MetricsConfig) error {
	if registry == nil {
		return nil
	}

	if cfg.Textfile != "" {
		if err := prometheus.WriteToTextfile(cfg.Textfile, registry); err != nil {
			return fmt.Errorf("failed to write metrics textfile: %w", err)
		}
	}
	if cfg.PushgatewayURL != "" {
		if err := push.New(cfg.PushgatewayURL, namespace).Gatherer(registry).PushContext(ctx); err != nil {
			return fmt.Errorf("failed to push metrics: %w", err)
		}
	}

	log.Debug().Str("textfile", cfg.Textfile).Str("pushgateway", cfg.PushgatewayURL).Msg("metrics flushed")
	return nil
}
