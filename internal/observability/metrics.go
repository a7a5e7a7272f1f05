// Package observability provides Prometheus metrics for the evaluation engine.
package observability

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all metric collectors for the application.
type Metrics struct {
	registry   *prometheus.Registry
	Evaluation *EvaluationMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	evaluationMetrics, err := NewEvaluationMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluation metrics: %w", err)
	}

	return &Metrics{
		registry:   registry,
		Evaluation: evaluationMetrics,
	}, nil
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Summary gathers the registry and flattens it into per-metric totals:
// counters sum their values across label sets, histograms report their sample
// counts. Metrics that never fired are omitted.
func (m *Metrics) Summary() (map[string]float64, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	summary := make(map[string]float64, len(families))
	for _, family := range families {
		var total float64
		for _, metric := range family.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				total += metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				total += float64(metric.GetHistogram().GetSampleCount())
			}
		}
		summary[family.GetName()] = total
	}
	return summary, nil
}

// LogSummary writes the gathered per-metric totals through the given logger
// as one record, keys in stable order.
func (m *Metrics) LogSummary(log *slog.Logger) {
	summary, err := m.Summary()
	if err != nil {
		log.Warn("failed to gather run counters", "error", err)
		return
	}
	args := make([]any, 0, 2*len(summary))
	names := make([]string, 0, len(summary))
	for name := range summary {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		args = append(args, name, summary[name])
	}
	log.Info("run counters", args...)
}

// EvaluationMetrics contains all Prometheus metrics related to model
// evaluation.
type EvaluationMetrics struct {
	InferenceTotal    *prometheus.CounterVec
	InferenceErrors   *prometheus.CounterVec
	InferenceDuration *prometheus.HistogramVec
	FramesProcessed   *prometheus.CounterVec
	StemsEvaluated    *prometheus.CounterVec
	CalibrationPasses prometheus.Counter
}

// NewEvaluationMetrics creates and registers the evaluation collectors.
func NewEvaluationMetrics(registry *prometheus.Registry) (*EvaluationMetrics, error) {
	m := &EvaluationMetrics{
		InferenceTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "penn_inference_total",
				Help: "Total number of model inference calls partitioned by model name.",
			},
			[]string{"model"},
		),
		InferenceErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "penn_inference_errors_total",
				Help: "Total number of failed model inference calls partitioned by model name.",
			},
			[]string{"model"},
		),
		InferenceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "penn_inference_duration_seconds",
				Help:    "Time taken to perform one inference call.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"model"},
		),
		FramesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "penn_frames_processed_total",
				Help: "Total number of audio frames run through the model partitioned by dataset.",
			},
			[]string{"dataset"},
		),
		StemsEvaluated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "penn_stems_evaluated_total",
				Help: "Total number of stems scored partitioned by dataset.",
			},
			[]string{"dataset"},
		),
		CalibrationPasses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "penn_calibration_passes_total",
				Help: "Total number of full hyperparameter-subset scoring passes during threshold calibration.",
			},
		),
	}

	collectors := []prometheus.Collector{
		m.InferenceTotal,
		m.InferenceErrors,
		m.InferenceDuration,
		m.FramesProcessed,
		m.StemsEvaluated,
		m.CalibrationPasses,
	}
	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register evaluation metrics: %w", err)
		}
	}
	return m, nil
}
