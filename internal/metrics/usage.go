package metrics

import (
	"context"

	"codegalaxy/models"

	"github.com/prometheus/client_golang/prometheus"
)

// UsageStore persists model usage samples.
type UsageStore interface {
	RecordModelUsage(ctx context.Context, sample models.UsageSample) error
}

// UsageRecorder mirrors every model usage sample into Prometheus before
// handing it to the store.
type UsageRecorder struct {
	next     UsageStore
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewUsageRecorder(next UsageStore, reg prometheus.Registerer) (*UsageRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	calls, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ai",
		Name:      "calls_total",
		Help:      "Model calls partitioned by model and outcome.",
	}, []string{"model", "outcome"}))
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ai",
		Name:      "call_duration_seconds",
		Help:      "Model call latencies in seconds.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"model"}))
	if err != nil {
		return nil, err
	}
	return &UsageRecorder{next: next, calls: calls, duration: duration}, nil
}

func (u *UsageRecorder) RecordModelUsage(ctx context.Context, sample models.UsageSample) error {
	outcome := "success"
	if !sample.Success {
		outcome = "failure"
	}
	u.calls.WithLabelValues(sample.ModelName, outcome).Inc()
	u.duration.WithLabelValues(sample.ModelName).Observe(sample.ResponseTime)
	if u.next == nil {
		return nil
	}
	return u.next.RecordModelUsage(ctx, sample)
}
