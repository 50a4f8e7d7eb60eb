package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	runDuration     *prom.HistogramVec
	runOutcome      *prom.CounterVec
	publishOutcome  *prom.CounterVec
	lastPublishedAt prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.runDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "bookforge",
			Name:      "run_duration_seconds",
			Help:      "Total pipeline run duration by mode",
			Buckets:   prom.DefBuckets,
		}, []string{"mode"})
		pr.runOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "bookforge",
			Name:      "run_outcomes_total",
			Help:      "Pipeline run outcomes by mode and final status",
		}, []string{"mode", "outcome"})
		pr.publishOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "bookforge",
			Name:      "publish_outcomes_total",
			Help:      "Artifact publish outcomes",
		}, []string{"outcome"})
		pr.lastPublishedAt = prom.NewGauge(prom.GaugeOpts{
			Namespace: "bookforge",
			Name:      "last_published_timestamp_seconds",
			Help:      "Unix time of the last successful artifact publication",
		})
		reg.MustRegister(pr.runDuration, pr.runOutcome, pr.publishOutcome, pr.lastPublishedAt)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveRunDuration(mode string, d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(mode, outcome string) {
	if p == nil || p.runOutcome == nil {
		return
	}
	p.runOutcome.WithLabelValues(mode, outcome).Inc()
}

func (p *PrometheusRecorder) IncPublishOutcome(outcome string) {
	if p == nil || p.publishOutcome == nil {
		return
	}
	p.publishOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetLastPublishedTimestamp(t time.Time) {
	if p == nil || p.lastPublishedAt == nil {
		return
	}
	p.lastPublishedAt.Set(float64(t.Unix()))
}
