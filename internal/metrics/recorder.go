package metrics

import "time"

// Recorder defines observability hooks for pipeline run metrics. Implementations
// may forward to Prometheus, OpenTelemetry, etc. All methods must be safe for nil
// receivers when using the NoopRecorder (allowing optional injection).
type Recorder interface {
	ObserveRunDuration(mode string, d time.Duration)
	IncRunOutcome(mode, outcome string) // outcome: success|failure
	IncPublishOutcome(outcome string)   // outcome: success|failure|stale
	SetLastPublishedTimestamp(t time.Time)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRunDuration(string, time.Duration) {}
func (NoopRecorder) IncRunOutcome(string, string)             {}
func (NoopRecorder) IncPublishOutcome(string)                 {}
func (NoopRecorder) SetLastPublishedTimestamp(time.Time)      {}
