// Package metrics records latency, token usage and failures of engine calls.
package metrics

import "time"

// Recorder receives one observation per engine call.
type Recorder interface {
	ObserveRequest(
		model, agentID string,
		promptTokens, completionTokens int,
		success bool,
		errorType string,
		duration time.Duration,
	)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveRequest does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveRequest(_, _ string, _, _ int, _ bool, _ string, _ time.Duration) {}

// Tee fans one observation out to several recorders.
func Tee(recorders ...Recorder) Recorder {
	return teeRecorder(recorders)
}

type teeRecorder []Recorder

func (t teeRecorder) ObserveRequest(model, agentID string, promptTokens, completionTokens int, success bool, errorType string, duration time.Duration) {
	for _, r := range t {
		r.ObserveRequest(model, agentID, promptTokens, completionTokens, success, errorType, duration)
	}
}
