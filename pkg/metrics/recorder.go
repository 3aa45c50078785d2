// Package metrics records agent lifecycle, scheduler and orchestrator events
// as Prometheus metrics, and queries a Prometheus server for per-agent usage.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives engine-independent events from the core components.
// It satisfies registry.Observer and scheduler.Observer.
type Recorder interface {
	AgentTransitioned(status string)
	QueueDepth(n int)
	WorkerFinished(status string, d time.Duration)
	WaitFinished(outcome string)
	RunFinished(outcome string, spawned int)
}

// Noop discards every event.
type Noop struct{}

// AgentTransitioned implements Recorder.
func (Noop) AgentTransitioned(string) {}

// QueueDepth implements Recorder.
func (Noop) QueueDepth(int) {}

// WorkerFinished implements Recorder.
func (Noop) WorkerFinished(string, time.Duration) {}

// WaitFinished implements Recorder.
func (Noop) WaitFinished(string) {}

// RunFinished implements Recorder.
func (Noop) RunFinished(string, int) {}

// Prometheus implements Recorder with Prometheus collectors.
type Prometheus struct {
	transitions    *prometheus.CounterVec
	queueDepth     prometheus.Gauge
	workerDuration *prometheus.HistogramVec
	waits          *prometheus.CounterVec
	runs           *prometheus.CounterVec
	spawned        prometheus.Counter
}

// NewPrometheus registers the core collectors on reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentcore_agent_transitions_total",
				Help: "Agent status transitions by target status",
			},
			[]string{"status"},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "agentcore_scheduler_queue_depth",
				Help: "Spawn requests waiting to start",
			},
		),
		workerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentcore_worker_duration_seconds",
				Help:    "Worker run time by final status",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),
		waits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentcore_agent_waits_total",
				Help: "Waits on spawned agents by outcome",
			},
			[]string{"outcome"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentcore_orchestrator_runs_total",
				Help: "Orchestrator executions by loop outcome",
			},
			[]string{"outcome"},
		),
		spawned: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agentcore_agents_spawned_total",
				Help: "Agents spawned by orchestrator runs",
			},
		),
	}
}

// AgentTransitioned implements Recorder.
func (p *Prometheus) AgentTransitioned(status string) {
	p.transitions.WithLabelValues(status).Inc()
}

// QueueDepth implements Recorder.
func (p *Prometheus) QueueDepth(n int) {
	p.queueDepth.Set(float64(n))
}

// WorkerFinished implements Recorder.
func (p *Prometheus) WorkerFinished(status string, d time.Duration) {
	p.workerDuration.WithLabelValues(status).Observe(d.Seconds())
}

// WaitFinished implements Recorder.
func (p *Prometheus) WaitFinished(outcome string) {
	p.waits.WithLabelValues(outcome).Inc()
}

// RunFinished implements Recorder.
func (p *Prometheus) RunFinished(outcome string, spawned int) {
	p.runs.WithLabelValues(outcome).Inc()
	p.spawned.Add(float64(spawned))
}
