package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for taskflow components.
type Registry struct {
	// Dispatcher metrics
	TasksSubmitted *prometheus.CounterVec
	TasksCompleted *prometheus.CounterVec
	TasksFailed    *prometheus.CounterVec
	TasksCancelled *prometheus.CounterVec
	TaskDuration   *prometheus.HistogramVec
	TasksInFlight  *prometheus.GaugeVec
	QueueDepth     *prometheus.GaugeVec
	WorkersLive    *prometheus.GaugeVec
	PermitsInUse   *prometheus.GaugeVec
	SubmitWait     *prometheus.HistogramVec

	// Event bus metrics
	EventsEmitted *prometheus.CounterVec

	// Scheduler metrics
	TasksScheduled *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by taskflow components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		TasksSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskflow",
				Subsystem: "dispatch",
				Name:      "tasks_submitted_total",
				Help:      "Total number of tasks submitted",
			},
			[]string{"dispatcher", "mode"},
		),

		TasksCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskflow",
				Subsystem: "dispatch",
				Name:      "tasks_completed_total",
				Help:      "Total number of tasks completed successfully",
			},
			[]string{"dispatcher"},
		),

		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskflow",
				Subsystem: "dispatch",
				Name:      "tasks_failed_total",
				Help:      "Total number of tasks that ended in error",
			},
			[]string{"dispatcher"},
		),

		TasksCancelled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskflow",
				Subsystem: "dispatch",
				Name:      "tasks_cancelled_total",
				Help:      "Total number of tasks cancelled before completion",
			},
			[]string{"dispatcher"},
		),

		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "taskflow",
				Subsystem: "dispatch",
				Name:      "task_duration_seconds",
				Help:      "Time spent executing tasks",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"dispatcher", "kind"},
		),

		TasksInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "taskflow",
				Subsystem: "dispatch",
				Name:      "tasks_in_flight",
				Help:      "Number of tasks currently executing or queued",
			},
			[]string{"dispatcher"},
		),

		QueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "taskflow",
				Subsystem: "dispatch",
				Name:      "queue_depth",
				Help:      "Number of tasks waiting in the queue",
			},
			[]string{"dispatcher"},
		),

		WorkersLive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "taskflow",
				Subsystem: "dispatch",
				Name:      "workers_live",
				Help:      "Number of registered workers",
			},
			[]string{"dispatcher"},
		),

		PermitsInUse: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "taskflow",
				Subsystem: "dispatch",
				Name:      "permits_in_use",
				Help:      "Concurrency permits currently held by in-flight tasks",
			},
			[]string{"dispatcher"},
		),

		SubmitWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "taskflow",
				Subsystem: "dispatch",
				Name:      "submit_wait_seconds",
				Help:      "Time submitters spent blocked acquiring a permit",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"dispatcher"},
		),

		EventsEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskflow",
				Subsystem: "event",
				Name:      "emitted_total",
				Help:      "Total number of events emitted on the bus",
			},
			[]string{"phase"},
		),

		TasksScheduled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskflow",
				Subsystem: "scheduler",
				Name:      "tasks_scheduled_total",
				Help:      "Total number of task submissions made by the scheduler",
			},
			[]string{"scheduler"},
		),
	}
}
