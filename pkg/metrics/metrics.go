// Package metrics provides Prometheus instrumentation for hitpool components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "hitpool"

// Registry holds all metric instances for hitpool components.
type Registry struct {
	// Scheduler Metrics
	TasksCreated          *prometheus.CounterVec
	TasksExecuted         *prometheus.CounterVec
	TasksFailed           *prometheus.CounterVec
	TaskExecutionDuration *prometheus.HistogramVec
	TaskWaitDuration      *prometheus.HistogramVec
	SchedulerWorkers      *prometheus.GaugeVec
	SchedulerActive       *prometheus.GaugeVec
	SchedulerQueued       *prometheus.GaugeVec

	// Server Metrics
	Connections      *prometheus.CounterVec
	ConnectionErrors *prometheus.CounterVec

	// Counter Metrics
	Hits *prometheus.GaugeVec

	// Report Metrics
	ReportRuns *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return newRegistry(reg, DefaultNamespace)
}

func newRegistry(reg prometheus.Registerer, namespace string) *Registry {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &Registry{
		TasksCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "tasks_created_total",
				Help:      "Total number of tasks handed to the scheduler",
			},
			[]string{"scheduler_name"},
		),

		TasksExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "tasks_executed_total",
				Help:      "Total number of tasks run by a worker",
			},
			[]string{"scheduler_name"},
		),

		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "tasks_failed_total",
				Help:      "Total number of tasks that panicked",
			},
			[]string{"scheduler_name"},
		),

		TaskExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "task_duration_seconds",
				Help:      "Time spent executing tasks",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"scheduler_name"},
		),

		TaskWaitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "task_wait_seconds",
				Help:      "Time a task spent queued before a worker claimed it",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"scheduler_name"},
		),

		SchedulerWorkers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "workers",
				Help:      "Number of workers owned by the scheduler",
			},
			[]string{"scheduler_name"},
		),

		SchedulerActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "active_workers",
				Help:      "Number of workers currently executing a task",
			},
			[]string{"scheduler_name"},
		),

		SchedulerQueued: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "queued_signals",
				Help:      "Number of signals waiting to be claimed",
			},
			[]string{"scheduler_name"},
		),

		Connections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "connections_total",
				Help:      "Total number of accepted connections",
			},
			[]string{"server_name"},
		),

		ConnectionErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "connection_errors_total",
				Help:      "Total number of accept, read or write failures",
			},
			[]string{"server_name", "stage"},
		),

		Hits: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "counter",
				Name:      "hits",
				Help:      "Latest observed value of the hit counter",
			},
			[]string{"counter_name"},
		),

		ReportRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "report",
				Name:      "runs_total",
				Help:      "Total number of periodic job submissions",
			},
			[]string{"job_name", "outcome"},
		),
	}
}
