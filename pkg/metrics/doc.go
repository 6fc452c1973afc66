// Package metrics provides Prometheus instrumentation for hitpool components.
//
// # Overview
//
// The package owns a single Registry of collectors shared by:
//   - the scheduler (tasks created, executed, failed, execution and wait times,
//     worker, active worker and queued signal gauges)
//   - the acceptor (accepted connections, failures per stage)
//   - the hit counter (latest value)
//   - the periodic report runner (submissions per job and outcome)
//
// # Quick Start
//
//	registry := metrics.NewRegistry(prometheus.NewRegistry())
//	sched := scheduler.NewWithMetrics(scheduler.Config{}, "requests", registry)
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":9090", nil))
//
// # Available Metrics
//
//   - hitpool_scheduler_tasks_created_total
//   - hitpool_scheduler_tasks_executed_total
//   - hitpool_scheduler_tasks_failed_total
//   - hitpool_scheduler_task_duration_seconds
//   - hitpool_scheduler_task_wait_seconds
//   - hitpool_scheduler_workers
//   - hitpool_scheduler_active_workers
//   - hitpool_scheduler_queued_signals
//   - hitpool_server_connections_total
//   - hitpool_server_connection_errors_total
//   - hitpool_counter_hits
//   - hitpool_report_runs_total
//
// Collectors are registered once per Registry; build one Registry per
// prometheus.Registerer to avoid duplicate registration panics.
package metrics
