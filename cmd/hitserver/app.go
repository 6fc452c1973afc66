package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/hitpool/internal/config"
	"github.com/vnykmshr/hitpool/internal/tracing"
	"github.com/vnykmshr/hitpool/pkg/hitcounter"
	"github.com/vnykmshr/hitpool/pkg/metrics"
	"github.com/vnykmshr/hitpool/pkg/ratelimit/admission"
	"github.com/vnykmshr/hitpool/pkg/scheduling/periodic"
	"github.com/vnykmshr/hitpool/pkg/scheduling/scheduler"
	"github.com/vnykmshr/hitpool/pkg/server"
)

const shutdownTimeout = 10 * time.Second

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// run wires every component, serves until ctx is canceled and then tears
// down in reverse: stop accepting, stop cron, drain the scheduler, flush
// traces.
func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	tp, err := newTracing(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			logger.Warn("tracing shutdown", "error", err)
		}
	}()

	var registry *metrics.Registry
	if cfg.Metrics.Enabled {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		registry = metrics.NewRegistryFromConfig(metrics.Config{Enabled: true, Registry: promReg})

		metricsServer := startMetricsServer(cfg.Metrics.Addr, promReg, logger)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = metricsServer.Shutdown(sctx)
		}()
	}

	counter, closeCounter, err := newCounter(ctx, cfg.Counter, registry)
	if err != nil {
		return fmt.Errorf("counter: %w", err)
	}
	defer closeCounter()

	exec, err := newExecutor(cfg.Scheduler, registry, logger)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	defer exec.Shutdown()
	logger.Info("Scheduler started", "workers", exec.Size())

	runner, err := newReport(cfg.Report, exec, counter, registry, logger)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if runner != nil {
		runner.Start()
		defer runner.Stop()
	}

	srvCfg := server.Config{
		Name:           cfg.Server.Name,
		Addr:           cfg.Server.Addr,
		BodyPath:       cfg.Server.BodyPath,
		ReadBufferSize: cfg.Server.ReadBufferSize,
		ReadTimeout:    cfg.Server.ReadTimeout,
		Logger:         logger,
		Metrics:        registry,
		Tracing:        tp,
	}
	if cfg.Server.AdmissionRate > 0 {
		srvCfg.Admission, err = admission.NewSafe(admission.Config{
			Rate:  cfg.Server.AdmissionRate,
			Burst: cfg.Server.AdmissionBurst,
		})
		if err != nil {
			return fmt.Errorf("admission: %w", err)
		}
	}

	srv, err := server.New(srvCfg, exec, counter)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}

	// ListenAndServe returns once ctx is canceled; deferred calls then run
	// in reverse order of setup.
	return srv.ListenAndServe(ctx)
}

func newTracing(cfg config.TracingConfig) (*tracing.Provider, error) {
	if !cfg.Enabled {
		return tracing.Noop(), nil
	}
	tp, err := tracing.NewFile("hitserver", version, cfg.Output)
	if err != nil {
		return nil, err
	}
	tp.Install()
	return tp, nil
}

func startMetricsServer(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Serving metrics", "addr", addr, "path", "/metrics")
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()
	return srv
}

func newCounter(ctx context.Context, cfg config.CounterConfig, registry *metrics.Registry) (hitcounter.Counter, func(), error) {
	var (
		counter hitcounter.Counter
		closeFn = func() {}
	)

	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		rc, err := hitcounter.NewRedis(hitcounter.RedisConfig{
			Client:  client,
			Key:     cfg.RedisKey,
			Timeout: cfg.RedisTimeout,
		})
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		if err := rc.Ping(ctx); err != nil {
			client.Close()
			return nil, nil, err
		}
		counter = rc
		closeFn = func() { _ = client.Close() }
	default:
		counter = hitcounter.NewMemory()
	}

	if registry != nil {
		counter = hitcounter.WithMetrics(counter, cfg.Backend, registry)
	}
	return counter, closeFn, nil
}

func newExecutor(cfg config.SchedulerConfig, registry *metrics.Registry, logger *slog.Logger) (scheduler.Executor, error) {
	sched, err := scheduler.NewSafe(scheduler.Config{
		WorkerCount: cfg.Workers,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	if registry == nil {
		return sched, nil
	}
	return scheduler.WithMetrics(sched, "connections", registry), nil
}

// newReport schedules the periodic hit count log line. It returns a nil
// runner when the report is disabled.
func newReport(cfg config.ReportConfig, exec scheduler.Executor, counter hitcounter.Counter,
	registry *metrics.Registry, logger *slog.Logger) (*periodic.Runner, error) {
	if cfg.Schedule == "" {
		return nil, nil
	}

	runner, err := periodic.New(exec, periodic.Config{Logger: logger, Metrics: registry})
	if err != nil {
		return nil, err
	}

	report := scheduler.TaskFunc(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		hits, err := counter.Value(ctx)
		if err != nil {
			logger.Warn("Hit report failed", "error", err)
			return
		}
		logger.Info("Hit report", "hits", hits, "queued", exec.QueueSize(), "active", exec.ActiveWorkers())
	})
	if err := runner.Add("hit-report", cfg.Schedule, report); err != nil {
		return nil, err
	}
	return runner, nil
}
