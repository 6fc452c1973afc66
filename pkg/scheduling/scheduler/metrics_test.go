package scheduler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vnykmshr/hitpool/internal/testutil"
	hperrors "github.com/vnykmshr/hitpool/pkg/common/errors"
	"github.com/vnykmshr/hitpool/pkg/metrics"
)

func TestMetricsScheduler(t *testing.T) {
	registry := metrics.NewRegistry(prometheus.NewRegistry())
	ms := NewWithMetrics(Config{
		WorkerCount:  2,
		Logger:       quietLogger(),
		PanicHandler: func(int, interface{}) {},
	}, "requests", registry)

	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 10; i++ {
		ms.Create(TaskFunc(wg.Done))
	}
	wg.Wait()
	ms.Create(TaskFunc(func() { panic("counted") }))
	ms.Shutdown()

	testutil.AssertEqual(t, promtest.ToFloat64(registry.SchedulerWorkers.WithLabelValues("requests")), 2.0)
	testutil.AssertEqual(t, promtest.ToFloat64(registry.TasksCreated.WithLabelValues("requests")), 11.0)
	testutil.AssertEqual(t, promtest.ToFloat64(registry.TasksExecuted.WithLabelValues("requests")), 11.0)
	testutil.AssertEqual(t, promtest.ToFloat64(registry.TasksFailed.WithLabelValues("requests")), 1.0)
	testutil.AssertEqual(t, promtest.ToFloat64(registry.SchedulerActive.WithLabelValues("requests")), 0.0)
	testutil.AssertEqual(t, promtest.ToFloat64(registry.SchedulerQueued.WithLabelValues("requests")), 0.0)

	// The wrapped scheduler's own accounting still sees the panic.
	testutil.AssertEqual(t, ms.TotalFailed(), int64(1))
	testutil.AssertEqual(t, ms.TotalCompleted(), int64(11))
	testutil.AssertEqual(t, ms.TotalCreated(), int64(11))
	testutil.AssertEqual(t, ms.Size(), 2)
}

func TestMetricsSchedulerAfterShutdown(t *testing.T) {
	registry := metrics.NewRegistry(prometheus.NewRegistry())
	ms := WithMetrics(newTestScheduler(t, 1), "closed", registry)
	ms.Shutdown()

	err := ms.Submit(TaskFunc(func() {}))
	testutil.AssertEqual(t, errors.Is(err, hperrors.ErrClosed), true)
	testutil.AssertEqual(t, promtest.ToFloat64(registry.TasksCreated.WithLabelValues("closed")), 0.0)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected Create after Shutdown to panic")
		}
	}()
	ms.Create(TaskFunc(func() {}))
}

func TestMetricsSchedulerActiveGaugeSettlesWhenIdle(t *testing.T) {
	registry := metrics.NewRegistry(prometheus.NewRegistry())
	ms := NewWithMetrics(Config{WorkerCount: 2, Logger: quietLogger()}, "idle", registry)
	defer ms.Shutdown()
	active := registry.SchedulerActive.WithLabelValues("idle")

	release := make(chan struct{})
	started := make(chan struct{})
	ms.Create(TaskFunc(func() {
		close(started)
		<-release
	}))
	testutil.WaitClosed(t, started, testutil.TestTimeout)
	testutil.AssertEqual(t, promtest.ToFloat64(active), 1.0)

	close(release)
	ms.Create(TaskFunc(func() {}))
	testutil.Eventually(t, func() bool { return ms.TotalCompleted() == 2 }, testutil.TestTimeout, time.Millisecond)

	// No further Submit: the gauge must already read idle.
	testutil.AssertEqual(t, promtest.ToFloat64(active), 0.0)
	testutil.AssertEqual(t, ms.ActiveWorkers(), 0)
}
