// Package periodic runs named jobs on cron schedules by submitting them to a
// scheduler.Executor. The cron goroutine only hands work off; job bodies
// always run on the executor's workers.
package periodic

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	hperrors "github.com/vnykmshr/hitpool/pkg/common/errors"
	"github.com/vnykmshr/hitpool/pkg/common/validation"
	"github.com/vnykmshr/hitpool/pkg/metrics"
	"github.com/vnykmshr/hitpool/pkg/scheduling/scheduler"
)

const moduleName = "periodic"

// DefaultMaxJobs bounds the number of registered jobs when Config.MaxJobs is zero.
const DefaultMaxJobs = 1000

var (
	// ErrJobExists is returned by Add when the name is already registered.
	ErrJobExists = errors.New("periodic: job already registered")

	// ErrJobNotFound is returned for operations on an unknown job name.
	ErrJobNotFound = errors.New("periodic: job not found")
)

// parser accepts an optional leading seconds field and descriptors such as
// "@every 30s" or "@hourly".
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Config holds runner configuration.
type Config struct {
	// Location is the time zone schedules are evaluated in. Defaults to time.Local.
	Location *time.Location

	// Logger receives submission failures and cron diagnostics.
	Logger *slog.Logger

	// Metrics, when set, counts submissions per job and outcome.
	Metrics *metrics.Registry

	// MaxJobs limits the number of registered jobs (default: DefaultMaxJobs).
	MaxJobs int
}

// Job describes a registered job.
type Job struct {
	Name string
	Spec string
	Next time.Time
	Prev time.Time
}

type entry struct {
	spec string
	id   cron.EntryID
}

// Runner owns a cron instance whose entries submit tasks to an executor.
type Runner struct {
	exec    scheduler.Executor
	cron    *cron.Cron
	logger  *slog.Logger
	metrics *metrics.Registry
	maxJobs int

	mu      sync.Mutex
	jobs    map[string]entry
	running bool
}

// New creates a stopped Runner submitting to exec.
func New(exec scheduler.Executor, cfg Config) (*Runner, error) {
	if exec == nil {
		return nil, validation.ValidateNotNil(moduleName, "executor", nil)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	location := cfg.Location
	if location == nil {
		location = time.Local
	}
	maxJobs := cfg.MaxJobs
	if maxJobs == 0 {
		maxJobs = DefaultMaxJobs
	}
	if err := validation.ValidatePositive(moduleName, "maxJobs", maxJobs); err != nil {
		return nil, err
	}

	return &Runner{
		exec: exec,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(location),
			cron.WithLogger(cronLogger{logger}),
		),
		logger:  logger,
		metrics: cfg.Metrics,
		maxJobs: maxJobs,
		jobs:    make(map[string]entry),
	}, nil
}

// ValidateSpec reports whether spec is a schedule the runner accepts.
func ValidateSpec(spec string) error {
	if err := validation.ValidateNotEmpty(moduleName, "spec", spec); err != nil {
		return err
	}
	if _, err := parser.Parse(spec); err != nil {
		return hperrors.NewValidationError(moduleName, "spec", spec, err.Error()).
			WithHint("use a 5 or 6 field cron expression or a descriptor such as @every 30s")
	}
	return nil
}

// Add registers task under name to be submitted on every firing of spec.
func (r *Runner) Add(name, spec string, task scheduler.Task) error {
	if err := validation.ValidateNotEmpty(moduleName, "name", name); err != nil {
		return err
	}
	if task == nil {
		return validation.ValidateNotNil(moduleName, "task", nil)
	}
	if err := ValidateSpec(spec); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobExists, name)
	}
	if len(r.jobs) >= r.maxJobs {
		return hperrors.NewOperationError(moduleName, "Add", hperrors.ErrCapacityExceeded).
			WithContext(fmt.Sprintf("limit of %d jobs reached", r.maxJobs))
	}

	id, err := r.cron.AddFunc(spec, r.submitFunc(name, task))
	if err != nil {
		return hperrors.NewOperationError(moduleName, "Add", err)
	}
	r.jobs[name] = entry{spec: spec, id: id}
	return nil
}

// submitFunc returns the cron callback for a job. It never runs the task
// itself; a rejected submission (the executor is shutting down) is logged
// and counted.
func (r *Runner) submitFunc(name string, task scheduler.Task) func() {
	return func() {
		outcome := "submitted"
		if err := r.exec.Submit(task); err != nil {
			outcome = "rejected"
			r.logger.Warn("periodic job not submitted", "job", name, "error", err)
		}
		if r.metrics != nil {
			r.metrics.ReportRuns.WithLabelValues(name, outcome).Inc()
		}
	}
}

// Remove unregisters a job. It reports whether the job existed.
func (r *Runner) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[name]
	if !ok {
		return false
	}
	r.cron.Remove(e.id)
	delete(r.jobs, name)
	return true
}

// Next returns the next time the named job fires.
func (r *Runner) Next(name string) (time.Time, error) {
	r.mu.Lock()
	e, ok := r.jobs[name]
	r.mu.Unlock()
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	ce := r.cron.Entry(e.id)
	if !ce.Valid() {
		return time.Time{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if !ce.Next.IsZero() {
		return ce.Next, nil
	}
	// Entries are only planned once the cron loop runs.
	return ce.Schedule.Next(time.Now().In(r.cron.Location())), nil
}

// Jobs returns the registered jobs ordered by name.
func (r *Runner) Jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	jobs := make([]Job, 0, len(r.jobs))
	for name, e := range r.jobs {
		ce := r.cron.Entry(e.id)
		jobs = append(jobs, Job{Name: name, Spec: e.spec, Next: ce.Next, Prev: ce.Prev})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

// Start begins firing jobs. Calling Start on a running Runner is a no-op.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}
	r.running = true
	r.cron.Start()
}

// Stop halts the cron loop and waits for in-flight submissions to return.
// Tasks already handed to the executor are unaffected.
func (r *Runner) Stop() {
	r.mu.Lock()
	wasRunning := r.running
	r.running = false
	r.mu.Unlock()

	if !wasRunning {
		return
	}
	<-r.cron.Stop().Done()
}

// cronLogger adapts slog to cron.Logger. cron reports every wake-up through
// Info, so those are demoted to debug.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
