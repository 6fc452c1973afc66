package periodic_test

import (
	"fmt"

	"github.com/vnykmshr/hitpool/pkg/scheduling/periodic"
	"github.com/vnykmshr/hitpool/pkg/scheduling/scheduler"
)

// Example registers a job that the cron loop hands to a scheduler.
func Example() {
	sched := scheduler.NewWithConfig(scheduler.Config{WorkerCount: 2})
	defer sched.Shutdown()

	runner, err := periodic.New(sched, periodic.Config{})
	if err != nil {
		fmt.Println(err)
		return
	}

	err = runner.Add("hit-report", "@every 30s", scheduler.TaskFunc(func() {
		// Report the current hit count.
	}))
	fmt.Println("added:", err == nil)

	runner.Start()
	defer runner.Stop()

	for _, job := range runner.Jobs() {
		fmt.Println(job.Name, job.Spec)
	}

	// Output:
	// added: true
	// hit-report @every 30s
}
