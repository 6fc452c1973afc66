/*
Package hitpool is a fixed-size worker pool and the small TCP hit server
built on it.

Scheduling (pkg/scheduling):
  - scheduler: N long-lived workers claiming tasks from one unbounded FIFO,
    with a blocking, lossless shutdown
  - periodic: cron schedules whose jobs run on a scheduler's workers

Serving (pkg/server, pkg/hitcounter):
  - server: accepts connections and hands each to the scheduler as a task
  - hitcounter: the shared counter those tasks increment (in memory or Redis)
  - ratelimit/admission: optional token bucket in front of the accept loop

Observability (pkg/metrics): Prometheus collectors for all of the above.

Example usage:

	import "github.com/vnykmshr/hitpool/pkg/scheduling/scheduler"

	s := scheduler.New() // one worker per CPU
	defer s.Shutdown()

	s.Create(scheduler.TaskFunc(func() {
		fmt.Println("running on a worker")
	}))

The hitserver command (cmd/hitserver) wires everything together behind a
YAML configuration file.
*/
package hitpool
