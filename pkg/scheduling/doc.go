/*
Package scheduling groups the task execution packages of hitpool.

  - scheduler: fixed worker pool fed through a shared signal queue
  - periodic: cron-driven jobs submitted to a scheduler

Worker pool:

	sched := scheduler.New()
	defer sched.Shutdown()

	sched.Create(scheduler.TaskFunc(func() {
		// Do work
	}))

Periodic jobs:

	runner, _ := periodic.New(sched, periodic.Config{})
	runner.Add("hit-report", "@every 30s", reportTask)
	runner.Start()
	defer runner.Stop()

Jobs never run on the cron goroutine; each firing is handed to the
scheduler like any other task.
*/
package scheduling
