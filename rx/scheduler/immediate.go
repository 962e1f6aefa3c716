package scheduler

import "time"

type immediateScheduler struct {
}

func (p *immediateScheduler) Name() string {
	return "immediate"
}

func (p *immediateScheduler) Close() error {
	return nil
}

func (p *immediateScheduler) Schedule(task Task) Disposable {
	return submit(inlineExecutor{}, task)
}

// ScheduleDelayed runs the task on the timer goroutine once delay elapses.
func (p *immediateScheduler) ScheduleDelayed(task Task, delay time.Duration) Disposable {
	return submitDelayed(inlineExecutor{}, task, delay)
}

// Worker returns a trampoline: tasks scheduled while another task of the
// same worker is running are queued and run after it returns.
func (p *immediateScheduler) Worker() Worker {
	return newSerialWorker(inlineExecutor{}, nil)
}
