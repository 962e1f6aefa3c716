package scheduler

import (
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

// computationScheduler is a fixed set of event loops. Tasks and workers are
// assigned to them round-robin, submitting never waits for a free goroutine.
type computationScheduler struct {
	loops  []*thread
	next   atomic.Uint32
	closed atomic.Bool
}

// NewComputation returns a new scheduler of n event loops.
func NewComputation(n int) Scheduler {
	if n < 1 {
		n = 1
	}
	loops := make([]*thread, n)
	for i := range loops {
		loops[i] = newThread()
	}
	return &computationScheduler{loops: loops}
}

func (p *computationScheduler) pick() *thread {
	return p.loops[(p.next.Inc()-1)%uint32(len(p.loops))]
}

func (p *computationScheduler) Name() string {
	return "computation"
}

func (p *computationScheduler) Close() (err error) {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, th := range p.loops {
		err = multierr.Append(err, th.close())
	}
	return
}

func (p *computationScheduler) Schedule(task Task) Disposable {
	return submit(p.pick(), task)
}

func (p *computationScheduler) ScheduleDelayed(task Task, delay time.Duration) Disposable {
	return submitDelayed(p.pick(), task, delay)
}

// Worker pins the returned worker to one event loop.
func (p *computationScheduler) Worker() Worker {
	return newSerialWorker(p.pick(), nil)
}
