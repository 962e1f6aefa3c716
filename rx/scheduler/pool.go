package scheduler

import (
	"time"

	"github.com/panjf2000/ants"
	"go.uber.org/atomic"
)

type poolScheduler struct {
	name   string
	pool   *ants.Pool
	closed atomic.Bool
}

// NewElastic returns a new dynamic scheduler growing up to size goroutines.
func NewElastic(size int) Scheduler {
	pool, err := ants.NewPool(size)
	if err != nil {
		panic(err)
	}
	return &poolScheduler{
		name: "io",
		pool: pool,
	}
}

func (p *poolScheduler) Name() string {
	return p.name
}

func (p *poolScheduler) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.pool.Release()
}

func (p *poolScheduler) Schedule(task Task) Disposable {
	return submit(p, task)
}

func (p *poolScheduler) ScheduleDelayed(task Task, delay time.Duration) Disposable {
	return submitDelayed(p, task, delay)
}

func (p *poolScheduler) Worker() Worker {
	return newSerialWorker(p, nil)
}

func (p *poolScheduler) execute(fn func()) error {
	if p.closed.Load() {
		return ErrSchedulerClosed
	}
	return p.pool.Submit(fn)
}
