package scheduler

import (
	"sync"
	"time"

	"gopkg.in/tomb.v2"
)

// thread is one dedicated goroutine running queued functions in order.
type thread struct {
	t     tomb.Tomb
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

func newThread() *thread {
	th := &thread{
		wake: make(chan struct{}, 1),
	}
	th.t.Go(th.loop)
	return th
}

func (th *thread) execute(fn func()) error {
	if !th.t.Alive() {
		return ErrSchedulerClosed
	}
	th.mu.Lock()
	th.queue = append(th.queue, fn)
	th.mu.Unlock()
	select {
	case th.wake <- struct{}{}:
	default:
	}
	return nil
}

func (th *thread) loop() error {
	for {
		th.mu.Lock()
		batch := th.queue
		th.queue = nil
		th.mu.Unlock()
		for _, fn := range batch {
			if !th.t.Alive() {
				return nil
			}
			safeRun(fn)
		}
		select {
		case <-th.t.Dying():
			return nil
		case <-th.wake:
		}
	}
}

func (th *thread) close() error {
	th.t.Kill(nil)
	return th.t.Wait()
}

type singleScheduler struct {
	th *thread
}

// NewSingle returns a new scheduler backed by one dedicated goroutine.
func NewSingle() Scheduler {
	return &singleScheduler{th: newThread()}
}

func (p *singleScheduler) Name() string {
	return "single"
}

func (p *singleScheduler) Close() error {
	return p.th.close()
}

func (p *singleScheduler) Schedule(task Task) Disposable {
	return submit(p.th, task)
}

func (p *singleScheduler) ScheduleDelayed(task Task, delay time.Duration) Disposable {
	return submitDelayed(p.th, task, delay)
}

func (p *singleScheduler) Worker() Worker {
	return newSerialWorker(p.th, nil)
}

type newThreadScheduler struct {
}

func (p *newThreadScheduler) Name() string {
	return "new-thread"
}

func (p *newThreadScheduler) Close() error {
	return nil
}

func (p *newThreadScheduler) Schedule(task Task) Disposable {
	return submit(goExecutor{}, task)
}

func (p *newThreadScheduler) ScheduleDelayed(task Task, delay time.Duration) Disposable {
	return submitDelayed(goExecutor{}, task, delay)
}

// Worker starts a dedicated goroutine which stops when the worker is disposed.
func (p *newThreadScheduler) Worker() Worker {
	th := newThread()
	return newSerialWorker(th, func() {
		th.t.Kill(nil)
	})
}
