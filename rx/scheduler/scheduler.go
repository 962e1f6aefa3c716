// Package scheduler provides the execution contexts a reactive pipeline can
// hop between.
//
// A Scheduler accepts independent tasks, a Worker obtained from it runs its
// tasks one at a time in submission order. Schedulers are long-lived and
// shared; call Shutdown once at process exit to release the default ones.
package scheduler

import (
	"errors"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants"
	"go.uber.org/multierr"
)

// ErrSchedulerClosed is returned when a task is submitted after Close.
var ErrSchedulerClosed = errors.New("scheduler: scheduler has been closed")

// Task is a unit of work run by a Scheduler.
type Task = func()

// Disposable is the handle of a scheduled task or of a Worker.
type Disposable interface {
	// Dispose cancels the task if it has not started yet.
	Dispose()
	// IsDisposed returns true if it has been disposed.
	IsDisposed() bool
}

// Scheduler is an execution context.
type Scheduler interface {
	io.Closer
	// Name returns a short label of the scheduler.
	Name() string
	// Schedule submits a task for execution.
	Schedule(task Task) Disposable
	// ScheduleDelayed submits a task after delay without holding a goroutine
	// of the scheduler while waiting.
	ScheduleDelayed(task Task, delay time.Duration) Disposable
	// Worker creates a sequential execution context backed by this scheduler.
	Worker() Worker
}

// Worker runs tasks one by one, in the order they were scheduled.
// Disposing a Worker discards every pending task.
type Worker interface {
	Disposable
	// Schedule appends a task.
	Schedule(task Task) Disposable
	// ScheduleDelayed appends a task after delay.
	ScheduleDelayed(task Task, delay time.Duration) Disposable
}

var (
	immediate = &immediateScheduler{}

	defaults = struct {
		sync.Mutex
		computation Scheduler
		io          Scheduler
		single      Scheduler
		newThread   Scheduler
	}{}
)

// Immediate returns the scheduler that runs tasks inline on the caller.
func Immediate() Scheduler {
	return immediate
}

// Computation returns the shared set of GOMAXPROCS event loops, meant for
// CPU-bound work.
func Computation() Scheduler {
	defaults.Lock()
	defer defaults.Unlock()
	if defaults.computation == nil {
		defaults.computation = NewComputation(runtime.GOMAXPROCS(0))
	}
	return defaults.computation
}

// IO returns the shared elastic pool, meant for blocking work.
func IO() Scheduler {
	defaults.Lock()
	defer defaults.Unlock()
	if defaults.io == nil {
		defaults.io = NewElastic(ants.DEFAULT_ANTS_POOL_SIZE)
	}
	return defaults.io
}

// Single returns the shared scheduler backed by one dedicated goroutine.
func Single() Scheduler {
	defaults.Lock()
	defer defaults.Unlock()
	if defaults.single == nil {
		defaults.single = NewSingle()
	}
	return defaults.single
}

// NewThread returns the scheduler that gives every task and every Worker a
// dedicated goroutine.
func NewThread() Scheduler {
	defaults.Lock()
	defer defaults.Unlock()
	if defaults.newThread == nil {
		defaults.newThread = &newThreadScheduler{}
	}
	return defaults.newThread
}

// Shutdown closes the default schedulers created so far.
func Shutdown() (err error) {
	defaults.Lock()
	defer defaults.Unlock()
	for _, it := range []Scheduler{defaults.computation, defaults.io, defaults.single, defaults.newThread} {
		if it != nil {
			err = multierr.Append(err, it.Close())
		}
	}
	defaults.computation, defaults.io, defaults.single, defaults.newThread = nil, nil, nil, nil
	return
}
