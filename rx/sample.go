package rx

import (
	"context"
	"sync"
	"time"

	"github.com/rsocket/rx-engine/rx/hooks"
	"github.com/rsocket/rx-engine/rx/scheduler"
)

func (f *flux[T]) Sample(interval time.Duration) Flux[T] {
	return sampleOn[T](f, interval, scheduler.Computation())
}

// sampleOn emits the most recent upstream value once per interval, ticking
// on a worker of sc. Ticks without a new value emit nothing. Upstream
// completion completes immediately and discards any pending value.
func sampleOn[T any](source Flux[T], interval time.Duration, sc scheduler.Scheduler) Flux[T] {
	return newFlux(func(s Subscriber[T], tok *Token) {
		up := tok.Child()
		w := sc.Worker()
		tok.OnDispose(w.Dispose)
		ss := &sampleSubscriber[T]{actual: s, up: up, worker: w}
		var tick func()
		tick = func() {
			if tok.IsDisposed() {
				return
			}
			ss.emitLatest()
			w.ScheduleDelayed(tick, interval)
		}
		w.ScheduleDelayed(tick, interval)
		source.run(ss, up)
	})
}

type sampleSubscriber[T any] struct {
	actual Subscriber[T]
	up     *Token
	worker scheduler.Worker
	// mu guards the latest slot, emitMu serializes downstream signals.
	mu     sync.Mutex
	emitMu sync.Mutex
	latest T
	has    bool
	done   bool
}

func (ss *sampleSubscriber[T]) OnSubscribe(context.Context, Disposable) {}

func (ss *sampleSubscriber[T]) OnNext(v T) {
	ss.mu.Lock()
	if ss.done {
		ss.mu.Unlock()
		hooks.NextDropped(v)
		return
	}
	if ss.has {
		hooks.NextDropped(ss.latest)
	}
	ss.latest = v
	ss.has = true
	ss.mu.Unlock()
}

func (ss *sampleSubscriber[T]) OnError(err error) {
	if !ss.finish() {
		hooks.ErrorDropped(err)
		return
	}
	ss.emitMu.Lock()
	defer ss.emitMu.Unlock()
	ss.actual.OnError(err)
}

func (ss *sampleSubscriber[T]) OnComplete() {
	if !ss.finish() {
		return
	}
	ss.emitMu.Lock()
	defer ss.emitMu.Unlock()
	ss.actual.OnComplete()
}

func (ss *sampleSubscriber[T]) finish() bool {
	ss.mu.Lock()
	if ss.done {
		ss.mu.Unlock()
		return false
	}
	ss.done = true
	var zero T
	ss.latest = zero
	ss.has = false
	ss.mu.Unlock()
	ss.worker.Dispose()
	return true
}

func (ss *sampleSubscriber[T]) emitLatest() {
	ss.emitMu.Lock()
	defer ss.emitMu.Unlock()
	ss.mu.Lock()
	if ss.done || !ss.has {
		ss.mu.Unlock()
		return
	}
	v := ss.latest
	var zero T
	ss.latest = zero
	ss.has = false
	ss.mu.Unlock()
	ss.actual.OnNext(v)
}
