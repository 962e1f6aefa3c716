package rx

import (
	"context"
	"time"

	"github.com/rsocket/rx-engine/rx/hooks"
	"github.com/rsocket/rx-engine/rx/scheduler"
	"go.uber.org/atomic"
)

// Create returns a Flux driven by gen. The generator runs once per
// subscription on the subscribing goroutine; ctx is cancelled when the
// subscription is disposed. A panic inside gen fails the sequence.
func Create[T any](gen func(ctx context.Context, sink Sink[T])) Flux[T] {
	return newFlux(func(s Subscriber[T], tok *Token) {
		sink := &createSink[T]{actual: s, tok: tok}
		defer func() {
			if err := tryRecover(recover()); err != nil {
				sink.Error(newFault(KindProducer, err))
			}
		}()
		gen(tok.Context(), sink)
	})
}

// Just emits the given values then completes.
func Just[T any](values ...T) Flux[T] {
	return FromSlice(values)
}

// FromSlice emits the elements of values in order then completes.
func FromSlice[T any](values []T) Flux[T] {
	return newFlux(func(s Subscriber[T], tok *Token) {
		for _, v := range values {
			if tok.IsDisposed() {
				return
			}
			s.OnNext(v)
		}
		s.OnComplete()
	})
}

// Range emits count consecutive integers starting at start.
func Range(start, count int) Flux[int] {
	return newFlux(func(s Subscriber[int], tok *Token) {
		for i := start; i < start+count; i++ {
			if tok.IsDisposed() {
				return
			}
			s.OnNext(i)
		}
		s.OnComplete()
	})
}

// Interval emits 0, 1, 2... every period on a worker of sc until disposed.
// A nil scheduler means scheduler.Computation().
func Interval(period time.Duration, sc scheduler.Scheduler) Flux[int64] {
	if sc == nil {
		sc = scheduler.Computation()
	}
	return newFlux(func(s Subscriber[int64], tok *Token) {
		w := sc.Worker()
		tok.OnDispose(w.Dispose)
		var (
			n    int64
			tick func()
		)
		tick = func() {
			if tok.IsDisposed() {
				return
			}
			s.OnNext(n)
			n++
			w.ScheduleDelayed(tick, period)
		}
		w.ScheduleDelayed(tick, period)
	})
}

// Error returns a Flux failing immediately with err.
func Error[T any](err error) Flux[T] {
	return newFlux(func(s Subscriber[T], tok *Token) {
		s.OnError(err)
	})
}

// Empty returns a Flux completing immediately.
func Empty[T any]() Flux[T] {
	return newFlux(func(s Subscriber[T], tok *Token) {
		s.OnComplete()
	})
}

type createSink[T any] struct {
	actual Subscriber[T]
	tok    *Token
	done   atomic.Bool
}

func (c *createSink[T]) Next(v T) {
	if c.done.Load() {
		hooks.NextDropped(v)
		hooks.Fault(violation("Next after terminal"))
		return
	}
	if c.tok.IsDisposed() {
		hooks.NextDropped(v)
		return
	}
	c.actual.OnNext(v)
}

func (c *createSink[T]) Error(err error) {
	if !c.done.CompareAndSwap(false, true) {
		hooks.ErrorDropped(err)
		hooks.Fault(violation("Error after terminal"))
		return
	}
	if c.tok.IsDisposed() {
		hooks.ErrorDropped(err)
		return
	}
	c.actual.OnError(err)
}

func (c *createSink[T]) Complete() {
	if !c.done.CompareAndSwap(false, true) {
		hooks.Fault(violation("Complete after terminal"))
		return
	}
	if c.tok.IsDisposed() {
		return
	}
	c.actual.OnComplete()
}

func (c *createSink[T]) IsDisposed() bool {
	return c.tok.IsDisposed()
}

func (c *createSink[T]) Context() context.Context {
	return c.tok.Context()
}
