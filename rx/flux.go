package rx

import (
	"context"
	"sync"
	"time"

	"github.com/rsocket/rx-engine/rx/scheduler"
)

type (
	// Flux is a cold, lazily evaluated sequence of values.
	// Every subscription starts an independent run.
	Flux[T any] interface {
		// Filter keeps the values matching the predicate.
		Filter(fn func(v T) bool) Flux[T]
		// Take completes after the first n values and cancels the upstream.
		Take(n int) Flux[T]
		// DoOnNext calls fn for every value. A non-nil error fails the sequence.
		DoOnNext(fn func(v T) error) Flux[T]
		// DoOnError calls fn when the sequence fails.
		DoOnError(fn FnOnError) Flux[T]
		// DoOnComplete calls fn when the sequence completes.
		DoOnComplete(fn FnOnComplete) Flux[T]
		// DoOnSubscribe calls fn when this stage is subscribed.
		DoOnSubscribe(fn FnOnSubscribe) Flux[T]
		// DoOnCancel calls fn when the subscription is disposed before a terminal signal.
		DoOnCancel(fn FnOnCancel) Flux[T]
		// DoFinally calls fn exactly once with the signal that ended the subscription.
		DoFinally(fn FnFinally) Flux[T]
		// Sample emits the most recent value once per interval.
		Sample(interval time.Duration) Flux[T]
		// SubscribeOn runs the subscription and the producer on a worker of sc.
		SubscribeOn(sc scheduler.Scheduler) Flux[T]
		// ObserveOn delivers signals downstream on a worker of sc.
		// Without a preceding OnBackpressure operator it buffers DefaultBufferSize
		// values and blocks the producer when full, until space or disposal.
		// A producer sharing the single goroutine of the draining worker, as in
		// SubscribeOn(Single()).ObserveOn(Single()), never gets that space:
		// use OnBackpressureDrop or OnBackpressureLatest there.
		ObserveOn(sc scheduler.Scheduler) Flux[T]
		// OnBackpressureBuffer buffers up to capacity values and blocks the producer when full.
		OnBackpressureBuffer(capacity int) Flux[T]
		// OnBackpressureDrop discards new values while capacity values are pending.
		OnBackpressureDrop(capacity int, onDrop func(v T)) Flux[T]
		// OnBackpressureLatest keeps only the most recent pending value.
		OnBackpressureLatest() Flux[T]
		// OnBackpressureError fails the sequence once capacity values are pending.
		OnBackpressureError(capacity int) Flux[T]
		// Subscribe starts a subscription with callbacks.
		Subscribe(ctx context.Context, onNext func(v T), options ...SubscribeOption) Disposable
		// SubscribeWith starts a subscription with a custom Subscriber.
		SubscribeWith(ctx context.Context, s Subscriber[T]) Disposable
		// BlockSlice subscribes and waits for all values.
		BlockSlice(ctx context.Context) ([]T, error)
		// BlockFirst subscribes, waits for the first value and cancels the rest.
		// It returns the zero value and false on an empty sequence.
		BlockFirst(ctx context.Context) (T, bool, error)
		// BlockLast subscribes and waits for the last value.
		// It returns the zero value and false on an empty sequence.
		BlockLast(ctx context.Context) (T, bool, error)

		run(s Subscriber[T], tok *Token)
	}

	// pending is an OnBackpressure stage waiting to be fused into ObserveOn.
	pending[T any] struct {
		source *flux[T]
		cfg    channelConfig[T]
	}

	flux[T any] struct {
		subscribe func(s Subscriber[T], tok *Token)
		fusable   *pending[T]
	}
)

func newFlux[T any](subscribe func(s Subscriber[T], tok *Token)) *flux[T] {
	return &flux[T]{subscribe: subscribe}
}

func (f *flux[T]) run(s Subscriber[T], tok *Token) {
	if tok.IsDisposed() {
		return
	}
	f.subscribe(s, tok)
}

func (f *flux[T]) Subscribe(ctx context.Context, onNext func(v T), options ...SubscribeOption) Disposable {
	return f.SubscribeWith(ctx, NewSubscriber(onNext, options...))
}

func (f *flux[T]) SubscribeWith(ctx context.Context, s Subscriber[T]) Disposable {
	if ctx == nil {
		ctx = context.Background()
	}
	tok := NewToken(ctx)
	if ctx.Err() != nil {
		tok.Dispose()
	}
	safe := newSafeSubscriber(s, tok)
	safe.OnSubscribe(tok.Context(), tok)
	f.run(safe, tok)
	return tok
}

func (f *flux[T]) BlockSlice(ctx context.Context) ([]T, error) {
	var values []T
	err := f.block(ctx, func(v T) {
		values = append(values, v)
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

func (f *flux[T]) BlockFirst(ctx context.Context) (T, bool, error) {
	return f.Take(1).BlockLast(ctx)
}

func (f *flux[T]) BlockLast(ctx context.Context) (T, bool, error) {
	var (
		last T
		ok   bool
	)
	if err := f.block(ctx, func(v T) {
		last = v
		ok = true
	}); err != nil {
		var zero T
		return zero, false, err
	}
	return last, ok, nil
}

func (f *flux[T]) block(ctx context.Context, onNext func(T)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		mu   sync.Mutex
		err  error
		done = make(chan struct{})
	)
	d := f.SubscribeWith(ctx, &blockSubscriber[T]{
		onNext: func(v T) {
			mu.Lock()
			onNext(v)
			mu.Unlock()
		},
		onError: func(e error) {
			err = e
			close(done)
		},
		onComplete: func() {
			close(done)
		},
	})
	select {
	case <-done:
		mu.Lock()
		defer mu.Unlock()
		return err
	case <-ctx.Done():
		d.Dispose()
		return ctx.Err()
	}
}

type blockSubscriber[T any] struct {
	onNext     func(T)
	onError    func(error)
	onComplete func()
}

func (b *blockSubscriber[T]) OnSubscribe(context.Context, Disposable) {}

func (b *blockSubscriber[T]) OnNext(v T) {
	b.onNext(v)
}

func (b *blockSubscriber[T]) OnError(err error) {
	b.onError(err)
}

func (b *blockSubscriber[T]) OnComplete() {
	b.onComplete()
}
