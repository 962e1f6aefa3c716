package rx

import (
	"context"

	"github.com/rsocket/rx-engine/rx/hooks"
	"go.uber.org/atomic"
)

// Subscriber receives the signals of one subscription.
//
// OnSubscribe is always delivered first. It is followed by zero or more
// OnNext and at most one of OnError or OnComplete. Calls never overlap.
type Subscriber[T any] interface {
	OnSubscribe(ctx context.Context, d Disposable)
	OnNext(v T)
	OnError(err error)
	OnComplete()
}

// SubscribeOption customizes the callbacks of Subscribe and NewSubscriber.
type SubscribeOption func(*callbacks)

type callbacks struct {
	onError     FnOnError
	onComplete  FnOnComplete
	onSubscribe FnOnSubscribe
}

// OnError sets the error callback. Errors without a callback go to hooks.ErrorDropped.
func OnError(fn FnOnError) SubscribeOption {
	return func(c *callbacks) {
		c.onError = fn
	}
}

// OnComplete sets the completion callback.
func OnComplete(fn FnOnComplete) SubscribeOption {
	return func(c *callbacks) {
		c.onComplete = fn
	}
}

// OnSubscribe sets the callback receiving the subscription token.
func OnSubscribe(fn FnOnSubscribe) SubscribeOption {
	return func(c *callbacks) {
		c.onSubscribe = fn
	}
}

type lambdaSubscriber[T any] struct {
	callbacks
	onNext func(T)
	d      Disposable
}

// NewSubscriber builds a Subscriber from callbacks. A panic in onNext
// cancels the subscription and is delivered as a transformation error.
func NewSubscriber[T any](onNext func(v T), opts ...SubscribeOption) Subscriber[T] {
	s := &lambdaSubscriber[T]{onNext: onNext}
	for _, opt := range opts {
		opt(&s.callbacks)
	}
	return s
}

func (l *lambdaSubscriber[T]) OnSubscribe(ctx context.Context, d Disposable) {
	l.d = d
	if l.onSubscribe != nil {
		l.onSubscribe(ctx, d)
	}
}

func (l *lambdaSubscriber[T]) OnNext(v T) {
	if l.onNext == nil {
		return
	}
	var err error
	func() {
		defer func() {
			err = tryRecover(recover())
		}()
		l.onNext(v)
	}()
	if err != nil {
		if l.d != nil {
			l.d.Dispose()
		}
		l.OnError(newFault(KindTransformation, err))
	}
}

func (l *lambdaSubscriber[T]) OnError(err error) {
	if l.onError == nil {
		hooks.ErrorDropped(err)
		return
	}
	l.onError(err)
}

func (l *lambdaSubscriber[T]) OnComplete() {
	if l.onComplete != nil {
		l.onComplete()
	}
}

// safeSubscriber guards the downstream of a subscription: it suppresses
// signals after disposal, reports signals after a terminal as protocol
// violations and disposes the token once a terminal has been delivered.
type safeSubscriber[T any] struct {
	actual     Subscriber[T]
	tok        *Token
	terminated atomic.Bool
}

func newSafeSubscriber[T any](actual Subscriber[T], tok *Token) *safeSubscriber[T] {
	return &safeSubscriber[T]{actual: actual, tok: tok}
}

func (s *safeSubscriber[T]) OnSubscribe(ctx context.Context, d Disposable) {
	s.actual.OnSubscribe(ctx, d)
}

func (s *safeSubscriber[T]) OnNext(v T) {
	if s.terminated.Load() {
		hooks.NextDropped(v)
		hooks.Fault(violation("OnNext after terminal"))
		return
	}
	if s.tok.IsDisposed() {
		hooks.NextDropped(v)
		return
	}
	s.actual.OnNext(v)
}

func (s *safeSubscriber[T]) OnError(err error) {
	if s.tok.IsDisposed() && !s.terminated.Load() {
		hooks.ErrorDropped(err)
		return
	}
	if !s.terminated.CompareAndSwap(false, true) {
		hooks.ErrorDropped(err)
		hooks.Fault(violation("OnError after terminal"))
		return
	}
	s.actual.OnError(err)
	s.tok.Dispose()
}

func (s *safeSubscriber[T]) OnComplete() {
	if s.tok.IsDisposed() && !s.terminated.Load() {
		return
	}
	if !s.terminated.CompareAndSwap(false, true) {
		hooks.Fault(violation("OnComplete after terminal"))
		return
	}
	s.actual.OnComplete()
	s.tok.Dispose()
}
