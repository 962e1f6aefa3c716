package rx

import (
	"context"

	"github.com/rsocket/rx-engine/rx/hooks"
	"go.uber.org/atomic"
)

func (f *flux[T]) DoOnSubscribe(fn FnOnSubscribe) Flux[T] {
	return newFlux(func(s Subscriber[T], tok *Token) {
		if err := protect(func() error {
			fn(tok.Context(), tok)
			return nil
		}); err != nil {
			s.OnError(newFault(KindTransformation, err))
			return
		}
		f.run(s, tok)
	})
}

func (f *flux[T]) DoOnCancel(fn FnOnCancel) Flux[T] {
	return f.finally(func(sig SignalType) {
		if sig == SignalCancel {
			fn()
		}
	})
}

func (f *flux[T]) DoFinally(fn FnFinally) Flux[T] {
	return f.finally(fn)
}

func (f *flux[T]) finally(fn FnFinally) Flux[T] {
	return newFlux(func(s Subscriber[T], tok *Token) {
		fs := &finallySubscriber[T]{actual: s, fn: fn}
		tok.OnDispose(fs.cancel)
		f.run(fs, tok)
	})
}

// finallySubscriber records the first of error, completion or cancellation.
type finallySubscriber[T any] struct {
	actual Subscriber[T]
	fn     FnFinally
	sig    atomic.Int32
}

func (f *finallySubscriber[T]) OnSubscribe(context.Context, Disposable) {}

func (f *finallySubscriber[T]) OnNext(v T) {
	f.actual.OnNext(v)
}

func (f *finallySubscriber[T]) OnError(err error) {
	if !f.sig.CompareAndSwap(int32(signalNone), int32(SignalError)) {
		hooks.ErrorDropped(err)
		return
	}
	f.actual.OnError(err)
	f.call(SignalError)
}

func (f *finallySubscriber[T]) OnComplete() {
	if !f.sig.CompareAndSwap(int32(signalNone), int32(SignalComplete)) {
		return
	}
	f.actual.OnComplete()
	f.call(SignalComplete)
}

func (f *finallySubscriber[T]) cancel() {
	if f.sig.CompareAndSwap(int32(signalNone), int32(SignalCancel)) {
		f.call(SignalCancel)
	}
}

func (f *finallySubscriber[T]) call(sig SignalType) {
	if err := protect(func() error {
		f.fn(sig)
		return nil
	}); err != nil {
		hooks.ErrorDropped(err)
	}
}
