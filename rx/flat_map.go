package rx

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rsocket/rx-engine/rx/hooks"
	"go.uber.org/atomic"
)

// FlatMap subscribes to the Flux returned by fn for every upstream value and
// merges the inner values downstream in arrival order. It completes once the
// upstream and every inner have completed. The first error cancels the
// upstream and all inners.
func FlatMap[T, R any](source Flux[T], fn func(v T) Flux[R]) Flux[R] {
	return newFlux(func(s Subscriber[R], tok *Token) {
		up := tok.Child()
		fm := &flatMapSubscriber[T, R]{
			actual: s,
			up:     up,
			inners: tok.Child(),
			fn:     fn,
		}
		fm.active.Store(1)
		source.run(fm, up)
	})
}

type flatMapSubscriber[T, R any] struct {
	actual Subscriber[R]
	up     *Token
	inners *Token
	fn     func(T) Flux[R]
	active atomic.Int32
	mu     sync.Mutex
	done   bool
}

func (fm *flatMapSubscriber[T, R]) OnSubscribe(context.Context, Disposable) {}

func (fm *flatMapSubscriber[T, R]) OnNext(v T) {
	if fm.isDone() {
		hooks.NextDropped(v)
		return
	}
	var inner Flux[R]
	if err := protect(func() error {
		if inner = fm.fn(v); inner == nil {
			return errors.WithStack(ErrNilFlux)
		}
		return nil
	}); err != nil {
		fm.fail(newFault(KindTransformation, err))
		return
	}
	fm.active.Inc()
	tok := fm.inners.Child()
	inner.run(&innerSubscriber[T, R]{parent: fm, tok: tok}, tok)
}

func (fm *flatMapSubscriber[T, R]) OnError(err error) {
	fm.fail(err)
}

func (fm *flatMapSubscriber[T, R]) OnComplete() {
	fm.release()
}

func (fm *flatMapSubscriber[T, R]) isDone() bool {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return fm.done
}

func (fm *flatMapSubscriber[T, R]) emit(v R) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if fm.done {
		hooks.NextDropped(v)
		return
	}
	fm.actual.OnNext(v)
}

func (fm *flatMapSubscriber[T, R]) fail(err error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if fm.done {
		hooks.ErrorDropped(err)
		return
	}
	fm.done = true
	fm.inners.Dispose()
	fm.up.Dispose()
	fm.actual.OnError(err)
}

func (fm *flatMapSubscriber[T, R]) release() {
	if fm.active.Dec() != 0 {
		return
	}
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if fm.done {
		return
	}
	fm.done = true
	fm.actual.OnComplete()
}

type innerSubscriber[T, R any] struct {
	parent *flatMapSubscriber[T, R]
	tok    *Token
}

func (in *innerSubscriber[T, R]) OnSubscribe(context.Context, Disposable) {}

func (in *innerSubscriber[T, R]) OnNext(v R) {
	in.parent.emit(v)
}

func (in *innerSubscriber[T, R]) OnError(err error) {
	in.parent.fail(err)
}

func (in *innerSubscriber[T, R]) OnComplete() {
	in.tok.Dispose()
	in.parent.release()
}
