package rx

import (
	"context"

	"github.com/rsocket/rx-engine/rx/hooks"
)

// Map transforms every value with fn. A returned error or a panic cancels
// the upstream and fails the sequence with KindTransformation.
func Map[T, R any](source Flux[T], fn func(v T) (R, error)) Flux[R] {
	return newFlux(func(s Subscriber[R], tok *Token) {
		up := tok.Child()
		source.run(&mapSubscriber[T, R]{stage: stage{up: up}, actual: s, fn: fn}, up)
	})
}

func (f *flux[T]) Filter(fn func(v T) bool) Flux[T] {
	return newFlux(func(s Subscriber[T], tok *Token) {
		up := tok.Child()
		f.run(&filterSubscriber[T]{stage: stage{up: up}, actual: s, fn: fn}, up)
	})
}

func (f *flux[T]) DoOnNext(fn func(v T) error) Flux[T] {
	return f.peek(peekCallbacks[T]{onNext: fn})
}

func (f *flux[T]) DoOnError(fn FnOnError) Flux[T] {
	return f.peek(peekCallbacks[T]{onError: fn})
}

func (f *flux[T]) DoOnComplete(fn FnOnComplete) Flux[T] {
	return f.peek(peekCallbacks[T]{onComplete: fn})
}

func (f *flux[T]) peek(cb peekCallbacks[T]) Flux[T] {
	return newFlux(func(s Subscriber[T], tok *Token) {
		up := tok.Child()
		f.run(&peekSubscriber[T]{stage: stage{up: up}, actual: s, cb: cb}, up)
	})
}

func (f *flux[T]) Take(n int) Flux[T] {
	return newFlux(func(s Subscriber[T], tok *Token) {
		if n < 1 {
			s.OnComplete()
			return
		}
		up := tok.Child()
		f.run(&takeSubscriber[T]{stage: stage{up: up}, actual: s, remaining: n}, up)
	})
}

// stage holds the state shared by synchronous operators. Signals reach an
// operator sequentially, so done needs no synchronization.
type stage struct {
	up   *Token
	done bool
}

func (st *stage) OnSubscribe(context.Context, Disposable) {}

// stop marks the stage done and cancels the upstream. It reports whether
// the caller should deliver a terminal signal.
func (st *stage) stop() bool {
	if st.done {
		return false
	}
	st.done = true
	st.up.Dispose()
	return true
}

func (st *stage) terminate() bool {
	if st.done {
		return false
	}
	st.done = true
	return true
}

func protect(fn func() error) (err error) {
	defer func() {
		if rec := tryRecover(recover()); rec != nil {
			err = rec
		}
	}()
	return fn()
}

type mapSubscriber[T, R any] struct {
	stage
	actual Subscriber[R]
	fn     func(T) (R, error)
}

func (m *mapSubscriber[T, R]) OnNext(v T) {
	if m.done {
		hooks.NextDropped(v)
		return
	}
	var out R
	if err := protect(func() (err error) {
		out, err = m.fn(v)
		return
	}); err != nil {
		if m.stop() {
			m.actual.OnError(newFault(KindTransformation, err))
		}
		return
	}
	m.actual.OnNext(out)
}

func (m *mapSubscriber[T, R]) OnError(err error) {
	if !m.terminate() {
		hooks.ErrorDropped(err)
		return
	}
	m.actual.OnError(err)
}

func (m *mapSubscriber[T, R]) OnComplete() {
	if m.terminate() {
		m.actual.OnComplete()
	}
}

type filterSubscriber[T any] struct {
	stage
	actual Subscriber[T]
	fn     func(T) bool
}

func (f *filterSubscriber[T]) OnNext(v T) {
	if f.done {
		hooks.NextDropped(v)
		return
	}
	var keep bool
	if err := protect(func() error {
		keep = f.fn(v)
		return nil
	}); err != nil {
		if f.stop() {
			f.actual.OnError(newFault(KindTransformation, err))
		}
		return
	}
	if keep {
		f.actual.OnNext(v)
	}
}

func (f *filterSubscriber[T]) OnError(err error) {
	if !f.terminate() {
		hooks.ErrorDropped(err)
		return
	}
	f.actual.OnError(err)
}

func (f *filterSubscriber[T]) OnComplete() {
	if f.terminate() {
		f.actual.OnComplete()
	}
}

type peekCallbacks[T any] struct {
	onNext     func(T) error
	onError    FnOnError
	onComplete FnOnComplete
}

type peekSubscriber[T any] struct {
	stage
	actual Subscriber[T]
	cb     peekCallbacks[T]
}

func (p *peekSubscriber[T]) OnNext(v T) {
	if p.done {
		hooks.NextDropped(v)
		return
	}
	if p.cb.onNext != nil {
		if err := protect(func() error {
			return p.cb.onNext(v)
		}); err != nil {
			if p.stop() {
				p.actual.OnError(newFault(KindTransformation, err))
			}
			return
		}
	}
	p.actual.OnNext(v)
}

func (p *peekSubscriber[T]) OnError(err error) {
	if !p.terminate() {
		hooks.ErrorDropped(err)
		return
	}
	if p.cb.onError != nil {
		if e := protect(func() error {
			p.cb.onError(err)
			return nil
		}); e != nil {
			hooks.ErrorDropped(e)
		}
	}
	p.actual.OnError(err)
}

func (p *peekSubscriber[T]) OnComplete() {
	if !p.terminate() {
		return
	}
	if p.cb.onComplete != nil {
		if err := protect(func() error {
			p.cb.onComplete()
			return nil
		}); err != nil {
			p.actual.OnError(newFault(KindTransformation, err))
			return
		}
	}
	p.actual.OnComplete()
}

type takeSubscriber[T any] struct {
	stage
	actual    Subscriber[T]
	remaining int
}

func (t *takeSubscriber[T]) OnNext(v T) {
	if t.done {
		hooks.NextDropped(v)
		return
	}
	t.remaining--
	t.actual.OnNext(v)
	if t.remaining == 0 && t.stop() {
		t.actual.OnComplete()
	}
}

func (t *takeSubscriber[T]) OnError(err error) {
	if !t.terminate() {
		hooks.ErrorDropped(err)
		return
	}
	t.actual.OnError(err)
}

func (t *takeSubscriber[T]) OnComplete() {
	if t.terminate() {
		t.actual.OnComplete()
	}
}
