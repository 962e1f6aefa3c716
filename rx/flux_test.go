package rx_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rsocket/rx-engine/rx"
	"github.com/rsocket/rx-engine/rx/hooks"
	"github.com/rsocket/rx-engine/rx/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fakeError = errors.New("fake error")

type recorder[T any] struct {
	mu        sync.Mutex
	events    []string
	values    []T
	err       error
	completes int
	errs      int
	d         rx.Disposable
	done      chan struct{}
	once      sync.Once
}

func newRecorder[T any]() *recorder[T] {
	return &recorder[T]{done: make(chan struct{})}
}

func (r *recorder[T]) OnSubscribe(ctx context.Context, d rx.Disposable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.d = d
	r.events = append(r.events, "subscribe")
}

func (r *recorder[T]) OnNext(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "next")
	r.values = append(r.values, v)
}

func (r *recorder[T]) OnError(err error) {
	r.mu.Lock()
	r.events = append(r.events, "error")
	r.err = err
	r.errs++
	r.mu.Unlock()
	r.once.Do(func() { close(r.done) })
}

func (r *recorder[T]) OnComplete() {
	r.mu.Lock()
	r.events = append(r.events, "complete")
	r.completes++
	r.mu.Unlock()
	r.once.Do(func() { close(r.done) })
}

func (r *recorder[T]) await(t *testing.T) {
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timeout waiting for a terminal signal")
	}
}

func (r *recorder[T]) snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}

func (r *recorder[T]) terminals() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completes + r.errs
}

func captureFaults(t *testing.T) func() []error {
	var (
		mu     sync.Mutex
		faults []error
	)
	hooks.OnFault(func(e error) {
		mu.Lock()
		faults = append(faults, e)
		mu.Unlock()
	})
	t.Cleanup(hooks.Reset)
	return func() []error {
		mu.Lock()
		defer mu.Unlock()
		return append([]error(nil), faults...)
	}
}

func TestMapFilter(t *testing.T) {
	square := rx.Map(rx.Range(1, 5).Filter(func(v int) bool {
		return v%2 == 0
	}), func(v int) (int, error) {
		return v * v, nil
	})
	r := newRecorder[int]()
	square.SubscribeWith(context.Background(), r)
	r.await(t)
	assert.Equal(t, []int{4, 16}, r.values)
	assert.Equal(t, []string{"subscribe", "next", "next", "complete"}, r.events)
}

func TestSubscribe_Callbacks(t *testing.T) {
	var (
		got       []string
		completed bool
	)
	rx.Map(rx.Just("a", "b", "c"), func(s string) (string, error) {
		return s + s, nil
	}).Subscribe(context.Background(), func(v string) {
		got = append(got, v)
	}, rx.OnComplete(func() {
		completed = true
	}), rx.OnSubscribe(func(ctx context.Context, d rx.Disposable) {
		assert.Empty(t, got, "subscribe should come before any value")
	}))
	assert.Equal(t, []string{"aa", "bb", "cc"}, got)
	assert.True(t, completed)
}

func TestSubscribe_PanicInOnNext(t *testing.T) {
	var (
		got []int
		err error
	)
	rx.Range(0, 10).Subscribe(context.Background(), func(v int) {
		if v == 2 {
			panic("boom")
		}
		got = append(got, v)
	}, rx.OnError(func(e error) {
		err = e
	}))
	assert.Equal(t, []int{0, 1}, got)
	assert.Equal(t, rx.KindTransformation, rx.KindOf(err))
}

func TestTerminalOnce(t *testing.T) {
	faults := captureFaults(t)
	r := newRecorder[int]()
	rx.Create(func(ctx context.Context, sink rx.Sink[int]) {
		sink.Next(1)
		sink.Complete()
		sink.Next(2)
		sink.Error(fakeError)
		sink.Complete()
	}).SubscribeWith(context.Background(), r)
	r.await(t)
	assert.Equal(t, []int{1}, r.values)
	assert.Equal(t, 1, r.terminals())
	assert.Equal(t, []string{"subscribe", "next", "complete"}, r.events)
	got := faults()
	require.Len(t, got, 3)
	for _, e := range got {
		assert.ErrorIs(t, e, rx.ErrProtocolViolation)
		assert.Equal(t, rx.KindProtocol, rx.KindOf(e))
	}
}

func TestDispose_SuppressesSilently(t *testing.T) {
	faults := captureFaults(t)
	var (
		got  []int
		sink rx.Sink[int]
	)
	d := rx.Create(func(ctx context.Context, s rx.Sink[int]) {
		sink = s
		s.Next(1)
	}).Subscribe(context.Background(), func(v int) {
		got = append(got, v)
	})
	d.Dispose()
	assert.True(t, sink.IsDisposed())
	sink.Next(2)
	sink.Complete()
	assert.Equal(t, []int{1}, got)
	assert.Empty(t, faults())
}

func TestDispose_InsideOnNext(t *testing.T) {
	r := newRecorder[int]()
	var d rx.Disposable
	d = rx.Range(0, 100).Subscribe(context.Background(), func(v int) {
		r.OnNext(v)
		if v == 2 {
			d.Dispose()
		}
	}, rx.OnSubscribe(func(ctx context.Context, disposable rx.Disposable) {
		d = disposable
	}), rx.OnComplete(r.OnComplete))
	assert.Equal(t, []int{0, 1, 2}, r.snapshot())
	assert.Zero(t, r.terminals())
	assert.True(t, d.IsDisposed())
}

func TestDispose_HaltsAsyncProducer(t *testing.T) {
	stopped := make(chan struct{})
	var (
		mu    sync.Mutex
		count int
	)
	d := rx.Create(func(ctx context.Context, sink rx.Sink[int]) {
		defer close(stopped)
		for i := 0; !sink.IsDisposed(); i++ {
			sink.Next(i)
		}
	}).SubscribeOn(scheduler.IO()).Subscribe(context.Background(), func(v int) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	time.Sleep(10 * time.Millisecond)
	d.Dispose()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "producer did not observe disposal")
	}
	mu.Lock()
	seen := count
	mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, seen, count, "no values after disposal")
}

func TestContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	r := newRecorder[int64]()
	rx.Interval(time.Millisecond, nil).DoOnCancel(func() {
		close(stopped)
	}).SubscribeWith(ctx, r)
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "context cancellation did not dispose the subscription")
	}
	assert.Zero(t, r.terminals())
}

func TestMap_Error(t *testing.T) {
	var cancelled bool
	r := newRecorder[int]()
	rx.Map(rx.Range(0, 10).DoOnCancel(func() {
		cancelled = true
	}), func(v int) (int, error) {
		if v == 3 {
			return 0, fakeError
		}
		return v, nil
	}).SubscribeWith(context.Background(), r)
	r.await(t)
	assert.Equal(t, []int{0, 1, 2}, r.values)
	assert.ErrorIs(t, r.err, fakeError)
	assert.Equal(t, rx.KindTransformation, rx.KindOf(r.err))
	assert.True(t, cancelled, "upstream should be cancelled")
	assert.Equal(t, 1, r.terminals())
}

func TestFilter_Panic(t *testing.T) {
	r := newRecorder[int]()
	rx.Just(1, 2, 3).Filter(func(v int) bool {
		if v == 2 {
			panic(fakeError)
		}
		return true
	}).SubscribeWith(context.Background(), r)
	r.await(t)
	assert.Equal(t, []int{1}, r.values)
	assert.ErrorIs(t, r.err, fakeError)
	assert.Equal(t, rx.KindTransformation, rx.KindOf(r.err))
}

func TestDoOnNext(t *testing.T) {
	var seen []int
	r := newRecorder[int]()
	rx.Range(0, 5).DoOnNext(func(v int) error {
		seen = append(seen, v)
		if v == 3 {
			return fakeError
		}
		return nil
	}).SubscribeWith(context.Background(), r)
	r.await(t)
	assert.Equal(t, []int{0, 1, 2, 3}, seen)
	assert.Equal(t, []int{0, 1, 2}, r.values)
	assert.ErrorIs(t, r.err, fakeError)
}

func TestCreate_Panic(t *testing.T) {
	r := newRecorder[int]()
	rx.Create(func(ctx context.Context, sink rx.Sink[int]) {
		sink.Next(1)
		panic("producer exploded")
	}).SubscribeWith(context.Background(), r)
	r.await(t)
	assert.Equal(t, []int{1}, r.values)
	assert.Equal(t, rx.KindProducer, rx.KindOf(r.err))
	assert.Contains(t, r.err.Error(), "producer exploded")
}

func TestError(t *testing.T) {
	r := newRecorder[string]()
	rx.Error[string](fakeError).SubscribeWith(context.Background(), r)
	r.await(t)
	assert.Equal(t, fakeError, r.err)
	assert.Equal(t, rx.KindUnknown, rx.KindOf(r.err))

	values, err := rx.Empty[string]().BlockSlice(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, values)
}

func TestTake(t *testing.T) {
	var cancelled bool
	values, err := rx.Range(0, 100).DoOnCancel(func() {
		cancelled = true
	}).Take(3).BlockSlice(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, values)
	assert.True(t, cancelled)

	values, err = rx.Range(0, 100).Take(0).BlockSlice(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, values)
}

func TestDoFinally(t *testing.T) {
	var signals []rx.SignalType
	record := func(s rx.SignalType) {
		signals = append(signals, s)
	}
	_, _ = rx.Just(1).DoFinally(record).BlockSlice(context.Background())
	_, _ = rx.Error[int](fakeError).DoFinally(record).BlockSlice(context.Background())
	d := rx.Create(func(ctx context.Context, sink rx.Sink[int]) {}).DoFinally(record).Subscribe(context.Background(), nil)
	d.Dispose()
	d.Dispose()
	assert.Equal(t, []rx.SignalType{rx.SignalComplete, rx.SignalError, rx.SignalCancel}, signals)
}

func TestDoOnCancel_NotAfterTerminal(t *testing.T) {
	var cancelled bool
	d := rx.Just(1, 2).DoOnCancel(func() {
		cancelled = true
	}).Subscribe(context.Background(), nil)
	d.Dispose()
	assert.False(t, cancelled)
}

func TestLifecycleTaps(t *testing.T) {
	var events []string
	_, err := rx.Just(1).
		DoOnSubscribe(func(ctx context.Context, d rx.Disposable) {
			events = append(events, "subscribe")
		}).
		DoOnComplete(func() {
			events = append(events, "complete")
		}).
		BlockSlice(context.Background())
	assert.NoError(t, err)

	_, err = rx.Error[int](fakeError).DoOnError(func(e error) {
		events = append(events, e.Error())
	}).BlockSlice(context.Background())
	assert.ErrorIs(t, err, fakeError)
	assert.Equal(t, []string{"subscribe", "complete", "fake error"}, events)
}

func TestBlockLast(t *testing.T) {
	last, ok, err := rx.Range(0, 10).BlockLast(context.Background())
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 9, last)

	first, ok, err := rx.Range(5, 10).BlockFirst(context.Background())
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5, first)

	_, ok, err = rx.Empty[int]().BlockLast(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, err = rx.Interval(time.Millisecond, nil).BlockLast(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFlatMap(t *testing.T) {
	values, err := rx.FlatMap(rx.Range(1, 3), func(v int) rx.Flux[int] {
		return rx.Just(v, v*10)
	}).BlockSlice(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 10, 2, 20, 3, 30}, values)
}

func TestFlatMap_Async(t *testing.T) {
	const n = 50
	r := newRecorder[int]()
	rx.FlatMap(rx.Range(0, n), func(v int) rx.Flux[int] {
		return rx.Range(v*100, 10).SubscribeOn(scheduler.IO())
	}).SubscribeWith(context.Background(), r)
	r.await(t)
	assert.Equal(t, 1, r.completes)
	values := r.snapshot()
	assert.Len(t, values, n*10)
	sort.Ints(values)
	for i := 1; i < len(values); i++ {
		assert.NotEqual(t, values[i-1], values[i])
	}
}

func TestFlatMap_Error(t *testing.T) {
	var cancelled sync.WaitGroup
	cancelled.Add(1)
	r := newRecorder[int]()
	rx.FlatMap(rx.Range(0, 3), func(v int) rx.Flux[int] {
		switch v {
		case 0:
			return rx.Create(func(ctx context.Context, sink rx.Sink[int]) {
				sink.Next(0)
			}).DoOnCancel(cancelled.Done)
		case 1:
			return rx.Error[int](fakeError)
		default:
			return rx.Just(v)
		}
	}).SubscribeWith(context.Background(), r)
	r.await(t)
	cancelled.Wait()
	assert.Equal(t, []int{0}, r.values)
	assert.ErrorIs(t, r.err, fakeError)
	assert.Equal(t, 1, r.terminals())
}

func TestFlatMap_Nil(t *testing.T) {
	_, err := rx.FlatMap(rx.Just(1), func(v int) rx.Flux[int] {
		return nil
	}).BlockSlice(context.Background())
	assert.ErrorIs(t, err, rx.ErrNilFlux)
	assert.Equal(t, rx.KindTransformation, rx.KindOf(err))
}

func TestDispose_InfiniteSource(t *testing.T) {
	var (
		mu  sync.Mutex
		got []int64
		d   rx.Disposable
	)
	rx.Interval(time.Millisecond, nil).Subscribe(context.Background(), func(v int64) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, v)
		if len(got) == 3 {
			d.Dispose()
		}
	}, rx.OnSubscribe(func(ctx context.Context, disposable rx.Disposable) {
		d = disposable
	}))
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{0, 1, 2}, got)
}

func TestSubscribeBeforeData(t *testing.T) {
	pipelines := map[string]rx.Flux[int]{
		"just": rx.Just(1, 2, 3),
		"map": rx.Map(rx.Range(0, 3), func(v int) (int, error) {
			return v + 1, nil
		}),
		"flatMap": rx.FlatMap(rx.Range(0, 3), func(v int) rx.Flux[int] {
			return rx.Just(v).SubscribeOn(scheduler.IO())
		}),
		"subscribeOn": rx.Range(0, 3).SubscribeOn(scheduler.NewThread()),
		"observeOn":   rx.Range(0, 3).ObserveOn(scheduler.Single()),
		"drop":        rx.Range(0, 3).OnBackpressureDrop(1, nil),
		"sample":      rx.Range(0, 3).Sample(time.Millisecond),
		"error":       rx.Error[int](fakeError),
		"take":        rx.Range(0, 3).Take(1),
	}
	for name, f := range pipelines {
		t.Run(name, func(t *testing.T) {
			r := newRecorder[int]()
			f.SubscribeWith(context.Background(), r)
			r.await(t)
			r.mu.Lock()
			defer r.mu.Unlock()
			assert.Equal(t, "subscribe", r.events[0])
			assert.Equal(t, 1, r.completes+r.errs)
		})
	}
}
