package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rsocket/rx-engine/rx"
	"github.com/rsocket/rx-engine/rx/scheduler"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type scenario struct {
	name string
	run  func(ctx context.Context, o *opts, p *printer) error
}

var allScenarios = []scenario{
	{name: "basic", run: runBasic},
	{name: "operators", run: runOperators},
	{name: "schedulers", run: runSchedulers},
	{name: "backpressure", run: runBackpressure},
	{name: "sample", run: runSample},
}

func lookupScenario(name string) (scenario, bool) {
	for _, sc := range allScenarios {
		if sc.name == name {
			return sc, true
		}
	}
	return scenario{}, false
}

type waiter interface {
	wait(ctx context.Context) error
}

func waitAll(ctx context.Context, waiters ...waiter) error {
	for _, w := range waiters {
		if err := w.wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// observer prints every signal it receives.
type observer[T any] struct {
	name string
	p    *printer
	done chan struct{}
	err  error
}

func newObserver[T any](name string, p *printer) *observer[T] {
	return &observer[T]{name: name, p: p, done: make(chan struct{})}
}

func (o *observer[T]) OnSubscribe(ctx context.Context, d rx.Disposable) {
	_ = o.p.print(o.name, "subscribed", nil)
}

func (o *observer[T]) OnNext(v T) {
	_ = o.p.print(o.name, "next", v)
}

func (o *observer[T]) OnError(err error) {
	_ = o.p.print(o.name, "error", err)
	o.err = err
	close(o.done)
}

func (o *observer[T]) OnComplete() {
	_ = o.p.print(o.name, "complete", nil)
	close(o.done)
}

func (o *observer[T]) wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func runBasic(ctx context.Context, o *opts, p *printer) error {
	words := newObserver[string]("basic/just", p)
	rx.Just("Hello", "RxJava", "World").SubscribeWith(ctx, words)

	numbers := newObserver[int]("basic/range", p)
	rx.Range(1, 10).SubscribeWith(ctx, numbers)

	custom := newObserver[string]("basic/create", p)
	rx.Create(func(ctx context.Context, sink rx.Sink[string]) {
		sink.Next("custom 1")
		sink.Next("custom 2")
		sink.Complete()
	}).SubscribeWith(ctx, custom)

	lambda := newObserver[string]("basic/lambda", p)
	rx.Just("Lambda", "callbacks").Subscribe(ctx, lambda.OnNext,
		rx.OnError(lambda.OnError),
		rx.OnComplete(lambda.OnComplete),
	)
	return waitAll(ctx, words, numbers, custom, lambda)
}

func runOperators(ctx context.Context, o *opts, p *printer) error {
	squares := newObserver[int]("operators/map", p)
	rx.Map(rx.Just(1, 2, 3, 4, 5), func(n int) (int, error) {
		return n * n, nil
	}).SubscribeWith(ctx, squares)

	evens := newObserver[int]("operators/filter", p)
	rx.Range(1, 10).Filter(func(n int) bool {
		return n%2 == 0
	}).SubscribeWith(ctx, evens)

	chars := newObserver[string]("operators/flatMap", p)
	rx.FlatMap(rx.Just("Hello", "World"), func(s string) rx.Flux[string] {
		return rx.FromSlice(strings.Split(s, ""))
	}).SubscribeWith(ctx, chars)

	return waitAll(ctx, squares, evens, chars)
}

func runSchedulers(ctx context.Context, o *opts, p *printer) error {
	const name = "schedulers"
	stage := func(label string) func(v int) error {
		return func(v int) error {
			return p.print(name, label, v)
		}
	}

	hop := newObserver[string](name+"/hop", p)
	rx.Just("task").
		SubscribeOn(scheduler.IO()).
		ObserveOn(scheduler.Computation()).
		SubscribeWith(ctx, hop)

	doubled := rx.Map(rx.Range(1, 3).
		SubscribeOn(scheduler.NewThread()).
		DoOnNext(stage("emit on "+scheduler.NewThread().Name())).
		ObserveOn(scheduler.IO()), func(n int) (int, error) {
		return n * 2, nil
	})
	chain := newObserver[int](name+"/chain", p)
	doubled.
		DoOnNext(stage("map on "+scheduler.IO().Name())).
		ObserveOn(scheduler.Computation()).
		SubscribeWith(ctx, chain)

	workflow := newObserver[string](name+"/workflow", p)
	filtered := rx.Map(rx.Create(func(ctx context.Context, sink rx.Sink[string]) {
		sink.Next("Data A")
		sink.Next("Data B")
		sink.Complete()
	}).SubscribeOn(scheduler.IO()), func(s string) (string, error) {
		return strings.ToLower(s), nil
	}).ObserveOn(scheduler.Computation()).Filter(func(s string) bool {
		return strings.Contains(s, "a")
	})
	filtered.Subscribe(ctx, workflow.OnNext,
		rx.OnError(workflow.OnError),
		rx.OnComplete(workflow.OnComplete),
	)

	return waitAll(ctx, hop, chain, workflow)
}

func (o *opts) withPolicy(source rx.Flux[int], dropped *atomic.Int64) (rx.Flux[int], error) {
	switch o.Policy {
	case "buffer":
		return source.OnBackpressureBuffer(o.Capacity), nil
	case "", "drop":
		return source.OnBackpressureDrop(o.Capacity, func(int) {
			dropped.Inc()
		}), nil
	case "latest":
		return source.OnBackpressureLatest(), nil
	case "error":
		return source.OnBackpressureError(o.Capacity), nil
	default:
		return nil, fmt.Errorf("unsupported policy: %s", o.Policy)
	}
}

func runBackpressure(ctx context.Context, o *opts, p *printer) error {
	const name = "backpressure"
	var dropped, delivered atomic.Int64
	source, err := o.withPolicy(rx.Range(0, o.Count), &dropped)
	if err != nil {
		return err
	}
	done := make(chan error, 1)
	start := time.Now()
	source.
		ObserveOn(scheduler.Computation()).
		Subscribe(ctx, func(v int) {
			time.Sleep(o.Delay.Duration)
			delivered.Inc()
			o.log.Debug("consumed", zap.Int("value", v))
		},
			rx.OnError(func(e error) {
				done <- e
			}),
			rx.OnComplete(func() {
				done <- nil
			}),
		)
	produced := time.Since(start)

	select {
	case err = <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err != nil {
		_ = p.print(name, "error", fmt.Sprintf("%s (kind=%s)", err, rx.KindOf(err)))
	}
	return p.print(name, "summary", fmt.Sprintf(
		"policy=%s capacity=%d emitted=%d delivered=%d dropped=%d produced-in=%s total=%s",
		o.Policy, o.Capacity, o.Count, delivered.Load(), dropped.Load(), produced, time.Since(start),
	))
}

func runSample(ctx context.Context, o *opts, p *printer) error {
	const name = "sample"
	ctx, cancel := context.WithTimeout(ctx, o.Duration.Duration)
	defer cancel()

	before := o.dropped.Load()
	var emitted atomic.Int64
	_, err := rx.Interval(o.Period.Duration, scheduler.Computation()).
		Sample(o.Sample.Duration).
		DoOnNext(func(v int64) error {
			emitted.Inc()
			return p.print(name, "next", v)
		}).
		BlockSlice(ctx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return p.print(name, "summary", fmt.Sprintf(
		"period=%s sample=%s emitted=%d skipped=%d",
		o.Period.Duration, o.Sample.Duration, emitted.Load(), o.dropped.Load()-before,
	))
}
