package rx

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rsocket/rx-engine/internal/queue"
	"github.com/rsocket/rx-engine/rx/hooks"
	"github.com/rsocket/rx-engine/rx/scheduler"
	"go.uber.org/atomic"
)

// Overflow policies of a demand channel.
const (
	// BufferBlock blocks the producer while the channel is full.
	BufferBlock = queue.PolicyBuffer
	// DropNewest discards the incoming value while the channel is full.
	DropNewest = queue.PolicyDrop
	// KeepLatest holds a single slot overwritten by every new value.
	KeepLatest = queue.PolicyLatest
	// ErrorOnOverflow fails the sequence when the channel is full.
	ErrorOnOverflow = queue.PolicyError
)

// OverflowPolicy decides what happens when a value arrives at a full demand channel.
type OverflowPolicy = queue.Policy

type channelConfig[T any] struct {
	policy   OverflowPolicy
	capacity int
	onDrop   func(T)
}

func (f *flux[T]) SubscribeOn(sc scheduler.Scheduler) Flux[T] {
	return newFlux(func(s Subscriber[T], tok *Token) {
		w := sc.Worker()
		tok.OnDispose(w.Dispose)
		w.Schedule(func() {
			f.run(s, tok)
		})
	})
}

func (f *flux[T]) ObserveOn(sc scheduler.Scheduler) Flux[T] {
	source, cfg := f, channelConfig[T]{policy: BufferBlock, capacity: DefaultBufferSize}
	if f.fusable != nil {
		source, cfg = f.fusable.source, f.fusable.cfg
	}
	return newFlux(func(s Subscriber[T], tok *Token) {
		subscribeChannel[T](source, s, tok, cfg, sc)
	})
}

func (f *flux[T]) OnBackpressureBuffer(capacity int) Flux[T] {
	return f.withChannel(channelConfig[T]{policy: BufferBlock, capacity: capacity})
}

func (f *flux[T]) OnBackpressureDrop(capacity int, onDrop func(v T)) Flux[T] {
	return f.withChannel(channelConfig[T]{policy: DropNewest, capacity: capacity, onDrop: onDrop})
}

func (f *flux[T]) OnBackpressureLatest() Flux[T] {
	return f.withChannel(channelConfig[T]{policy: KeepLatest, capacity: 1})
}

func (f *flux[T]) OnBackpressureError(capacity int) Flux[T] {
	return f.withChannel(channelConfig[T]{policy: ErrorOnOverflow, capacity: capacity})
}

// withChannel decouples the producer from the consumer with a demand channel
// drained on the IO scheduler. An ObserveOn directly downstream reuses the
// same channel instead of adding a second one.
func (f *flux[T]) withChannel(cfg channelConfig[T]) Flux[T] {
	if cfg.capacity < 1 {
		cfg.capacity = DefaultBufferSize
	}
	nf := newFlux(func(s Subscriber[T], tok *Token) {
		subscribeChannel[T](f, s, tok, cfg, scheduler.IO())
	})
	nf.fusable = &pending[T]{source: f, cfg: cfg}
	return nf
}

func subscribeChannel[T any](source Flux[T], s Subscriber[T], tok *Token, cfg channelConfig[T], sc scheduler.Scheduler) {
	up := tok.Child()
	c := &demandChannel[T]{
		actual: s,
		up:     up,
		worker: sc.Worker(),
	}
	c.q = queue.New(cfg.capacity, cfg.policy, func(v T) {
		if cfg.onDrop != nil {
			cfg.onDrop(v)
		}
		hooks.NextDropped(v)
	})
	tok.OnDispose(c.dispose)
	source.run(c, up)
}

const (
	channelOpen int32 = iota
	channelCompleted
	channelErrored
	channelOverflowed
	channelDisposed
)

// demandChannel is a bounded buffer between a producer and a consumer
// running on a scheduler worker. Values and a terminal signal recorded by
// the producer are delivered in order by a single drain loop at a time.
type demandChannel[T any] struct {
	actual Subscriber[T]
	up     *Token
	worker scheduler.Worker
	q      *queue.Queue[T]
	wip    atomic.Int32
	state  atomic.Int32
	err    error
}

func (c *demandChannel[T]) OnSubscribe(context.Context, Disposable) {}

func (c *demandChannel[T]) OnNext(v T) {
	if c.state.Load() != channelOpen {
		hooks.NextDropped(v)
		return
	}
	accepted, err := c.q.Offer(c.up.Context(), v)
	switch {
	case errors.Is(err, queue.ErrOverflow):
		c.overflow(v)
	case err != nil:
		hooks.NextDropped(v)
	case accepted:
		c.schedule()
	}
}

// OnError and overflow only write err while the channel is open: upstream
// signals are sequential and the drain reads err after observing the state.
func (c *demandChannel[T]) OnError(err error) {
	if c.state.Load() != channelOpen {
		hooks.ErrorDropped(err)
		return
	}
	c.err = err
	if !c.state.CompareAndSwap(channelOpen, channelErrored) {
		hooks.ErrorDropped(err)
		return
	}
	c.schedule()
}

func (c *demandChannel[T]) OnComplete() {
	if c.state.CompareAndSwap(channelOpen, channelCompleted) {
		c.schedule()
	}
}

func (c *demandChannel[T]) overflow(v T) {
	hooks.NextDropped(v)
	if c.state.Load() != channelOpen {
		return
	}
	c.err = newFault(KindOverflow, errors.Wrapf(ErrOverflow, "capacity %d", c.q.Cap()))
	if !c.state.CompareAndSwap(channelOpen, channelOverflowed) {
		return
	}
	c.up.Dispose()
	c.schedule()
}

func (c *demandChannel[T]) dispose() {
	c.state.Store(channelDisposed)
	c.worker.Dispose()
	c.q.Clear()
}

func (c *demandChannel[T]) schedule() {
	if c.wip.Inc() == 1 {
		c.worker.Schedule(c.drain)
	}
}

func (c *demandChannel[T]) drain() {
	missed := int32(1)
	for {
		if c.drainOnce() {
			return
		}
		if missed = c.wip.Sub(missed); missed == 0 {
			return
		}
	}
}

// drainOnce delivers every queued value. It returns true once the channel
// has delivered its terminal signal or has been disposed.
func (c *demandChannel[T]) drainOnce() bool {
	for {
		st := c.state.Load()
		switch st {
		case channelDisposed:
			c.q.Clear()
			return true
		case channelOverflowed:
			c.q.Clear()
			c.actual.OnError(c.err)
			return true
		}
		v, ok := c.q.Poll()
		if ok {
			c.actual.OnNext(v)
			continue
		}
		switch st {
		case channelCompleted:
			c.actual.OnComplete()
			return true
		case channelErrored:
			c.actual.OnError(c.err)
			return true
		}
		return false
	}
}
