// Package rx is a push-based reactive stream engine.
//
// A Flux is a cold description of a value sequence. Nothing runs until it is
// subscribed; every subscription gets its own independent run and its own
// cancellation token. Values are pushed downstream as fast as the producer
// emits them, unless an OnBackpressure operator or ObserveOn puts a bounded
// demand channel between the two sides.
package rx

import (
	"context"

	"github.com/rsocket/rx-engine/rx/scheduler"
)

// DefaultBufferSize is the capacity of a demand channel when none is given.
const DefaultBufferSize = 128

type (
	// Disposable is a disposable resource.
	Disposable = scheduler.Disposable

	// Sink is the producer side of a Create source.
	Sink[T any] interface {
		// Next emits a value.
		Next(v T)
		// Error terminates the sequence with a failure.
		Error(err error)
		// Complete terminates the sequence normally.
		Complete()
		// IsDisposed returns true once the subscription has been cancelled.
		// Producers should poll it and stop emitting.
		IsDisposed() bool
		// Context is cancelled when the subscription is disposed.
		Context() context.Context
	}
)
