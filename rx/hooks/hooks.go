// Package hooks collects process-wide diagnostic callbacks of the reactive
// engine. Values and errors that can no longer be delivered, as well as
// protocol violations, end up here instead of in a subscriber.
package hooks

import (
	"sync"

	"github.com/rsocket/rx-engine/logger"
)

var (
	mu          sync.RWMutex
	onNextDrop  []func(interface{})
	onErrorDrop []func(error)
	onFault     []func(error)
)

// OnNextDrop registers fn to receive values discarded by the engine: values
// emitted after a terminal signal or after disposal, and values dropped by an
// overflow policy.
func OnNextDrop(fn func(v interface{})) {
	if fn == nil {
		return
	}
	mu.Lock()
	onNextDrop = append(onNextDrop, fn)
	mu.Unlock()
}

// OnErrorDrop registers fn to receive errors which could not be delivered
// because the subscription was already terminated or disposed.
func OnErrorDrop(fn func(e error)) {
	if fn == nil {
		return
	}
	mu.Lock()
	onErrorDrop = append(onErrorDrop, fn)
	mu.Unlock()
}

// OnFault registers fn to receive internal faults such as protocol
// violations.
func OnFault(fn func(e error)) {
	if fn == nil {
		return
	}
	mu.Lock()
	onFault = append(onFault, fn)
	mu.Unlock()
}

// Reset removes every registered hook.
func Reset() {
	mu.Lock()
	onNextDrop, onErrorDrop, onFault = nil, nil, nil
	mu.Unlock()
}

// NextDropped publishes a discarded value.
func NextDropped(v interface{}) {
	mu.RLock()
	fns := onNextDrop
	mu.RUnlock()
	if len(fns) == 0 {
		logger.Debugf("rx: value dropped: %v\n", v)
		return
	}
	for _, fn := range fns {
		fn(v)
	}
}

// ErrorDropped publishes an undeliverable error.
func ErrorDropped(e error) {
	mu.RLock()
	fns := onErrorDrop
	mu.RUnlock()
	if len(fns) == 0 {
		logger.Debugf("rx: error dropped: %s\n", e)
		return
	}
	for _, fn := range fns {
		fn(e)
	}
}

// Fault publishes an internal fault.
func Fault(e error) {
	mu.RLock()
	fns := onFault
	mu.RUnlock()
	if len(fns) == 0 {
		logger.Debugf("rx: internal fault: %s\n", e)
		return
	}
	for _, fn := range fns {
		fn(e)
	}
}
