// Package queue implements the bounded mailbox placed between a producer
// and a consumer execution context.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrOverflow is returned by Offer when a PolicyError queue is full.
var ErrOverflow = errors.New("queue: capacity exceeded")

// Policy decides what Offer does when the queue is full.
type Policy int8

const (
	// PolicyBuffer blocks the producer until space frees.
	PolicyBuffer Policy = iota
	// PolicyDrop discards the incoming value.
	PolicyDrop
	// PolicyLatest keeps a single slot and overwrites it.
	PolicyLatest
	// PolicyError rejects the value with ErrOverflow.
	PolicyError
)

var policyNames = map[Policy]string{
	PolicyBuffer: "BUFFER",
	PolicyDrop:   "DROP",
	PolicyLatest: "LATEST",
	PolicyError:  "ERROR",
}

func (p Policy) String() string {
	if s, ok := policyNames[p]; ok {
		return s
	}
	return "UNKNOWN"
}

// Queue is a fixed-capacity ring buffer with an overflow policy.
// It supports one producer and one consumer at a time.
type Queue[T any] struct {
	mu      sync.Mutex
	policy  Policy
	items   []T
	head    int
	size    int
	breaker chan struct{}
	onDrop  func(T)
}

// New creates a Queue. Capacities below one are raised to one and
// PolicyLatest always holds exactly one slot.
// onDrop, if not nil, receives every value discarded by PolicyDrop or
// overwritten by PolicyLatest.
func New[T any](capacity int, policy Policy, onDrop func(T)) *Queue[T] {
	if capacity < 1 || policy == PolicyLatest {
		capacity = 1
	}
	return &Queue[T]{
		policy:  policy,
		items:   make([]T, capacity),
		breaker: make(chan struct{}, 1),
		onDrop:  onDrop,
	}
}

// Offer adds v following the queue policy.
// It reports false when the value was discarded. Under PolicyBuffer it
// waits for space and returns ctx.Err() if ctx ends first.
func (q *Queue[T]) Offer(ctx context.Context, v T) (bool, error) {
	for {
		q.mu.Lock()
		if q.size < len(q.items) {
			q.items[(q.head+q.size)%len(q.items)] = v
			q.size++
			q.mu.Unlock()
			return true, nil
		}
		switch q.policy {
		case PolicyLatest:
			idx := (q.head + q.size - 1) % len(q.items)
			old := q.items[idx]
			q.items[idx] = v
			q.mu.Unlock()
			q.dropped(old)
			return true, nil
		case PolicyDrop:
			q.mu.Unlock()
			q.dropped(v)
			return false, nil
		case PolicyError:
			q.mu.Unlock()
			return false, ErrOverflow
		}
		q.mu.Unlock()
		select {
		case <-q.breaker:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

// Poll removes the oldest value.
func (q *Queue[T]) Poll() (v T, ok bool) {
	q.mu.Lock()
	if q.size == 0 {
		q.mu.Unlock()
		return
	}
	var zero T
	v, ok = q.items[q.head], true
	q.items[q.head] = zero
	q.head = (q.head + 1) % len(q.items)
	q.size--
	q.mu.Unlock()
	select {
	case q.breaker <- struct{}{}:
	default:
	}
	return
}

// Len returns current occupancy.
func (q *Queue[T]) Len() (n int) {
	q.mu.Lock()
	n = q.size
	q.mu.Unlock()
	return
}

// Cap returns the capacity.
func (q *Queue[T]) Cap() int {
	return len(q.items)
}

// Policy returns the overflow policy.
func (q *Queue[T]) Policy() Policy {
	return q.policy
}

// Clear discards every buffered value without notifying onDrop.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	var zero T
	for i := range q.items {
		q.items[i] = zero
	}
	q.head, q.size = 0, 0
	q.mu.Unlock()
	select {
	case q.breaker <- struct{}{}:
	default:
	}
}

func (q *Queue[T]) dropped(v T) {
	if q.onDrop != nil {
		q.onDrop(v)
	}
}
