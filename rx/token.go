package rx

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/atomic"
)

// Token is the cancellation handle of one subscription.
//
// Disposing a token is idempotent, cancels its context and runs every
// registered callback once. Child tokens are disposed with their parent but
// can be disposed on their own without affecting it.
type Token struct {
	ctx      context.Context
	cancel   context.CancelFunc
	disposed atomic.Bool
	mu       sync.Mutex
	seq      uint64
	hooks    map[uint64]func()
	detach   func()
}

// NewToken returns a token that is disposed when ctx is done.
func NewToken(ctx context.Context) *Token {
	if ctx == nil {
		ctx = context.Background()
	}
	c, cancel := context.WithCancel(ctx)
	t := &Token{ctx: c, cancel: cancel}
	stop := context.AfterFunc(ctx, t.Dispose)
	t.setDetach(func() { stop() })
	return t
}

// Child returns a token disposed together with t.
func (t *Token) Child() *Token {
	c, cancel := context.WithCancel(t.ctx)
	child := &Token{ctx: c, cancel: cancel}
	child.setDetach(t.OnDispose(child.Dispose))
	return child
}

// Context returns a context cancelled when the token is disposed.
func (t *Token) Context() context.Context {
	return t.ctx
}

// OnDispose registers fn to run when the token is disposed. If the token is
// already disposed fn runs immediately. The returned function unregisters fn.
func (t *Token) OnDispose(fn func()) (remove func()) {
	t.mu.Lock()
	if t.disposed.Load() {
		t.mu.Unlock()
		fn()
		return func() {}
	}
	if t.hooks == nil {
		t.hooks = make(map[uint64]func())
	}
	t.seq++
	id := t.seq
	t.hooks[id] = fn
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.hooks, id)
		t.mu.Unlock()
	}
}

// Dispose cancels the subscription.
func (t *Token) Dispose() {
	t.mu.Lock()
	if !t.disposed.CompareAndSwap(false, true) {
		t.mu.Unlock()
		return
	}
	hooks := t.hooks
	t.hooks = nil
	detach := t.detach
	t.detach = nil
	t.mu.Unlock()

	t.cancel()
	if detach != nil {
		detach()
	}
	ids := make([]uint64, 0, len(hooks))
	for id := range hooks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		hooks[id]()
	}
}

// IsDisposed returns true if the token has been disposed.
func (t *Token) IsDisposed() bool {
	return t.disposed.Load()
}

func (t *Token) setDetach(detach func()) {
	t.mu.Lock()
	if t.disposed.Load() {
		t.mu.Unlock()
		detach()
		return
	}
	t.detach = detach
	t.mu.Unlock()
}
