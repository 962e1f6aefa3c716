package scheduler

import (
	"sync"
	"time"

	"github.com/rsocket/rx-engine/logger"
	"go.uber.org/atomic"
)

type workItem struct {
	h    *handle
	task Task
}

// serialWorker funnels its tasks through an executor so that at most one of
// them runs at any time. The drain loop is re-submitted only when the
// work-in-progress counter leaves zero.
type serialWorker struct {
	exec      executor
	wip       atomic.Int32
	disposed  atomic.Bool
	mu        sync.Mutex
	items     []workItem
	delayed   map[*handle]struct{}
	onDispose func()
}

func newSerialWorker(exec executor, onDispose func()) *serialWorker {
	return &serialWorker{
		exec:      exec,
		delayed:   make(map[*handle]struct{}),
		onDispose: onDispose,
	}
}

func (w *serialWorker) Schedule(task Task) Disposable {
	if w.IsDisposed() {
		return disposedHandle()
	}
	h := &handle{}
	w.mu.Lock()
	w.items = append(w.items, workItem{h: h, task: task})
	w.mu.Unlock()
	if w.wip.Inc() == 1 {
		if err := w.exec.execute(w.drain); err != nil {
			logger.Errorf("scheduler: start worker failed: %s\n", err)
			w.Dispose()
		}
	}
	return h
}

func (w *serialWorker) ScheduleDelayed(task Task, delay time.Duration) Disposable {
	if delay <= 0 {
		return w.Schedule(task)
	}
	if w.IsDisposed() {
		return disposedHandle()
	}
	h := &handle{}
	h.onCancel = func() {
		w.mu.Lock()
		delete(w.delayed, h)
		w.mu.Unlock()
	}
	w.mu.Lock()
	w.delayed[h] = struct{}{}
	w.mu.Unlock()
	h.setTimer(time.AfterFunc(delay, func() {
		w.mu.Lock()
		delete(w.delayed, h)
		w.mu.Unlock()
		if h.IsDisposed() {
			return
		}
		w.mu.Lock()
		w.items = append(w.items, workItem{h: h, task: task})
		w.mu.Unlock()
		if w.wip.Inc() == 1 {
			if err := w.exec.execute(w.drain); err != nil {
				logger.Errorf("scheduler: start worker failed: %s\n", err)
				w.Dispose()
			}
		}
	}))
	return h
}

func (w *serialWorker) drain() {
	missed := int32(1)
	for {
		for {
			if w.IsDisposed() {
				w.clear()
				return
			}
			w.mu.Lock()
			if len(w.items) == 0 {
				w.mu.Unlock()
				break
			}
			next := w.items[0]
			w.items[0] = workItem{}
			w.items = w.items[1:]
			w.mu.Unlock()
			if !next.h.IsDisposed() {
				safeRun(next.task)
			}
		}
		missed = w.wip.Sub(missed)
		if missed == 0 {
			return
		}
	}
}

func (w *serialWorker) clear() {
	w.mu.Lock()
	w.items = nil
	pending := make([]*handle, 0, len(w.delayed))
	for h := range w.delayed {
		pending = append(pending, h)
	}
	w.delayed = make(map[*handle]struct{})
	w.mu.Unlock()
	for _, h := range pending {
		h.Dispose()
	}
}

func (w *serialWorker) Dispose() {
	if !w.disposed.CompareAndSwap(false, true) {
		return
	}
	w.clear()
	if w.onDispose != nil {
		w.onDispose()
	}
}

func (w *serialWorker) IsDisposed() bool {
	return w.disposed.Load()
}
