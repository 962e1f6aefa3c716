package scheduler

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rsocket/rx-engine/logger"
	"go.uber.org/atomic"
)

// executor hands a function over to an execution context.
type executor interface {
	execute(fn func()) error
}

type inlineExecutor struct{}

func (inlineExecutor) execute(fn func()) error {
	fn()
	return nil
}

type goExecutor struct{}

func (goExecutor) execute(fn func()) error {
	go fn()
	return nil
}

type handle struct {
	disposed atomic.Bool
	mu       sync.Mutex
	timer    *time.Timer
	onCancel func()
}

func (h *handle) Dispose() {
	if !h.disposed.CompareAndSwap(false, true) {
		return
	}
	h.mu.Lock()
	timer, onCancel := h.timer, h.onCancel
	h.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
	if onCancel != nil {
		onCancel()
	}
}

func (h *handle) IsDisposed() bool {
	return h.disposed.Load()
}

func (h *handle) setTimer(t *time.Timer) {
	h.mu.Lock()
	h.timer = t
	h.mu.Unlock()
	if h.IsDisposed() {
		t.Stop()
	}
}

func disposedHandle() *handle {
	h := &handle{}
	h.disposed.Store(true)
	return h
}

func submit(exec executor, task Task) Disposable {
	h := &handle{}
	run(exec, h, task)
	return h
}

func submitDelayed(exec executor, task Task, delay time.Duration) Disposable {
	if delay <= 0 {
		return submit(exec, task)
	}
	h := &handle{}
	h.setTimer(time.AfterFunc(delay, func() {
		run(exec, h, task)
	}))
	return h
}

func run(exec executor, h *handle, task Task) {
	if h.IsDisposed() {
		return
	}
	err := exec.execute(func() {
		if !h.IsDisposed() {
			safeRun(task)
		}
	})
	if err != nil {
		h.Dispose()
		logger.Errorf("scheduler: submit task failed: %s\n", err)
	}
}

func safeRun(task Task) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		var err error
		switch v := rec.(type) {
		case error:
			err = errors.WithStack(v)
		case string:
			err = errors.New(v)
		default:
			err = errors.Errorf("%v", v)
		}
		logger.Errorf("scheduler: task panicked: %+v\n", err)
	}()
	task()
}
