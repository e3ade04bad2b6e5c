// Package queue provides the single serialized background work queue that
// runs lifecycle evaluation, deliveries and store access one task at a time.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	apperrors "outcomes/internal/platform/errors"
)

type task struct {
	name string
	ctx  context.Context
	fn   func(context.Context)
}

// Serial executes tasks in submission order on one goroutine. No two tasks
// ever overlap.
//
// Do must not be called from inside a running task: the caller would wait on
// a turn that can only start after its own task returns.
type Serial struct {
	logger *slog.Logger

	mu      sync.Mutex
	pending []task
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

func NewSerial(logger *slog.Logger) *Serial {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Serial{
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

// Enqueue schedules fn without waiting for it.
func (q *Serial) Enqueue(name string, fn func(context.Context)) error {
	return q.push(task{name: name, ctx: context.Background(), fn: fn})
}

// Do schedules fn and blocks until it has run or ctx is done. A task that has
// been accepted always runs to completion even if ctx is cancelled meanwhile.
func (q *Serial) Do(ctx context.Context, name string, fn func(context.Context) error) error {
	result := make(chan error, 1)
	err := q.push(task{name: name, ctx: context.WithoutCancel(ctx), fn: func(taskCtx context.Context) {
		var taskErr error
		defer func() {
			if r := recover(); r != nil {
				taskErr = fmt.Errorf("task %s panicked: %v", name, r)
			}
			result <- taskErr
		}()
		taskErr = fn(taskCtx)
	}})
	if err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call runs fn as one turn of q and returns its value. The value is only
// returned when fn completed without error.
func Call[T any](ctx context.Context, q *Serial, name string, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := q.Do(ctx, name, func(taskCtx context.Context) error {
		v, err := fn(taskCtx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Drain waits until every task submitted before the call has finished.
func (q *Serial) Drain(ctx context.Context) error {
	return q.Do(ctx, "drain", func(context.Context) error { return nil })
}

// Close rejects new tasks, runs the ones already queued and waits for the worker to exit.
func (q *Serial) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.signal()
	}
	q.mu.Unlock()
	<-q.done
}

func (q *Serial) push(t task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return apperrors.ErrQueueClosed
	}
	q.pending = append(q.pending, t)
	q.signal()
	return nil
}

func (q *Serial) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Serial) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			<-q.wake
			continue
		}
		next := q.pending[0]
		q.pending[0] = task{}
		q.pending = q.pending[1:]
		q.mu.Unlock()
		q.exec(next)
	}
}

func (q *Serial) exec(t task) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("queue task panicked", "task", t.name, "panic", r)
		}
	}()
	q.logger.Debug("queue task", "task", t.name)
	t.fn(t.ctx)
}
