package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "outcomes/internal/platform/errors"
	"outcomes/internal/platform/queue"
)

func TestSerialRunsTasksInOrder(t *testing.T) {
	t.Parallel()
	q := queue.NewSerial(nil)
	defer q.Close()

	var mu sync.Mutex
	got := []int{}
	for i := 0; i < 50; i++ {
		i := i
		if err := q.Enqueue("append", func(context.Context) {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	if err := q.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 50 {
		t.Fatalf("expected 50 tasks, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("out of order at %d: %v", i, got)
		}
	}
}

func TestSerialNeverOverlapsTasks(t *testing.T) {
	t.Parallel()
	q := queue.NewSerial(nil)
	defer q.Close()

	running := 0
	maxRunning := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Do(context.Background(), "late", func(context.Context) error {
				running++
				if running > maxRunning {
					maxRunning = running
				}
				time.Sleep(time.Millisecond)
				running--
				return nil
			})
		}()
	}
	wg.Wait()
	if maxRunning != 1 {
		t.Fatalf("expected at most one running task, got %d", maxRunning)
	}
}

func TestSerialDoReturnsTaskErrorAndRecoversPanics(t *testing.T) {
	t.Parallel()
	q := queue.NewSerial(nil)
	defer q.Close()

	want := errors.New("boom")
	if err := q.Do(context.Background(), "fail", func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected task error, got %v", err)
	}
	if err := q.Do(context.Background(), "panic", func(context.Context) error { panic("bad") }); err == nil {
		t.Fatalf("expected panic to surface as error")
	}
	if err := q.Do(context.Background(), "after", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("queue should survive a panicking task: %v", err)
	}
}

func TestSerialRejectsAfterCloseButFinishesQueuedWork(t *testing.T) {
	t.Parallel()
	q := queue.NewSerial(nil)
	ran := make(chan struct{}, 1)
	if err := q.Enqueue("last", func(context.Context) { ran <- struct{}{} }); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	q.Close()
	select {
	case <-ran:
	default:
		t.Fatalf("queued task should run before close returns")
	}
	if err := q.Enqueue("late", func(context.Context) {}); !errors.Is(err, apperrors.ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestCallReturnsValue(t *testing.T) {
	t.Parallel()
	q := queue.NewSerial(nil)
	defer q.Close()
	got, err := queue.Call(context.Background(), q, "answer", func(context.Context) (int, error) { return 42, nil })
	if err != nil || got != 42 {
		t.Fatalf("call: got %d err %v", got, err)
	}
	_, err = queue.Call(context.Background(), q, "fail", func(context.Context) (int, error) { return 7, errors.New("boom") })
	if err == nil {
		t.Fatalf("expected error")
	}
}
