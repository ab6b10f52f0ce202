package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestCleaner_RunsImmediatelyAndOnTick(t *testing.T) {
	var calls atomic.Int64
	c := NewCleaner("test", 10*time.Millisecond, func(ctx context.Context) (int64, error) {
		calls.Add(1)
		return 1, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop after cancel")
	}
	if calls.Load() < 3 {
		t.Fatalf("expected at least 3 runs; got %d", calls.Load())
	}
}

func TestCleaner_KeepsRunningAfterError(t *testing.T) {
	var calls atomic.Int64
	c := NewCleaner("failing", 5*time.Millisecond, func(ctx context.Context) (int64, error) {
		calls.Add(1)
		return 0, errors.New("locked")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	c.Run(ctx)

	if calls.Load() < 2 {
		t.Fatalf("expected retries after failures; got %d", calls.Load())
	}
}

func TestNewCleaner_DefaultInterval(t *testing.T) {
	c := NewCleaner("x", 0, nil)
	if c.interval != time.Minute {
		t.Fatalf("expected one minute default; got %v", c.interval)
	}
}
