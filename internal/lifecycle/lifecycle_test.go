package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func TestWatchCancelsOnExternalTrigger(t *testing.T) {
	external := make(chan struct{})
	ctx, cancel := Watch(context.Background(), external)
	defer cancel()

	close(external)

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("expected ctx to be cancelled after external trigger")
	}
}

func TestWatchMonotonicity(t *testing.T) {
	external := make(chan struct{})
	ctx, cancel := Watch(context.Background(), external)
	defer cancel()

	close(external)
	<-ctx.Done()

	// Once cancelled, ctx.Done() must stay closed; it never reopens.
	select {
	case <-ctx.Done():
	default:
		t.Fatal("ctx.Done() should remain closed after cancellation")
	}
	if ctx.Err() == nil {
		t.Fatal("expected a non-nil ctx.Err() after cancellation")
	}
}

func TestWaitGraceReturnsOnCompletion(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		time.Sleep(10 * time.Millisecond)
		wg.Done()
	}()

	start := time.Now()
	WaitGrace(&wg, time.Second, slog.Default(), "test")
	if time.Since(start) >= time.Second {
		t.Fatal("expected WaitGrace to return promptly once wg completed")
	}
}

func TestWaitGraceTimesOut(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	defer wg.Done()

	start := time.Now()
	WaitGrace(&wg, 20*time.Millisecond, slog.Default(), "test")
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("expected WaitGrace to wait at least the grace period")
	}
}
