package runtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return New("test", logger)
}

func TestGoRunsFunction(t *testing.T) {
	rt := newTestRuntime(t)

	done := make(chan struct{})
	if err := rt.Go(func() { close(done) }); err != nil {
		t.Fatalf("Go: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("function did not run")
	}
}

func TestGoAfterShutdown(t *testing.T) {
	rt := newTestRuntime(t)

	if err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	err := rt.Go(func() { t.Error("function ran after shutdown") })
	if !errors.Is(err, ErrShutDown) {
		t.Errorf("Go after shutdown = %v, want ErrShutDown", err)
	}
}

func TestShutdownWaitsForInflight(t *testing.T) {
	rt := newTestRuntime(t)

	var finished atomic.Bool
	release := make(chan struct{})
	if err := rt.Go(func() {
		<-release
		finished.Store(true)
	}); err != nil {
		t.Fatalf("Go: %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()

	if err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !finished.Load() {
		t.Error("Shutdown returned before in-flight work finished")
	}
}

func TestShutdownTimeout(t *testing.T) {
	rt := newTestRuntime(t)

	release := make(chan struct{})
	defer close(release)
	if err := rt.Go(func() { <-release }); err != nil {
		t.Fatalf("Go: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := rt.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown = %v, want DeadlineExceeded", err)
	}
}

func TestShutdownIdempotent(t *testing.T) {
	rt := newTestRuntime(t)

	if err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}

func TestActiveCount(t *testing.T) {
	rt := newTestRuntime(t)

	release := make(chan struct{})
	for i := 0; i < 3; i++ {
		if err := rt.Go(func() { <-release }); err != nil {
			t.Fatalf("Go[%d]: %v", i, err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for rt.Active() != 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := rt.Active(); got != 3 {
		t.Errorf("Active = %d, want 3", got)
	}

	close(release)
	if err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if got := rt.Active(); got != 0 {
		t.Errorf("Active after drain = %d, want 0", got)
	}
}
