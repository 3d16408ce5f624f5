package runtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrShutDown is returned by Go when the runtime has already been shut down.
// Scheduling work onto a dead executor is a programming error in the caller;
// it must never be swallowed, because silently dropped work is a correctness
// hazard for the layers above.
var ErrShutDown = errors.New("runtime has been shut down")

// Runtime is a named executor that launches functions as goroutines and
// tracks them so shutdown can wait for in-flight work to finish. It performs
// no scheduling of its own beyond what the Go runtime provides.
type Runtime struct {
	name   string
	logger *slog.Logger

	mu     sync.Mutex
	shut   bool
	wg     sync.WaitGroup
	active atomic.Int64
}

// New creates a runtime with the given name. The name appears in logs and
// in the admin API's runtime stats.
func New(name string, logger *slog.Logger) *Runtime {
	return &Runtime{
		name:   name,
		logger: logger,
	}
}

// Name returns the runtime's name.
func (r *Runtime) Name() string {
	return r.name
}

// Active returns the number of functions currently executing.
func (r *Runtime) Active() int {
	return int(r.active.Load())
}

// Go launches fn as a goroutine. It returns ErrShutDown if Shutdown has
// already been called; in that case fn is not executed.
func (r *Runtime) Go(fn func()) error {
	r.mu.Lock()
	if r.shut {
		r.mu.Unlock()
		return ErrShutDown
	}
	r.wg.Add(1)
	r.mu.Unlock()

	r.active.Add(1)
	go func() {
		defer func() {
			r.active.Add(-1)
			r.wg.Done()
		}()
		fn()
	}()

	return nil
}

// Shutdown marks the runtime as shut down and waits for in-flight work to
// finish, bounded by ctx. Subsequent Go calls fail with ErrShutDown. Calling
// Shutdown more than once is safe; every call waits for the same drain.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if !r.shut {
		r.shut = true
		r.logger.Info("runtime shutting down", "runtime", r.name, "active", r.Active())
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
