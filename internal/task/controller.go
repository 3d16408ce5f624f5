package task

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/veilmq/veil/internal/runtime"
)

// ErrTerminated is returned by Spawn once TerminateAll has begun; the
// controller no longer accepts new work.
var ErrTerminated = errors.New("task controller has been terminated")

// ErrDrainTimeout indicates TerminateAll gave up waiting for the registry to
// drain. It is a distinct, non-fatal outcome: the caller decides whether to
// proceed with teardown anyway, log, or escalate.
var ErrDrainTimeout = errors.New("tasks still registered after drain deadline")

// DrainTimeoutError carries the tasks still registered when the drain
// deadline elapsed. It unwraps to ErrDrainTimeout. Remaining is a snapshot
// taken after the deadline fired and is never empty, but tasks may finish
// between the snapshot and the caller inspecting it.
type DrainTimeoutError struct {
	Remaining []Info
}

func (e *DrainTimeoutError) Error() string {
	names := make([]string, len(e.Remaining))
	for i, info := range e.Remaining {
		names[i] = info.Name
	}
	return fmt.Sprintf("%d task(s) still registered after drain deadline: %s",
		len(e.Remaining), strings.Join(names, ", "))
}

func (e *DrainTimeoutError) Unwrap() error { return ErrDrainTimeout }

// Func is the unit of work a tracked task executes. ctx is the controller's
// broadcast cancellation signal; the function must return promptly once it
// fires, returning ctx.Err() so the exit is attributed to cancellation.
type Func func(ctx context.Context) error

// Info is a snapshot of a registered task, for diagnostics.
type Info struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	StartedAt time.Time `json:"started_at"`
}

type tracked struct {
	id        uint64
	name      string
	startedAt time.Time
}

// Controller tracks background tasks spawned on behalf of an owning
// subsystem. Create one per subsystem and tear it down with TerminateAll
// when the subsystem shuts down.
type Controller struct {
	rt        *runtime.Runtime
	logger    *slog.Logger
	observers []Observer

	// ctx is cancelled exactly once, by TerminateAll, and is the signal
	// every tracked task observes.
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	nextID      uint64
	tasks       map[uint64]*tracked
	terminating bool
	wg          sync.WaitGroup
}

// New creates a controller that schedules work onto rt. Observers receive a
// lifecycle event for every spawn, completion, and cancellation.
func New(rt *runtime.Runtime, logger *slog.Logger, observers ...Observer) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		rt:        rt,
		logger:    logger,
		observers: observers,
		ctx:       ctx,
		cancel:    cancel,
		tasks:     make(map[uint64]*tracked),
	}
}

// Spawn registers a new tracked task and begins executing fn on the runtime.
// There is no handle to release: the task deregisters itself when fn returns,
// whether it completed naturally or observed cancellation.
//
// Spawn fails with ErrTerminated once TerminateAll has begun, and with
// runtime.ErrShutDown if the executor is gone. Both mean the caller tried to
// schedule work onto a subsystem that is shutting down; neither is ever
// silently dropped.
func (c *Controller) Spawn(name string, fn Func) error {
	c.mu.Lock()
	if c.terminating {
		c.mu.Unlock()
		return fmt.Errorf("spawn %q: %w", name, ErrTerminated)
	}
	id := c.nextID
	c.nextID++
	tr := &tracked{id: id, name: name, startedAt: time.Now().UTC()}
	c.tasks[id] = tr
	c.wg.Add(1)
	c.mu.Unlock()

	// Emit before scheduling so the spawned event always precedes the task's
	// terminal event, however quickly fn returns.
	c.logger.Debug("task spawned", "task", name, "task_id", id)
	c.emit(Event{TaskID: id, Name: name, Kind: KindSpawned, At: tr.startedAt})

	if err := c.rt.Go(func() { c.run(tr, fn) }); err != nil {
		c.mu.Lock()
		delete(c.tasks, id)
		c.mu.Unlock()
		c.logger.Error("spawn rejected", "task", name, "error", err)
		// The task never ran; close out its lifecycle for observers.
		c.emit(Event{TaskID: id, Name: name, Kind: KindCancelled, Err: err.Error(), At: time.Now().UTC()})
		c.wg.Done()
		return fmt.Errorf("spawn %q: %w", name, err)
	}

	return nil
}

// run executes fn and deregisters the task when it returns. wg.Done comes
// last: a drained waitgroup implies the registry is empty and every terminal
// event has reached the observers.
func (c *Controller) run(tr *tracked, fn Func) {
	err := fn(c.ctx)

	c.mu.Lock()
	delete(c.tasks, tr.id)
	c.mu.Unlock()
	defer c.wg.Done()

	kind := KindCompleted
	errMsg := ""
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		kind = KindCancelled
	default:
		errMsg = err.Error()
		c.logger.Error("task failed", "task", tr.name, "task_id", tr.id, "error", err)
	}

	durationMS := time.Since(tr.startedAt).Milliseconds()
	c.logger.Debug("task finished",
		"task", tr.name,
		"task_id", tr.id,
		"kind", kind,
		"duration_ms", durationMS,
	)
	c.emit(Event{
		TaskID:     tr.id,
		Name:       tr.name,
		Kind:       kind,
		Err:        errMsg,
		At:         time.Now().UTC(),
		DurationMS: durationMS,
	})
}

// TerminateAll broadcasts cancellation to every registered task and waits for
// the registry to drain, bounded by ctx. A task already completing when the
// broadcast fires finishes normally; one that has not yet observed it is
// expected to unwind promptly.
//
// It returns nil once the registry is empty, or a *DrainTimeoutError listing
// the stragglers if ctx expires first. It is idempotent and re-entrant:
// concurrent and repeated calls all wait on the same drain, and any Spawn
// issued after the first call fails with ErrTerminated.
func (c *Controller) TerminateAll(ctx context.Context) error {
	c.mu.Lock()
	if !c.terminating {
		c.terminating = true
		c.logger.Info("terminating tracked tasks", "count", len(c.tasks))
	}
	c.mu.Unlock()

	// The terminating flag is set before the broadcast, so a task that won
	// the race to register will observe the cancelled context, and one that
	// lost it was rejected. No task lands outside the registry.
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// Prefer reporting success if the drain finished at the deadline.
		select {
		case <-done:
			return nil
		default:
		}
		// Tasks keep deregistering between ctx firing and this snapshot, so
		// Remaining is advisory. If the registry emptied in that window the
		// drain is done and there is nothing to report.
		remaining := c.Running()
		if len(remaining) == 0 {
			return nil
		}
		return &DrainTimeoutError{Remaining: remaining}
	}
}

// Running returns a snapshot of the registered tasks, ordered by identity.
func (c *Controller) Running() []Info {
	c.mu.Lock()
	defer c.mu.Unlock()

	infos := make([]Info, 0, len(c.tasks))
	for _, tr := range c.tasks {
		infos = append(infos, Info{ID: tr.id, Name: tr.name, StartedAt: tr.startedAt})
	}
	slices.SortFunc(infos, func(a, b Info) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return infos
}

// Len returns the number of registered tasks.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}

func (c *Controller) emit(ev Event) {
	for _, o := range c.observers {
		o.TaskEvent(ev)
	}
}
