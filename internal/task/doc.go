// Package task provides the lifecycle controller for background work.
//
// Subsystems that launch asynchronous work (sessions, transports, plugins)
// own a Controller and spawn every background goroutine through it. The
// controller tracks each task in a registry, broadcasts a single cancellation
// signal to all of them, and can wait for the registry to drain during
// shutdown, so no background task outlives the subsystem that created it.
//
// Cancellation is cooperative. The context passed to a task's function is the
// controller's broadcast signal; the function must select on ctx.Done() at
// its suspension points and return promptly once it fires, returning ctx.Err()
// so the exit is attributed to cancellation. The controller cannot preempt a
// task that never checks its context.
package task
