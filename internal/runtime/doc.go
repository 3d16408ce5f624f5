// Package runtime provides the executor that tracked tasks are scheduled
// onto. It wraps goroutine creation with lifecycle state so that work can no
// longer be scheduled after shutdown, and so shutdown can wait for in-flight
// work to drain.
package runtime
