package task

import (
	"context"
	"time"
)

// SpawnPeriodic registers a tracked task that invokes fn every interval until
// cancellation or until fn returns an error. Keepalive and housekeeping work
// (lease refresh, journal pruning) runs through this helper so it participates
// in the controller's drain like any other task.
func (c *Controller) SpawnPeriodic(name string, every time.Duration, fn Func) error {
	return c.Spawn(name, func(ctx context.Context) error {
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					return err
				}
			}
		}
	})
}
