package task_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSpawnPeriodicTicksAndCancels(t *testing.T) {
	c, _ := newTestController(t)

	var ticks atomic.Int32
	if err := c.SpawnPeriodic("ticker", 5*time.Millisecond, func(ctx context.Context) error {
		ticks.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("SpawnPeriodic: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for ticks.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if got := ticks.Load(); got < 3 {
		t.Fatalf("ticks = %d, want >= 3", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.TerminateAll(ctx); err != nil {
		t.Fatalf("TerminateAll: %v", err)
	}
}

func TestSpawnPeriodicStopsOnError(t *testing.T) {
	c, _ := newTestController(t)

	if err := c.SpawnPeriodic("failing-ticker", time.Millisecond, func(ctx context.Context) error {
		return errors.New("tick failed")
	}); err != nil {
		t.Fatalf("SpawnPeriodic: %v", err)
	}

	waitForLen(t, c, 0, time.Second)
}
