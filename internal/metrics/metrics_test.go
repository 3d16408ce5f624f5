package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/veilmq/veil/internal/task"
)

func TestMetricsRegistered(t *testing.T) {
	// Verify all metrics are registered with the default registerer.
	// If any were not registered, Gather would not include them.
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	expected := []string{
		"veil_tasks_running",
		"veil_tasks_spawned_total",
		"veil_tasks_finished_total",
		"veil_task_duration_seconds",
	}

	found := make(map[string]bool)
	for _, fam := range families {
		found[fam.GetName()] = true
	}

	for _, name := range expected {
		if !found[name] {
			t.Errorf("metric %q not registered", name)
		}
	}
}

func TestTaskEventUpdatesGauge(t *testing.T) {
	m := NewTaskMetrics()
	before := testutil.ToFloat64(tasksRunning)

	now := time.Now().UTC()
	m.TaskEvent(task.Event{TaskID: 1, Name: "worker", Kind: task.KindSpawned, At: now})
	m.TaskEvent(task.Event{TaskID: 2, Name: "worker", Kind: task.KindSpawned, At: now})

	if got := testutil.ToFloat64(tasksRunning); got != before+2 {
		t.Errorf("tasks_running = %v, want %v", got, before+2)
	}

	m.TaskEvent(task.Event{TaskID: 1, Name: "worker", Kind: task.KindCompleted, At: now, DurationMS: 12})
	m.TaskEvent(task.Event{TaskID: 2, Name: "worker", Kind: task.KindCancelled, At: now, DurationMS: 30})

	if got := testutil.ToFloat64(tasksRunning); got != before {
		t.Errorf("tasks_running after drain = %v, want %v", got, before)
	}
}

func TestFinishedCounterLabels(t *testing.T) {
	m := NewTaskMetrics()

	completedBefore := testutil.ToFloat64(tasksFinishedTotal.WithLabelValues(task.KindCompleted))
	cancelledBefore := testutil.ToFloat64(tasksFinishedTotal.WithLabelValues(task.KindCancelled))

	now := time.Now().UTC()
	m.TaskEvent(task.Event{TaskID: 3, Name: "worker", Kind: task.KindCompleted, At: now, DurationMS: 1})
	m.TaskEvent(task.Event{TaskID: 4, Name: "worker", Kind: task.KindCancelled, At: now, DurationMS: 1})

	if got := testutil.ToFloat64(tasksFinishedTotal.WithLabelValues(task.KindCompleted)); got != completedBefore+1 {
		t.Errorf("finished{completed} = %v, want %v", got, completedBefore+1)
	}
	if got := testutil.ToFloat64(tasksFinishedTotal.WithLabelValues(task.KindCancelled)); got != cancelledBefore+1 {
		t.Errorf("finished{cancelled} = %v, want %v", got, cancelledBefore+1)
	}
}
