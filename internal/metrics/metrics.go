// Package metrics exports Prometheus collectors for the task controller.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/veilmq/veil/internal/task"
)

var (
	tasksRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "veil_tasks_running",
			Help: "Number of tracked tasks currently registered.",
		},
	)

	tasksSpawnedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "veil_tasks_spawned_total",
			Help: "Total number of tracked tasks spawned.",
		},
	)

	tasksFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veil_tasks_finished_total",
			Help: "Total number of tracked tasks that reached a terminal state.",
		},
		[]string{"kind"},
	)

	taskDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "veil_task_duration_seconds",
			Help:    "Tracked task lifetime in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)
)

func init() {
	prometheus.MustRegister(tasksRunning)
	prometheus.MustRegister(tasksSpawnedTotal)
	prometheus.MustRegister(tasksFinishedTotal)
	prometheus.MustRegister(taskDuration)
}

// Compile-time observer satisfaction check.
var _ task.Observer = (*TaskMetrics)(nil)

// TaskMetrics translates task lifecycle events into Prometheus metrics.
type TaskMetrics struct{}

// NewTaskMetrics returns an observer backed by the package collectors.
func NewTaskMetrics() *TaskMetrics {
	return &TaskMetrics{}
}

// TaskEvent records the event in the collectors.
func (m *TaskMetrics) TaskEvent(ev task.Event) {
	switch ev.Kind {
	case task.KindSpawned:
		tasksRunning.Inc()
		tasksSpawnedTotal.Inc()
	case task.KindCompleted, task.KindCancelled:
		tasksRunning.Dec()
		tasksFinishedTotal.WithLabelValues(ev.Kind).Inc()
		taskDuration.Observe(float64(ev.DurationMS) / 1000)
	}
}
