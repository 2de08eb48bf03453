package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	executionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskflow_code_executions_total",
		Help: "Code executions by outcome.",
	}, []string{"outcome"})

	executionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "taskflow_code_execution_duration_seconds",
		Help:    "Wall-clock time spent running user code.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 12},
	})

	tasksAutoCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskflow_tasks_auto_completed_total",
		Help: "Tasks marked DONE by a successful execution.",
	})
)
