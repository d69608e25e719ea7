package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ExecutionsTotal — счётчик завершённых execution по типу
	// процесса и терминальному статусу.
	ExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridflow_executions_total",
			Help: "Завершённые execution по типу процесса и статусу.",
		},
		[]string{"process_type", "status"},
	)

	// ExecutionDuration — гистограмма длительности execution.
	ExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridflow_execution_duration_seconds",
			Help:    "Длительность execution от старта до терминального статуса.",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"process_type"},
	)

	// StepsTotal — счётчик переходов шагов в терминальные статусы.
	StepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridflow_steps_total",
			Help: "Шаги, достигшие терминального статуса, по типу и статусу.",
		},
		[]string{"step_type", "status"},
	)

	// NotificationsTotal — счётчик опубликованных уведомлений о статусе.
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridflow_notifications_total",
			Help: "Опубликованные уведомления по типу сообщения и исходу.",
		},
		[]string{"message_type", "outcome"},
	)

	// CleanupFailuresTotal — счётчик неудачных попыток очистки
	// артефактов при удалении execution.
	CleanupFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridflow_cleanup_failures_total",
			Help: "Неудачные попытки удаления внешних артефактов execution.",
		},
		[]string{"artifact"},
	)
)

func init() {
	prometheus.MustRegister(
		ExecutionsTotal,
		ExecutionDuration,
		StepsTotal,
		NotificationsTotal,
		CleanupFailuresTotal,
	)
}

// ObserveExecution фиксирует завершение execution.
func ObserveExecution(processType, status string, duration time.Duration) {
	ExecutionsTotal.WithLabelValues(processType, status).Inc()
	ExecutionDuration.WithLabelValues(processType).Observe(duration.Seconds())
}

// ObserveStep фиксирует терминальный переход шага.
func ObserveStep(stepType, status string) {
	StepsTotal.WithLabelValues(stepType, status).Inc()
}

// ObserveNotification фиксирует попытку публикации уведомления.
func ObserveNotification(messageType string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	NotificationsTotal.WithLabelValues(messageType, outcome).Inc()
}

// ObserveCleanupFailure фиксирует неудачную попытку очистки артефакта.
func ObserveCleanupFailure(artifact string) {
	CleanupFailuresTotal.WithLabelValues(artifact).Inc()
}
