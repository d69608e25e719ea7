package domain

import (
	"time"

	"github.com/google/uuid"
)

// Execution — один запуск процесса для одного case/конфигурации.
//
// Execution создаётся control plane'ом в момент приёма run-запроса
// и далее мутируется только через уведомления от worker'а.
// Удаляется явно (оператором/API) с best-effort очисткой артефактов.
type Execution struct {
	// ID — уникальный идентификатор execution, присваивается при приёме запроса.
	ID uuid.UUID `json:"id"`

	// ProcessType — тип процесса, определяющий конвейер шагов.
	ProcessType ProcessType `json:"process_type"`

	// CaseID — ссылка на case (сетевую модель).
	CaseID uuid.UUID `json:"case_id"`

	// Status — текущий статус выполнения.
	Status ExecutionStatus `json:"status"`

	// EnvName — тег окружения, в котором выполнялся execution.
	EnvName string `json:"env_name,omitempty"`

	// ScheduledAt — время приёма run-запроса.
	ScheduledAt time.Time `json:"scheduled_at"`

	// StartedAt — время начала выполнения (когда статус стал RUNNING).
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt — время достижения терминального статуса.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Steps — упорядоченный список шагов (по Step.Order).
	Steps []Step `json:"steps,omitempty"`
}

// IsFinished возвращает true, если execution достиг терминального статуса.
func (e *Execution) IsFinished() bool {
	return e.Status.IsTerminal()
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если execution ещё не завершён.
func (e *Execution) Duration() time.Duration {
	if e.StartedAt == nil || e.CompletedAt == nil {
		return 0
	}
	return e.CompletedAt.Sub(*e.StartedAt)
}

// MarkRunning переводит execution в статус RUNNING.
func (e *Execution) MarkRunning() {
	now := time.Now()
	e.Status = ExecutionStatusRunning
	e.StartedAt = &now
}

// MarkCompleted переводит execution в терминальный статус COMPLETED.
func (e *Execution) MarkCompleted() {
	now := time.Now()
	e.Status = ExecutionStatusCompleted
	e.CompletedAt = &now
}

// MarkFailed переводит execution в терминальный статус FAILED.
func (e *Execution) MarkFailed() {
	now := time.Now()
	e.Status = ExecutionStatusFailed
	e.CompletedAt = &now
}
