package domain

import (
	"time"

	"github.com/google/uuid"
)

// Step — одна единица работы внутри фиксированного конвейера execution.
//
// Step принадлежит ровно одному Execution и никогда не переиспользуется:
// step id присваивается один раз в момент выполнения.
//
// Каноническое представление порядка — целочисленный Order (1-based,
// без пропусков). PreviousStepID — производная обратная ссылка,
// переносится в снапшотах только для аудита.
type Step struct {
	// ID — уникальный идентификатор шага.
	ID uuid.UUID `json:"id"`

	// ExecutionID — ссылка на родительский execution.
	ExecutionID uuid.UUID `json:"execution_id"`

	// Type — тип шага (LOAD_NETWORK, APPLY_MODIFICATIONS, RUN_COMPUTATION).
	Type StepType `json:"type"`

	// Order — позиция шага в конвейере, начиная с 1.
	Order int `json:"order"`

	// PreviousStepID — id предыдущего шага в конвейере (nil для первого).
	PreviousStepID *uuid.UUID `json:"previous_step_id,omitempty"`

	// Status — текущий статус шага.
	Status StepStatus `json:"status"`

	// Seq — монотонный номер перехода статуса этого шага.
	// Потребитель игнорирует снапшоты с Seq не больше уже применённого,
	// что делает доставку вне порядка безопасной.
	Seq int `json:"seq"`

	// Result — ссылка на внешне хранимый результат (если шаг его произвёл).
	Result *ResultInfos `json:"result,omitempty"`

	// ReportID — ссылка на отчёт во внешнем report store.
	ReportID *uuid.UUID `json:"report_id,omitempty"`

	// StartedAt — время начала выполнения шага.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt — время достижения терминального статуса.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error — текст ошибки при статусе FAILED.
	Error string `json:"error,omitempty"`
}

// NewStep создаёт шаг в статусе SCHEDULED с позицией order.
func NewStep(executionID uuid.UUID, stepType StepType, order int, previous *uuid.UUID) Step {
	return Step{
		ID:             uuid.New(),
		ExecutionID:    executionID,
		Type:           stepType,
		Order:          order,
		PreviousStepID: previous,
		Status:         StepStatusScheduled,
		Seq:            1,
	}
}

// IsFinished возвращает true, если шаг достиг терминального статуса.
func (s *Step) IsFinished() bool {
	return s.Status.IsTerminal()
}

// MarkRunning переводит шаг в статус RUNNING.
func (s *Step) MarkRunning() {
	now := time.Now()
	s.Status = StepStatusRunning
	s.StartedAt = &now
	s.Seq++
}

// MarkCompleted переводит шаг в терминальный статус COMPLETED.
func (s *Step) MarkCompleted() {
	now := time.Now()
	s.Status = StepStatusCompleted
	s.CompletedAt = &now
	s.Seq++
}

// MarkFailed переводит шаг в терминальный статус FAILED с ошибкой.
func (s *Step) MarkFailed(err string) {
	now := time.Now()
	s.Status = StepStatusFailed
	s.CompletedAt = &now
	s.Error = err
	s.Seq++
}

// MarkSkipped переводит шаг из SCHEDULED сразу в SKIPPED.
// Логика шага при этом не вызывается.
func (s *Step) MarkSkipped() {
	now := time.Now()
	s.Status = StepStatusSkipped
	s.CompletedAt = &now
	s.Seq++
}
