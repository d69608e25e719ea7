package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Gridflow/internal/domain"
)

// Notificator публикует события о статусе execution и его шагов.
//
// Три вида событий:
//   - ExecutionStatusUpdate — переход статуса execution
//   - StepStatusUpdate — переход статуса одного шага
//   - StepsStatusesUpdate — полный снапшот шагов; отправляется один раз
//     при старте выполнения, до любого индивидуального события шага,
//     чтобы control plane сразу видел полный стабильный список шагов
//
// Доставка — at-least-once, без гарантии порядка; каждый снапшот шага
// несёт монотонный Seq, по которому потребитель отбрасывает устаревшие
// переходы.
type Notificator interface {
	// NotifyExecutionStatus отправляет переход статуса execution.
	NotifyExecutionStatus(ctx context.Context, update ExecutionStatusUpdate) error

	// NotifyStepStatus отправляет переход статуса одного шага.
	NotifyStepStatus(ctx context.Context, executionID uuid.UUID, step domain.Step) error

	// NotifyStepsSnapshot отправляет полный снапшот шагов execution.
	NotifyStepsSnapshot(ctx context.Context, snapshot StepsSnapshot) error
}

// ExecutionStatusUpdate — событие перехода статуса execution.
type ExecutionStatusUpdate struct {
	// ExecutionID — идентификатор execution.
	ExecutionID uuid.UUID `json:"execution_id"`

	// Status — новый статус.
	Status domain.ExecutionStatus `json:"status"`

	// EnvName — тег окружения worker'а.
	EnvName string `json:"env_name,omitempty"`

	// CompletedAt — время завершения; только для терминальных статусов.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// StepStatusUpdate — событие перехода статуса одного шага.
type StepStatusUpdate struct {
	// ExecutionID — идентификатор execution.
	ExecutionID uuid.UUID `json:"execution_id"`

	// Step — снапшот шага после перехода.
	Step domain.Step `json:"step"`
}

// StepsSnapshot — полный снапшот шагов execution.
//
// Несёт тип процесса и case id: по этому сообщению control plane
// может лениво создать запись execution, если она неизвестна.
type StepsSnapshot struct {
	// ExecutionID — идентификатор execution.
	ExecutionID uuid.UUID `json:"execution_id"`

	// ProcessType — тип процесса.
	ProcessType domain.ProcessType `json:"process_type"`

	// CaseID — ссылка на case.
	CaseID uuid.UUID `json:"case_id"`

	// Steps — все шаги в порядке Step.Order.
	Steps []domain.Step `json:"steps"`
}
