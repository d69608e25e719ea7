package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Gridflow/internal/domain"
	"github.com/shaiso/Gridflow/internal/record"
)

// Execution DTOs

// CreateExecutionRequest — запрос на запуск процесса.
// Config декодируется по тегу ProcessType через process.Registry.
type CreateExecutionRequest struct {
	ProcessType string          `json:"process_type"`
	Config      json.RawMessage `json:"config"`
}

// ExecutionResponse — ответ с execution.
type ExecutionResponse struct {
	ID          uuid.UUID      `json:"id"`
	ProcessType string         `json:"process_type"`
	CaseID      uuid.UUID      `json:"case_id"`
	Status      string         `json:"status"`
	EnvName     string         `json:"env_name,omitempty"`
	ScheduledAt time.Time      `json:"scheduled_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Steps       []StepResponse `json:"steps,omitempty"`
}

// ExecutionFromDomain конвертирует domain.Execution в ExecutionResponse.
func ExecutionFromDomain(e domain.Execution) ExecutionResponse {
	resp := ExecutionResponse{
		ID:          e.ID,
		ProcessType: string(e.ProcessType),
		CaseID:      e.CaseID,
		Status:      string(e.Status),
		EnvName:     e.EnvName,
		ScheduledAt: e.ScheduledAt,
		StartedAt:   e.StartedAt,
		CompletedAt: e.CompletedAt,
	}
	for _, step := range e.Steps {
		resp.Steps = append(resp.Steps, StepFromDomain(step))
	}
	return resp
}

// Step DTOs

// StepResponse — ответ с шагом execution.
type StepResponse struct {
	ID             uuid.UUID           `json:"id"`
	Type           string              `json:"type"`
	Order          int                 `json:"order"`
	PreviousStepID *uuid.UUID          `json:"previous_step_id,omitempty"`
	Status         string              `json:"status"`
	Result         *domain.ResultInfos `json:"result,omitempty"`
	ReportID       *uuid.UUID          `json:"report_id,omitempty"`
	StartedAt      *time.Time          `json:"started_at,omitempty"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
	Error          string              `json:"error,omitempty"`
}

// StepFromDomain конвертирует domain.Step в StepResponse.
func StepFromDomain(s domain.Step) StepResponse {
	return StepResponse{
		ID:             s.ID,
		Type:           string(s.Type),
		Order:          s.Order,
		PreviousStepID: s.PreviousStepID,
		Status:         string(s.Status),
		Result:         s.Result,
		ReportID:       s.ReportID,
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
		Error:          s.Error,
	}
}

// Result DTOs

// ResultResponse — результат шага вместе с payload'ом.
// Payload непрозрачен для control plane и не обязан быть JSON,
// поэтому отдаётся как байты (base64 в JSON-ответе).
type ResultResponse struct {
	StepID   uuid.UUID `json:"step_id"`
	StepType string    `json:"step_type"`
	ResultID uuid.UUID `json:"result_id"`
	Kind     string    `json:"kind"`
	Data     []byte    `json:"data"`
}

// ResultFromRecord конвертирует record.StepResult в ResultResponse.
func ResultFromRecord(r record.StepResult) ResultResponse {
	return ResultResponse{
		StepID:   r.StepID,
		StepType: string(r.StepType),
		ResultID: r.Result.ResultID,
		Kind:     string(r.Result.Kind),
		Data:     r.Data,
	}
}
