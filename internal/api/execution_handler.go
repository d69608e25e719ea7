package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Gridflow/internal/domain"
	"github.com/shaiso/Gridflow/internal/mq"
)

// CreateExecution принимает run-запрос.
// POST /api/v1/executions
//
// Порядок строго persist-then-publish: сначала создаётся запись
// execution, и только потом публикуется run-запрос. Принятый запрос
// всегда виден в API, даже если worker его ещё не взял.
func (h *Handler) CreateExecution(w http.ResponseWriter, r *http.Request) {
	var req CreateExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.ProcessType == "" {
		BadRequest(w, "process_type is required")
		return
	}

	def, err := h.registry.Definition(domain.ProcessType(req.ProcessType))
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	config, err := def.DecodeConfig(req.Config)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	if config.CaseID() == uuid.Nil {
		BadRequest(w, "config.case_id is required")
		return
	}

	execution, err := h.store.Create(r.Context(), def.Type, config.CaseID())
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	err = h.publisher.PublishRunRequest(r.Context(), def.Binding, mq.RunRequestPayload{
		ExecutionID: execution.ID,
		ProcessType: string(def.Type),
		Config:      req.Config,
	})
	if err != nil {
		// Запись уже создана; execution останется в SCHEDULED,
		// оператор видит его и может удалить после разбора
		h.logger.Error("run request not published",
			"execution_id", execution.ID,
			"process_type", def.Type,
			"error", err,
		)
		InternalError(w, h.logger, err)
		return
	}

	h.logger.Info("execution accepted",
		"execution_id", execution.ID,
		"process_type", def.Type,
		"case_id", config.CaseID(),
	)

	Accepted(w, ExecutionFromDomain(*execution))
}

// ListExecutions возвращает все execution.
// GET /api/v1/executions
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	executions, err := h.store.List(r.Context())
	if HandleRepoError(w, h.logger, err, "executions not found") {
		return
	}

	out := make([]ExecutionResponse, 0, len(executions))
	for _, execution := range executions {
		out = append(out, ExecutionFromDomain(execution))
	}
	List(w, out, len(out))
}

// GetExecution возвращает execution по id.
// GET /api/v1/executions/{id}
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	execution, err := h.store.Get(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	Success(w, ExecutionFromDomain(*execution))
}

// DeleteExecution удаляет execution.
// DELETE /api/v1/executions/{id}
//
// Разрешено только для терминальных статусов: 422 для RUNNING/SCHEDULED.
func (h *Handler) DeleteExecution(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	err := h.store.Delete(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	NoContent(w)
}

// ListExecutionSteps возвращает шаги execution.
// GET /api/v1/executions/{id}/steps
func (h *Handler) ListExecutionSteps(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	execution, err := h.store.Get(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	out := make([]StepResponse, 0, len(execution.Steps))
	for _, step := range execution.Steps {
		out = append(out, StepFromDomain(step))
	}
	List(w, out, len(out))
}

// ListExecutionReports возвращает отчёты execution из report store.
// GET /api/v1/executions/{id}/reports
func (h *Handler) ListExecutionReports(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	reports, err := h.store.GetReports(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	List(w, reports, len(reports))
}

// ListExecutionResults возвращает результаты execution с payload'ами.
// GET /api/v1/executions/{id}/results
func (h *Handler) ListExecutionResults(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	stepResults, err := h.store.GetResults(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	out := make([]ResultResponse, 0, len(stepResults))
	for _, sr := range stepResults {
		out = append(out, ResultFromRecord(sr))
	}
	List(w, out, len(out))
}

// parseID разбирает path-параметр {id}.
func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return uuid.Nil, false
	}
	return id, true
}
