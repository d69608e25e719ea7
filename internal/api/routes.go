package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Executions
	mux.Handle("GET /api/v1/executions", chain(http.HandlerFunc(h.ListExecutions)))
	mux.Handle("POST /api/v1/executions", chain(http.HandlerFunc(h.CreateExecution)))
	mux.Handle("GET /api/v1/executions/{id}", chain(http.HandlerFunc(h.GetExecution)))
	mux.Handle("DELETE /api/v1/executions/{id}", chain(http.HandlerFunc(h.DeleteExecution)))

	// Вложенные ресурсы execution
	mux.Handle("GET /api/v1/executions/{id}/steps", chain(http.HandlerFunc(h.ListExecutionSteps)))
	mux.Handle("GET /api/v1/executions/{id}/reports", chain(http.HandlerFunc(h.ListExecutionReports)))
	mux.Handle("GET /api/v1/executions/{id}/results", chain(http.HandlerFunc(h.ListExecutionResults)))
}
