package process

import (
	"github.com/google/uuid"
	"github.com/shaiso/Gridflow/internal/domain"
	"github.com/shaiso/Gridflow/internal/grid"
	"github.com/shaiso/Gridflow/internal/reports"
)

// Context — изменяемое состояние одного execution, передаваемое
// между шагами конвейера.
//
// Контекст принадлежит ровно одной горутине: шаги одного execution
// выполняются строго последовательно, поэтому синхронизация не нужна.
type Context struct {
	// ExecutionID — идентификатор execution.
	ExecutionID uuid.UUID

	// Config — конфигурация процесса, декодированная из запроса.
	Config domain.ProcessConfig

	// Network — сетевая модель, заполняется шагом LOAD_NETWORK.
	Network *grid.Network

	// ReportID — идентификатор дерева отчёта execution.
	ReportID uuid.UUID

	// Report — корень дерева отчёта.
	Report *reports.Node

	// result — результат расчёта, выставляется шагом RUN_COMPUTATION.
	result *domain.ResultInfos

	// reportStored — дерево отчёта хотя бы раз дошло до report store.
	reportStored bool
}

// NewContext создаёт контекст execution с пустым отчётом.
func NewContext(executionID uuid.UUID, config domain.ProcessConfig) *Context {
	return &Context{
		ExecutionID: executionID,
		Config:      config,
		ReportID:    uuid.New(),
		Report:      reports.NewNode("execution " + executionID.String()),
	}
}

// CaseID возвращает case процесса.
func (c *Context) CaseID() uuid.UUID {
	return c.Config.CaseID()
}

// MarkReportStored фиксирует успешную публикацию дерева отчёта.
func (c *Context) MarkReportStored() {
	c.reportStored = true
}

// ReportStored возвращает true, если отчёт хотя бы раз был опубликован:
// ReportID тогда ссылается на живой частичный отчёт.
func (c *Context) ReportStored() bool {
	return c.reportStored
}

// SetResult сохраняет результат расчёта для привязки к шагу.
func (c *Context) SetResult(result domain.ResultInfos) {
	c.result = &result
}

// TakeResult забирает результат, выставленный текущим шагом.
// Возвращает nil, если шаг результата не производил.
func (c *Context) TakeResult() *domain.ResultInfos {
	r := c.result
	c.result = nil
	return r
}
