package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Gridflow/internal/domain"
	"github.com/shaiso/Gridflow/internal/notify"
	"github.com/shaiso/Gridflow/internal/process"
	"github.com/shaiso/Gridflow/internal/reports"
	"github.com/shaiso/Gridflow/internal/telemetry"
)

// StepExecutor выполняет один шаг конвейера и публикует переходы
// его статуса.
//
// Ошибка публикации уведомления не проваливает шаг: доставка
// best-effort, потерянное уведомление восстанавливается следующим
// снапшотом того же шага.
type StepExecutor struct {
	notificator notify.Notificator
	reports     reports.Store
	logger      *slog.Logger
}

// NewStepExecutor создаёт исполнитель шагов.
func NewStepExecutor(notificator notify.Notificator, reportStore reports.Store, logger *slog.Logger) *StepExecutor {
	return &StepExecutor{
		notificator: notificator,
		reports:     reportStore,
		logger:      logger,
	}
}

// Execute выполняет шаг: RUNNING -> логика шага -> COMPLETED/FAILED.
// Возвращает ошибку логики шага; вызывающий по ней решает судьбу
// оставшихся шагов конвейера.
func (e *StepExecutor) Execute(ctx context.Context, ec *process.Context, step *domain.Step, def process.StepDefinition) error {
	step.MarkRunning()
	e.notifyStep(ctx, ec, step)

	if err := def.Run(ctx, ec); err != nil {
		step.MarkFailed(err.Error())
		// Упавший шаг уносит ссылку на частичный отчёт,
		// если предыдущие шаги успели его опубликовать
		if ec.ReportStored() {
			reportID := ec.ReportID
			step.ReportID = &reportID
		}
		e.notifyStep(ctx, ec, step)
		telemetry.ObserveStep(string(step.Type), string(step.Status))

		return fmt.Errorf("step %s: %w", step.Type, err)
	}

	// Отчёт публикуется после каждого успешного шага: при падении
	// следующего шага накопленный отчёт уже доступен
	if err := e.reports.SendReport(ctx, ec.ReportID, ec.Report); err != nil {
		e.logger.Warn("report not sent",
			"execution_id", ec.ExecutionID,
			"report_id", ec.ReportID,
			"step_type", step.Type,
			"error", err,
		)
	} else {
		ec.MarkReportStored()
		reportID := ec.ReportID
		step.ReportID = &reportID
	}

	step.Result = ec.TakeResult()
	step.MarkCompleted()
	e.notifyStep(ctx, ec, step)
	telemetry.ObserveStep(string(step.Type), string(step.Status))

	return nil
}

// Skip переводит шаг из SCHEDULED сразу в SKIPPED, без вызова логики.
func (e *StepExecutor) Skip(ctx context.Context, ec *process.Context, step *domain.Step) {
	step.MarkSkipped()
	e.notifyStep(ctx, ec, step)
	telemetry.ObserveStep(string(step.Type), string(step.Status))
}

func (e *StepExecutor) notifyStep(ctx context.Context, ec *process.Context, step *domain.Step) {
	if err := e.notificator.NotifyStepStatus(ctx, ec.ExecutionID, *step); err != nil {
		e.logger.Error("step status not published",
			"execution_id", ec.ExecutionID,
			"step_id", step.ID,
			"step_type", step.Type,
			"status", step.Status,
			"error", err,
		)
	}
}
