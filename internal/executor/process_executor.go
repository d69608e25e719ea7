package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Gridflow/internal/domain"
	"github.com/shaiso/Gridflow/internal/notify"
	"github.com/shaiso/Gridflow/internal/process"
	"github.com/shaiso/Gridflow/internal/telemetry"
)

// ProcessExecutor прогоняет конвейер процесса для одного execution.
//
// Протокол уведомлений:
//  1. один StepsSnapshot со всеми шагами в SCHEDULED — до любых
//     индивидуальных событий;
//  2. ExecutionStatus RUNNING;
//  3. по событию на каждый переход статуса шага;
//  4. ровно один терминальный ExecutionStatus (COMPLETED/FAILED).
//
// Политика отказа: упавший шаг не повторяется; все последующие шаги
// помечаются SKIPPED, конвейер дорабатывает до конца ради полной
// картины статусов, итог — FAILED.
type ProcessExecutor struct {
	steps       *StepExecutor
	notificator notify.Notificator
	envName     string
	logger      *slog.Logger
}

// NewProcessExecutor создаёт исполнитель процессов.
// envName — тег окружения worker'а, попадает в уведомления execution.
func NewProcessExecutor(steps *StepExecutor, notificator notify.Notificator, envName string, logger *slog.Logger) *ProcessExecutor {
	return &ProcessExecutor{
		steps:       steps,
		notificator: notificator,
		envName:     envName,
		logger:      logger,
	}
}

// Run выполняет все шаги конвейера def для execution executionID.
// Возвращает ошибку первого упавшего шага (nil при полном успехе).
func (e *ProcessExecutor) Run(ctx context.Context, executionID uuid.UUID, def process.Definition, config domain.ProcessConfig) error {
	started := time.Now()

	ec := process.NewContext(executionID, config)
	steps := seedSteps(executionID, def)

	e.notifySnapshot(ctx, notify.StepsSnapshot{
		ExecutionID: executionID,
		ProcessType: def.Type,
		CaseID:      config.CaseID(),
		Steps:       steps,
	})

	e.notifyExecution(ctx, notify.ExecutionStatusUpdate{
		ExecutionID: executionID,
		Status:      domain.ExecutionStatusRunning,
		EnvName:     e.envName,
	})

	var firstErr error
	for i := range steps {
		if firstErr != nil {
			e.steps.Skip(ctx, ec, &steps[i])
			continue
		}

		if err := e.steps.Execute(ctx, ec, &steps[i], def.Steps[i]); err != nil {
			e.logger.Error("step failed",
				"execution_id", executionID,
				"process_type", def.Type,
				"step_type", steps[i].Type,
				"error", err,
			)
			firstErr = err
		}
	}

	status := domain.ExecutionStatusCompleted
	if firstErr != nil {
		status = domain.ExecutionStatusFailed
	}

	completedAt := time.Now()
	e.notifyExecution(ctx, notify.ExecutionStatusUpdate{
		ExecutionID: executionID,
		Status:      status,
		EnvName:     e.envName,
		CompletedAt: &completedAt,
	})
	telemetry.ObserveExecution(string(def.Type), string(status), time.Since(started))

	e.logger.Info("execution finished",
		"execution_id", executionID,
		"process_type", def.Type,
		"status", status,
		"duration", time.Since(started),
	)

	return firstErr
}

// seedSteps создаёт шаги конвейера в SCHEDULED с позициями 1..N
// и обратными ссылками на предыдущий шаг.
func seedSteps(executionID uuid.UUID, def process.Definition) []domain.Step {
	steps := make([]domain.Step, 0, len(def.Steps))

	var previous *uuid.UUID
	for i, sd := range def.Steps {
		step := domain.NewStep(executionID, sd.Type, i+1, previous)
		steps = append(steps, step)
		previous = &steps[i].ID
	}

	return steps
}

func (e *ProcessExecutor) notifySnapshot(ctx context.Context, snapshot notify.StepsSnapshot) {
	if err := e.notificator.NotifyStepsSnapshot(ctx, snapshot); err != nil {
		e.logger.Error("steps snapshot not published",
			"execution_id", snapshot.ExecutionID,
			"error", err,
		)
	}
}

func (e *ProcessExecutor) notifyExecution(ctx context.Context, update notify.ExecutionStatusUpdate) {
	if err := e.notificator.NotifyExecutionStatus(ctx, update); err != nil {
		e.logger.Error("execution status not published",
			"execution_id", update.ExecutionID,
			"status", update.Status,
			"error", err,
		)
	}
}
