package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Gridflow/internal/domain"
)

// ExecutionRepo — репозиторий executions и steps.
//
// Реализует record.Persistence поверх Postgres. Шаги хранятся
// в отдельной таблице с каскадным удалением по execution.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

// CreateExecution создаёт запись execution.
// Идемпотентно: повтор для существующего id не перезаписывает запись.
func (r *ExecutionRepo) CreateExecution(ctx context.Context, execution *domain.Execution) error {
	query := `
		INSERT INTO executions (id, process_type, case_id, status, env_name, scheduled_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		execution.ID,
		execution.ProcessType,
		execution.CaseID,
		execution.Status,
		execution.EnvName,
		execution.ScheduledAt,
		execution.StartedAt,
		execution.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetExecution возвращает execution вместе с шагами.
func (r *ExecutionRepo) GetExecution(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	query := `
		SELECT id, process_type, case_id, status, env_name, scheduled_at, started_at, completed_at
		FROM executions
		WHERE id = $1
	`
	execution, err := scanExecution(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get execution by id: %w", err)
	}

	steps, err := r.listSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	execution.Steps = steps
	return execution, nil
}

// ListExecutions возвращает все execution с шагами, новые первыми.
func (r *ExecutionRepo) ListExecutions(ctx context.Context) ([]domain.Execution, error) {
	query := `
		SELECT id, process_type, case_id, status, env_name, scheduled_at, started_at, completed_at
		FROM executions
		ORDER BY scheduled_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var executions []domain.Execution
	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		executions = append(executions, *execution)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range executions {
		steps, err := r.listSteps(ctx, executions[i].ID)
		if err != nil {
			return nil, err
		}
		executions[i].Steps = steps
	}
	return executions, nil
}

// SetExecutionRunning переводит execution в RUNNING.
// Терминальный статус не трогается.
func (r *ExecutionRepo) SetExecutionRunning(ctx context.Context, id uuid.UUID, envName string, startedAt time.Time) error {
	query := `
		UPDATE executions
		SET status = $2, env_name = $3, started_at = $4
		WHERE id = $1 AND status NOT IN ('COMPLETED', 'FAILED')
	`
	result, err := r.pool.Exec(ctx, query, id, domain.ExecutionStatusRunning, envName, startedAt)
	if err != nil {
		return fmt.Errorf("set execution running: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetExecutionFinished переводит execution в терминальный статус.
// Уже терминальная запись не перезаписывается.
func (r *ExecutionRepo) SetExecutionFinished(ctx context.Context, id uuid.UUID, status domain.ExecutionStatus, envName string, completedAt time.Time) error {
	query := `
		UPDATE executions
		SET status = $2, env_name = $3, completed_at = $4
		WHERE id = $1 AND status NOT IN ('COMPLETED', 'FAILED')
	`
	result, err := r.pool.Exec(ctx, query, id, status, envName, completedAt)
	if err != nil {
		return fmt.Errorf("set execution finished: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExecution удаляет execution (каскадно удалит steps).
func (r *ExecutionRepo) DeleteExecution(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM executions WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFinishedBefore возвращает id execution, завершившихся раньше cutoff.
func (r *ExecutionRepo) ListFinishedBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT id
		FROM executions
		WHERE status IN ('COMPLETED', 'FAILED') AND completed_at < $1
	`
	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list finished executions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan execution id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetStep возвращает шаг execution по id шага.
func (r *ExecutionRepo) GetStep(ctx context.Context, executionID, stepID uuid.UUID) (*domain.Step, error) {
	query := `
		SELECT id, execution_id, type, step_order, previous_step_id, status, seq,
		       result_id, result_kind, report_id, started_at, completed_at, error
		FROM steps
		WHERE execution_id = $1 AND id = $2
	`
	step, err := scanStep(r.pool.QueryRow(ctx, query, executionID, stepID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get step by id: %w", err)
	}
	return step, nil
}

// UpsertStep вставляет или замещает снапшот шага.
func (r *ExecutionRepo) UpsertStep(ctx context.Context, step domain.Step) error {
	var resultID *uuid.UUID
	var resultKind *string
	if step.Result != nil {
		resultID = &step.Result.ResultID
		kind := string(step.Result.Kind)
		resultKind = &kind
	}

	query := `
		INSERT INTO steps (id, execution_id, type, step_order, previous_step_id, status, seq,
		                   result_id, result_kind, report_id, started_at, completed_at, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    seq = EXCLUDED.seq,
		    result_id = EXCLUDED.result_id,
		    result_kind = EXCLUDED.result_kind,
		    report_id = EXCLUDED.report_id,
		    started_at = EXCLUDED.started_at,
		    completed_at = EXCLUDED.completed_at,
		    error = EXCLUDED.error
	`
	_, err := r.pool.Exec(ctx, query,
		step.ID,
		step.ExecutionID,
		step.Type,
		step.Order,
		step.PreviousStepID,
		step.Status,
		step.Seq,
		resultID,
		resultKind,
		step.ReportID,
		step.StartedAt,
		step.CompletedAt,
		nullString(step.Error),
	)
	if err != nil {
		return fmt.Errorf("upsert step: %w", err)
	}
	return nil
}

// listSteps возвращает шаги execution в порядке конвейера.
func (r *ExecutionRepo) listSteps(ctx context.Context, executionID uuid.UUID) ([]domain.Step, error) {
	query := `
		SELECT id, execution_id, type, step_order, previous_step_id, status, seq,
		       result_id, result_kind, report_id, started_at, completed_at, error
		FROM steps
		WHERE execution_id = $1
		ORDER BY step_order
	`
	rows, err := r.pool.Query(ctx, query, executionID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var steps []domain.Step
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, *step)
	}
	return steps, rows.Err()
}

// scanExecution читает execution из строки.
func scanExecution(row pgx.Row) (*domain.Execution, error) {
	var execution domain.Execution
	var envName *string
	err := row.Scan(
		&execution.ID,
		&execution.ProcessType,
		&execution.CaseID,
		&execution.Status,
		&envName,
		&execution.ScheduledAt,
		&execution.StartedAt,
		&execution.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if envName != nil {
		execution.EnvName = *envName
	}
	return &execution, nil
}

// scanStep читает шаг из строки.
func scanStep(row pgx.Row) (*domain.Step, error) {
	var step domain.Step
	var resultID *uuid.UUID
	var resultKind *string
	var stepError *string
	err := row.Scan(
		&step.ID,
		&step.ExecutionID,
		&step.Type,
		&step.Order,
		&step.PreviousStepID,
		&step.Status,
		&step.Seq,
		&resultID,
		&resultKind,
		&step.ReportID,
		&step.StartedAt,
		&step.CompletedAt,
		&stepError,
	)
	if err != nil {
		return nil, err
	}
	if resultID != nil && resultKind != nil {
		step.Result = &domain.ResultInfos{
			ResultID: *resultID,
			Kind:     domain.ResultKind(*resultKind),
		}
	}
	if stepError != nil {
		step.Error = *stepError
	}
	return &step, nil
}

// nullString возвращает nil для пустой строки.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
