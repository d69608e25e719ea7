package record

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Gridflow/internal/cleanup"
	"github.com/shaiso/Gridflow/internal/domain"
	"github.com/shaiso/Gridflow/internal/notify"
	"github.com/shaiso/Gridflow/internal/repo"
	"github.com/shaiso/Gridflow/internal/reports"
	"github.com/shaiso/Gridflow/internal/results"
	"github.com/shaiso/Gridflow/internal/telemetry"
)

// Persistence — долговечное хранение записей execution и шагов.
//
// Контракт по ошибкам: отсутствующая запись — repo.ErrNotFound.
// Реализация по умолчанию — Postgres (см. internal/repo).
type Persistence interface {
	// CreateExecution создаёт запись execution. Идемпотентно:
	// повтор для существующего id — не ошибка и не перезапись.
	CreateExecution(ctx context.Context, execution *domain.Execution) error

	// GetExecution возвращает execution вместе с шагами (по Order).
	GetExecution(ctx context.Context, id uuid.UUID) (*domain.Execution, error)

	// ListExecutions возвращает все execution с шагами,
	// новые первыми.
	ListExecutions(ctx context.Context) ([]domain.Execution, error)

	// SetExecutionRunning переводит execution в RUNNING.
	SetExecutionRunning(ctx context.Context, id uuid.UUID, envName string, startedAt time.Time) error

	// SetExecutionFinished переводит execution в терминальный статус.
	SetExecutionFinished(ctx context.Context, id uuid.UUID, status domain.ExecutionStatus, envName string, completedAt time.Time) error

	// GetStep возвращает шаг execution по id шага.
	GetStep(ctx context.Context, executionID, stepID uuid.UUID) (*domain.Step, error)

	// UpsertStep вставляет или замещает снапшот шага
	// по ключу (execution id, step id).
	UpsertStep(ctx context.Context, step domain.Step) error

	// DeleteExecution удаляет execution вместе с шагами.
	DeleteExecution(ctx context.Context, id uuid.UUID) error

	// ListFinishedBefore возвращает id execution, достигших
	// терминального статуса раньше cutoff.
	ListFinishedBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

// ExecutionReport — отчёт execution, прочитанный из report store.
type ExecutionReport struct {
	ReportID uuid.UUID     `json:"report_id"`
	Report   *reports.Node `json:"report"`
}

// StepResult — результат шага вместе с payload'ом из хранилища.
type StepResult struct {
	StepID   uuid.UUID          `json:"step_id"`
	StepType domain.StepType    `json:"step_type"`
	Result   domain.ResultInfos `json:"result"`
	Data     []byte             `json:"data"`
}

// Store — долговечная запись о каждом execution на стороне
// control plane.
//
// Store мутируется двумя путями: API создаёт записи при приёме
// run-запросов, recorder применяет уведомления worker'ов. Применение
// уведомлений идемпотентно и терпимо к доставке вне порядка:
// устаревшие снапшоты шагов отбрасываются по Seq, терминальные
// статусы никогда не откатываются.
type Store struct {
	db      Persistence
	results *results.Registry
	reports reports.Store
	logger  *slog.Logger
}

// NewStore создаёт store поверх персистентности и внешних хранилищ.
func NewStore(db Persistence, resultRegistry *results.Registry, reportStore reports.Store, logger *slog.Logger) *Store {
	return &Store{
		db:      db,
		results: resultRegistry,
		reports: reportStore,
		logger:  logger,
	}
}

// Create регистрирует новый execution в статусе SCHEDULED.
// Вызывается API до публикации run-запроса.
func (s *Store) Create(ctx context.Context, processType domain.ProcessType, caseID uuid.UUID) (*domain.Execution, error) {
	execution := &domain.Execution{
		ID:          uuid.New(),
		ProcessType: processType,
		CaseID:      caseID,
		Status:      domain.ExecutionStatusScheduled,
		ScheduledAt: time.Now(),
	}

	if err := s.db.CreateExecution(ctx, execution); err != nil {
		return nil, fmt.Errorf("create execution: %w", err)
	}
	return execution, nil
}

// Get возвращает execution с шагами.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	return s.db.GetExecution(ctx, id)
}

// List возвращает все execution.
func (s *Store) List(ctx context.Context) ([]domain.Execution, error) {
	return s.db.ListExecutions(ctx)
}

// ApplySnapshot применяет полный снапшот шагов.
//
// Если execution неизвестен (запись создана другим control plane
// или потеряна), он создаётся лениво: снапшот несёт тип процесса
// и case id, этого достаточно для валидной записи.
func (s *Store) ApplySnapshot(ctx context.Context, snapshot notify.StepsSnapshot) error {
	_, err := s.db.GetExecution(ctx, snapshot.ExecutionID)
	if errors.Is(err, repo.ErrNotFound) {
		execution := &domain.Execution{
			ID:          snapshot.ExecutionID,
			ProcessType: snapshot.ProcessType,
			CaseID:      snapshot.CaseID,
			Status:      domain.ExecutionStatusScheduled,
			ScheduledAt: time.Now(),
		}
		if err := s.db.CreateExecution(ctx, execution); err != nil {
			return fmt.Errorf("lazily create execution %s: %w", snapshot.ExecutionID, err)
		}
		s.logger.Info("execution created from steps snapshot",
			"execution_id", snapshot.ExecutionID,
			"process_type", snapshot.ProcessType,
		)
	} else if err != nil {
		return fmt.Errorf("get execution %s: %w", snapshot.ExecutionID, err)
	}

	for _, step := range snapshot.Steps {
		if err := s.applyStep(ctx, step); err != nil {
			return err
		}
	}
	return nil
}

// ApplyExecutionStatus применяет переход статуса execution.
// Неизвестный execution — ErrUnknownExecution; терминальный статус
// записи никогда не откатывается.
func (s *Store) ApplyExecutionStatus(ctx context.Context, update notify.ExecutionStatusUpdate) error {
	execution, err := s.db.GetExecution(ctx, update.ExecutionID)
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrUnknownExecution, update.ExecutionID)
	}
	if err != nil {
		return fmt.Errorf("get execution %s: %w", update.ExecutionID, err)
	}

	if execution.IsFinished() {
		s.logger.Debug("execution already terminal, update dropped",
			"execution_id", update.ExecutionID,
			"status", update.Status,
		)
		return nil
	}

	switch update.Status {
	case domain.ExecutionStatusRunning:
		return s.db.SetExecutionRunning(ctx, update.ExecutionID, update.EnvName, time.Now())

	case domain.ExecutionStatusCompleted, domain.ExecutionStatusFailed:
		completedAt := time.Now()
		if update.CompletedAt != nil {
			completedAt = *update.CompletedAt
		}
		return s.db.SetExecutionFinished(ctx, update.ExecutionID, update.Status, update.EnvName, completedAt)

	default:
		// SCHEDULED выставляется только при создании записи
		s.logger.Warn("unexpected execution status update dropped",
			"execution_id", update.ExecutionID,
			"status", update.Status,
		)
		return nil
	}
}

// ApplyStepStatus применяет снапшот одного шага.
// Шаг неизвестного execution — нарушение протокола (снапшот шагов
// обязан приходить раньше): ErrUnknownExecution.
func (s *Store) ApplyStepStatus(ctx context.Context, update notify.StepStatusUpdate) error {
	_, err := s.db.GetExecution(ctx, update.ExecutionID)
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrUnknownExecution, update.ExecutionID)
	}
	if err != nil {
		return fmt.Errorf("get execution %s: %w", update.ExecutionID, err)
	}

	return s.applyStep(ctx, update.Step)
}

// applyStep — идемпотентный guarded upsert снапшота шага.
// Отбрасывает устаревшие (по Seq) снапшоты и любые попытки
// изменить шаг, уже достигший терминального статуса.
func (s *Store) applyStep(ctx context.Context, incoming domain.Step) error {
	current, err := s.db.GetStep(ctx, incoming.ExecutionID, incoming.ID)
	if errors.Is(err, repo.ErrNotFound) {
		if err := s.db.UpsertStep(ctx, incoming); err != nil {
			return fmt.Errorf("insert step %s: %w", incoming.ID, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("get step %s: %w", incoming.ID, err)
	}

	if current.IsFinished() {
		s.logger.Debug("step already terminal, snapshot dropped",
			"execution_id", incoming.ExecutionID,
			"step_id", incoming.ID,
			"status", incoming.Status,
		)
		return nil
	}
	if incoming.Seq <= current.Seq {
		s.logger.Debug("stale step snapshot dropped",
			"execution_id", incoming.ExecutionID,
			"step_id", incoming.ID,
			"seq", incoming.Seq,
			"current_seq", current.Seq,
		)
		return nil
	}

	if err := s.db.UpsertStep(ctx, incoming); err != nil {
		return fmt.Errorf("upsert step %s: %w", incoming.ID, err)
	}
	return nil
}

// GetReports возвращает отчёты execution из report store.
// Шаги одного execution разделяют одно дерево отчёта, поэтому
// одинаковые report id читаются один раз.
func (s *Store) GetReports(ctx context.Context, id uuid.UUID) ([]ExecutionReport, error) {
	execution, err := s.db.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool)
	var out []ExecutionReport
	for _, step := range execution.Steps {
		if step.ReportID == nil || seen[*step.ReportID] {
			continue
		}
		seen[*step.ReportID] = true

		root, err := s.reports.GetReport(ctx, *step.ReportID)
		if err != nil {
			return nil, fmt.Errorf("get report %s: %w", *step.ReportID, err)
		}
		out = append(out, ExecutionReport{ReportID: *step.ReportID, Report: root})
	}
	return out, nil
}

// GetResults возвращает результаты шагов вместе с payload'ами.
//
// Сначала проверяются все kind'ы: незарегистрированный kind —
// явная ошибка до чтения чего-либо, частичный ответ не отдаётся.
func (s *Store) GetResults(ctx context.Context, id uuid.UUID) ([]StepResult, error) {
	execution, err := s.db.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}

	type pending struct {
		step     domain.Step
		provider results.Provider
	}
	var plan []pending
	for _, step := range execution.Steps {
		if step.Result == nil {
			continue
		}
		provider, err := s.results.For(step.Result.Kind)
		if err != nil {
			return nil, err
		}
		plan = append(plan, pending{step: step, provider: provider})
	}

	var out []StepResult
	for _, p := range plan {
		data, err := p.provider.GetResult(ctx, p.step.Result.ResultID)
		if err != nil {
			return nil, fmt.Errorf("get result %s: %w", p.step.Result.ResultID, err)
		}
		out = append(out, StepResult{
			StepID:   p.step.ID,
			StepType: p.step.Type,
			Result:   *p.step.Result,
			Data:     data,
		})
	}
	return out, nil
}

// Delete удаляет execution.
//
// Разрешено только для терминальных статусов. Сначала удаляется
// сама запись (вместе с шагами), затем best-effort — внешние
// артефакты: результаты и отчёты. Ошибка очистки артефакта не
// проваливает удаление; осиротевший артефакт только логируется.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	execution, err := s.db.GetExecution(ctx, id)
	if err != nil {
		return err
	}
	if !execution.IsFinished() {
		return fmt.Errorf("%w: %s is %s", ErrExecutionNotTerminal, id, execution.Status)
	}

	attempts := s.cleanupAttempts(execution)

	if err := s.db.DeleteExecution(ctx, id); err != nil {
		return fmt.Errorf("delete execution %s: %w", id, err)
	}

	outcomes, err := cleanup.AttemptAll(ctx, attempts)
	for _, outcome := range outcomes {
		if outcome.Err == nil {
			continue
		}
		// В метрику идёт только вид артефакта: id остаётся в логе,
		// иначе кардинальность label'а не ограничена
		telemetry.ObserveCleanupFailure(outcome.Kind)
		s.logger.Warn("artifact not cleaned up",
			"execution_id", id,
			"artifact", outcome.Name,
			"error", outcome.Err,
		)
	}
	if err != nil {
		s.logger.Warn("execution deleted with orphaned artifacts",
			"execution_id", id,
			"error", err,
		)
	}
	return nil
}

// cleanupAttempts собирает попытки удаления внешних артефактов:
// по одной на результат и на отчёт.
func (s *Store) cleanupAttempts(execution *domain.Execution) []cleanup.Attempt {
	var attempts []cleanup.Attempt

	seenReports := make(map[uuid.UUID]bool)
	for _, step := range execution.Steps {
		if step.Result != nil {
			result := *step.Result
			attempts = append(attempts, cleanup.Attempt{
				Kind: "result",
				Name: "result " + result.ResultID.String(),
				Fn: func(ctx context.Context) error {
					provider, err := s.results.For(result.Kind)
					if err != nil {
						return err
					}
					return provider.DeleteResult(ctx, result.ResultID)
				},
			})
		}

		if step.ReportID != nil && !seenReports[*step.ReportID] {
			seenReports[*step.ReportID] = true
			reportID := *step.ReportID
			attempts = append(attempts, cleanup.Attempt{
				Kind: "report",
				Name: "report " + reportID.String(),
				Fn: func(ctx context.Context) error {
					return s.reports.DeleteReport(ctx, reportID)
				},
			})
		}
	}
	return attempts
}

// DeleteFinishedBefore удаляет все execution, завершившиеся раньше
// cutoff. Ошибка одного execution не мешает удалению остальных.
// Возвращает число удалённых записей.
func (s *Store) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := s.db.ListFinishedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list finished executions: %w", err)
	}

	deleted := 0
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			s.logger.Error("expired execution not deleted",
				"execution_id", id,
				"error", err,
			)
			continue
		}
		deleted++
	}
	return deleted, nil
}
