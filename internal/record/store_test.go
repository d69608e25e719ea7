package record

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shaiso/Gridflow/internal/domain"
	"github.com/shaiso/Gridflow/internal/notify"
	"github.com/shaiso/Gridflow/internal/repo"
	"github.com/shaiso/Gridflow/internal/reports"
	"github.com/shaiso/Gridflow/internal/results"
	"github.com/shaiso/Gridflow/internal/telemetry"
)

// memDB — Persistence в памяти для тестов store.
type memDB struct {
	executions map[uuid.UUID]*domain.Execution
}

func newMemDB() *memDB {
	return &memDB{executions: make(map[uuid.UUID]*domain.Execution)}
}

func (db *memDB) CreateExecution(_ context.Context, execution *domain.Execution) error {
	if _, ok := db.executions[execution.ID]; ok {
		return nil
	}
	copied := *execution
	db.executions[execution.ID] = &copied
	return nil
}

func (db *memDB) GetExecution(_ context.Context, id uuid.UUID) (*domain.Execution, error) {
	execution, ok := db.executions[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	copied := *execution
	copied.Steps = append([]domain.Step(nil), execution.Steps...)
	return &copied, nil
}

func (db *memDB) ListExecutions(_ context.Context) ([]domain.Execution, error) {
	var out []domain.Execution
	for _, execution := range db.executions {
		out = append(out, *execution)
	}
	return out, nil
}

func (db *memDB) SetExecutionRunning(_ context.Context, id uuid.UUID, envName string, startedAt time.Time) error {
	execution, ok := db.executions[id]
	if !ok {
		return repo.ErrNotFound
	}
	execution.Status = domain.ExecutionStatusRunning
	execution.EnvName = envName
	execution.StartedAt = &startedAt
	return nil
}

func (db *memDB) SetExecutionFinished(_ context.Context, id uuid.UUID, status domain.ExecutionStatus, envName string, completedAt time.Time) error {
	execution, ok := db.executions[id]
	if !ok {
		return repo.ErrNotFound
	}
	execution.Status = status
	execution.EnvName = envName
	execution.CompletedAt = &completedAt
	return nil
}

func (db *memDB) GetStep(_ context.Context, executionID, stepID uuid.UUID) (*domain.Step, error) {
	execution, ok := db.executions[executionID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	for i := range execution.Steps {
		if execution.Steps[i].ID == stepID {
			copied := execution.Steps[i]
			return &copied, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (db *memDB) UpsertStep(_ context.Context, step domain.Step) error {
	execution, ok := db.executions[step.ExecutionID]
	if !ok {
		return repo.ErrNotFound
	}
	for i := range execution.Steps {
		if execution.Steps[i].ID == step.ID {
			execution.Steps[i] = step
			return nil
		}
	}
	execution.Steps = append(execution.Steps, step)
	return nil
}

func (db *memDB) DeleteExecution(_ context.Context, id uuid.UUID) error {
	if _, ok := db.executions[id]; !ok {
		return repo.ErrNotFound
	}
	delete(db.executions, id)
	return nil
}

func (db *memDB) ListFinishedBefore(_ context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, execution := range db.executions {
		if execution.IsFinished() && execution.CompletedAt != nil && execution.CompletedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// countingProvider считает обращения к хранилищу результатов.
type countingProvider struct {
	kind      domain.ResultKind
	gets      int
	deletes   map[uuid.UUID]int
	deleteErr map[uuid.UUID]error
	data      map[uuid.UUID][]byte
}

func newCountingProvider(kind domain.ResultKind) *countingProvider {
	return &countingProvider{
		kind:      kind,
		deletes:   make(map[uuid.UUID]int),
		deleteErr: make(map[uuid.UUID]error),
		data:      make(map[uuid.UUID][]byte),
	}
}

func (p *countingProvider) Kind() domain.ResultKind { return p.kind }

func (p *countingProvider) GetResult(_ context.Context, resultID uuid.UUID) ([]byte, error) {
	p.gets++
	data, ok := p.data[resultID]
	if !ok {
		return nil, results.ErrResultNotFound
	}
	return data, nil
}

func (p *countingProvider) DeleteResult(_ context.Context, resultID uuid.UUID) error {
	p.deletes[resultID]++
	return p.deleteErr[resultID]
}

// countingReportStore считает удаления отчётов.
type countingReportStore struct {
	reports map[uuid.UUID]*reports.Node
	deletes map[uuid.UUID]int
}

func newCountingReportStore() *countingReportStore {
	return &countingReportStore{
		reports: make(map[uuid.UUID]*reports.Node),
		deletes: make(map[uuid.UUID]int),
	}
}

func (s *countingReportStore) SendReport(_ context.Context, reportID uuid.UUID, root *reports.Node) error {
	s.reports[reportID] = root
	return nil
}

func (s *countingReportStore) GetReport(_ context.Context, reportID uuid.UUID) (*reports.Node, error) {
	root, ok := s.reports[reportID]
	if !ok {
		return nil, errors.New("report not found")
	}
	return root, nil
}

func (s *countingReportStore) DeleteReport(_ context.Context, reportID uuid.UUID) error {
	s.deletes[reportID]++
	delete(s.reports, reportID)
	return nil
}

func newTestStore(t *testing.T) (*Store, *memDB, *results.Registry, *countingReportStore) {
	t.Helper()
	db := newMemDB()
	registry := results.NewRegistry()
	reportStore := newCountingReportStore()
	store := NewStore(db, registry, reportStore, slog.New(slog.DiscardHandler))
	return store, db, registry, reportStore
}

func scheduledSteps(executionID uuid.UUID) []domain.Step {
	types := []domain.StepType{
		domain.StepLoadNetwork,
		domain.StepApplyModifications,
		domain.StepRunComputation,
	}
	var previous *uuid.UUID
	steps := make([]domain.Step, 0, len(types))
	for i, st := range types {
		step := domain.NewStep(executionID, st, i+1, previous)
		steps = append(steps, step)
		previous = &steps[i].ID
	}
	return steps
}

func TestApplySnapshotLazilyCreatesExecution(t *testing.T) {
	store, db, _, _ := newTestStore(t)
	ctx := context.Background()

	executionID := uuid.New()
	caseID := uuid.New()
	snapshot := notify.StepsSnapshot{
		ExecutionID: executionID,
		ProcessType: domain.ProcessLoadFlow,
		CaseID:      caseID,
		Steps:       scheduledSteps(executionID),
	}

	if err := store.ApplySnapshot(ctx, snapshot); err != nil {
		t.Fatalf("ApplySnapshot: %v", err)
	}

	execution, err := db.GetExecution(ctx, executionID)
	if err != nil {
		t.Fatalf("GetExecution: %v", err)
	}
	if execution.ProcessType != domain.ProcessLoadFlow {
		t.Errorf("process type = %s", execution.ProcessType)
	}
	if execution.CaseID != caseID {
		t.Errorf("case id = %s, want %s", execution.CaseID, caseID)
	}
	if len(execution.Steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(execution.Steps))
	}

	// Повторная доставка того же снапшота безопасна
	if err := store.ApplySnapshot(ctx, snapshot); err != nil {
		t.Fatalf("ApplySnapshot replay: %v", err)
	}
	execution, _ = db.GetExecution(ctx, executionID)
	if len(execution.Steps) != 3 {
		t.Errorf("after replay got %d steps, want 3", len(execution.Steps))
	}
}

func TestApplyStepStatusUnknownExecution(t *testing.T) {
	store, _, _, _ := newTestStore(t)

	step := domain.NewStep(uuid.New(), domain.StepLoadNetwork, 1, nil)
	err := store.ApplyStepStatus(context.Background(), notify.StepStatusUpdate{
		ExecutionID: step.ExecutionID,
		Step:        step,
	})
	if !errors.Is(err, ErrUnknownExecution) {
		t.Fatalf("got %v, want ErrUnknownExecution", err)
	}
}

func TestApplyStepStatusDropsStaleAndProtectsTerminal(t *testing.T) {
	store, db, _, _ := newTestStore(t)
	ctx := context.Background()

	executionID := uuid.New()
	steps := scheduledSteps(executionID)
	if err := store.ApplySnapshot(ctx, notify.StepsSnapshot{
		ExecutionID: executionID,
		ProcessType: domain.ProcessLoadFlow,
		CaseID:      uuid.New(),
		Steps:       steps,
	}); err != nil {
		t.Fatalf("ApplySnapshot: %v", err)
	}

	step := steps[0]
	step.MarkRunning()
	running := step
	step.MarkCompleted()
	completed := step

	// COMPLETED (seq 3) приходит раньше RUNNING (seq 2)
	apply := func(s domain.Step) error {
		return store.ApplyStepStatus(ctx, notify.StepStatusUpdate{ExecutionID: executionID, Step: s})
	}
	if err := apply(completed); err != nil {
		t.Fatalf("apply completed: %v", err)
	}
	if err := apply(running); err != nil {
		t.Fatalf("apply stale running: %v", err)
	}

	got, err := db.GetStep(ctx, executionID, step.ID)
	if err != nil {
		t.Fatalf("GetStep: %v", err)
	}
	if got.Status != domain.StepStatusCompleted {
		t.Errorf("status = %s, want COMPLETED (terminal never reverted)", got.Status)
	}
	if got.Seq != completed.Seq {
		t.Errorf("seq = %d, want %d", got.Seq, completed.Seq)
	}

	// Повтор терминального снапшота тоже отбрасывается без ошибки
	if err := apply(completed); err != nil {
		t.Fatalf("apply completed replay: %v", err)
	}
}

func TestApplyExecutionStatusNeverRevertsTerminal(t *testing.T) {
	store, db, _, _ := newTestStore(t)
	ctx := context.Background()

	execution, err := store.Create(ctx, domain.ProcessSecurityAnalysis, uuid.New())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	completedAt := time.Now()
	if err := store.ApplyExecutionStatus(ctx, notify.ExecutionStatusUpdate{
		ExecutionID: execution.ID,
		Status:      domain.ExecutionStatusFailed,
		CompletedAt: &completedAt,
	}); err != nil {
		t.Fatalf("apply FAILED: %v", err)
	}

	// Опоздавший RUNNING не откатывает терминальный статус
	if err := store.ApplyExecutionStatus(ctx, notify.ExecutionStatusUpdate{
		ExecutionID: execution.ID,
		Status:      domain.ExecutionStatusRunning,
	}); err != nil {
		t.Fatalf("apply late RUNNING: %v", err)
	}

	got, _ := db.GetExecution(ctx, execution.ID)
	if got.Status != domain.ExecutionStatusFailed {
		t.Errorf("status = %s, want FAILED", got.Status)
	}
}

func TestDeleteRejectsNonTerminal(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	ctx := context.Background()

	execution, err := store.Create(ctx, domain.ProcessLoadFlow, uuid.New())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	err = store.Delete(ctx, execution.ID)
	if !errors.Is(err, ErrExecutionNotTerminal) {
		t.Fatalf("got %v, want ErrExecutionNotTerminal", err)
	}
}

func TestDeleteBestEffortCleanup(t *testing.T) {
	store, db, registry, reportStore := newTestStore(t)
	ctx := context.Background()

	provider := newCountingProvider(domain.ResultKindLoadFlow)
	if err := registry.Register(provider); err != nil {
		t.Fatalf("Register: %v", err)
	}

	executionID := uuid.New()
	execution := &domain.Execution{
		ID:          executionID,
		ProcessType: domain.ProcessLoadFlow,
		CaseID:      uuid.New(),
		Status:      domain.ExecutionStatusCompleted,
		ScheduledAt: time.Now(),
	}
	completedAt := time.Now()
	execution.CompletedAt = &completedAt

	// Три результата, один из которых не удалится, и два отчёта
	resultIDs := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	reportIDs := []uuid.UUID{uuid.New(), uuid.New()}
	provider.deleteErr[resultIDs[1]] = errors.New("storage down")

	for i, resultID := range resultIDs {
		step := domain.NewStep(executionID, domain.StepRunComputation, i+1, nil)
		step.Result = &domain.ResultInfos{ResultID: resultID, Kind: domain.ResultKindLoadFlow}
		step.ReportID = &reportIDs[i%2]
		execution.Steps = append(execution.Steps, step)
	}
	db.executions[executionID] = execution
	for _, reportID := range reportIDs {
		reportStore.reports[reportID] = reports.NewNode("r")
	}

	resultFailures := testutil.ToFloat64(telemetry.CleanupFailuresTotal.WithLabelValues("result"))

	if err := store.Delete(ctx, executionID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// Запись удалена, несмотря на осиротевший артефакт
	if _, err := db.GetExecution(ctx, executionID); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("execution record must be gone, got %v", err)
	}

	// Каждый артефакт — ровно одна попытка удаления
	for _, resultID := range resultIDs {
		if provider.deletes[resultID] != 1 {
			t.Errorf("result %s deleted %d times, want 1", resultID, provider.deletes[resultID])
		}
	}
	for _, reportID := range reportIDs {
		if reportStore.deletes[reportID] != 1 {
			t.Errorf("report %s deleted %d times, want 1", reportID, reportStore.deletes[reportID])
		}
	}

	// Метрика неудачной очистки считается по виду артефакта,
	// а не по его id
	got := testutil.ToFloat64(telemetry.CleanupFailuresTotal.WithLabelValues("result"))
	if got != resultFailures+1 {
		t.Errorf("result cleanup failures = %v, want %v", got, resultFailures+1)
	}
}

func TestGetResultsUnsupportedKindNoPartial(t *testing.T) {
	store, db, registry, _ := newTestStore(t)
	ctx := context.Background()

	provider := newCountingProvider(domain.ResultKindLoadFlow)
	if err := registry.Register(provider); err != nil {
		t.Fatalf("Register: %v", err)
	}

	executionID := uuid.New()
	execution := &domain.Execution{
		ID:          executionID,
		ProcessType: domain.ProcessLoadFlow,
		CaseID:      uuid.New(),
		Status:      domain.ExecutionStatusCompleted,
		ScheduledAt: time.Now(),
	}

	known := domain.NewStep(executionID, domain.StepRunComputation, 1, nil)
	knownResultID := uuid.New()
	known.Result = &domain.ResultInfos{ResultID: knownResultID, Kind: domain.ResultKindLoadFlow}
	provider.data[knownResultID] = []byte("payload")

	unknown := domain.NewStep(executionID, domain.StepRunComputation, 2, nil)
	unknown.Result = &domain.ResultInfos{ResultID: uuid.New(), Kind: "SHORT_CIRCUIT_RESULT"}

	execution.Steps = []domain.Step{known, unknown}
	db.executions[executionID] = execution

	_, err := store.GetResults(ctx, executionID)
	if !errors.Is(err, results.ErrUnsupportedResultKind) {
		t.Fatalf("got %v, want ErrUnsupportedResultKind", err)
	}
	// Частичный ответ не собирается: payload'ы не читались вовсе
	if provider.gets != 0 {
		t.Errorf("provider.GetResult called %d times, want 0", provider.gets)
	}
}

func TestGetResults(t *testing.T) {
	store, db, registry, _ := newTestStore(t)
	ctx := context.Background()

	provider := newCountingProvider(domain.ResultKindSensitivity)
	if err := registry.Register(provider); err != nil {
		t.Fatalf("Register: %v", err)
	}

	executionID := uuid.New()
	resultID := uuid.New()
	provider.data[resultID] = []byte("sensitivity-matrix")

	step := domain.NewStep(executionID, domain.StepRunComputation, 1, nil)
	step.Result = &domain.ResultInfos{ResultID: resultID, Kind: domain.ResultKindSensitivity}

	db.executions[executionID] = &domain.Execution{
		ID:          executionID,
		ProcessType: domain.ProcessSensitivityAnalysis,
		CaseID:      uuid.New(),
		Status:      domain.ExecutionStatusCompleted,
		ScheduledAt: time.Now(),
		Steps:       []domain.Step{step},
	}

	out, err := store.GetResults(ctx, executionID)
	if err != nil {
		t.Fatalf("GetResults: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d results, want 1", len(out))
	}
	if string(out[0].Data) != "sensitivity-matrix" {
		t.Errorf("data = %q", out[0].Data)
	}
	if out[0].Result.ResultID != resultID {
		t.Errorf("result id = %s", out[0].Result.ResultID)
	}
}

func TestDeleteFinishedBefore(t *testing.T) {
	store, db, _, _ := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()

	makeExecution := func(status domain.ExecutionStatus, completedAt *time.Time) uuid.UUID {
		id := uuid.New()
		db.executions[id] = &domain.Execution{
			ID:          id,
			ProcessType: domain.ProcessLoadFlow,
			CaseID:      uuid.New(),
			Status:      status,
			ScheduledAt: old,
			CompletedAt: completedAt,
		}
		return id
	}

	expired := makeExecution(domain.ExecutionStatusCompleted, &old)
	fresh := makeExecution(domain.ExecutionStatusFailed, &recent)
	running := makeExecution(domain.ExecutionStatusRunning, nil)

	deleted, err := store.DeleteFinishedBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteFinishedBefore: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if _, err := db.GetExecution(ctx, expired); !errors.Is(err, repo.ErrNotFound) {
		t.Error("expired execution must be deleted")
	}
	if _, err := db.GetExecution(ctx, fresh); err != nil {
		t.Error("fresh execution must survive")
	}
	if _, err := db.GetExecution(ctx, running); err != nil {
		t.Error("running execution must survive")
	}
}
