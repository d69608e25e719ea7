package executor

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/Gridflow/internal/domain"
	"github.com/shaiso/Gridflow/internal/notify"
	"github.com/shaiso/Gridflow/internal/process"
	"github.com/shaiso/Gridflow/internal/reports"
)

// event — одно зафиксированное уведомление, в порядке публикации.
type event struct {
	kind      string // "execution" | "step" | "snapshot"
	execution notify.ExecutionStatusUpdate
	step      domain.Step
	snapshot  notify.StepsSnapshot
}

type recordingNotificator struct {
	events []event
}

func (n *recordingNotificator) NotifyExecutionStatus(_ context.Context, update notify.ExecutionStatusUpdate) error {
	n.events = append(n.events, event{kind: "execution", execution: update})
	return nil
}

func (n *recordingNotificator) NotifyStepStatus(_ context.Context, _ uuid.UUID, step domain.Step) error {
	n.events = append(n.events, event{kind: "step", step: step})
	return nil
}

func (n *recordingNotificator) NotifyStepsSnapshot(_ context.Context, snapshot notify.StepsSnapshot) error {
	n.events = append(n.events, event{kind: "snapshot", snapshot: snapshot})
	return nil
}

func (n *recordingNotificator) stepEvents() []domain.Step {
	var steps []domain.Step
	for _, ev := range n.events {
		if ev.kind == "step" {
			steps = append(steps, ev.step)
		}
	}
	return steps
}

type fakeReportStore struct {
	sent    map[uuid.UUID]*reports.Node
	sendErr error
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{sent: make(map[uuid.UUID]*reports.Node)}
}

func (s *fakeReportStore) SendReport(_ context.Context, reportID uuid.UUID, root *reports.Node) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent[reportID] = root
	return nil
}

func (s *fakeReportStore) GetReport(_ context.Context, reportID uuid.UUID) (*reports.Node, error) {
	root, ok := s.sent[reportID]
	if !ok {
		return nil, errors.New("report not found")
	}
	return root, nil
}

func (s *fakeReportStore) DeleteReport(_ context.Context, reportID uuid.UUID) error {
	delete(s.sent, reportID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// testDefinition собирает конвейер из трёх шагов; failAt (1-based)
// задаёт номер падающего шага, 0 — все успешны.
func testDefinition(failAt int, result *domain.ResultInfos) process.Definition {
	stepFn := func(order int, stepType domain.StepType) process.StepDefinition {
		return process.StepDefinition{
			Type: stepType,
			Run: func(_ context.Context, ec *process.Context) error {
				if order == failAt {
					return errors.New("boom")
				}
				if stepType == domain.StepRunComputation && result != nil {
					ec.SetResult(*result)
				}
				return nil
			},
		}
	}

	return process.Definition{
		Type: domain.ProcessLoadFlow,
		Steps: []process.StepDefinition{
			stepFn(1, domain.StepLoadNetwork),
			stepFn(2, domain.StepApplyModifications),
			stepFn(3, domain.StepRunComputation),
		},
	}
}

func newTestExecutor(notificator *recordingNotificator, store *fakeReportStore) *ProcessExecutor {
	logger := testLogger()
	steps := NewStepExecutor(notificator, store, logger)
	return NewProcessExecutor(steps, notificator, "test-env", logger)
}

func TestRunAllStepsSucceed(t *testing.T) {
	notificator := &recordingNotificator{}
	store := newFakeReportStore()
	exec := newTestExecutor(notificator, store)

	executionID := uuid.New()
	result := domain.ResultInfos{ResultID: uuid.New(), Kind: domain.ResultKindLoadFlow}
	config := domain.LoadFlowConfig{Case: uuid.New()}

	err := exec.Run(context.Background(), executionID, testDefinition(0, &result), config)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Первое событие — снапшот шагов, до любых индивидуальных
	if notificator.events[0].kind != "snapshot" {
		t.Fatalf("first event = %s, want snapshot", notificator.events[0].kind)
	}
	snapshot := notificator.events[0].snapshot
	if len(snapshot.Steps) != 3 {
		t.Fatalf("snapshot has %d steps, want 3", len(snapshot.Steps))
	}
	if snapshot.ProcessType != domain.ProcessLoadFlow {
		t.Errorf("snapshot process type = %s", snapshot.ProcessType)
	}
	if snapshot.CaseID != config.Case {
		t.Errorf("snapshot case id = %s, want %s", snapshot.CaseID, config.Case)
	}
	for i, step := range snapshot.Steps {
		if step.Status != domain.StepStatusScheduled {
			t.Errorf("snapshot step %d status = %s, want SCHEDULED", i, step.Status)
		}
		if step.Order != i+1 {
			t.Errorf("snapshot step %d order = %d, want %d", i, step.Order, i+1)
		}
		if step.Seq != 1 {
			t.Errorf("snapshot step %d seq = %d, want 1", i, step.Seq)
		}
	}
	// Обратные ссылки: первый шаг без предыдущего, дальше цепочка
	if snapshot.Steps[0].PreviousStepID != nil {
		t.Error("first step must not have previous step")
	}
	for i := 1; i < len(snapshot.Steps); i++ {
		if snapshot.Steps[i].PreviousStepID == nil || *snapshot.Steps[i].PreviousStepID != snapshot.Steps[i-1].ID {
			t.Errorf("step %d previous ref is not step %d", i, i-1)
		}
	}

	// Второе событие — execution RUNNING
	if notificator.events[1].kind != "execution" || notificator.events[1].execution.Status != domain.ExecutionStatusRunning {
		t.Fatalf("second event must be execution RUNNING, got %+v", notificator.events[1])
	}

	// Каждый шаг: RUNNING, затем COMPLETED
	stepEvents := notificator.stepEvents()
	if len(stepEvents) != 6 {
		t.Fatalf("got %d step events, want 6", len(stepEvents))
	}
	for i := 0; i < 3; i++ {
		running, completed := stepEvents[i*2], stepEvents[i*2+1]
		if running.Status != domain.StepStatusRunning {
			t.Errorf("step %d: first event status = %s, want RUNNING", i, running.Status)
		}
		if completed.Status != domain.StepStatusCompleted {
			t.Errorf("step %d: second event status = %s, want COMPLETED", i, completed.Status)
		}
		if completed.Seq <= running.Seq {
			t.Errorf("step %d: seq must grow, %d -> %d", i, running.Seq, completed.Seq)
		}
		if completed.ReportID == nil {
			t.Errorf("step %d: completed step must carry report id", i)
		}
	}

	// Результат привязан только к RUN_COMPUTATION
	last := stepEvents[5]
	if last.Type != domain.StepRunComputation {
		t.Fatalf("last step type = %s", last.Type)
	}
	if last.Result == nil || last.Result.ResultID != result.ResultID {
		t.Errorf("run computation step must carry the engine result")
	}
	for _, ev := range stepEvents[:5] {
		if ev.Result != nil {
			t.Errorf("step %s must not carry a result", ev.Type)
		}
	}

	// Последнее событие — ровно один терминальный статус
	final := notificator.events[len(notificator.events)-1]
	if final.kind != "execution" || final.execution.Status != domain.ExecutionStatusCompleted {
		t.Fatalf("final event must be execution COMPLETED, got %+v", final)
	}
	if final.execution.CompletedAt == nil {
		t.Error("terminal execution status must carry completed_at")
	}
	terminal := 0
	for _, ev := range notificator.events {
		if ev.kind == "execution" && ev.execution.Status.IsTerminal() {
			terminal++
		}
	}
	if terminal != 1 {
		t.Errorf("got %d terminal execution events, want exactly 1", terminal)
	}

	// Отчёт дошёл до store
	if len(store.sent) != 1 {
		t.Errorf("got %d reports in store, want 1", len(store.sent))
	}
}

func TestRunFailureSkipsRemaining(t *testing.T) {
	notificator := &recordingNotificator{}
	exec := newTestExecutor(notificator, newFakeReportStore())

	executionID := uuid.New()
	err := exec.Run(context.Background(), executionID, testDefinition(2, nil), domain.LoadFlowConfig{Case: uuid.New()})
	if err == nil {
		t.Fatal("Run must return the failed step error")
	}

	stepEvents := notificator.stepEvents()
	// Шаг 1: RUNNING+COMPLETED, шаг 2: RUNNING+FAILED, шаг 3: один SKIPPED
	if len(stepEvents) != 5 {
		t.Fatalf("got %d step events, want 5", len(stepEvents))
	}
	if stepEvents[3].Status != domain.StepStatusFailed {
		t.Errorf("step 2 final status = %s, want FAILED", stepEvents[3].Status)
	}
	if stepEvents[3].Error == "" {
		t.Error("failed step must carry the error text")
	}
	// Первый шаг успел опубликовать отчёт: упавший шаг уносит
	// ссылку на частичный отчёт
	if stepEvents[3].ReportID == nil {
		t.Error("failed step must carry the partial report id")
	} else if stepEvents[1].ReportID == nil || *stepEvents[3].ReportID != *stepEvents[1].ReportID {
		t.Error("failed step report id must match the one already flushed")
	}
	if stepEvents[4].Status != domain.StepStatusSkipped {
		t.Errorf("step 3 status = %s, want SKIPPED", stepEvents[4].Status)
	}
	if stepEvents[4].Type != domain.StepRunComputation {
		t.Errorf("skipped step type = %s", stepEvents[4].Type)
	}

	final := notificator.events[len(notificator.events)-1]
	if final.kind != "execution" || final.execution.Status != domain.ExecutionStatusFailed {
		t.Fatalf("final event must be execution FAILED, got %+v", final)
	}
}

func TestRunFirstStepFailureSkipsAll(t *testing.T) {
	notificator := &recordingNotificator{}
	exec := newTestExecutor(notificator, newFakeReportStore())

	err := exec.Run(context.Background(), uuid.New(), testDefinition(1, nil), domain.LoadFlowConfig{Case: uuid.New()})
	if err == nil {
		t.Fatal("Run must return the failed step error")
	}

	stepEvents := notificator.stepEvents()
	// Шаг 1: RUNNING+FAILED, шаги 2 и 3: по одному SKIPPED
	if len(stepEvents) != 4 {
		t.Fatalf("got %d step events, want 4", len(stepEvents))
	}
	// Отчёт ни разу не публиковался — ссылки на него нет
	if stepEvents[1].Status != domain.StepStatusFailed {
		t.Fatalf("step 1 final status = %s, want FAILED", stepEvents[1].Status)
	}
	if stepEvents[1].ReportID != nil {
		t.Error("failed first step must not carry a report id: nothing was flushed")
	}
	for _, ev := range stepEvents[2:] {
		if ev.Status != domain.StepStatusSkipped {
			t.Errorf("step %s status = %s, want SKIPPED", ev.Type, ev.Status)
		}
		if ev.StartedAt != nil {
			t.Errorf("skipped step %s must not have started_at", ev.Type)
		}
	}
}

func TestRunReportSendFailureDoesNotFailStep(t *testing.T) {
	notificator := &recordingNotificator{}
	store := newFakeReportStore()
	store.sendErr = errors.New("report store down")
	exec := newTestExecutor(notificator, store)

	err := exec.Run(context.Background(), uuid.New(), testDefinition(0, nil), domain.LoadFlowConfig{Case: uuid.New()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, ev := range notificator.stepEvents() {
		if ev.Status == domain.StepStatusCompleted && ev.ReportID != nil {
			t.Error("report id must not be attached when the report was not stored")
		}
	}

	final := notificator.events[len(notificator.events)-1]
	if final.execution.Status != domain.ExecutionStatusCompleted {
		t.Errorf("final status = %s, want COMPLETED", final.execution.Status)
	}
}
