package retention

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Gridflow/internal/domain"
	"github.com/shaiso/Gridflow/internal/record"
	"github.com/shaiso/Gridflow/internal/repo"
	"github.com/shaiso/Gridflow/internal/reports"
	"github.com/shaiso/Gridflow/internal/results"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("RETENTION_TTL", "48h")
	t.Setenv("RETENTION_CRON", "30 2 * * *")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.TTL != 48*time.Hour {
		t.Errorf("ttl = %s, want 48h", cfg.TTL)
	}
	if cfg.CronExpr != "30 2 * * *" {
		t.Errorf("cron = %q", cfg.CronExpr)
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("RETENTION_TTL", "")
	t.Setenv("RETENTION_CRON", "")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.TTL != 720*time.Hour {
		t.Errorf("ttl = %s, want 720h", cfg.TTL)
	}
	if cfg.CronExpr != "0 3 * * *" {
		t.Errorf("cron = %q", cfg.CronExpr)
	}
}

func TestConfigFromEnvInvalidTTL(t *testing.T) {
	t.Setenv("RETENTION_TTL", "next tuesday")

	if _, err := ConfigFromEnv(); err == nil {
		t.Fatal("expected error for invalid RETENTION_TTL")
	}
}

// sweepDB — минимальная персистентность с одним истёкшим execution.
type sweepDB struct {
	executions map[uuid.UUID]*domain.Execution
}

func (db *sweepDB) CreateExecution(context.Context, *domain.Execution) error { return nil }

func (db *sweepDB) GetExecution(_ context.Context, id uuid.UUID) (*domain.Execution, error) {
	execution, ok := db.executions[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return execution, nil
}

func (db *sweepDB) ListExecutions(context.Context) ([]domain.Execution, error) { return nil, nil }

func (db *sweepDB) SetExecutionRunning(context.Context, uuid.UUID, string, time.Time) error {
	return nil
}

func (db *sweepDB) SetExecutionFinished(context.Context, uuid.UUID, domain.ExecutionStatus, string, time.Time) error {
	return nil
}

func (db *sweepDB) GetStep(context.Context, uuid.UUID, uuid.UUID) (*domain.Step, error) {
	return nil, repo.ErrNotFound
}

func (db *sweepDB) UpsertStep(context.Context, domain.Step) error { return nil }

func (db *sweepDB) DeleteExecution(_ context.Context, id uuid.UUID) error {
	delete(db.executions, id)
	return nil
}

func (db *sweepDB) ListFinishedBefore(_ context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, execution := range db.executions {
		if execution.IsFinished() && execution.CompletedAt != nil && execution.CompletedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type noopReportStore struct{}

func (noopReportStore) SendReport(context.Context, uuid.UUID, *reports.Node) error { return nil }
func (noopReportStore) GetReport(context.Context, uuid.UUID) (*reports.Node, error) {
	return nil, repo.ErrNotFound
}
func (noopReportStore) DeleteReport(context.Context, uuid.UUID) error { return nil }

func TestSweepDeletesExpired(t *testing.T) {
	old := time.Now().Add(-72 * time.Hour)
	expired := &domain.Execution{
		ID:          uuid.New(),
		ProcessType: domain.ProcessLoadFlow,
		CaseID:      uuid.New(),
		Status:      domain.ExecutionStatusCompleted,
		ScheduledAt: old,
		CompletedAt: &old,
	}

	db := &sweepDB{executions: map[uuid.UUID]*domain.Execution{expired.ID: expired}}
	logger := slog.New(slog.DiscardHandler)
	store := record.NewStore(db, results.NewRegistry(), noopReportStore{}, logger)

	janitor := New(store, Config{TTL: 24 * time.Hour, CronExpr: "0 3 * * *"}, logger)
	janitor.Sweep(context.Background())

	if len(db.executions) != 0 {
		t.Errorf("expired execution must be deleted, %d left", len(db.executions))
	}
}
