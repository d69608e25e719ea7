package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shaiso/Gridflow/internal/record"
)

// Config — конфигурация janitor'а.
type Config struct {
	// TTL — сколько терминальный execution живёт до удаления.
	TTL time.Duration

	// CronExpr — расписание обхода (5-польный cron).
	CronExpr string
}

// ConfigFromEnv читает конфигурацию из окружения.
// RETENTION_TTL — Go duration (default 720h),
// RETENTION_CRON — cron-выражение (default ежедневно в 03:00).
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		TTL:      720 * time.Hour,
		CronExpr: "0 3 * * *",
	}

	if v := os.Getenv("RETENTION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse RETENTION_TTL: %w", err)
		}
		cfg.TTL = ttl
	}
	if v := os.Getenv("RETENTION_CRON"); v != "" {
		cfg.CronExpr = v
	}
	return cfg, nil
}

// Janitor периодически удаляет терминальные execution старше TTL.
//
// Удаление идёт через record.Store, то есть с той же best-effort
// очисткой внешних артефактов, что и ручное удаление через API.
// Ошибка одного execution не блокирует остальные.
type Janitor struct {
	store  *record.Store
	cfg    Config
	logger *slog.Logger
	cron   *cron.Cron
}

// New создаёт janitor.
func New(store *record.Store, cfg Config, logger *slog.Logger) *Janitor {
	return &Janitor{
		store:  store,
		cfg:    cfg,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start запускает расписание обходов.
func (j *Janitor) Start(ctx context.Context) error {
	_, err := j.cron.AddFunc(j.cfg.CronExpr, func() {
		j.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule retention sweep %q: %w", j.cfg.CronExpr, err)
	}

	j.cron.Start()
	j.logger.Info("retention janitor started",
		"ttl", j.cfg.TTL,
		"cron", j.cfg.CronExpr,
	)
	return nil
}

// Stop останавливает расписание и дожидается текущего обхода.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Sweep выполняет один обход: удаляет все терминальные execution,
// завершившиеся раньше now-TTL.
func (j *Janitor) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-j.cfg.TTL)

	deleted, err := j.store.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("retention sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		j.logger.Info("retention sweep finished",
			"deleted", deleted,
			"cutoff", cutoff,
		)
	}
}
