// Gridflow Recorder — применяет уведомления о статусе к записям
// executions.
//
// Recorder:
//   - Потребляет очередь execution.status
//   - Идемпотентно применяет снапшоты шагов и переходы статусов
//   - По расписанию удаляет executions старше retention TTL
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shaiso/Gridflow/internal/domain"
	"github.com/shaiso/Gridflow/internal/mq"
	"github.com/shaiso/Gridflow/internal/record"
	"github.com/shaiso/Gridflow/internal/repo"
	"github.com/shaiso/Gridflow/internal/reports"
	"github.com/shaiso/Gridflow/internal/results"
	"github.com/shaiso/Gridflow/internal/retention"
	"github.com/shaiso/Gridflow/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting gridflow-recorder")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	executionRepo := repo.NewExecutionRepo(pool)

	// Хранилище результатов нужно recorder'у для retention-удалений
	resultRegistry, err := setupResults(ctx)
	if err != nil {
		logger.Error("failed to setup result store", "error", err)
		os.Exit(1)
	}

	reportStore := reports.NewClient(envOr("REPORT_SERVICE_URL", "http://localhost:8090"))

	store := record.NewStore(executionRepo, resultRegistry, reportStore, logger)

	// RabbitMQ
	mqConn, err := mq.NewConnection(mq.URLFromEnv(), logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()
	logger.Info("RabbitMQ connected")

	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}

	// Consumer очереди уведомлений
	recorder := record.NewRecorder(store, logger)
	consumer := mq.NewConsumer(mqConn, logger, mq.ConsumerConfig{
		Queue:   string(mq.QueueExecutionStatus),
		Handler: recorder.Handle,
	})

	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("status consumer error", "error", err)
			cancel()
		}
	}()

	// Retention janitor
	retentionCfg, err := retention.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid retention config", "error", err)
		os.Exit(1)
	}
	janitor := retention.New(store, retentionCfg, logger)
	if err := janitor.Start(ctx); err != nil {
		logger.Error("failed to start retention janitor", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8083"
	if v := os.Getenv("RECORDER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	consumer.Stop()
	janitor.Stop()
	logger.Info("gridflow-recorder stopped")
}

// setupResults подключает object store и регистрирует провайдеров
// для всех поддерживаемых kind'ов результатов.
func setupResults(ctx context.Context) (*results.Registry, error) {
	cfg := results.ObjectStoreConfigFromEnv()

	client, err := results.NewObjectStoreClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}
	if err := results.EnsureBucket(ctx, client, cfg.Bucket); err != nil {
		return nil, err
	}

	registry := results.NewRegistry()
	providers := []*results.ObjectStoreProvider{
		results.NewObjectStoreProvider(client, cfg.Bucket, domain.ResultKindSecurityAnalysis, "security-analysis"),
		results.NewObjectStoreProvider(client, cfg.Bucket, domain.ResultKindLoadFlow, "load-flow"),
		results.NewObjectStoreProvider(client, cfg.Bucket, domain.ResultKindSensitivity, "sensitivity"),
	}
	for _, p := range providers {
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
