// Gridflow API — HTTP-фасад control plane.
//
// API:
//   - Принимает запросы на запуск процессов (persist-then-publish)
//   - Отдаёт executions, их шаги, отчёты и результаты
//   - Удаляет завершённые executions вместе с артефактами
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shaiso/Gridflow/internal/api"
	"github.com/shaiso/Gridflow/internal/domain"
	"github.com/shaiso/Gridflow/internal/mq"
	"github.com/shaiso/Gridflow/internal/process"
	"github.com/shaiso/Gridflow/internal/record"
	"github.com/shaiso/Gridflow/internal/repo"
	"github.com/shaiso/Gridflow/internal/reports"
	"github.com/shaiso/Gridflow/internal/results"
	"github.com/shaiso/Gridflow/internal/telemetry"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridflow_api_http_requests_total",
		Help: "Total HTTP requests handled by gridflow_api",
	})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting gridflow-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Подключаемся к базе данных
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	executionRepo := repo.NewExecutionRepo(pool)

	// Хранилище результатов
	resultRegistry, err := setupResults(ctx)
	if err != nil {
		logger.Error("failed to setup result store", "error", err)
		os.Exit(1)
	}
	logger.Info("result store ready")

	reportStore := reports.NewClient(envOr("REPORT_SERVICE_URL", "http://localhost:8090"))

	store := record.NewStore(executionRepo, resultRegistry, reportStore, logger)

	// Реестр типов процессов. API не выполняет шаги — ему нужны
	// только binding и декодер конфигурации каждого типа.
	processRegistry := process.NewRegistry()
	if err := process.RegisterAll(processRegistry, process.Collaborators{}); err != nil {
		logger.Error("failed to register process types", "error", err)
		os.Exit(1)
	}

	// RabbitMQ: API публикует run-запросы
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

	publisher := mq.NewPublisher(mqConn, logger)

	// Создаём API handler
	handler := api.NewHandler(api.Config{
		Store:     store,
		Registry:  processRegistry,
		Publisher: publisher,
		Logger:    logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
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
