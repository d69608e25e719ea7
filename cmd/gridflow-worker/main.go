// Gridflow Worker — выполняет процессы расчёта.
//
// Worker:
//   - Получает run-запросы из RabbitMQ (очередь на тип процесса)
//   - Прогоняет конвейер шагов: загрузка сети, модификации, расчёт
//   - Публикует переходы статусов в control plane
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Gridflow/internal/domain"
	"github.com/shaiso/Gridflow/internal/executor"
	"github.com/shaiso/Gridflow/internal/grid"
	"github.com/shaiso/Gridflow/internal/mq"
	"github.com/shaiso/Gridflow/internal/notify"
	"github.com/shaiso/Gridflow/internal/process"
	"github.com/shaiso/Gridflow/internal/reports"
	"github.com/shaiso/Gridflow/internal/telemetry"
	"github.com/shaiso/Gridflow/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting gridflow-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// RabbitMQ: без него worker бесполезен
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
	notificator := notify.NewAMQP(publisher)

	// Внешние сервисы сетевых расчётов
	loader := grid.NewCaseClient(envOr("CASE_SERVICE_URL", "http://localhost:8091"))
	applier := grid.NewModificationClient(envOr("MODIFICATION_SERVICE_URL", "http://localhost:8092"), logger)

	collaborators := process.Collaborators{
		Loader:  loader,
		Applier: applier,
		SecurityAnalysisEngine: grid.NewEngineClient(
			envOr("SECURITY_ANALYSIS_URL", "http://localhost:8093"),
			domain.ResultKindSecurityAnalysis,
		),
		LoadFlowEngine: grid.NewEngineClient(
			envOr("LOAD_FLOW_URL", "http://localhost:8094"),
			domain.ResultKindLoadFlow,
		),
		SensitivityAnalysisEngine: grid.NewEngineClient(
			envOr("SENSITIVITY_ANALYSIS_URL", "http://localhost:8095"),
			domain.ResultKindSensitivity,
		),
	}

	registry := process.NewRegistry()
	if err := process.RegisterAll(registry, collaborators); err != nil {
		logger.Error("failed to register process types", "error", err)
		os.Exit(1)
	}

	reportStore := reports.NewClient(envOr("REPORT_SERVICE_URL", "http://localhost:8090"))

	stepExecutor := executor.NewStepExecutor(notificator, reportStore, logger)
	processExecutor := executor.NewProcessExecutor(stepExecutor, notificator, envOr("ENV_NAME", "local"), logger)

	// Создаём worker
	w := worker.New(worker.Config{
		Conn:        mqConn,
		Registry:    registry,
		Executor:    processExecutor,
		Concurrency: envInt("WORKER_CONCURRENCY", 0),
		Prefetch:    envInt("WORKER_PREFETCH", 0),
		Logger:      logger,
	})

	// Запускаем worker
	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("WORKER_PORT"); v != "" {
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

	// Останавливаем worker, дожидаясь активных executions
	w.Stop()
	logger.Info("gridflow-worker stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
