package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shaiso/Gridflow/internal/executor"
	"github.com/shaiso/Gridflow/internal/mq"
	"github.com/shaiso/Gridflow/internal/process"
)

// Default configuration values.
const (
	defaultConcurrency = 4
	defaultPrefetch    = 1
)

// Worker выполняет процессы.
//
// Worker — stateless компонент системы, который:
//   - Потребляет run-запросы из очередей RabbitMQ (по одной на тип процесса)
//   - Декодирует конфигурацию через process.Registry
//   - Прогоняет конвейер шагов через executor.ProcessExecutor
//   - Публикует переходы статусов в control plane
//
// Workers масштабируются горизонтально — несколько экземпляров
// могут потреблять из одних очередей. Состояние выполнения эфемерно:
// упавший посреди execution worker не возобновляет его.
type Worker struct {
	conn     *mq.Connection
	registry *process.Registry
	executor *executor.ProcessExecutor

	consumers []*mq.Consumer

	// sem ограничивает число одновременных executions
	sem chan struct{}

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// MQ
	Conn *mq.Connection

	// Registry — типы процессов, которые worker умеет выполнять.
	Registry *process.Registry

	// Executor выполняет конвейер процесса.
	Executor *executor.ProcessExecutor

	// Concurrency — максимум одновременных executions (default: 4).
	Concurrency int

	// Prefetch — prefetch на каждую run-очередь (default: 1).
	Prefetch int

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Worker{
		conn:     cfg.Conn,
		registry: cfg.Registry,
		executor: cfg.Executor,
		sem:      make(chan struct{}, concurrency),
		logger:   logger,
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	for _, def := range cfg.Registry.Definitions() {
		w.consumers = append(w.consumers, mq.NewConsumer(cfg.Conn, logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueForRun(def.Binding)),
			Handler:  w.handleRunRequest,
			Prefetch: prefetch,
		}))
	}

	return w
}

// Start запускает consumers всех run-очередей.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"queues", len(w.consumers),
		"concurrency", cap(w.sem),
	)

	for _, consumer := range w.consumers {
		c := consumer
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("run consumer error", "error", err)
			}
		}()
	}

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker и дожидается активных executions.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	for _, consumer := range w.consumers {
		consumer.Stop()
	}

	// Ждём завершения горутин, включая активные executions
	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}
