package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/Gridflow/internal/domain"
	"github.com/shaiso/Gridflow/internal/mq"
)

// handleRunRequest обрабатывает run-запрос из очереди.
//
// Выполнение запускается в отдельной горутине, сообщение
// подтверждается сразу после запуска: run-запрос не повторяется,
// единственный след выполнения — уведомления о статусе.
// Семафор ограничивает число одновременных executions; при
// заполнении handler блокируется, и очередь даёт backpressure.
func (w *Worker) handleRunRequest(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.RunRequestPayload](&delivery.Message)
	if err != nil {
		w.drop(delivery, fmt.Errorf("parse run request payload: %w", err))
		return nil
	}

	def, err := w.registry.Definition(domain.ProcessType(payload.ProcessType))
	if err != nil {
		w.drop(delivery, err)
		return nil
	}

	config, err := def.DecodeConfig(payload.Config)
	if err != nil {
		w.drop(delivery, err)
		return nil
	}

	// Ждём слот семафора
	select {
	case w.sem <- struct{}{}:
	case <-ctx.Done():
		// Останавливаемся: возвращаем сообщение в очередь
		return ctx.Err()
	}

	w.logger.Info("execution started",
		"execution_id", payload.ExecutionID,
		"process_type", def.Type,
		"case_id", config.CaseID(),
	)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() { <-w.sem }()

		start := time.Now()
		if err := w.executor.Run(ctx, payload.ExecutionID, def, config); err != nil {
			// Ошибка шага уже опубликована executor'ом; retry не делается
			w.logger.Warn("execution failed",
				"execution_id", payload.ExecutionID,
				"process_type", def.Type,
				"duration", time.Since(start),
				"error", err,
			)
		}
	}()

	return nil
}

// drop логирует нарушение протокола и отбрасывает сообщение.
// Повторная доставка такому сообщению не поможет.
func (w *Worker) drop(delivery *mq.Delivery, err error) {
	w.logger.Error("run request dropped",
		"message_id", delivery.Message.ID,
		"execution_id", delivery.Message.ExecutionID,
		"error", err,
	)
}
