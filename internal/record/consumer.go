package record

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shaiso/Gridflow/internal/mq"
	"github.com/shaiso/Gridflow/internal/notify"
)

// Recorder применяет уведомления из очереди execution.status к Store.
//
// Очередь без DLQ: применение идемпотентно, повторная доставка
// безопасна. Нарушения протокола (неизвестный вид сообщения,
// step.status для неизвестного execution, битый payload) логируются
// и отбрасываются — requeue им не поможет.
type Recorder struct {
	store  *Store
	logger *slog.Logger
}

// NewRecorder создаёт обработчик уведомлений.
func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Handle — mq.Handler для очереди execution.status.
func (r *Recorder) Handle(ctx context.Context, d *mq.Delivery) error {
	switch d.Message.Type {
	case mq.MessageTypeStepsSnapshot:
		snapshot, err := mq.ParsePayload[notify.StepsSnapshot](&d.Message)
		if err != nil {
			r.drop(&d.Message, err)
			return nil
		}
		return r.store.ApplySnapshot(ctx, snapshot)

	case mq.MessageTypeExecutionStatus:
		update, err := mq.ParsePayload[notify.ExecutionStatusUpdate](&d.Message)
		if err != nil {
			r.drop(&d.Message, err)
			return nil
		}
		if err := r.store.ApplyExecutionStatus(ctx, update); err != nil {
			if errors.Is(err, ErrUnknownExecution) {
				r.drop(&d.Message, err)
				return nil
			}
			return err
		}
		return nil

	case mq.MessageTypeStepStatus:
		update, err := mq.ParsePayload[notify.StepStatusUpdate](&d.Message)
		if err != nil {
			r.drop(&d.Message, err)
			return nil
		}
		if err := r.store.ApplyStepStatus(ctx, update); err != nil {
			if errors.Is(err, ErrUnknownExecution) {
				r.drop(&d.Message, err)
				return nil
			}
			return err
		}
		return nil

	default:
		r.drop(&d.Message, errors.New("unexpected message type"))
		return nil
	}
}

func (r *Recorder) drop(msg *mq.Message, err error) {
	r.logger.Error("status notification dropped",
		"message_id", msg.ID,
		"execution_id", msg.ExecutionID,
		"type", msg.Type,
		"error", err,
	)
}
