package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/shaiso/Gridflow/internal/domain"
	"github.com/shaiso/Gridflow/internal/mq"
	"github.com/shaiso/Gridflow/internal/telemetry"
)

// AMQPNotificator — Notificator поверх RabbitMQ publisher'а.
type AMQPNotificator struct {
	publisher *mq.Publisher
}

// NewAMQP создаёт Notificator, публикующий в gridflow.status.
func NewAMQP(publisher *mq.Publisher) *AMQPNotificator {
	return &AMQPNotificator{publisher: publisher}
}

// NotifyExecutionStatus отправляет переход статуса execution.
func (n *AMQPNotificator) NotifyExecutionStatus(ctx context.Context, update ExecutionStatusUpdate) error {
	err := n.publisher.PublishStatus(ctx, mq.MessageTypeExecutionStatus, update.ExecutionID, update)
	telemetry.ObserveNotification(string(mq.MessageTypeExecutionStatus), err)
	return err
}

// NotifyStepStatus отправляет переход статуса одного шага.
func (n *AMQPNotificator) NotifyStepStatus(ctx context.Context, executionID uuid.UUID, step domain.Step) error {
	payload := StepStatusUpdate{ExecutionID: executionID, Step: step}
	err := n.publisher.PublishStatus(ctx, mq.MessageTypeStepStatus, executionID, payload)
	telemetry.ObserveNotification(string(mq.MessageTypeStepStatus), err)
	return err
}

// NotifyStepsSnapshot отправляет полный снапшот шагов execution.
func (n *AMQPNotificator) NotifyStepsSnapshot(ctx context.Context, snapshot StepsSnapshot) error {
	err := n.publisher.PublishStatus(ctx, mq.MessageTypeStepsSnapshot, snapshot.ExecutionID, snapshot)
	telemetry.ObserveNotification(string(mq.MessageTypeStepsSnapshot), err)
	return err
}
