package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — дискриминатор вида сообщения.
type MessageType string

// Виды сообщений.
const (
	// MessageTypeRunRequested — run-запрос control plane → worker.
	MessageTypeRunRequested MessageType = "run.requested"

	// Три вида уведомлений worker → control plane (см. internal/notify).
	MessageTypeExecutionStatus MessageType = "execution.status"
	MessageTypeStepStatus      MessageType = "step.status"
	MessageTypeStepsSnapshot   MessageType = "steps.snapshot"
)

// Message — конверт сообщения.
//
// Каждое сообщение несёт execution id как ключ корреляции и
// дискриминатор Type; транспорт не гарантирует порядок доставки
// между сообщениями одного execution.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — вид сообщения.
	Type MessageType `json:"type"`

	// ExecutionID — ключ корреляции.
	ExecutionID uuid.UUID `json:"execution_id"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// RunRequestPayload — payload run-запроса.
//
// Config — JSON конфигурации процесса; декодируется worker'ом
// через process.Registry по тегу ProcessType.
type RunRequestPayload struct {
	ExecutionID uuid.UUID       `json:"execution_id"`
	ProcessType string          `json:"process_type"`
	Config      json.RawMessage `json:"config"`
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:   "application/json",
				DeliveryMode:  amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:     msg.ID,
				CorrelationId: msg.ExecutionID.String(),
				Timestamp:     msg.Timestamp,
				Body:          body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"execution_id", msg.ExecutionID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishRunRequest публикует run-запрос в очередь worker'ов
// с routing key, соответствующим binding'у типа процесса.
// Потребитель: Worker.
func (p *Publisher) PublishRunRequest(ctx context.Context, routingKey RoutingKey, payload RunRequestPayload) error {
	msg := &Message{
		ID:          uuid.New().String(),
		Type:        MessageTypeRunRequested,
		ExecutionID: payload.ExecutionID,
		Payload:     payload,
		Timestamp:   time.Now(),
	}

	return p.Publish(ctx, ExchangeRuns, routingKey, msg)
}

// PublishStatus публикует уведомление о статусе в очередь control plane.
// Потребитель: Recorder.
func (p *Publisher) PublishStatus(ctx context.Context, msgType MessageType, executionID uuid.UUID, payload any) error {
	msg := &Message{
		ID:          uuid.New().String(),
		Type:        msgType,
		ExecutionID: executionID,
		Payload:     payload,
		Timestamp:   time.Now(),
	}

	return p.Publish(ctx, ExchangeStatus, RoutingKeyStatus, msg)
}
