package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	// ExchangeRuns — run-запросы от control plane к worker'ам.
	ExchangeRuns Exchange = "gridflow.runs"

	// ExchangeStatus — уведомления о статусе от worker'ов к control plane.
	ExchangeStatus Exchange = "gridflow.status"

	// ExchangeDLQ — dead letter exchange.
	ExchangeDLQ Exchange = "gridflow.dlq"
)

// Queues — имена очередей.
const (
	// Очереди run-запросов: по одной на тип процесса.
	QueueRunSecurityAnalysis    Queue = "run.security-analysis"
	QueueRunLoadFlow            Queue = "run.load-flow"
	QueueRunSensitivityAnalysis Queue = "run.sensitivity-analysis"

	// QueueExecutionStatus — все уведомления о статусе execution/шагов.
	QueueExecutionStatus Queue = "execution.status"

	// QueueDLQRuns — run-запросы, которые не удалось обработать.
	QueueDLQRuns Queue = "dlq.runs"
)

// Routing keys. Ключи run-очередей совпадают с binding-именами
// типов процессов (см. process.Registry).
const (
	RoutingKeySecurityAnalysis    RoutingKey = "security-analysis"
	RoutingKeyLoadFlow            RoutingKey = "load-flow"
	RoutingKeySensitivityAnalysis RoutingKey = "sensitivity-analysis"
	RoutingKeyStatus              RoutingKey = "status"
	RoutingKeyDLQRuns             RoutingKey = "runs"
)

// QueueForRun возвращает run-очередь для binding'а типа процесса.
func QueueForRun(key RoutingKey) Queue {
	return Queue("run." + string(key))
}

// SetupTopology декларирует обменники, очереди и привязки.
// Вызывается каждым сервисом при старте; декларации идемпотентны.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}

		if err := declareQueues(ch); err != nil {
			return err
		}

		return bindQueues(ch)
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeRuns, "direct"},
		{ExchangeStatus, "direct"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	// Run-очереди с DLQ: необработанный run-запрос уходит в dlq.runs
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQRuns),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		{QueueRunSecurityAnalysis, dlqArgs},
		{QueueRunLoadFlow, dlqArgs},
		{QueueRunSensitivityAnalysis, dlqArgs},

		// execution.status — без DLQ: recorder идемпотентен,
		// повторная доставка безопасна
		{QueueExecutionStatus, nil},

		{QueueDLQRuns, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueRunSecurityAnalysis, RoutingKeySecurityAnalysis, ExchangeRuns},
		{QueueRunLoadFlow, RoutingKeyLoadFlow, ExchangeRuns},
		{QueueRunSensitivityAnalysis, RoutingKeySensitivityAnalysis, ExchangeRuns},
		{QueueExecutionStatus, RoutingKeyStatus, ExchangeStatus},
		{QueueDLQRuns, RoutingKeyDLQRuns, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Gridflow RabbitMQ Topology:

    gridflow.runs (direct)
    ├── run.security-analysis    [routing: security-analysis]
    ├── run.load-flow            [routing: load-flow]
    └── run.sensitivity-analysis [routing: sensitivity-analysis]
            Consumer: Worker
            DLQ: dlq.runs

    gridflow.status (direct)
    └── execution.status [routing: status]
            Consumer: Recorder (ExecutionRecordStore)

    gridflow.dlq (direct)
    └── dlq.runs [routing: runs]
            Manual processing
  `
}
