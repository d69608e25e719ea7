package process

import (
	"context"
	"encoding/json"

	"github.com/shaiso/Gridflow/internal/domain"
	"github.com/shaiso/Gridflow/internal/mq"
)

// StepDefinition — один шаг конвейера: тип и функция выполнения.
type StepDefinition struct {
	// Type — тип шага.
	Type domain.StepType

	// Run выполняет шаг над контекстом execution.
	Run func(ctx context.Context, ec *Context) error
}

// Definition — описание типа процесса: очередь запуска, декодер
// конфигурации и конвейер шагов.
type Definition struct {
	// Type — тип процесса.
	Type domain.ProcessType

	// Binding — routing key очереди, из которой worker берёт
	// запросы этого типа.
	Binding mq.RoutingKey

	// DecodeConfig разбирает сырую конфигурацию запроса.
	DecodeConfig func(raw json.RawMessage) (domain.ProcessConfig, error)

	// Steps — конвейер шагов в порядке выполнения.
	Steps []StepDefinition
}
