package process

import (
	"errors"
	"fmt"

	"github.com/shaiso/Gridflow/internal/domain"
)

var (
	// ErrUnsupportedProcessType — тип процесса не зарегистрирован.
	ErrUnsupportedProcessType = errors.New("unsupported process type")

	// ErrDuplicateProcessType — тип процесса уже зарегистрирован.
	ErrDuplicateProcessType = errors.New("process type already registered")
)

// Registry — реестр типов процессов. Заполняется при старте
// сервиса и дальше только читается.
type Registry struct {
	definitions map[domain.ProcessType]Definition
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		definitions: make(map[domain.ProcessType]Definition),
	}
}

// Register добавляет описание типа процесса.
// Повторная регистрация того же типа — ошибка конфигурации сервиса.
func (r *Registry) Register(def Definition) error {
	if _, ok := r.definitions[def.Type]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProcessType, def.Type)
	}
	r.definitions[def.Type] = def
	return nil
}

// Definition возвращает описание типа процесса.
func (r *Registry) Definition(processType domain.ProcessType) (Definition, error) {
	def, ok := r.definitions[processType]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnsupportedProcessType, processType)
	}
	return def, nil
}

// Definitions возвращает все зарегистрированные описания.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.definitions))
	for _, def := range r.definitions {
		defs = append(defs, def)
	}
	return defs
}
