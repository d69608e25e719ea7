package results

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/Gridflow/internal/domain"
)

// Provider — хранилище результатов одного ResultKind.
//
// Control plane не интерпретирует payload результата: провайдер
// отвечает за то, где и как он лежит.
type Provider interface {
	// Kind возвращает тег результатов, которыми владеет провайдер.
	Kind() domain.ResultKind

	// GetResult возвращает payload результата.
	GetResult(ctx context.Context, resultID uuid.UUID) ([]byte, error)

	// DeleteResult удаляет payload результата.
	// Отсутствующий результат не считается ошибкой.
	DeleteResult(ctx context.Context, resultID uuid.UUID) error
}

// Registry — реестр провайдеров результатов по ResultKind.
// Заполняется при старте сервиса и дальше только читается.
type Registry struct {
	providers map[domain.ResultKind]Provider
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[domain.ResultKind]Provider),
	}
}

// Register добавляет провайдера.
// Повторная регистрация kind — ошибка конфигурации сервиса.
func (r *Registry) Register(provider Provider) error {
	kind := provider.Kind()
	if _, ok := r.providers[kind]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateResultKind, kind)
	}
	r.providers[kind] = provider
	return nil
}

// For возвращает провайдера для kind.
// Незарегистрированный kind — явная ошибка, а не тихий пропуск.
func (r *Registry) For(kind domain.ResultKind) (Provider, error) {
	provider, ok := r.providers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedResultKind, kind)
	}
	return provider, nil
}
