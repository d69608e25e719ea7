package cleanup

import (
	"context"
	"errors"
	"fmt"
)

// ErrPartialCleanup — хотя бы одна попытка очистки не удалась.
var ErrPartialCleanup = errors.New("partial cleanup")

// Attempt — одна именованная попытка удаления внешнего артефакта.
type Attempt struct {
	// Kind — вид артефакта (ограниченный набор, пригоден для метрик).
	Kind string

	// Name — человекочитаемое имя артефакта для логов и отчёта.
	Name string

	// Fn выполняет удаление.
	Fn func(ctx context.Context) error
}

// Outcome — исход одной попытки.
type Outcome struct {
	// Kind — вид артефакта из Attempt.
	Kind string

	// Name — имя артефакта из Attempt.
	Name string

	// Err — ошибка удаления, nil при успехе.
	Err error
}

// AttemptAll выполняет все попытки по порядку, не останавливаясь
// на ошибках: каждая попытка делается ровно один раз независимо от
// исхода остальных.
//
// Возвращает исходы всех попыток и агрегированную ошибку
// (ErrPartialCleanup), если хотя бы одна попытка не удалась.
func AttemptAll(ctx context.Context, attempts []Attempt) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(attempts))

	failed := 0
	for _, attempt := range attempts {
		err := attempt.Fn(ctx)
		if err != nil {
			failed++
		}
		outcomes = append(outcomes, Outcome{Kind: attempt.Kind, Name: attempt.Name, Err: err})
	}

	if failed > 0 {
		return outcomes, fmt.Errorf("%w: %d of %d attempts failed", ErrPartialCleanup, failed, len(attempts))
	}
	return outcomes, nil
}
