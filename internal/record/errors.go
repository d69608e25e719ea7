package record

import "errors"

var (
	// ErrUnknownExecution — уведомление ссылается на execution,
	// которого нет в store. Для step.status это нарушение протокола:
	// снапшот шагов обязан приходить раньше.
	ErrUnknownExecution = errors.New("unknown execution")

	// ErrExecutionNotTerminal — удаление возможно только для
	// execution в терминальном статусе.
	ErrExecutionNotTerminal = errors.New("execution is not terminal")
)
