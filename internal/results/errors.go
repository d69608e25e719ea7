package results

import "errors"

var (
	// ErrUnsupportedResultKind — для kind нет зарегистрированного провайдера.
	ErrUnsupportedResultKind = errors.New("unsupported result kind")

	// ErrDuplicateResultKind — провайдер для kind уже зарегистрирован.
	ErrDuplicateResultKind = errors.New("result kind already registered")

	// ErrResultNotFound — результат отсутствует в хранилище.
	ErrResultNotFound = errors.New("result not found")
)
