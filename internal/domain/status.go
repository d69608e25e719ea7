package domain

// ExecutionStatus — статус выполнения execution.
//
// Жизненный цикл:
//
//	SCHEDULED → RUNNING → COMPLETED
//	                    ↘ FAILED
//
// Терминальный статус (COMPLETED/FAILED) достигается не более одного раза
// и никогда не откатывается назад.
type ExecutionStatus string

const (
	// ExecutionStatusScheduled — execution принят, но ещё не начал выполняться.
	ExecutionStatusScheduled ExecutionStatus = "SCHEDULED"

	// ExecutionStatusRunning — execution в процессе выполнения на worker'е.
	ExecutionStatusRunning ExecutionStatus = "RUNNING"

	// ExecutionStatusCompleted — все шаги завершились успешно.
	ExecutionStatusCompleted ExecutionStatus = "COMPLETED"

	// ExecutionStatusFailed — хотя бы один шаг завершился с ошибкой.
	ExecutionStatusFailed ExecutionStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed:
		return true
	default:
		return false
	}
}

// StepStatus — статус выполнения шага.
//
// Жизненный цикл:
//
//	SCHEDULED → RUNNING → COMPLETED
//	                    ↘ FAILED
//	SCHEDULED → SKIPPED
//
// Других переходов нет. После FAILED все последующие шаги
// конвейера получают SKIPPED и никогда не выполняются.
type StepStatus string

const (
	// StepStatusScheduled — шаг запланирован, ещё не выполнялся.
	StepStatusScheduled StepStatus = "SCHEDULED"

	// StepStatusRunning — шаг выполняется.
	StepStatusRunning StepStatus = "RUNNING"

	// StepStatusCompleted — шаг успешно завершён.
	StepStatusCompleted StepStatus = "COMPLETED"

	// StepStatusFailed — шаг завершился с ошибкой.
	StepStatusFailed StepStatus = "FAILED"

	// StepStatusSkipped — шаг пропущен из-за ошибки предыдущего шага.
	StepStatusSkipped StepStatus = "SKIPPED"
)

// IsTerminal возвращает true, если статус финальный для шага.
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StepStatusCompleted, StepStatusFailed, StepStatusSkipped:
		return true
	default:
		return false
	}
}
