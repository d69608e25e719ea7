package domain

import (
	"github.com/google/uuid"
)

// ProcessType — тег, идентифицирующий определение процесса.
//
// Каждому типу соответствует ровно один упорядоченный список шагов
// и одно имя binding'а в транспорте (см. internal/process).
type ProcessType string

const (
	// ProcessSecurityAnalysis — анализ надёжности сети (N-1 и контингенции).
	ProcessSecurityAnalysis ProcessType = "SECURITY_ANALYSIS"

	// ProcessLoadFlow — расчёт установившегося режима.
	ProcessLoadFlow ProcessType = "LOAD_FLOW"

	// ProcessSensitivityAnalysis — анализ чувствительности.
	ProcessSensitivityAnalysis ProcessType = "SENSITIVITY_ANALYSIS"
)

// StepType — тег типа шага внутри конвейера процесса.
type StepType string

const (
	// StepLoadNetwork — загрузка сетевой модели по case id.
	StepLoadNetwork StepType = "LOAD_NETWORK"

	// StepApplyModifications — применение модификаций сети (best-effort).
	StepApplyModifications StepType = "APPLY_MODIFICATIONS"

	// StepRunComputation — запуск вычислительного движка.
	StepRunComputation StepType = "RUN_COMPUTATION"
)

// ProcessConfig — полиморфная конфигурация процесса: один вариант на ProcessType.
//
// Конфигурация неизменяема после присвоения execution id.
// Декодирование из JSON по тегу типа выполняет process.Registry.
type ProcessConfig interface {
	// ProcessType возвращает тег типа процесса.
	ProcessType() ProcessType

	// CaseID возвращает ссылку на case (сетевую модель).
	CaseID() uuid.UUID
}

// SecurityAnalysisConfig — конфигурация процесса SECURITY_ANALYSIS.
type SecurityAnalysisConfig struct {
	// Case — идентификатор case (сетевой модели).
	Case uuid.UUID `json:"case_id"`

	// ParametersID — идентификатор набора параметров анализа.
	ParametersID uuid.UUID `json:"parameters_id"`

	// ContingencyListIDs — списки контингенций для анализа.
	ContingencyListIDs []uuid.UUID `json:"contingency_list_ids,omitempty"`

	// ModificationIDs — модификации сети, применяемые перед расчётом.
	ModificationIDs []uuid.UUID `json:"modification_ids,omitempty"`
}

func (c SecurityAnalysisConfig) ProcessType() ProcessType { return ProcessSecurityAnalysis }
func (c SecurityAnalysisConfig) CaseID() uuid.UUID        { return c.Case }

// LoadFlowConfig — конфигурация процесса LOAD_FLOW.
type LoadFlowConfig struct {
	// Case — идентификатор case (сетевой модели).
	Case uuid.UUID `json:"case_id"`

	// ParametersID — идентификатор набора параметров расчёта.
	ParametersID uuid.UUID `json:"parameters_id"`

	// ModificationIDs — модификации сети, применяемые перед расчётом.
	ModificationIDs []uuid.UUID `json:"modification_ids,omitempty"`
}

func (c LoadFlowConfig) ProcessType() ProcessType { return ProcessLoadFlow }
func (c LoadFlowConfig) CaseID() uuid.UUID        { return c.Case }

// SensitivityAnalysisConfig — конфигурация процесса SENSITIVITY_ANALYSIS.
type SensitivityAnalysisConfig struct {
	// Case — идентификатор case (сетевой модели).
	Case uuid.UUID `json:"case_id"`

	// ParametersID — идентификатор набора параметров анализа.
	ParametersID uuid.UUID `json:"parameters_id"`

	// VariableSetIDs — наборы переменных для анализа чувствительности.
	VariableSetIDs []uuid.UUID `json:"variable_set_ids,omitempty"`

	// ModificationIDs — модификации сети, применяемые перед расчётом.
	ModificationIDs []uuid.UUID `json:"modification_ids,omitempty"`
}

func (c SensitivityAnalysisConfig) ProcessType() ProcessType { return ProcessSensitivityAnalysis }
func (c SensitivityAnalysisConfig) CaseID() uuid.UUID        { return c.Case }
