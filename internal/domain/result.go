package domain

import "github.com/google/uuid"

// ResultKind — тег, определяющий провайдера хранения результата.
//
// Control plane знает о результате только пару (result id, kind);
// сам payload живёт во внешнем хранилище, доступном через
// results.Registry по этому тегу.
type ResultKind string

const (
	// ResultKindSecurityAnalysis — результат анализа надёжности.
	ResultKindSecurityAnalysis ResultKind = "SECURITY_ANALYSIS_RESULT"

	// ResultKindLoadFlow — результат расчёта установившегося режима.
	ResultKindLoadFlow ResultKind = "LOAD_FLOW_RESULT"

	// ResultKindSensitivity — результат анализа чувствительности.
	ResultKindSensitivity ResultKind = "SENSITIVITY_RESULT"
)

// ResultInfos — ссылка на внешне хранимый результат шага.
type ResultInfos struct {
	// ResultID — непрозрачный идентификатор результата.
	ResultID uuid.UUID `json:"result_id"`

	// Kind — тег провайдера, владеющего хранением этого результата.
	Kind ResultKind `json:"kind"`
}
