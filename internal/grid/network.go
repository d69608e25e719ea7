package grid

import (
	"context"

	"github.com/google/uuid"
	"github.com/shaiso/Gridflow/internal/domain"
	"github.com/shaiso/Gridflow/internal/reports"
)

// Network — непрозрачный handle загруженной сетевой модели.
//
// Содержимое принадлежит одному execution и никогда не разделяется
// между задачами.
type Network struct {
	// CaseID — case, из которого загружена модель.
	CaseID uuid.UUID

	// Format — формат сериализации модели (например, "xiidm").
	Format string

	// Data — сериализованная модель.
	Data []byte
}

// NetworkLoader загружает сетевую модель по case id.
// Ошибка загрузки поднимается как ошибка шага LOAD_NETWORK.
type NetworkLoader interface {
	LoadNetwork(ctx context.Context, caseID uuid.UUID) (*Network, error)
}

// ModificationApplier применяет модификации сети.
//
// Применение best-effort: ошибка отдельной модификации записывается
// в отчёт и не возвращается как ошибка шага.
type ModificationApplier interface {
	Apply(ctx context.Context, network *Network, modificationIDs []uuid.UUID, report *reports.Node)
}

// ComputationEngine — внешний вычислительный движок.
//
// Run выполняет расчёт над сетью и возвращает непрозрачный handle
// результата: payload сохраняется движком во внешнем хранилище,
// core получает только пару (result id, kind).
type ComputationEngine interface {
	Run(ctx context.Context, network *Network, config domain.ProcessConfig, report *reports.Node) (domain.ResultInfos, error)
}
