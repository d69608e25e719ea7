package process

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/Gridflow/internal/domain"
	"github.com/shaiso/Gridflow/internal/grid"
	"github.com/shaiso/Gridflow/internal/mq"
	"github.com/shaiso/Gridflow/internal/reports"
)

// ErrNetworkNotLoaded — шаг требует сеть, но LOAD_NETWORK её не оставил.
var ErrNetworkNotLoaded = errors.New("network not loaded")

// Collaborators — внешние сервисы, нужные конвейерам.
type Collaborators struct {
	Loader  grid.NetworkLoader
	Applier grid.ModificationApplier

	// Движки по типам процессов.
	SecurityAnalysisEngine    grid.ComputationEngine
	LoadFlowEngine            grid.ComputationEngine
	SensitivityAnalysisEngine grid.ComputationEngine
}

// RegisterAll регистрирует все поддерживаемые типы процессов.
func RegisterAll(registry *Registry, c Collaborators) error {
	defs := []Definition{
		securityAnalysisDefinition(c),
		loadFlowDefinition(c),
		sensitivityAnalysisDefinition(c),
	}

	for _, def := range defs {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func securityAnalysisDefinition(c Collaborators) Definition {
	return Definition{
		Type:    domain.ProcessSecurityAnalysis,
		Binding: mq.RoutingKeySecurityAnalysis,
		DecodeConfig: func(raw json.RawMessage) (domain.ProcessConfig, error) {
			var cfg domain.SecurityAnalysisConfig
			if err := decodeConfig(raw, &cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Steps: pipeline(c, c.SecurityAnalysisEngine),
	}
}

func loadFlowDefinition(c Collaborators) Definition {
	return Definition{
		Type:    domain.ProcessLoadFlow,
		Binding: mq.RoutingKeyLoadFlow,
		DecodeConfig: func(raw json.RawMessage) (domain.ProcessConfig, error) {
			var cfg domain.LoadFlowConfig
			if err := decodeConfig(raw, &cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Steps: pipeline(c, c.LoadFlowEngine),
	}
}

func sensitivityAnalysisDefinition(c Collaborators) Definition {
	return Definition{
		Type:    domain.ProcessSensitivityAnalysis,
		Binding: mq.RoutingKeySensitivityAnalysis,
		DecodeConfig: func(raw json.RawMessage) (domain.ProcessConfig, error) {
			var cfg domain.SensitivityAnalysisConfig
			if err := decodeConfig(raw, &cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Steps: pipeline(c, c.SensitivityAnalysisEngine),
	}
}

// pipeline собирает стандартный конвейер
// LOAD_NETWORK -> APPLY_MODIFICATIONS -> RUN_COMPUTATION.
func pipeline(c Collaborators, engine grid.ComputationEngine) []StepDefinition {
	return []StepDefinition{
		{
			Type: domain.StepLoadNetwork,
			Run: func(ctx context.Context, ec *Context) error {
				network, err := c.Loader.LoadNetwork(ctx, ec.CaseID())
				if err != nil {
					return err
				}
				ec.Network = network
				ec.Report.Add(fmt.Sprintf("network loaded from case %s", ec.CaseID()), reports.SeverityInfo)
				return nil
			},
		},
		{
			Type: domain.StepApplyModifications,
			Run: func(ctx context.Context, ec *Context) error {
				if ec.Network == nil {
					return ErrNetworkNotLoaded
				}

				modIDs := modificationIDs(ec.Config)
				if len(modIDs) == 0 {
					ec.Report.Add("no modifications to apply", reports.SeverityInfo)
					return nil
				}

				c.Applier.Apply(ctx, ec.Network, modIDs, ec.Report)
				return nil
			},
		},
		{
			Type: domain.StepRunComputation,
			Run: func(ctx context.Context, ec *Context) error {
				if ec.Network == nil {
					return ErrNetworkNotLoaded
				}

				result, err := engine.Run(ctx, ec.Network, ec.Config, ec.Report)
				if err != nil {
					return err
				}
				ec.SetResult(result)
				return nil
			},
		},
	}
}

// modificationIDs достаёт список модификаций из варианта конфигурации.
func modificationIDs(config domain.ProcessConfig) []uuid.UUID {
	switch cfg := config.(type) {
	case domain.SecurityAnalysisConfig:
		return cfg.ModificationIDs
	case domain.LoadFlowConfig:
		return cfg.ModificationIDs
	case domain.SensitivityAnalysisConfig:
		return cfg.ModificationIDs
	default:
		return nil
	}
}

func decodeConfig(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return errors.New("empty process config")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode process config: %w", err)
	}
	return nil
}
