package process

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/Gridflow/internal/domain"
	"github.com/shaiso/Gridflow/internal/grid"
	"github.com/shaiso/Gridflow/internal/reports"
)

type stubLoader struct {
	network *grid.Network
	err     error
}

func (s *stubLoader) LoadNetwork(_ context.Context, caseID uuid.UUID) (*grid.Network, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.network != nil {
		return s.network, nil
	}
	return &grid.Network{CaseID: caseID, Format: "xiidm", Data: []byte("net")}, nil
}

type stubApplier struct {
	applied [][]uuid.UUID
}

func (s *stubApplier) Apply(_ context.Context, _ *grid.Network, modificationIDs []uuid.UUID, report *reports.Node) {
	s.applied = append(s.applied, modificationIDs)
}

type stubEngine struct {
	result domain.ResultInfos
	err    error
}

func (s *stubEngine) Run(_ context.Context, _ *grid.Network, _ domain.ProcessConfig, _ *reports.Node) (domain.ResultInfos, error) {
	if s.err != nil {
		return domain.ResultInfos{}, s.err
	}
	return s.result, nil
}

func testCollaborators() Collaborators {
	return Collaborators{
		Loader:                    &stubLoader{},
		Applier:                   &stubApplier{},
		SecurityAnalysisEngine:    &stubEngine{},
		LoadFlowEngine:            &stubEngine{},
		SensitivityAnalysisEngine: &stubEngine{},
	}
}

func TestRegistryRegisterAll(t *testing.T) {
	registry := NewRegistry()

	if err := RegisterAll(registry, testCollaborators()); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}

	for _, pt := range []domain.ProcessType{
		domain.ProcessSecurityAnalysis,
		domain.ProcessLoadFlow,
		domain.ProcessSensitivityAnalysis,
	} {
		def, err := registry.Definition(pt)
		if err != nil {
			t.Fatalf("Definition(%s): %v", pt, err)
		}
		if def.Type != pt {
			t.Errorf("definition type = %s, want %s", def.Type, pt)
		}
		if len(def.Steps) != 3 {
			t.Fatalf("%s: got %d steps, want 3", pt, len(def.Steps))
		}
		wantSteps := []domain.StepType{
			domain.StepLoadNetwork,
			domain.StepApplyModifications,
			domain.StepRunComputation,
		}
		for i, want := range wantSteps {
			if def.Steps[i].Type != want {
				t.Errorf("%s: step %d = %s, want %s", pt, i, def.Steps[i].Type, want)
			}
		}
	}
}

func TestRegistryDuplicate(t *testing.T) {
	registry := NewRegistry()

	def := Definition{Type: domain.ProcessLoadFlow}
	if err := registry.Register(def); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	err := registry.Register(def)
	if !errors.Is(err, ErrDuplicateProcessType) {
		t.Fatalf("second Register: got %v, want ErrDuplicateProcessType", err)
	}
}

func TestRegistryUnknownType(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Definition("SHORT_CIRCUIT")
	if !errors.Is(err, ErrUnsupportedProcessType) {
		t.Fatalf("got %v, want ErrUnsupportedProcessType", err)
	}
}

func TestDecodeConfig(t *testing.T) {
	registry := NewRegistry()
	if err := RegisterAll(registry, testCollaborators()); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}

	caseID := uuid.New()
	raw, err := json.Marshal(domain.LoadFlowConfig{
		Case:         caseID,
		ParametersID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}

	def, err := registry.Definition(domain.ProcessLoadFlow)
	if err != nil {
		t.Fatalf("Definition: %v", err)
	}

	cfg, err := def.DecodeConfig(raw)
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if cfg.ProcessType() != domain.ProcessLoadFlow {
		t.Errorf("process type = %s, want %s", cfg.ProcessType(), domain.ProcessLoadFlow)
	}
	if cfg.CaseID() != caseID {
		t.Errorf("case id = %s, want %s", cfg.CaseID(), caseID)
	}
}

func TestDecodeConfigEmpty(t *testing.T) {
	registry := NewRegistry()
	if err := RegisterAll(registry, testCollaborators()); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}

	def, err := registry.Definition(domain.ProcessSecurityAnalysis)
	if err != nil {
		t.Fatalf("Definition: %v", err)
	}

	if _, err := def.DecodeConfig(nil); err == nil {
		t.Fatal("DecodeConfig(nil): expected error")
	}
}

func TestPipelineRunComputationSetsResult(t *testing.T) {
	engine := &stubEngine{result: domain.ResultInfos{
		ResultID: uuid.New(),
		Kind:     domain.ResultKindLoadFlow,
	}}

	c := testCollaborators()
	c.LoadFlowEngine = engine

	registry := NewRegistry()
	if err := RegisterAll(registry, c); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}

	def, err := registry.Definition(domain.ProcessLoadFlow)
	if err != nil {
		t.Fatalf("Definition: %v", err)
	}

	ec := NewContext(uuid.New(), domain.LoadFlowConfig{Case: uuid.New()})
	for _, step := range def.Steps {
		if err := step.Run(context.Background(), ec); err != nil {
			t.Fatalf("step %s: %v", step.Type, err)
		}
	}

	result := ec.TakeResult()
	if result == nil {
		t.Fatal("expected result after RUN_COMPUTATION")
	}
	if result.ResultID != engine.result.ResultID {
		t.Errorf("result id = %s, want %s", result.ResultID, engine.result.ResultID)
	}
	if ec.TakeResult() != nil {
		t.Error("TakeResult must clear the pending result")
	}
}
