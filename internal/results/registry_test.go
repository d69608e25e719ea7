package results

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/Gridflow/internal/domain"
)

type memoryProvider struct {
	kind    domain.ResultKind
	objects map[uuid.UUID][]byte
}

func newMemoryProvider(kind domain.ResultKind) *memoryProvider {
	return &memoryProvider{kind: kind, objects: make(map[uuid.UUID][]byte)}
}

func (p *memoryProvider) Kind() domain.ResultKind {
	return p.kind
}

func (p *memoryProvider) GetResult(_ context.Context, resultID uuid.UUID) ([]byte, error) {
	data, ok := p.objects[resultID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResultNotFound, resultID)
	}
	return data, nil
}

func (p *memoryProvider) DeleteResult(_ context.Context, resultID uuid.UUID) error {
	delete(p.objects, resultID)
	return nil
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	registry := NewRegistry()

	provider := newMemoryProvider(domain.ResultKindLoadFlow)
	if err := registry.Register(provider); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := registry.For(domain.ResultKindLoadFlow)
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	if got != Provider(provider) {
		t.Error("For must return the registered provider")
	}
}

func TestRegistryDuplicateKind(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register(newMemoryProvider(domain.ResultKindSecurityAnalysis)); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	err := registry.Register(newMemoryProvider(domain.ResultKindSecurityAnalysis))
	if !errors.Is(err, ErrDuplicateResultKind) {
		t.Fatalf("second Register: got %v, want ErrDuplicateResultKind", err)
	}
}

func TestRegistryUnsupportedKind(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.For("SHORT_CIRCUIT_RESULT")
	if !errors.Is(err, ErrUnsupportedResultKind) {
		t.Fatalf("got %v, want ErrUnsupportedResultKind", err)
	}
}

func TestMemoryProviderRoundTrip(t *testing.T) {
	provider := newMemoryProvider(domain.ResultKindSensitivity)
	resultID := uuid.New()
	provider.objects[resultID] = []byte("payload")

	data, err := provider.GetResult(context.Background(), resultID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("payload = %q", data)
	}

	if err := provider.DeleteResult(context.Background(), resultID); err != nil {
		t.Fatalf("DeleteResult: %v", err)
	}
	if _, err := provider.GetResult(context.Background(), resultID); !errors.Is(err, ErrResultNotFound) {
		t.Fatalf("after delete: got %v, want ErrResultNotFound", err)
	}
}
