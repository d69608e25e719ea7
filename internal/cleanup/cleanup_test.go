package cleanup

import (
	"context"
	"errors"
	"testing"
)

func TestAttemptAllSuccess(t *testing.T) {
	calls := 0
	attempts := []Attempt{
		{Name: "a", Fn: func(context.Context) error { calls++; return nil }},
		{Name: "b", Fn: func(context.Context) error { calls++; return nil }},
	}

	outcomes, err := AttemptAll(context.Background(), attempts)
	if err != nil {
		t.Fatalf("AttemptAll: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	for _, o := range outcomes {
		if o.Err != nil {
			t.Errorf("attempt %s: %v", o.Name, o.Err)
		}
	}
}

func TestAttemptAllContinuesAfterFailure(t *testing.T) {
	boom := errors.New("boom")
	calls := map[string]int{}
	fn := func(name string, err error) Attempt {
		return Attempt{Kind: "artifact", Name: name, Fn: func(context.Context) error {
			calls[name]++
			return err
		}}
	}

	attempts := []Attempt{
		fn("first", nil),
		fn("second", boom),
		fn("third", nil),
		fn("fourth", nil),
	}

	outcomes, err := AttemptAll(context.Background(), attempts)
	if !errors.Is(err, ErrPartialCleanup) {
		t.Fatalf("got %v, want ErrPartialCleanup", err)
	}
	if len(outcomes) != 4 {
		t.Fatalf("got %d outcomes, want 4", len(outcomes))
	}

	// Каждая попытка выполняется ровно один раз, невзирая на ошибку
	for _, name := range []string{"first", "second", "third", "fourth"} {
		if calls[name] != 1 {
			t.Errorf("attempt %s called %d times, want 1", name, calls[name])
		}
	}
	if !errors.Is(outcomes[1].Err, boom) {
		t.Errorf("second outcome err = %v, want boom", outcomes[1].Err)
	}
	if outcomes[1].Kind != "artifact" || outcomes[1].Name != "second" {
		t.Errorf("outcome must carry kind and name, got %q/%q", outcomes[1].Kind, outcomes[1].Name)
	}
	if outcomes[0].Err != nil || outcomes[2].Err != nil || outcomes[3].Err != nil {
		t.Error("only the second attempt must fail")
	}
}

func TestAttemptAllEmpty(t *testing.T) {
	outcomes, err := AttemptAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("AttemptAll: %v", err)
	}
	if len(outcomes) != 0 {
		t.Errorf("got %d outcomes, want 0", len(outcomes))
	}
}
