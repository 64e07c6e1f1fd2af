package fixer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/steveyegge/mechanic/internal/knowledge"
)

func newTestExecutor(t *testing.T, cooldown time.Duration, actions ...Action) *Executor {
	t.Helper()
	store, err := knowledge.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	registry, err := NewRegistry(actions...)
	if err != nil {
		t.Fatal(err)
	}
	return NewExecutor(registry, store, 2*time.Second, cooldown)
}

func TestApplyRunsHandler(t *testing.T) {
	ran := false
	var seen Context
	x := newTestExecutor(t, 0, Action{
		Name:     "retry",
		Category: knowledge.CategoryBuild,
		Handler: func(ctx context.Context, fctx Context) error {
			ran = true
			seen = fctx
			return nil
		},
	})

	result, err := x.Apply(context.Background(), "retry", Context{
		Agent: "furiosa", Project: "citadel", PatternID: "abc123def456",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Fatal("handler did not run")
	}
	if seen.Agent != "furiosa" || seen.PatternID != "abc123def456" {
		t.Errorf("handler context = %+v", seen)
	}
	if result.Failed() {
		t.Errorf("result.Failed() = true: %v", result.Err)
	}
	if result.ID == "" || result.Action != "retry" {
		t.Errorf("result = %+v, want an ID and the action name", result)
	}
}

func TestApplyUnknownAction(t *testing.T) {
	x := newTestExecutor(t, 0, Action{Name: "retry", Category: knowledge.CategoryBuild, Handler: noop})
	if _, err := x.Apply(context.Background(), "reformat", Context{PatternID: "p"}); err == nil {
		t.Fatal("unknown action must be an error")
	}
}

func TestApplyHandlerError(t *testing.T) {
	boom := errors.New("disk full")
	x := newTestExecutor(t, 0, Action{
		Name:     "retry",
		Category: knowledge.CategoryBuild,
		Handler:  func(context.Context, Context) error { return boom },
	})

	result, err := x.Apply(context.Background(), "retry", Context{PatternID: "p"})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Failed() {
		t.Fatal("handler error should mark the result failed")
	}
	if !errors.Is(result.Err, boom) {
		t.Errorf("result.Err = %v, want the handler's error", result.Err)
	}
	if result.TimedOut {
		t.Error("a plain handler error is not a timeout")
	}
}

func TestApplyTimeout(t *testing.T) {
	store, err := knowledge.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	registry, err := NewRegistry(Action{
		Name:     "slow",
		Category: knowledge.CategoryBuild,
		Handler: func(ctx context.Context, fctx Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	x := NewExecutor(registry, store, 20*time.Millisecond, 0)

	result, err := x.Apply(context.Background(), "slow", Context{PatternID: "p"})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Failed() || !result.TimedOut {
		t.Errorf("Failed=%v TimedOut=%v, want both true", result.Failed(), result.TimedOut)
	}
}

func TestApplyCooldown(t *testing.T) {
	x := newTestExecutor(t, time.Minute, Action{Name: "retry", Category: knowledge.CategoryBuild, Handler: noop})

	base := time.Now()
	x.now = func() time.Time { return base }
	if _, err := x.Apply(context.Background(), "retry", Context{PatternID: "p1"}); err != nil {
		t.Fatal(err)
	}

	// Same signature and action inside the window is refused.
	x.now = func() time.Time { return base.Add(30 * time.Second) }
	_, err := x.Apply(context.Background(), "retry", Context{PatternID: "p1"})
	if !errors.Is(err, ErrCooldown) {
		t.Fatalf("err = %v, want ErrCooldown", err)
	}

	// A different signature is unaffected.
	if _, err := x.Apply(context.Background(), "retry", Context{PatternID: "p2"}); err != nil {
		t.Errorf("different signature hit the cooldown: %v", err)
	}

	// Past the window the original pair runs again.
	x.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := x.Apply(context.Background(), "retry", Context{PatternID: "p1"}); err != nil {
		t.Errorf("cooldown did not expire: %v", err)
	}
}

func TestResetCooldown(t *testing.T) {
	x := newTestExecutor(t, time.Hour, Action{Name: "retry", Category: knowledge.CategoryBuild, Handler: noop})

	if _, err := x.Apply(context.Background(), "retry", Context{PatternID: "p1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := x.Apply(context.Background(), "retry", Context{PatternID: "p1"}); !errors.Is(err, ErrCooldown) {
		t.Fatalf("err = %v, want ErrCooldown", err)
	}

	x.ResetCooldown("p1", "retry")
	if _, err := x.Apply(context.Background(), "retry", Context{PatternID: "p1"}); err != nil {
		t.Errorf("Apply after ResetCooldown: %v", err)
	}
}

func TestRecordOutcomes(t *testing.T) {
	x := newTestExecutor(t, 0, Action{Name: "retry", Category: knowledge.CategoryBuild, Handler: noop})

	outcomes := []struct {
		outcome Outcome
		success bool
	}{
		{OutcomeResolved, true},
		{OutcomeUnresolved, false},
		{OutcomeAmbiguous, false},
	}
	for i, o := range outcomes {
		result, err := x.Apply(context.Background(), "retry", Context{PatternID: fmt.Sprintf("p%d", i)})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := x.Record(result, o.outcome); err != nil {
			t.Fatal(err)
		}
	}

	rec, err := x.store.GetFix("retry")
	if err != nil {
		t.Fatal(err)
	}
	if rec.TimesUsed != 3 || rec.Successes != 1 {
		t.Errorf("history = %d/%d, want 1 success in 3 uses (ambiguous scored as failure)",
			rec.Successes, rec.TimesUsed)
	}
}
