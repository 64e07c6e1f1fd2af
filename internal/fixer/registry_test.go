package fixer

import (
	"context"
	"testing"

	"github.com/steveyegge/mechanic/internal/knowledge"
)

func noop(context.Context, Context) error { return nil }

func TestNewRegistryValidation(t *testing.T) {
	tests := []struct {
		name    string
		actions []Action
	}{
		{"empty name", []Action{{Name: "", Category: knowledge.CategoryBuild, Handler: noop}}},
		{"nil handler", []Action{{Name: "retry", Category: knowledge.CategoryBuild}}},
		{"duplicate name", []Action{
			{Name: "retry", Category: knowledge.CategoryBuild, Handler: noop},
			{Name: "retry", Category: knowledge.CategoryRuntime, Handler: noop},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.actions...); err == nil {
				t.Error("NewRegistry should reject the action set")
			}
		})
	}
}

func TestLookupUnknownAction(t *testing.T) {
	r, err := NewRegistry(Action{Name: "retry", Category: knowledge.CategoryBuild, Handler: noop})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Lookup("reformat"); err == nil {
		t.Error("Lookup of an unregistered action must error, not no-op")
	}
}

func TestCandidatesOrdering(t *testing.T) {
	r, err := NewRegistry(
		Action{Name: "clean_rebuild", Category: knowledge.CategoryBuild, Risk: 0.6, Handler: noop},
		Action{Name: "restart_agent", Category: knowledge.CategoryUnknown, Risk: 0.1, Handler: noop},
		Action{Name: "retry_build", Category: knowledge.CategoryBuild, Risk: 0.2, Handler: noop},
	)
	if err != nil {
		t.Fatal(err)
	}

	got := r.Candidates(knowledge.CategoryBuild)
	want := []string{"retry_build", "clean_rebuild", "restart_agent"}
	if len(got) != len(want) {
		t.Fatalf("Candidates returned %d actions, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("Candidates[%d] = %s, want %s (category matches by risk, fallbacks last)", i, got[i].Name, name)
		}
	}
}

func TestCandidatesFallbackOnly(t *testing.T) {
	r, err := NewRegistry(
		Action{Name: "restart_agent", Category: knowledge.CategoryUnknown, Risk: 0.1, Handler: noop},
	)
	if err != nil {
		t.Fatal(err)
	}
	got := r.Candidates(knowledge.CategoryLint)
	if len(got) != 1 || got[0].Name != "restart_agent" {
		t.Errorf("Candidates = %v, want the generic fallback", got)
	}
}

func TestNames(t *testing.T) {
	r, err := NewRegistry(
		Action{Name: "b", Category: knowledge.CategoryBuild, Handler: noop},
		Action{Name: "a", Category: knowledge.CategoryBuild, Handler: noop},
	)
	if err != nil {
		t.Fatal(err)
	}
	names := r.Names()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Errorf("Names = %v, want registration order preserved", names)
	}
}
