// Package fixer executes remediation actions through host-supplied
// handlers and verifies their outcomes. The core never implements a
// concrete fix itself; it owns the safety bounds (timeout, cooldown)
// and the bookkeeping around handler invocation.
package fixer

import (
	"context"
	"fmt"
	"sort"

	"github.com/steveyegge/mechanic/internal/knowledge"
)

// Handler performs one remediation action. Implementations are supplied
// by the hosting system. The context carries the hard runtime limit.
type Handler func(ctx context.Context, fctx Context) error

// Context describes where a fix is being applied.
type Context struct {
	Agent     string
	Project   string
	PatternID string
}

// Action is one registered remediation action.
type Action struct {
	Name     string
	Category knowledge.Category
	// Risk is an advisory 0-1 estimate of how disruptive the action is.
	Risk    float64
	Handler Handler
}

// Registry is the closed set of known actions. Unknown action names are
// construction-time or lookup-time errors, never silent no-ops.
type Registry struct {
	actions map[string]Action
	order   []string
}

// NewRegistry builds a registry from the given actions.
func NewRegistry(actions ...Action) (*Registry, error) {
	r := &Registry{actions: make(map[string]Action, len(actions))}
	for _, a := range actions {
		if a.Name == "" {
			return nil, fmt.Errorf("action with empty name")
		}
		if a.Handler == nil {
			return nil, fmt.Errorf("action %q has no handler", a.Name)
		}
		if _, dup := r.actions[a.Name]; dup {
			return nil, fmt.Errorf("duplicate action %q", a.Name)
		}
		r.actions[a.Name] = a
		r.order = append(r.order, a.Name)
	}
	return r, nil
}

// Lookup returns the named action or an error if it is not registered.
func (r *Registry) Lookup(name string) (Action, error) {
	a, ok := r.actions[name]
	if !ok {
		return Action{}, fmt.Errorf("unknown action %q", name)
	}
	return a, nil
}

// Names returns all registered action names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Candidates returns the actions applicable to an error category, in
// registration order. Actions registered for CategoryUnknown act as
// generic fallbacks and are always included last.
func (r *Registry) Candidates(cat knowledge.Category) []Action {
	var primary, fallback []Action
	for _, name := range r.order {
		a := r.actions[name]
		switch {
		case a.Category == cat:
			primary = append(primary, a)
		case a.Category == knowledge.CategoryUnknown:
			fallback = append(fallback, a)
		}
	}
	// Lower-risk actions first within each group; fallbacks stay behind
	// every category match regardless of risk.
	byRisk := func(s []Action) func(i, j int) bool {
		return func(i, j int) bool { return s[i].Risk < s[j].Risk }
	}
	sort.SliceStable(primary, byRisk(primary))
	sort.SliceStable(fallback, byRisk(fallback))
	return append(primary, fallback...)
}
