package cmd

import (
	"context"
	"testing"

	"github.com/steveyegge/mechanic/internal/config"
	"github.com/steveyegge/mechanic/internal/fixer"
	"github.com/steveyegge/mechanic/internal/knowledge"
)

func TestBuildRegistryFromManifest(t *testing.T) {
	cfg := config.Default()
	cfg.Actions = []config.ActionSpec{
		{Name: "retry_build", Category: "build", Risk: 0.2, Command: "true"},
		{Name: "restart_agent", Risk: 0.1, Command: "true"},
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		t.Fatal(err)
	}

	a, err := registry.Lookup("retry_build")
	if err != nil {
		t.Fatal(err)
	}
	if a.Category != knowledge.CategoryBuild {
		t.Errorf("category = %q, want build", a.Category)
	}

	// Uncategorized actions become generic fallbacks.
	b, err := registry.Lookup("restart_agent")
	if err != nil {
		t.Fatal(err)
	}
	if b.Category != knowledge.CategoryUnknown {
		t.Errorf("category = %q, want unknown fallback", b.Category)
	}
}

func TestBuildRegistryRequiresActions(t *testing.T) {
	if _, err := buildRegistry(config.Default()); err == nil {
		t.Fatal("buildRegistry should refuse an empty action list")
	}
}

func TestCommandHandlerRunsCommand(t *testing.T) {
	h := commandHandler(config.ActionSpec{Name: "touch", Command: "true"})
	if err := h(context.Background(), fixer.Context{Agent: "a", PatternID: "p"}); err != nil {
		t.Errorf("handler error: %v", err)
	}

	h = commandHandler(config.ActionSpec{Name: "boom", Command: "false"})
	if err := h(context.Background(), fixer.Context{}); err == nil {
		t.Error("failing command should surface an error")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("0123456789", 4); got != "0123..." {
		t.Errorf("truncate = %q", got)
	}
}
