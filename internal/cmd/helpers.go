package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"time"

	"github.com/steveyegge/mechanic/internal/advisory"
	"github.com/steveyegge/mechanic/internal/config"
	"github.com/steveyegge/mechanic/internal/decision"
	"github.com/steveyegge/mechanic/internal/fixer"
	"github.com/steveyegge/mechanic/internal/knowledge"
)

// loadConfig resolves the --config flag, falling back to mechanic.toml
// in the working directory.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultFile
	}
	return config.Load(path)
}

func openStore(cfg *config.Config) (*knowledge.Store, error) {
	return knowledge.Open(cfg.KnowledgeDir)
}

// buildRegistry turns the manifest's [[actions]] blocks into the closed
// action set. Handlers shell out to the configured command; the fix
// runtime limit arrives through the handler context.
func buildRegistry(cfg *config.Config) (*fixer.Registry, error) {
	actions := make([]fixer.Action, 0, len(cfg.Actions))
	for _, spec := range cfg.Actions {
		cat := knowledge.Category(spec.Category)
		if cat == "" {
			// Uncategorized actions act as generic fallbacks.
			cat = knowledge.CategoryUnknown
		}
		actions = append(actions, fixer.Action{
			Name:     spec.Name,
			Category: cat,
			Risk:     spec.Risk,
			Handler:  commandHandler(spec),
		})
	}
	if len(actions) == 0 {
		return nil, fmt.Errorf("no [[actions]] configured; the decision engine needs at least one remediation action")
	}
	return fixer.NewRegistry(actions...)
}

// commandHandler runs the action's command with MECH_AGENT, MECH_PROJECT
// and MECH_PATTERN in the environment so scripts can target the failure.
func commandHandler(spec config.ActionSpec) fixer.Handler {
	return func(ctx context.Context, fctx fixer.Context) error {
		c := exec.CommandContext(ctx, spec.Command, spec.Args...)
		c.Env = append(os.Environ(),
			"MECH_AGENT="+fctx.Agent,
			"MECH_PROJECT="+fctx.Project,
			"MECH_PATTERN="+fctx.PatternID,
		)
		out, err := c.CombinedOutput()
		if err != nil {
			return fmt.Errorf("%s: %w (output: %s)", spec.Name, err, truncate(string(out), 200))
		}
		return nil
	}
}

// buildEngine wires store, registry and the optional advisory client
// into a decision engine using the configured thresholds.
func buildEngine(cfg *config.Config, store *knowledge.Store, registry *fixer.Registry, logger *log.Logger) *decision.Engine {
	var advisor *advisory.Client
	if cfg.Advisory.Enabled {
		advisor = advisory.New(cfg.Advisory.Endpoint, cfg.Advisory.Model, 30*time.Second, logger)
	}
	thresholds := decision.Thresholds{
		AutoExecute: cfg.Thresholds.AutoExecute,
		Suggest:     cfg.Thresholds.Suggest,
	}
	return decision.New(store, registry, advisor, thresholds)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
