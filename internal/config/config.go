// Package config provides configuration loading for Mechanic: a TOML
// manifest plus MECH_* environment overrides for every tunable.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// ManifestVersion is the current supported manifest schema version.
const ManifestVersion = 1

// DefaultFile is the manifest filename looked up in the working
// directory when no --config flag is given.
const DefaultFile = "mechanic.toml"

// AgentSpec defines one supervised agent process.
type AgentSpec struct {
	Name    string   `toml:"name"`
	Project string   `toml:"project"`
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	// Log is where the agent's output is written and scanned from.
	// Defaults to <name>.log under the supervisor's log directory.
	Log string `toml:"log"`
}

// ActionSpec defines one remediation action available to the decision
// engine. The command runs with the fix runtime limit applied; concrete
// remediation behavior always comes from the manifest, never from
// built-in code.
type ActionSpec struct {
	Name     string   `toml:"name"`
	Category string   `toml:"category"`
	Risk     float64  `toml:"risk"`
	Command  string   `toml:"command"`
	Args     []string `toml:"args"`
}

// Config is the full runtime configuration.
type Config struct {
	Version int `toml:"version"`

	Thresholds struct {
		AutoExecute float64 `toml:"auto_execute"`
		Suggest     float64 `toml:"suggest"`
	} `toml:"thresholds"`

	Restart struct {
		Limit              int `toml:"limit"`
		WindowSeconds      int `toml:"window_seconds"`
		MinIntervalSeconds int `toml:"min_interval_seconds"`
	} `toml:"restart"`

	Fix struct {
		RuntimeLimitSeconds int `toml:"runtime_limit_seconds"`
		CooldownSeconds     int `toml:"cooldown_seconds"`
	} `toml:"fix"`

	Advisory struct {
		Enabled  bool   `toml:"enabled"`
		Endpoint string `toml:"endpoint"`
		Model    string `toml:"model"`
	} `toml:"advisory"`

	Supervisor struct {
		PollIntervalSeconds  int    `toml:"poll_interval_seconds"`
		LogWindowLines       int    `toml:"log_window_lines"`
		ShutdownGraceSeconds int    `toml:"shutdown_grace_seconds"`
		StateDir             string `toml:"state_dir"`
	} `toml:"supervisor"`

	KnowledgeDir string `toml:"knowledge_dir"`

	Agents  []AgentSpec  `toml:"agents"`
	Actions []ActionSpec `toml:"actions"`
}

// Default returns the configuration with all standard values.
func Default() *Config {
	var c Config
	c.Version = ManifestVersion
	c.Thresholds.AutoExecute = 0.75
	c.Thresholds.Suggest = 0.50
	c.Restart.Limit = 5
	c.Restart.WindowSeconds = 600
	c.Restart.MinIntervalSeconds = 60
	c.Fix.RuntimeLimitSeconds = 600
	c.Fix.CooldownSeconds = 300
	c.Advisory.Enabled = true
	c.Supervisor.PollIntervalSeconds = 30
	c.Supervisor.LogWindowLines = 40
	c.Supervisor.ShutdownGraceSeconds = 10
	c.Supervisor.StateDir = ".mechanic"
	c.KnowledgeDir = ".mechanic/knowledge"
	return &c
}

// Load reads the manifest at path (missing file is fine, defaults are
// used), applies environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if _, err := toml.Decode(string(data), c); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		case os.IsNotExist(err) && path == DefaultFile:
			// No manifest in cwd - run on defaults.
		default:
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// applyEnv overlays MECH_* environment variables. Malformed values are
// ignored in favor of the existing setting.
func (c *Config) applyEnv() {
	envFloat("MECH_AUTO_EXECUTE_THRESHOLD", &c.Thresholds.AutoExecute)
	envFloat("MECH_SUGGEST_THRESHOLD", &c.Thresholds.Suggest)
	envInt("MECH_RESTART_LIMIT", &c.Restart.Limit)
	envInt("MECH_RESTART_WINDOW_SECONDS", &c.Restart.WindowSeconds)
	envInt("MECH_MIN_RESTART_INTERVAL_SECONDS", &c.Restart.MinIntervalSeconds)
	envInt("MECH_FIX_RUNTIME_LIMIT_SECONDS", &c.Fix.RuntimeLimitSeconds)
	envInt("MECH_COOLDOWN_SECONDS", &c.Fix.CooldownSeconds)
	envBool("MECH_ADVISORY_ENABLED", &c.Advisory.Enabled)
	envString("MECH_ADVISORY_ENDPOINT", &c.Advisory.Endpoint)
	envString("MECH_ADVISORY_MODEL", &c.Advisory.Model)
	envInt("MECH_POLL_INTERVAL_SECONDS", &c.Supervisor.PollIntervalSeconds)
	envInt("MECH_LOG_WINDOW_LINES", &c.Supervisor.LogWindowLines)
	envInt("MECH_SHUTDOWN_GRACE_SECONDS", &c.Supervisor.ShutdownGraceSeconds)
	envString("MECH_STATE_DIR", &c.Supervisor.StateDir)
	envString("MECH_KNOWLEDGE_DIR", &c.KnowledgeDir)
}

// Validate checks cross-field invariants.
func (c *Config) Validate() error {
	if c.Version != ManifestVersion {
		return fmt.Errorf("unsupported manifest version %d (expected %d)", c.Version, ManifestVersion)
	}
	if c.Thresholds.AutoExecute < c.Thresholds.Suggest {
		return fmt.Errorf("auto_execute threshold (%v) below suggest threshold (%v)",
			c.Thresholds.AutoExecute, c.Thresholds.Suggest)
	}
	if c.Restart.Limit < 1 {
		return fmt.Errorf("restart limit must be at least 1, got %d", c.Restart.Limit)
	}
	seen := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if a.Name == "" {
			return fmt.Errorf("agent with empty name")
		}
		if a.Command == "" {
			return fmt.Errorf("agent %q has no command", a.Name)
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate agent name %q", a.Name)
		}
		seen[a.Name] = true
	}
	seenActions := make(map[string]bool, len(c.Actions))
	for _, a := range c.Actions {
		if a.Name == "" {
			return fmt.Errorf("action with empty name")
		}
		if a.Command == "" {
			return fmt.Errorf("action %q has no command", a.Name)
		}
		if a.Risk < 0 || a.Risk > 1 {
			return fmt.Errorf("action %q risk %v outside [0, 1]", a.Name, a.Risk)
		}
		if seenActions[a.Name] {
			return fmt.Errorf("duplicate action name %q", a.Name)
		}
		seenActions[a.Name] = true
	}
	return nil
}

// Duration accessors keep call sites free of unit conversions.

func (c *Config) RestartWindow() time.Duration {
	return time.Duration(c.Restart.WindowSeconds) * time.Second
}

func (c *Config) MinRestartInterval() time.Duration {
	return time.Duration(c.Restart.MinIntervalSeconds) * time.Second
}

func (c *Config) FixRuntimeLimit() time.Duration {
	return time.Duration(c.Fix.RuntimeLimitSeconds) * time.Second
}

func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Fix.CooldownSeconds) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Supervisor.PollIntervalSeconds) * time.Second
}

func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.Supervisor.ShutdownGraceSeconds) * time.Second
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
