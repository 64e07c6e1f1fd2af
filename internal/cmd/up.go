package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/steveyegge/mechanic/internal/eventbus"
	"github.com/steveyegge/mechanic/internal/fixer"
	"github.com/steveyegge/mechanic/internal/supervisor"
)

var upForeground bool

var upCmd = &cobra.Command{
	Use:     "up",
	GroupID: GroupSupervise,
	Short:   "Run the supervisor",
	Long: `Start all configured agents and supervise them: poll their logs for
failures, auto-apply high-confidence fixes, and restart within the
throttle budget.

Runs in the foreground until interrupted. Only one supervisor may run
per state directory.`,
	RunE: runUp,
}

func init() {
	upCmd.Flags().BoolVarP(&upForeground, "verbose", "v", false, "Log to stderr as well as the log file")
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Agents) == 0 {
		return fmt.Errorf("no [[agents]] configured in the manifest")
	}

	if err := os.MkdirAll(cfg.Supervisor.StateDir, 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(cfg.Supervisor.StateDir, "supervisor.log"),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening supervisor log: %w", err)
	}
	defer logFile.Close()

	var logger *log.Logger
	if upForeground {
		logger = log.New(teeWriter{logFile, os.Stderr}, "", log.LstdFlags)
	} else {
		logger = log.New(logFile, "", log.LstdFlags)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	engine := buildEngine(cfg, store, registry, logger)
	executor := fixer.NewExecutor(registry, store, cfg.FixRuntimeLimit(), cfg.Cooldown())
	bus := eventbus.New()

	// Audit trail of every supervision event, alongside the state files.
	journal, err := os.OpenFile(filepath.Join(cfg.Supervisor.StateDir, "events.jsonl"),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening event journal: %w", err)
	}
	journalDone := make(chan struct{})
	go func() {
		defer close(journalDone)
		if err := eventbus.Journal(bus, journal); err != nil {
			logger.Printf("event journal: %v", err)
		}
	}()
	defer func() {
		bus.Close()
		<-journalDone
		journal.Close()
	}()

	sup, err := supervisor.New(cfg, store, engine, executor, bus, logger)
	if err != nil {
		return err
	}
	return sup.Run()
}

// teeWriter duplicates supervisor log output to stderr for -v runs.
type teeWriter struct {
	file, term *os.File
}

func (w teeWriter) Write(p []byte) (int, error) {
	w.term.Write(p) //nolint:errcheck
	return w.file.Write(p)
}
