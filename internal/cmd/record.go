package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/mechanic/internal/triage"
)

var recordCmd = &cobra.Command{
	Use:     "record <error-text> <action> <success> [duration-seconds]",
	GroupID: GroupKnowledge,
	Short:   "Record a fix outcome in the knowledge base",
	Long: `Register the error pattern (creating or incrementing it) and record
the outcome of applying an action to it. Prints the updated fix record
as JSON.

success is parsed as a boolean (true/false/1/0).`,
	Args: cobra.RangeArgs(3, 4),
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	sig := triage.Classify(args[0])
	if sig == nil {
		return fmt.Errorf("error text is empty after normalization")
	}
	action := args[1]
	success, err := strconv.ParseBool(args[2])
	if err != nil {
		return fmt.Errorf("parsing success %q: %w", args[2], err)
	}
	var duration time.Duration
	if len(args) == 4 {
		secs, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return fmt.Errorf("parsing duration %q: %w", args[3], err)
		}
		duration = time.Duration(secs * float64(time.Second))
	}

	if _, err := store.UpsertPattern(sig.Normalized, sig.Category, sig.Severity, sig.Raw); err != nil {
		return err
	}
	rec, err := store.RecordFixOutcome(action, success, duration)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
