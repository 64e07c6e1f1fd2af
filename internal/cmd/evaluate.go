package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/mechanic/internal/triage"
)

var evaluateCmd = &cobra.Command{
	Use:     "evaluate <error-text>",
	GroupID: GroupDecide,
	Short:   "Score remediation actions for an error",
	Long: `Evaluate an error against the knowledge base and print the full
decision as JSON: chosen action, confidence, disposition, alternatives
and reasoning.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	sig := triage.Classify(strings.Join(args, " "))
	if sig == nil {
		return fmt.Errorf("error text is empty after normalization")
	}

	engine := buildEngine(cfg, store, registry, log.New(os.Stderr, "", log.LstdFlags))
	d, err := engine.Evaluate(cmd.Context(), sig)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
