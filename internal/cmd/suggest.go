package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/mechanic/internal/style"
	"github.com/steveyegge/mechanic/internal/triage"
)

var suggestCmd = &cobra.Command{
	Use:     "suggest <error-text>",
	GroupID: GroupDecide,
	Short:   "Show the best fix for an error",
	Long: `Evaluate an error and print only the top action with its confidence
and disposition, for quick interactive use.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSuggest,
}

func init() {
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("%s  %s  %s\n",
		style.Accent(d.Action),
		style.Muted(fmt.Sprintf("%.0f%%", d.Confidence*100)),
		style.Disposition(d.Disposition))
	fmt.Printf("  %s\n", style.Muted(d.Reasoning))
	if d.AIAvailable && d.Advisory != "" {
		fmt.Printf("  %s\n", style.Muted(d.Advisory))
	}
	return nil
}
