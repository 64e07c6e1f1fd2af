// Package cmd provides CLI commands for the mech tool.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:     "mech",
	Short:   "Mechanic - self-healing supervisor for automation agents",
	Version: Version,
	Long: `Mechanic (mech) keeps long-running automation agents alive.

It watches agent logs for failures, scores remediation actions against
a persistent knowledge base, applies high-confidence fixes itself,
verifies the results, and restarts agents under a throttled budget.`,
}

// Execute runs the root command and returns an exit code.
// The caller (main) should call os.Exit with this code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		// Errors already printed by cobra
		return 1
	}
	return 0
}

// Command group IDs - used by subcommands to organize help output
const (
	GroupDecide    = "decide"
	GroupKnowledge = "knowledge"
	GroupSupervise = "supervise"
	GroupDiag      = "diag"
)

var configPath string

func init() {
	cobra.EnablePrefixMatching = true

	rootCmd.AddGroup(
		&cobra.Group{ID: GroupDecide, Title: "Decisions:"},
		&cobra.Group{ID: GroupKnowledge, Title: "Knowledge Base:"},
		&cobra.Group{ID: GroupSupervise, Title: "Supervision:"},
		&cobra.Group{ID: GroupDiag, Title: "Diagnostics:"},
	)
	rootCmd.SetHelpCommandGroupID(GroupDiag)
	rootCmd.SetCompletionCommandGroupID(GroupDiag)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default mechanic.toml)")
}
