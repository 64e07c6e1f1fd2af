package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/mechanic/internal/fixer"
	"github.com/steveyegge/mechanic/internal/style"
)

var verifyCmd = &cobra.Command{
	Use:     "verify <action> <before-state> <after-state>",
	GroupID: GroupDecide,
	Short:   "Classify a fix outcome from before/after state text",
	Long: `Compare free-form before/after state descriptions and print the
outcome: resolved, unresolved, or ambiguous. The action name is echoed
for context; nothing is recorded (use 'mech record' for that).`,
	Args: cobra.ExactArgs(3),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	action, before, after := args[0], args[1], args[2]

	outcome := fixer.VerifyStates(before, after)
	switch outcome {
	case fixer.OutcomeResolved:
		fmt.Printf("%s %s\n", style.Success(string(outcome)), style.Muted(action))
	case fixer.OutcomeUnresolved:
		fmt.Printf("%s %s\n", style.Error(string(outcome)), style.Muted(action))
	default:
		fmt.Printf("%s %s\n", style.Muted(string(outcome)), style.Muted(action))
	}
	return nil
}
