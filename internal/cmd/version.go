package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is the mech version, overridden at build time via
// -ldflags "-X github.com/steveyegge/mechanic/internal/cmd.Version=...".
var Version = "0.1.0-dev"

var versionCmd = &cobra.Command{
	Use:     "version",
	GroupID: GroupDiag,
	Short:   "Show mech version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mech %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
