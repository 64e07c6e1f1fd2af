package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/steveyegge/mechanic/internal/style"
)

var patternsCmd = &cobra.Command{
	Use:     "patterns",
	GroupID: GroupKnowledge,
	Short:   "List known error patterns",
	RunE:    runPatterns,
}

func init() {
	rootCmd.AddCommand(patternsCmd)
}

func runPatterns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	patterns, err := store.Patterns()
	if err != nil {
		return err
	}
	if len(patterns) == 0 {
		fmt.Println(style.Muted("no error patterns recorded yet"))
		return nil
	}

	fmt.Println(style.Title(fmt.Sprintf("Error Patterns (%d)", len(patterns))))
	tbl := style.NewTable(
		style.Column{Name: "ID", Width: 12},
		style.Column{Name: "Severity", Width: 8},
		style.Column{Name: "Category", Width: 10},
		style.Column{Name: "Count", Width: 5, Align: style.AlignRight},
		style.Column{Name: "Last Seen", Width: 16},
		style.Column{Name: "Pattern", Width: 50},
	)
	for _, p := range patterns {
		tbl.AddRow(
			p.ID,
			style.Severity(p.Severity),
			string(p.Category),
			strconv.Itoa(p.Count),
			p.LastSeen.Format("2006-01-02 15:04"),
			p.Pattern,
		)
	}
	fmt.Print(tbl.Render())
	return nil
}
