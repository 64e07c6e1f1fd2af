package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/steveyegge/mechanic/internal/style"
)

var fixesCmd = &cobra.Command{
	Use:     "fixes",
	GroupID: GroupKnowledge,
	Short:   "Show fix history and success rates",
	RunE:    runFixes,
}

func init() {
	rootCmd.AddCommand(fixesCmd)
}

func runFixes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	fixes, err := store.Fixes()
	if err != nil {
		return err
	}
	if len(fixes) == 0 {
		fmt.Println(style.Muted("no fixes recorded yet"))
		return nil
	}

	fmt.Println(style.Title(fmt.Sprintf("Fix History (%d actions)", len(fixes))))
	tbl := style.NewTable(
		style.Column{Name: "Action", Width: 24},
		style.Column{Name: "Used", Width: 5, Align: style.AlignRight},
		style.Column{Name: "Success", Width: 7, Align: style.AlignRight},
		style.Column{Name: "Rate", Width: 5, Align: style.AlignRight},
		style.Column{Name: "Avg", Width: 8, Align: style.AlignRight},
		style.Column{Name: "Last Used", Width: 16},
	)
	for _, f := range fixes {
		rate := fmt.Sprintf("%.0f%%", f.SuccessRate()*100)
		if f.TimesUsed == 0 {
			rate = "-"
		}
		tbl.AddRow(
			f.Action,
			strconv.Itoa(f.TimesUsed),
			strconv.Itoa(f.Successes),
			rate,
			fmt.Sprintf("%.1fs", f.AvgDurationSeconds),
			f.LastUsed.Format("2006-01-02 15:04"),
		)
	}
	fmt.Print(tbl.Render())
	return nil
}
