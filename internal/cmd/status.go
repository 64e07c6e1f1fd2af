package cmd

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/steveyegge/mechanic/internal/style"
	"github.com/steveyegge/mechanic/internal/supervisor"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: GroupSupervise,
	Short:   "Show supervisor and agent status",
	Long: `Show the last recorded supervisor snapshot: per-agent state, restart
budget usage, and knowledge base statistics.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	snap, err := supervisor.LoadSnapshot(cfg.Supervisor.StateDir)
	if err != nil {
		return err
	}
	if snap == nil {
		fmt.Println(style.Muted("supervisor has never run here (no state recorded)"))
	} else {
		if snap.Running {
			fmt.Printf("%s %s\n", style.Success("supervisor running"),
				style.Muted(fmt.Sprintf("(pid %d, up since %s, %d polls)",
					snap.PID, snap.StartedAt.Format("15:04:05"), snap.PollCount)))
		} else {
			fmt.Println(style.Muted("supervisor stopped"))
		}

		if len(snap.Agents) > 0 {
			names := make([]string, 0, len(snap.Agents))
			for name := range snap.Agents {
				names = append(names, name)
			}
			sort.Strings(names)

			tbl := style.NewTable(
				style.Column{Name: "Agent", Width: 16},
				style.Column{Name: "State", Width: 12},
				style.Column{Name: "PID", Width: 7, Align: style.AlignRight},
				style.Column{Name: "Restarts", Width: 8, Align: style.AlignRight},
				style.Column{Name: "Last Failure", Width: 44},
			)
			for _, name := range names {
				a := snap.Agents[name]
				pid := "-"
				if a.PID > 0 {
					pid = strconv.Itoa(a.PID)
				}
				last := a.LastFailure
				if a.State == "halted" && a.HaltedReason != "" {
					last = a.HaltedReason
				}
				tbl.AddRow(name, style.AgentState(string(a.State)), pid,
					fmt.Sprintf("%d/%d", a.Restarts.RestartCount, cfg.Restart.Limit), last)
			}
			fmt.Print(tbl.Render())
		}
	}

	// Knowledge stats are useful even when the supervisor is down.
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	patterns, err := store.Patterns()
	if err != nil {
		return err
	}
	fixes, err := store.Fixes()
	if err != nil {
		return err
	}

	fmt.Printf("\n%s %s\n", style.Title("Knowledge:"),
		style.Muted(fmt.Sprintf("%d patterns, %d actions with history", len(patterns), len(fixes))))
	sort.Slice(fixes, func(i, j int) bool { return fixes[i].TimesUsed > fixes[j].TimesUsed })
	for i, f := range fixes {
		if i == 3 {
			break
		}
		fmt.Printf("  %s %s\n", style.Accent(f.Action),
			style.Muted(fmt.Sprintf("%d uses, %.0f%% success", f.TimesUsed, f.SuccessRate()*100)))
	}
	return nil
}
