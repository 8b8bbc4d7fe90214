package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spherical/pdf-diff/cmd/pdf-diff/ui"
	"github.com/spherical/pdf-diff/internal/storage"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded comparisons",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent comparisons",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyGetCmd = &cobra.Command{
	Use:   "get <run-id>",
	Short: "Show one comparison",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryGet,
}

func init() {
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show")
	historyCmd.AddCommand(historyListCmd, historyGetCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistoryOnly(cmd *cobra.Command) (*app, *storage.HistoryRepository, error) {
	if appCfg.History.Driver == "none" {
		return nil, nil, fmt.Errorf("history is disabled (history.driver is none)")
	}
	a := &app{cfg: appCfg, logger: logger}
	repo, err := a.openHistory(cmd.Context())
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, repo, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	a, repo, err := openHistoryOnly(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := repo.List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(runs)
	}

	u := ui.NewUI(false, noColor, verbose)
	if len(runs) == 0 {
		u.Info("No comparisons recorded yet")
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.OldPath,
			r.NewPath,
			fmt.Sprintf("+%d -%d ~%d", r.Stats.Added, r.Stats.Removed, r.Stats.Replaced),
		})
	}
	u.Table([]string{"ID", "When", "Old", "New", "Changes"}, rows, 36)
	return nil
}

func runHistoryGet(cmd *cobra.Command, args []string) error {
	a, repo, err := openHistoryOnly(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := repo.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(run)
	}

	u := ui.NewUI(false, noColor, verbose)
	s := run.Stats
	u.Section("Comparison " + run.ID)
	u.Line("When:      %s", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	u.Line("Old:       %s", run.OldPath)
	u.Line("New:       %s", run.NewPath)
	u.Line("Strategy:  %s (exemptions %t)", run.Strategy, run.ExemptBoilerplate)
	if run.Empty {
		u.Warning("At least one document had no extractable text")
		return nil
	}
	u.Line("Words:     old %d, new %d", s.TotalOld, s.TotalNew)
	u.Line("Added:     %d (%.2f%%)", s.Added, s.AddedPct)
	u.Line("Removed:   %d (%.2f%%)", s.Removed, s.RemovedPct)
	u.Line("Replaced:  %d (%.2f%%)", s.Replaced, s.ReplacedPct)
	u.Line("Duration:  %v", run.Duration)
	return nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
