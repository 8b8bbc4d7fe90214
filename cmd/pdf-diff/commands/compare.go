package commands

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/pdf-diff/cmd/pdf-diff/ui"
	"github.com/spherical/pdf-diff/internal/compare"
	"github.com/spherical/pdf-diff/internal/config"
	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/report"
)

var (
	compareStrategy      string
	compareNoExemptions  bool
	comparePageDiff      bool
	compareReportDir     string
	compareAnnotationDir string
	compareNoReport      bool
	compareNoAnnotations bool
	compareMaxRows       int
)

var compareCmd = &cobra.Command{
	Use:   "compare <old.pdf> <new.pdf>",
	Short: "Compare two PDF files",
	Long: `Compare two versions of a PDF. Prints a summary of added, removed and
replaced words, writes a Markdown report and one annotation manifest per
document.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	addDiffFlags(compareCmd)
	compareCmd.Flags().IntVar(&compareMaxRows, "max-rows", 40, "maximum changed words to list (0 for none)")
	rootCmd.AddCommand(compareCmd)
}

// addDiffFlags registers the flags shared by compare and batch.
func addDiffFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&compareStrategy, "strategy", "s", "", "alignment strategy: ratcliff or myers")
	cmd.Flags().BoolVar(&compareNoExemptions, "no-exemptions", false, "keep words that appear on every page")
	cmd.Flags().BoolVar(&comparePageDiff, "page-diff", false, "append a page-level text diff to the report")
	cmd.Flags().StringVar(&compareReportDir, "report-dir", "", "directory for Markdown reports")
	cmd.Flags().StringVar(&compareAnnotationDir, "annotation-dir", "", "directory for annotation manifests")
	cmd.Flags().BoolVar(&compareNoReport, "no-report", false, "do not write a Markdown report")
	cmd.Flags().BoolVar(&compareNoAnnotations, "no-annotations", false, "do not write annotation manifests")
}

// applyDiffFlags folds command-line overrides into the loaded config.
func applyDiffFlags(cfg *config.Config) error {
	if compareStrategy != "" {
		cfg.Diff.Strategy = compareStrategy
	}
	if compareNoExemptions {
		cfg.Diff.ExemptBoilerplate = false
	}
	if comparePageDiff {
		cfg.Output.PageDiff = true
	}
	if compareReportDir != "" {
		cfg.Output.ReportDir = compareReportDir
	}
	if compareAnnotationDir != "" {
		cfg.Output.AnnotationDir = compareAnnotationDir
	}
	return cfg.Validate()
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := applyDiffFlags(appCfg); err != nil {
		return err
	}

	u := ui.NewUI(jsonOutput, noColor, verbose)
	defer u.Close()

	a, err := newApp(ctx, appCfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	u.Section("PDF Comparison")
	u.Info("Old: %s", args[0])
	u.Info("New: %s", args[1])
	u.Newline()

	events := make(chan domain.StreamEvent, 1024)
	done := make(chan struct{})
	go func() {
		renderEvents(u, events)
		close(done)
	}()

	out, err := a.service.Compare(ctx, compare.Request{OldPath: args[0], NewPath: args[1]}, events)
	close(events)
	<-done
	if err != nil {
		return err
	}

	if err := writeArtifacts(u, a, out); err != nil {
		return err
	}

	if jsonOutput {
		return report.WriteJSON(os.Stdout, out)
	}
	printSummary(u, out)
	printChanges(u, out, compareMaxRows)
	return nil
}

// renderEvents drives the spinner and page bar from service events.
func renderEvents(u *ui.UI, events <-chan domain.StreamEvent) {
	spin := u.NewSpinner("Inspecting documents...")
	var bar *ui.PageBar
	totalPages := 0
	inspected := 0

	stopSpinner := func() {
		if spin != nil {
			spin.Stop()
			spin = nil
		}
	}

	for ev := range events {
		switch ev.Type {
		case domain.EventStart:
			spin.Start()

		case domain.EventDocumentInspected:
			totalPages += ev.TotalPages
			inspected++
			spin.UpdateMessage(fmt.Sprintf("Inspecting documents (%d/2)...", inspected))
			if inspected == 2 {
				stopSpinner()
				bar = u.NewPageBar(int64(totalPages), "Extracting pages")
			}

		case domain.EventPageExtracted:
			stopSpinner()
			bar.Add(1)

		case domain.EventDocumentExtracted:
			if u.Verbose() {
				u.Step("%s document: %v", ev.Side, ev.Payload)
			}

		case domain.EventDiffComplete:
			bar.Finish()
			bar = nil

		case domain.EventError:
			stopSpinner()
			bar.Finish()
			bar = nil
		}
	}
	stopSpinner()
}

func writeArtifacts(u *ui.UI, a *app, out *compare.Outcome) error {
	if !compareNoReport {
		path, err := report.WriteMarkdownFile(a.cfg.Output.ReportDir, out, report.Options{
			PageDiff: a.cfg.Output.PageDiff,
		})
		if err != nil {
			return err
		}
		u.Success("Report written to %s", path)
	}

	if !compareNoAnnotations && !out.Result.Empty {
		paths, err := report.WriteManifests(a.cfg.Output.AnnotationDir, out, a.inspector)
		if err != nil {
			return err
		}
		for _, p := range paths {
			u.Success("Annotations written to %s", p)
		}
	}
	return nil
}

func printSummary(u *ui.UI, out *compare.Outcome) {
	r := out.Result
	u.Section("Summary")
	if r.Empty {
		u.Warning("At least one document has no extractable text; nothing was compared")
		return
	}

	s := r.Stats
	u.Line("Words compared:   old %d, new %d", s.TotalOld, s.TotalNew)
	u.Line("Added:            %d (%.2f%%)", s.Added, s.AddedPct)
	u.Line("Removed:          %d (%.2f%%)", s.Removed, s.RemovedPct)
	u.Line("Replaced:         %d (%.2f%%)", s.Replaced, s.ReplacedPct)
	if len(r.Old.Exempt)+len(r.New.Exempt) > 0 {
		u.Line("Exempted:         old %d, new %d", len(r.Old.Exempt), len(r.New.Exempt))
	}
	u.Line("Strategy:         %s", r.Strategy)
	u.Line("Duration:         %v", out.Duration.Round(time.Millisecond))
	u.Newline()

	if s.Added+s.Removed+s.Replaced == 0 {
		u.Success("No differences found")
	}
}

// printChanges lists changed words in document order, old side first.
func printChanges(u *ui.UI, out *compare.Outcome, maxRows int) {
	if maxRows <= 0 || out.Result.Empty {
		return
	}

	var rows [][]string
	more := 0
	sides := []struct {
		side       domain.Side
		classified []domain.ClassifiedToken
	}{
		{domain.SideOld, out.Result.Old.Classified},
		{domain.SideNew, out.Result.New.Classified},
	}
	for _, side := range sides {
		for _, ct := range side.classified {
			if ct.Classification == domain.Unchanged {
				continue
			}
			if len(rows) == maxRows {
				more++
				continue
			}
			rows = append(rows, []string{
				string(side.side),
				strconv.Itoa(ct.Token.Page + 1),
				string(ct.Classification),
				ct.Token.Text,
			})
		}
	}
	if len(rows) == 0 {
		return
	}

	u.Section("Changes")
	u.Table([]string{"Side", "Page", "Change", "Word"}, rows, 40)
	if more > 0 {
		u.Newline()
		u.Line("... and %d more", more)
	}
}
