package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/spherical/pdf-diff/cmd/pdf-diff/ui"
	"github.com/spherical/pdf-diff/internal/compare"
	"github.com/spherical/pdf-diff/internal/report"
)

var batchWorkers int

var batchCmd = &cobra.Command{
	Use:   "batch <old-dir> <new-dir>",
	Short: "Compare every PDF pair in two directories",
	Long: `Pair PDFs with the same file name in two directories and compare each
pair on a pool of workers. A failed pair is reported and does not stop the
others.`,
	Args: cobra.ExactArgs(2),
	RunE: runBatch,
}

func init() {
	addDiffFlags(batchCmd)
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "number of concurrent comparisons (default from config)")
	rootCmd.AddCommand(batchCmd)
}

type batchResult struct {
	Old     string          `json:"old"`
	New     string          `json:"new"`
	Summary *report.Summary `json:"summary,omitempty"`
	Report  string          `json:"report,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := applyDiffFlags(appCfg); err != nil {
		return err
	}
	workers := appCfg.Batch.Workers
	if batchWorkers > 0 {
		workers = batchWorkers
	}

	u := ui.NewUI(jsonOutput, noColor, verbose)

	pairs, unmatched, err := compare.PairDirectories(args[0], args[1])
	if err != nil {
		return err
	}
	for _, path := range unmatched {
		u.Warning("No counterpart for %s", path)
	}
	if len(pairs) == 0 {
		return fmt.Errorf("no matching PDF files in %s and %s", args[0], args[1])
	}

	a, err := newApp(ctx, appCfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	u.Section("Batch Comparison")
	u.Info("%d pairs, %d workers", len(pairs), workers)

	results := make([]batchResult, len(pairs))
	bar := u.ProgressBar("Comparing", int64(len(pairs)))
	items := a.service.Batch(ctx, pairs, workers, func(it compare.BatchItem) {
		res := batchResult{Old: it.Request.OldPath, New: it.Request.NewPath}
		if it.Err != nil {
			res.Error = it.Err.Error()
		} else {
			summary := report.NewSummary(it.Outcome)
			res.Summary = &summary
			if !compareNoReport {
				path, err := report.WriteMarkdownFile(a.cfg.Output.ReportDir, it.Outcome, report.Options{
					PageDiff: a.cfg.Output.PageDiff,
				})
				if err != nil {
					res.Error = err.Error()
				}
				res.Report = path
			}
			if !compareNoAnnotations && !it.Outcome.Result.Empty {
				if _, err := report.WriteManifests(a.cfg.Output.AnnotationDir, it.Outcome, a.inspector); err != nil {
					res.Error = err.Error()
				}
			}
		}
		results[it.Index] = res
		if bar != nil {
			bar.Increment()
		}
	})
	u.Close()

	failed := 0
	rows := make([][]string, 0, len(items))
	for _, res := range results {
		status := "ok"
		added, removed, replaced := "-", "-", "-"
		if res.Error != "" {
			failed++
			status = "failed: " + res.Error
		}
		if res.Summary != nil {
			added = strconv.Itoa(res.Summary.Record.Added)
			removed = strconv.Itoa(res.Summary.Record.Removed)
			replaced = strconv.Itoa(res.Summary.Record.Replaced)
		}
		rows = append(rows, []string{filepath.Base(res.Old), added, removed, replaced, status})
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		u.Section("Results")
		u.Table([]string{"File", "Added", "Removed", "Replaced", "Status"}, rows, 60)
		u.Newline()
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d comparisons failed", failed, len(pairs))
	}
	u.Success("Compared %d pairs", len(pairs))
	return nil
}
