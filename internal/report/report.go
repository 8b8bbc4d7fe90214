// Package report renders comparison outcomes for people and for the
// external annotation renderer.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/spherical/pdf-diff/internal/compare"
	"github.com/spherical/pdf-diff/internal/domain"
)

// Record is the flat statistics record handed to report consumers.
type Record struct {
	TotalOld    int     `json:"total_old"`
	TotalNew    int     `json:"total_new"`
	Added       int     `json:"added"`
	AddedPct    float64 `json:"added_pct"`
	Removed     int     `json:"removed"`
	RemovedPct  float64 `json:"removed_pct"`
	Replaced    int     `json:"replaced"`
	ReplacedPct float64 `json:"replaced_pct"`
}

// NewRecord flattens statistics into a Record.
func NewRecord(s domain.Statistics) Record {
	return Record{
		TotalOld:    s.TotalOld,
		TotalNew:    s.TotalNew,
		Added:       s.Added,
		AddedPct:    s.AddedPct,
		Removed:     s.Removed,
		RemovedPct:  s.RemovedPct,
		Replaced:    s.Replaced,
		ReplacedPct: s.ReplacedPct,
	}
}

// Options controls Markdown rendering.
type Options struct {
	// GeneratedAt is the report date; zero means now.
	GeneratedAt time.Time
	// PageDiff appends the page-level text diff when the outcome has one.
	PageDiff bool
}

var markdown = template.Must(template.New("report").Funcs(template.FuncMap{
	"comma": func(n int) string { return humanize.Comma(int64(n)) },
	"pct":   func(f float64) string { return fmt.Sprintf("%.2f", f) },
	"join":  strings.Join,
}).Parse(`# PDF Comparison Report: {{.OldName}} vs {{.NewName}}

Date of Report: {{.Date}}

{{if .Empty -}}
At least one document has no extractable text. No words were compared.
{{else -}}
## Summary of Changes{{if .Exemptions}} (Excluding Exempted Words){{end}}

- Total {{if .Exemptions}}non-exempt {{end}}words in Old PDF: {{comma .Record.TotalOld}}
- Total {{if .Exemptions}}non-exempt {{end}}words in New PDF: {{comma .Record.TotalNew}}

- Newly Added Words: {{comma .Record.Added}} ({{pct .Record.AddedPct}}%)
- Removed Words: {{comma .Record.Removed}} ({{pct .Record.RemovedPct}}%)
- Replaced Words (estimated): {{comma .Record.Replaced}} ({{pct .Record.ReplacedPct}}%)
{{- end}}
{{if .Exemptions}}
_Note: Words appearing on every page of a document have been exempted from this comparison to focus on substantive changes._
{{- if .ExemptOld}}

Exempted in Old PDF: {{join .ExemptOld ", "}}
{{- end}}
{{- if .ExemptNew}}

Exempted in New PDF: {{join .ExemptNew ", "}}
{{- end}}
{{end}}
{{- if .PageDiff}}
## Page Text Differences

` + "```diff\n{{.PageDiff}}```" + `
{{end -}}
`))

type markdownData struct {
	OldName, NewName string
	Date             string
	Empty            bool
	Exemptions       bool
	Record           Record
	ExemptOld        []string
	ExemptNew        []string
	PageDiff         string
}

// RenderMarkdown writes the human-readable summary of a comparison.
func RenderMarkdown(w io.Writer, out *compare.Outcome, opts Options) error {
	if out == nil || out.Result == nil {
		return domain.ValidationError("report needs a finished comparison", nil)
	}
	at := opts.GeneratedAt
	if at.IsZero() {
		at = time.Now()
	}

	data := markdownData{
		OldName:    baseName(out.Request.OldPath),
		NewName:    baseName(out.Request.NewPath),
		Date:       at.Format("2006-01-02 15:04:05"),
		Empty:      out.Result.Empty,
		Exemptions: out.Result.Exemptions,
		Record:     NewRecord(out.Result.Stats),
		ExemptOld:  out.Result.Old.Exempt,
		ExemptNew:  out.Result.New.Exempt,
	}
	if opts.PageDiff {
		data.PageDiff = out.PageDiff
	}

	if err := markdown.Execute(w, data); err != nil {
		return domain.IOError("render report", err)
	}
	return nil
}

// FileName is the report file name for a pair compared at t.
func FileName(oldPath, newPath string, t time.Time) string {
	return fmt.Sprintf("ComparisonReport_%s_vs_%s_%s.md",
		baseName(oldPath), baseName(newPath), t.Format("20060102_150405"))
}

// WriteMarkdownFile renders the report into dir and returns its path.
func WriteMarkdownFile(dir string, out *compare.Outcome, opts Options) (string, error) {
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", domain.IOError("create report directory", err)
	}

	path := filepath.Join(dir, FileName(out.Request.OldPath, out.Request.NewPath, opts.GeneratedAt))
	f, err := os.Create(path)
	if err != nil {
		return "", domain.IOError("create report file", err)
	}
	if err := RenderMarkdown(f, out, opts); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", domain.IOError("close report file", err)
	}
	return path, nil
}

// Summary is the machine-readable form of a comparison.
type Summary struct {
	RunID      string              `json:"run_id"`
	Old        domain.DocumentInfo `json:"old"`
	New        domain.DocumentInfo `json:"new"`
	Strategy   string              `json:"strategy"`
	Empty      bool                `json:"empty"`
	Record     Record              `json:"record"`
	Statistics domain.Statistics   `json:"statistics"`
	Exempt     SidePair[[]string]  `json:"exempt"`
	Regions    SidePair[int]       `json:"regions"`
	DurationMS int64               `json:"duration_ms"`
	CreatedAt  time.Time           `json:"created_at"`
}

// SidePair holds one value per document.
type SidePair[T any] struct {
	Old T `json:"old"`
	New T `json:"new"`
}

// NewSummary builds the JSON summary of an outcome.
func NewSummary(out *compare.Outcome) Summary {
	r := out.Result
	return Summary{
		RunID:      out.RunID,
		Old:        out.Old,
		New:        out.New,
		Strategy:   string(r.Strategy),
		Empty:      r.Empty,
		Record:     NewRecord(r.Stats),
		Statistics: r.Stats,
		Exempt:     SidePair[[]string]{Old: nonNil(r.Old.Exempt), New: nonNil(r.New.Exempt)},
		Regions:    SidePair[int]{Old: countRegions(r.Old.Regions), New: countRegions(r.New.Regions)},
		DurationMS: out.Duration.Milliseconds(),
		CreatedAt:  out.CreatedAt,
	}
}

// WriteJSON writes the summary as indented JSON.
func WriteJSON(w io.Writer, out *compare.Outcome) error {
	if out == nil || out.Result == nil {
		return domain.ValidationError("report needs a finished comparison", nil)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewSummary(out)); err != nil {
		return domain.IOError("encode summary", err)
	}
	return nil
}

func countRegions(pages []domain.PageRegions) int {
	n := 0
	for _, p := range pages {
		n += len(p.Regions)
	}
	return n
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
