// Package ui provides terminal output for the pdf-diff CLI.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// UI provides user-friendly output utilities. In JSON mode every method is
// silent so stdout carries only the JSON document.
type UI struct {
	out      io.Writer
	progress *mpb.Progress
	jsonMode bool
	verbose  bool
}

// NewUI creates a new UI instance.
func NewUI(jsonMode, noColor, verbose bool) *UI {
	if noColor {
		color.NoColor = true
	}
	return &UI{out: os.Stdout, jsonMode: jsonMode, verbose: verbose}
}

// Verbose reports whether verbose output was requested.
func (ui *UI) Verbose() bool { return ui.verbose }

// Close waits for any progress bars to finish.
func (ui *UI) Close() {
	if ui.progress == nil {
		return
	}
	// Bars cannot render when stderr is piped and Wait may hang.
	if IsTerminal() {
		ui.progress.Wait()
	} else {
		ui.progress.Shutdown()
	}
}

// IsTerminal reports whether stderr is attached to a terminal.
func IsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (ui *UI) print(c *color.Color, symbol, format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	c.Fprintf(ui.out, "%s %s\n", symbol, fmt.Sprintf(format, args...))
}

// Success prints a success message.
func (ui *UI) Success(format string, args ...interface{}) {
	ui.print(color.New(color.FgGreen), "✓", format, args...)
}

// Error prints an error message to stderr.
func (ui *UI) Error(format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	color.New(color.FgRed).Fprintf(os.Stderr, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (ui *UI) Warning(format string, args ...interface{}) {
	ui.print(color.New(color.FgYellow), "⚠", format, args...)
}

// Info prints an info message.
func (ui *UI) Info(format string, args ...interface{}) {
	ui.print(color.New(color.FgCyan), "ℹ", format, args...)
}

// Step prints a step message.
func (ui *UI) Step(format string, args ...interface{}) {
	ui.print(color.New(color.FgBlue), "→", format, args...)
}

// Section prints an underlined header.
func (ui *UI) Section(title string) {
	if ui.jsonMode {
		return
	}
	bold := color.New(color.Bold)
	bold.Fprintf(ui.out, "\n%s\n", title)
	fmt.Fprintf(ui.out, "%s\n\n", strings.Repeat("=", len(title)))
}

// Line prints a plain line.
func (ui *UI) Line(format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	fmt.Fprintf(ui.out, format+"\n", args...)
}

// Newline prints a newline.
func (ui *UI) Newline() {
	if ui.jsonMode {
		return
	}
	fmt.Fprintln(ui.out)
}

// ProgressBar creates a counting bar for batch work. It returns nil in
// JSON mode.
func (ui *UI) ProgressBar(name string, total int64) *mpb.Bar {
	if ui.jsonMode {
		return nil
	}
	if ui.progress == nil {
		ui.progress = mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
	}

	return ui.progress.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DSyncSpaceR}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.Elapsed(decor.ET_STYLE_GO, decor.WC{W: 12}),
			decor.OnComplete(
				decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 12}),
				" done",
			),
		),
	)
}
