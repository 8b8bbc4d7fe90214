package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"
)

// PageBar shows per-page extraction progress. A nil *PageBar is a no-op.
type PageBar struct {
	bar     *progressbar.ProgressBar
	current int64
}

// NewPageBar creates a page progress bar, or nil in JSON mode.
func (ui *UI) NewPageBar(total int64, description string) *PageBar {
	if ui.jsonMode {
		return nil
	}
	bar := progressbar.NewOptions64(
		total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &PageBar{bar: bar}
}

// Add advances the bar by n pages.
func (p *PageBar) Add(n int64) {
	if p == nil {
		return
	}
	p.current += n
	_ = p.bar.Set64(p.current)
}

// Finish completes the bar.
func (p *PageBar) Finish() {
	if p == nil {
		return
	}
	_ = p.bar.Finish()
}

// Spinner shows indeterminate progress. A nil *Spinner is a no-op.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates a spinner with the given message, or nil in JSON mode.
func (ui *UI) NewSpinner(message string) *Spinner {
	if ui.jsonMode {
		return nil
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = os.Stderr
	return &Spinner{spinner: s}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	if s != nil {
		s.spinner.Start()
	}
}

// Stop stops the spinner and clears the line.
func (s *Spinner) Stop() {
	if s != nil {
		s.spinner.Stop()
	}
}

// UpdateMessage updates the spinner's message.
func (s *Spinner) UpdateMessage(message string) {
	if s != nil {
		s.spinner.Suffix = " " + message
	}
}
