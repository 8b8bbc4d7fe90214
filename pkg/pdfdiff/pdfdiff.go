// Package pdfdiff is the public API of pdf-diff.
//
// Diff works on token streams that callers extracted themselves. Client
// works on PDF files and runs the full pipeline: inspection, extraction,
// token caching and diffing.
package pdfdiff

import (
	"context"
	"io"
	"os"

	"github.com/spherical/pdf-diff/internal/cache"
	"github.com/spherical/pdf-diff/internal/compare"
	"github.com/spherical/pdf-diff/internal/diff"
	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/observability"
	"github.com/spherical/pdf-diff/internal/pdf"
	"github.com/spherical/pdf-diff/internal/report"
)

// Re-export model types for the public API
type (
	Token           = domain.Token
	BBox            = domain.BBox
	Page            = domain.Page
	Document        = domain.Document
	DocumentInfo    = domain.DocumentInfo
	Opcode          = domain.Opcode
	EditScript      = domain.EditScript
	Classification  = domain.Classification
	ClassifiedToken = domain.ClassifiedToken
	Category        = domain.Category
	Region          = domain.Region
	PageRegions     = domain.PageRegions
	Statistics      = domain.Statistics
	StreamEvent     = domain.StreamEvent
	EventType       = domain.EventType
)

// Re-export result types
type (
	Result     = diff.Result
	SideResult = diff.SideResult
	Strategy   = diff.Strategy
	Outcome    = compare.Outcome
	Record     = report.Record
)

// Strategies
const (
	StrategyRatcliff = diff.StrategyRatcliff
	StrategyMyers    = diff.StrategyMyers
)

// Event type constants
const (
	EventStart             = domain.EventStart
	EventDocumentInspected = domain.EventDocumentInspected
	EventPageExtracted     = domain.EventPageExtracted
	EventDocumentExtracted = domain.EventDocumentExtracted
	EventDiffComplete      = domain.EventDiffComplete
	EventError             = domain.EventError
	EventComplete          = domain.EventComplete
)

// ErrInvalidInput matches every input-contract violation via errors.Is.
var ErrInvalidInput = domain.ErrInvalidInput

type options struct {
	strategy   Strategy
	exemptions bool
}

// Option configures Diff.
type Option func(*options)

// WithStrategy selects the alignment algorithm. The default is ratcliff.
func WithStrategy(s Strategy) Option {
	return func(o *options) { o.strategy = s }
}

// WithExemptions toggles the removal of words that occur once per page.
// Enabled by default.
func WithExemptions(enabled bool) Option {
	return func(o *options) { o.exemptions = enabled }
}

// Diff compares two token streams.
func Diff(oldDoc, newDoc *Document, opts ...Option) (*Result, error) {
	o := options{strategy: StrategyRatcliff, exemptions: true}
	for _, opt := range opts {
		opt(&o)
	}
	aligner, err := diff.NewAligner(o.strategy)
	if err != nil {
		return nil, err
	}
	return diff.NewEngine(diff.WithAligner(aligner), diff.WithExemptions(o.exemptions)).Run(oldDoc, newDoc)
}

// NewRecord flattens statistics into the report record.
func NewRecord(s Statistics) Record {
	return report.NewRecord(s)
}

// Config holds Client options. The zero value is usable.
type Config struct {
	Strategy          Strategy
	DisableExemptions bool
	PageDiff          bool
	// CacheDir enables an on-disk token cache.
	CacheDir string
	// LogOutput receives JSON logs; nil disables logging.
	LogOutput io.Writer
	LogLevel  string
}

// Client compares PDF files.
type Client struct {
	service *compare.Service
	tokens  *cache.TokenCache
}

// NewClient creates a new client.
func NewClient(cfg Config) (*Client, error) {
	logger := observability.Nop()
	if cfg.LogOutput != nil {
		logger = observability.NewLogger(observability.LogConfig{
			Level:       cfg.LogLevel,
			Format:      "json",
			Output:      cfg.LogOutput,
			ServiceName: "pdf-diff",
		})
	}

	aligner, err := diff.NewAligner(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	engine := diff.NewEngine(
		diff.WithAligner(aligner),
		diff.WithExemptions(!cfg.DisableExemptions),
		diff.WithLogger(logger),
	)

	var store cache.Store = cache.NopStore{}
	if cfg.CacheDir != "" {
		if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
			return nil, domain.IOError("create cache directory", err)
		}
		if store, err = cache.OpenBadger(cfg.CacheDir); err != nil {
			return nil, domain.StorageError("open token cache", err)
		}
	}
	tokens := cache.NewTokenCache(store, 0, logger)

	extractor := cache.NewCachingExtractor(
		pdf.NewExtractor(pdf.NewGapTokenizer(), pdf.WithExtractorLogger(logger)),
		tokens, logger,
	)
	service := compare.NewService(extractor, engine,
		compare.WithInspector(pdf.NewInspector(pdf.NewValidator(logger))),
		compare.WithPageDiff(cfg.PageDiff),
		compare.WithLogger(logger),
	)

	return &Client{service: service, tokens: tokens}, nil
}

// Compare compares two PDF files.
func (c *Client) Compare(ctx context.Context, oldPath, newPath string) (*Outcome, error) {
	return c.service.Compare(ctx, compare.Request{OldPath: oldPath, NewPath: newPath}, nil)
}

// Stream runs a comparison in the background. The event channel is closed
// when the run ends; wait then returns its outcome.
func (c *Client) Stream(ctx context.Context, oldPath, newPath string) (events <-chan StreamEvent, wait func() (*Outcome, error)) {
	eventCh := make(chan StreamEvent, 100)
	type result struct {
		out *Outcome
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer close(eventCh)
		out, err := c.service.Compare(ctx, compare.Request{OldPath: oldPath, NewPath: newPath}, eventCh)
		done <- result{out, err}
	}()

	return eventCh, func() (*Outcome, error) {
		r := <-done
		return r.out, r.err
	}
}

// WriteReport renders the Markdown report of an outcome.
func WriteReport(w io.Writer, out *Outcome, pageDiff bool) error {
	return report.RenderMarkdown(w, out, report.Options{PageDiff: pageDiff})
}

// Close releases the token cache.
func (c *Client) Close() error {
	return c.tokens.Close()
}
