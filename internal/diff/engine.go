// Package diff aligns two token streams and classifies every token as
// unchanged, deleted, inserted or replaced.
//
// The engine is pure and synchronous: it holds no mutable state between
// runs, so one Engine may serve concurrent callers.
package diff

import (
	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/observability"
)

// SideResult is the per-document half of a run.
type SideResult struct {
	PageCount  int                      `json:"page_count"`
	Exempt     []string                 `json:"exempt"`
	Filtered   []domain.Token           `json:"-"`
	Classified []domain.ClassifiedToken `json:"classified"`
	Regions    []domain.PageRegions     `json:"regions"`
}

// Result is the output of one engine run.
type Result struct {
	Old    SideResult        `json:"old"`
	New    SideResult        `json:"new"`
	Script domain.EditScript `json:"script"`
	Stats  domain.Statistics `json:"statistics"`
	// Empty is set when either document has no pages; all counts are zero.
	Empty    bool     `json:"empty"`
	Strategy Strategy `json:"strategy"`
	// Exemptions records whether boilerplate was filtered before alignment.
	Exemptions bool `json:"exemptions"`
}

// Engine runs the exemption, alignment, classification and region passes.
type Engine struct {
	aligner    Aligner
	exemptions bool
	logger     *observability.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithAligner overrides the alignment algorithm.
func WithAligner(a Aligner) Option {
	return func(e *Engine) { e.aligner = a }
}

// WithExemptions toggles boilerplate filtering. Enabled by default.
func WithExemptions(enabled bool) Option {
	return func(e *Engine) { e.exemptions = enabled }
}

// WithLogger sets the engine logger.
func WithLogger(l *observability.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine with the Ratcliff aligner and exemptions on.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		aligner:    RatcliffAligner{},
		exemptions: true,
		logger:     observability.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run validates both streams and diffs them.
func (e *Engine) Run(oldDoc, newDoc *domain.Document) (*Result, error) {
	if err := oldDoc.Validate(); err != nil {
		return nil, domain.ValidationError("old document", err)
	}
	if err := newDoc.Validate(); err != nil {
		return nil, domain.ValidationError("new document", err)
	}

	res := &Result{
		Old:        SideResult{PageCount: oldDoc.PageCount(), Exempt: []string{}},
		New:        SideResult{PageCount: newDoc.PageCount(), Exempt: []string{}},
		Script:     domain.EditScript{},
		Strategy:   e.aligner.Name(),
		Exemptions: e.exemptions,
	}
	if res.Old.PageCount == 0 || res.New.PageCount == 0 {
		res.Empty = true
		e.logger.Debug().
			Int("old_pages", res.Old.PageCount).
			Int("new_pages", res.New.PageCount).
			Msg("empty document, skipping alignment")
		return res, nil
	}

	oldTokens, newTokens := oldDoc.Flatten(), newDoc.Flatten()
	if e.exemptions {
		oldSet, newSet := ComputeExemptions(oldDoc), ComputeExemptions(newDoc)
		oldTokens, newTokens = Filter(oldTokens, oldSet), Filter(newTokens, newSet)
		res.Old.Exempt, res.New.Exempt = oldSet.Keys(), newSet.Keys()
	}
	res.Old.Filtered, res.New.Filtered = oldTokens, newTokens

	res.Script = e.aligner.Align(domain.Texts(oldTokens), domain.Texts(newTokens))
	res.Old.Classified, res.New.Classified = Classify(oldTokens, newTokens, res.Script)
	res.Old.Regions = MapRegions(domain.SideOld, res.Old.Classified)
	res.New.Regions = MapRegions(domain.SideNew, res.New.Classified)
	res.Stats = Aggregate(res.Script, len(oldTokens), len(newTokens))

	e.logger.Debug().
		Str("strategy", string(res.Strategy)).
		Int("old_tokens", len(oldTokens)).
		Int("new_tokens", len(newTokens)).
		Int("old_exempt", len(res.Old.Exempt)).
		Int("new_exempt", len(res.New.Exempt)).
		Int("opcodes", len(res.Script)).
		Msg("diff run complete")

	return res, nil
}
