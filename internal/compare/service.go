// Package compare orchestrates a full comparison of two PDF files:
// inspection, extraction, diffing and history recording.
package compare

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/spherical/pdf-diff/internal/diff"
	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/observability"
	"github.com/spherical/pdf-diff/internal/storage"
)

// HistoryRecorder persists finished runs.
type HistoryRecorder interface {
	Save(ctx context.Context, run *storage.Run) error
}

// Request names the two files of a comparison.
type Request struct {
	OldPath string `json:"old_path"`
	NewPath string `json:"new_path"`
}

// Outcome is everything a comparison produced.
type Outcome struct {
	RunID     string              `json:"run_id"`
	Request   Request             `json:"request"`
	Old       domain.DocumentInfo `json:"old"`
	New       domain.DocumentInfo `json:"new"`
	Result    *diff.Result        `json:"result"`
	PageDiff  string              `json:"page_diff,omitempty"`
	Duration  time.Duration       `json:"duration"`
	CreatedAt time.Time           `json:"created_at"`

	// OldDoc and NewDoc are the unfiltered token streams.
	OldDoc *domain.Document `json:"-"`
	NewDoc *domain.Document `json:"-"`
}

// Service orchestrates the comparison workflow.
type Service struct {
	extractor domain.DocumentExtractor
	inspector domain.DocumentInspector
	engine    *diff.Engine
	history   HistoryRecorder
	pageDiff  bool
	logger    *observability.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithInspector enables the inspection stage.
func WithInspector(i domain.DocumentInspector) Option {
	return func(s *Service) { s.inspector = i }
}

// WithHistory records every successful run.
func WithHistory(h HistoryRecorder) Option {
	return func(s *Service) { s.history = h }
}

// WithPageDiff attaches a unified page-text diff to each outcome.
func WithPageDiff(enabled bool) Option {
	return func(s *Service) { s.pageDiff = enabled }
}

// WithLogger sets the service logger.
func WithLogger(l *observability.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a new comparison service.
func NewService(extractor domain.DocumentExtractor, engine *diff.Engine, opts ...Option) *Service {
	s := &Service{
		extractor: extractor,
		engine:    engine,
		logger:    observability.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithOperation("compare")
	return s
}

// Compare runs one comparison, emitting progress on eventCh (may be nil).
func (s *Service) Compare(ctx context.Context, req Request, eventCh chan<- domain.StreamEvent) (*Outcome, error) {
	start := time.Now()
	out := &Outcome{
		RunID:     uuid.NewString(),
		Request:   req,
		Old:       domain.DocumentInfo{Path: req.OldPath},
		New:       domain.DocumentInfo{Path: req.NewPath},
		CreatedAt: start.UTC(),
	}
	log := s.logger.With().Str("run_id", out.RunID).Logger()

	s.emitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventStart,
		Payload:   fmt.Sprintf("Comparing %s with %s", req.OldPath, req.NewPath),
		Timestamp: time.Now(),
	})

	if s.inspector != nil {
		for _, side := range []struct {
			side domain.Side
			info *domain.DocumentInfo
		}{{domain.SideOld, &out.Old}, {domain.SideNew, &out.New}} {
			info, err := s.inspector.Inspect(side.info.Path)
			if err != nil {
				return nil, s.fail(eventCh, side.side, "inspect", err)
			}
			*side.info = *info
			s.emitEvent(eventCh, domain.StreamEvent{
				Type:       domain.EventDocumentInspected,
				Side:       side.side,
				TotalPages: info.PhysicalPages,
				Payload:    *info,
				Timestamp:  time.Now(),
			})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		doc, err := s.extract(gctx, domain.SideOld, req.OldPath, eventCh)
		out.OldDoc = doc
		return err
	})
	g.Go(func() error {
		doc, err := s.extract(gctx, domain.SideNew, req.NewPath, eventCh)
		out.NewDoc = doc
		return err
	})
	if err := g.Wait(); err != nil {
		s.emitError(eventCh, err)
		return nil, err
	}
	fillInfo(&out.Old, out.OldDoc)
	fillInfo(&out.New, out.NewDoc)

	result, err := s.engine.Run(out.OldDoc, out.NewDoc)
	if err != nil {
		s.emitError(eventCh, err)
		return nil, fmt.Errorf("diff: %w", err)
	}
	out.Result = result

	if s.pageDiff {
		if out.PageDiff, err = diff.PageTextDiff(out.OldDoc, out.NewDoc, 3); err != nil {
			log.Warn().Err(err).Msg("page diff failed")
		}
	}

	s.emitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventDiffComplete,
		Payload:   result.Stats,
		Timestamp: time.Now(),
	})

	out.Duration = time.Since(start)

	if s.history != nil {
		if err := s.history.Save(ctx, s.historyRun(out)); err != nil {
			log.Warn().Err(err).Msg("failed to record comparison history")
		}
	}

	s.emitEvent(eventCh, domain.StreamEvent{
		Type: domain.EventComplete,
		Payload: fmt.Sprintf("Comparison complete: +%d -%d ~%d in %v",
			result.Stats.Added, result.Stats.Removed, result.Stats.Replaced, out.Duration.Round(time.Millisecond)),
		Timestamp: time.Now(),
	})

	log.Info().
		Int("added", result.Stats.Added).
		Int("removed", result.Stats.Removed).
		Int("replaced", result.Stats.Replaced).
		Bool("empty", result.Empty).
		Dur("duration", out.Duration).
		Msg("comparison complete")

	return out, nil
}

func (s *Service) extract(ctx context.Context, side domain.Side, path string, eventCh chan<- domain.StreamEvent) (*domain.Document, error) {
	progress := func(page, total int) {
		s.emitEvent(eventCh, domain.StreamEvent{
			Type:       domain.EventPageExtracted,
			Side:       side,
			PageNumber: page,
			TotalPages: total,
			Timestamp:  time.Now(),
		})
	}

	doc, err := s.extractor.Extract(ctx, path, progress)
	if err != nil {
		var de *domain.DomainError
		if !errors.As(err, &de) && ctx.Err() == nil {
			err = domain.ExtractionError("read "+path, err)
		}
		return nil, stageError(side, "extract", err)
	}

	s.emitEvent(eventCh, domain.StreamEvent{
		Type:       domain.EventDocumentExtracted,
		Side:       side,
		TotalPages: doc.PageCount(),
		Payload:    fmt.Sprintf("Extracted %d tokens from %d pages", doc.TokenCount(), doc.PageCount()),
		Timestamp:  time.Now(),
	})
	return doc, nil
}

func (s *Service) historyRun(out *Outcome) *storage.Run {
	return &storage.Run{
		ID:                out.RunID,
		OldPath:           out.Request.OldPath,
		NewPath:           out.Request.NewPath,
		Strategy:          string(out.Result.Strategy),
		ExemptBoilerplate: out.Result.Exemptions,
		Empty:             out.Result.Empty,
		Stats:             out.Result.Stats,
		Duration:          out.Duration,
		CreatedAt:         out.CreatedAt,
	}
}

func fillInfo(info *domain.DocumentInfo, doc *domain.Document) {
	info.TextPages = doc.PageCount()
	info.Tokens = doc.TokenCount()
}

// stageError keeps the collaborator's error intact and names where it happened.
func stageError(side domain.Side, stage string, err error) error {
	return fmt.Errorf("%s document: %s: %w", side, stage, err)
}

func (s *Service) fail(eventCh chan<- domain.StreamEvent, side domain.Side, stage string, err error) error {
	err = stageError(side, stage, err)
	s.emitError(eventCh, err)
	return err
}

// emitEvent safely emits an event to the channel
func (s *Service) emitEvent(eventCh chan<- domain.StreamEvent, event domain.StreamEvent) {
	if eventCh != nil {
		select {
		case eventCh <- event:
		default:
			s.logger.Warn().Str("event", string(event.Type)).Msg("event channel full, dropping event")
		}
	}
}

// emitError emits an error event
func (s *Service) emitError(eventCh chan<- domain.StreamEvent, err error) {
	s.emitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventError,
		Payload:   err.Error(),
		Timestamp: time.Now(),
	})
}
