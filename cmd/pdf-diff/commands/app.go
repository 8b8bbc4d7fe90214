package commands

import (
	"context"
	"errors"

	"github.com/spherical/pdf-diff/internal/cache"
	"github.com/spherical/pdf-diff/internal/compare"
	"github.com/spherical/pdf-diff/internal/config"
	"github.com/spherical/pdf-diff/internal/diff"
	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/observability"
	"github.com/spherical/pdf-diff/internal/pdf"
	"github.com/spherical/pdf-diff/internal/storage"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg       *config.Config
	logger    *observability.Logger
	inspector *pdf.Inspector
	service   *compare.Service
	history   *storage.HistoryRepository
	closers   []func() error
}

// newApp wires configuration into a comparison service. When needHistory is
// false a history database that cannot be opened only produces a warning.
func newApp(ctx context.Context, cfg *config.Config, log *observability.Logger, needHistory bool) (*app, error) {
	a := &app{cfg: cfg, logger: log}

	history, err := a.openHistory(ctx)
	if err != nil {
		if needHistory {
			a.Close()
			return nil, err
		}
		log.Warn().Err(err).Msg("comparison history disabled")
	}
	a.history = history

	aligner, err := diff.NewAligner(diff.Strategy(cfg.Diff.Strategy))
	if err != nil {
		a.Close()
		return nil, err
	}
	engine := diff.NewEngine(
		diff.WithAligner(aligner),
		diff.WithExemptions(cfg.Diff.ExemptBoilerplate),
		diff.WithLogger(log),
	)

	validator := pdf.NewValidator(log)
	a.inspector = pdf.NewInspector(validator)
	tokenizer := &pdf.GapTokenizer{
		RowTolerance:      cfg.Extract.RowTolerance,
		WordGapMultiplier: cfg.Extract.WordGapMultiplier,
	}
	var extractor domain.DocumentExtractor = pdf.NewExtractor(tokenizer, pdf.WithFlipY(cfg.Extract.FlipY), pdf.WithExtractorLogger(log))

	store, err := cache.Open(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Str("driver", cfg.Cache.Driver).Msg("token cache disabled")
		store = cache.NopStore{}
	}
	tokens := cache.NewTokenCache(store, cfg.Cache.TTL, log)
	a.closers = append(a.closers, tokens.Close)
	extractor = cache.NewCachingExtractor(extractor, tokens, log)

	opts := []compare.Option{
		compare.WithInspector(a.inspector),
		compare.WithPageDiff(cfg.Output.PageDiff),
		compare.WithLogger(log),
	}
	if a.history != nil {
		opts = append(opts, compare.WithHistory(a.history))
	}
	a.service = compare.NewService(extractor, engine, opts...)

	return a, nil
}

func (a *app) openHistory(ctx context.Context) (*storage.HistoryRepository, error) {
	if a.cfg.History.Driver == "none" {
		return nil, nil
	}
	db, err := storage.Open(ctx, a.cfg.History.Driver, a.cfg.HistoryDSN(), a.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)

	repo := storage.NewHistoryRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// Close releases caches and database handles.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
