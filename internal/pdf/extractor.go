package pdf

import (
	"context"
	"fmt"
	"os"

	"rsc.io/pdf"

	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/observability"
)

// Extractor reads positioned text from PDF files and tokenizes it.
type Extractor struct {
	tokenizer Tokenizer
	validator *Validator
	flipY     bool
	logger    *observability.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithFlipY controls whether boxes use a top-left origin. Default true.
func WithFlipY(flip bool) ExtractorOption {
	return func(e *Extractor) { e.flipY = flip }
}

// WithExtractorLogger sets the extractor logger.
func WithExtractorLogger(l *observability.Logger) ExtractorOption {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor creates an extractor around the given tokenizer.
func NewExtractor(tokenizer Tokenizer, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		tokenizer: tokenizer,
		flipY:     true,
		logger:    observability.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.validator = NewValidator(e.logger)
	return e
}

// Fingerprint identifies the extraction settings for cache keys.
func (e *Extractor) Fingerprint() string {
	return fmt.Sprintf("%s:flip=%t", e.tokenizer.Fingerprint(), e.flipY)
}

// Extract returns the token stream of every page that yields text.
// Page indices are the zero-based physical page numbers, so pages without
// text leave gaps.
func (e *Extractor) Extract(ctx context.Context, path string, progress domain.ProgressFunc) (*domain.Document, error) {
	if err := e.validator.ValidatePDFPath(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("open %s", path), err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("stat %s", path), err)
	}

	reader, err := openReader(f, info.Size())
	if err != nil {
		return nil, err
	}

	total := reader.NumPage()
	doc := &domain.Document{}
	for i := 1; i <= total; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		tokens, err := e.extractPage(reader, i)
		if err != nil {
			return nil, err
		}
		if len(tokens) > 0 {
			doc.Pages = append(doc.Pages, domain.Page{Index: i - 1, Tokens: tokens})
		}
		if progress != nil {
			progress(i, total)
		}
	}

	e.logger.Debug().
		Str("path", path).
		Int("physical_pages", total).
		Int("text_pages", doc.PageCount()).
		Int("tokens", doc.TokenCount()).
		Msg("extracted document")

	return doc, nil
}

func openReader(f *os.File, size int64) (r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = domain.ConversionError("parse pdf", fmt.Errorf("%v", p))
		}
	}()
	r, err = pdf.NewReader(f, size)
	if err != nil {
		return nil, domain.ConversionError("parse pdf", err)
	}
	return r, nil
}

// extractPage reads one 1-based page. The parser panics on some malformed
// content streams; those become conversion errors for that page.
func (e *Extractor) extractPage(r *pdf.Reader, n int) (tokens []domain.Token, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = domain.ConversionError(fmt.Sprintf("read page %d", n), fmt.Errorf("%v", p))
		}
	}()

	page := r.Page(n)
	if page.V.IsNull() {
		return nil, nil
	}

	content := page.Content()
	glyphs := make([]Glyph, 0, len(content.Text))
	for _, t := range content.Text {
		glyphs = append(glyphs, Glyph{Text: t.S, X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize})
	}

	height := 0.0
	if e.flipY {
		height = pageHeight(page)
	}
	return e.tokenizer.Tokenize(n-1, glyphs, height), nil
}

// pageHeight reads MediaBox, inherited through the page tree if needed.
// Zero means unknown.
func pageHeight(page pdf.Page) float64 {
	v := page.V
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		mb := v.Key("MediaBox")
		if mb.Len() == 4 {
			return mb.Index(3).Float64() - mb.Index(1).Float64()
		}
		v = v.Key("Parent")
	}
	return 0
}
