package pdf

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spherical/pdf-diff/internal/domain"
)

// Glyph is one positioned text run from a content stream, in PDF user
// space (origin bottom-left, Y is the baseline).
type Glyph struct {
	Text     string
	X, Y     float64
	W        float64
	FontSize float64
}

// Tokenizer turns a page's glyphs into word tokens.
type Tokenizer interface {
	// Tokenize returns the page's tokens in reading order. pageHeight > 0
	// flips boxes to a top-left origin.
	Tokenize(page int, glyphs []Glyph, pageHeight float64) []domain.Token
	// Fingerprint identifies the tokenizer settings.
	Fingerprint() string
}

// GapTokenizer groups glyphs into rows by baseline and splits words on
// whitespace glyphs or horizontal gaps.
type GapTokenizer struct {
	RowTolerance      float64 // max baseline drift within a row, in points
	WordGapMultiplier float64 // gap wider than this × font size starts a word
}

// NewGapTokenizer creates a tokenizer with the default 3pt row tolerance
// and a word gap of 0.3 × font size.
func NewGapTokenizer() *GapTokenizer {
	return &GapTokenizer{RowTolerance: 3.0, WordGapMultiplier: 0.3}
}

func (t *GapTokenizer) Fingerprint() string {
	return fmt.Sprintf("gap:rt=%g:wg=%g", t.RowTolerance, t.WordGapMultiplier)
}

type row struct {
	y      float64
	glyphs []Glyph
}

// word accumulates glyph extents until flushed.
type word struct {
	text                strings.Builder
	x0, x1, bottom, top float64
	started             bool
}

func (w *word) add(text string, x0, x1, baseline, size float64) {
	if !w.started {
		w.x0, w.x1, w.bottom, w.top = x0, x1, baseline, baseline+size
		w.started = true
	} else {
		w.x0 = math.Min(w.x0, x0)
		w.x1 = math.Max(w.x1, x1)
		w.bottom = math.Min(w.bottom, baseline)
		w.top = math.Max(w.top, baseline+size)
	}
	w.text.WriteString(text)
}

func (t *GapTokenizer) Tokenize(page int, glyphs []Glyph, pageHeight float64) []domain.Token {
	var tokens []domain.Token
	for _, r := range t.rows(glyphs) {
		tokens = append(tokens, t.words(page, r, pageHeight)...)
	}
	return tokens
}

// rows buckets glyphs top to bottom, each row sorted left to right.
func (t *GapTokenizer) rows(glyphs []Glyph) []row {
	sorted := make([]Glyph, 0, len(glyphs))
	for _, g := range glyphs {
		if g.Text != "" {
			sorted = append(sorted, g)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var rows []row
	for _, g := range sorted {
		if n := len(rows); n > 0 && math.Abs(rows[n-1].y-g.Y) <= t.RowTolerance {
			rows[n-1].glyphs = append(rows[n-1].glyphs, g)
			continue
		}
		rows = append(rows, row{y: g.Y, glyphs: []Glyph{g}})
	}
	for i := range rows {
		gs := rows[i].glyphs
		sort.SliceStable(gs, func(a, b int) bool { return gs[a].X < gs[b].X })
	}
	return rows
}

func (t *GapTokenizer) words(page int, r row, pageHeight float64) []domain.Token {
	var (
		tokens []domain.Token
		cur    word
		prevX1 float64
	)
	flush := func() {
		if cur.started {
			if text := strings.TrimSpace(cur.text.String()); text != "" {
				tokens = append(tokens, domain.Token{
					Page: page,
					BBox: box(&cur, pageHeight),
					Text: text,
				})
			}
		}
		cur = word{}
	}

	for _, g := range r.glyphs {
		size := math.Abs(g.FontSize)
		x1 := g.X + math.Max(g.W, 0)

		if strings.TrimSpace(g.Text) == "" {
			flush()
			prevX1 = x1
			continue
		}
		if cur.started && g.X-prevX1 > t.WordGapMultiplier*size {
			flush()
		}

		// Multi-character runs may carry their own spaces; split them and
		// share the run's width out by rune count.
		parts := splitRun(g.Text)
		total := utf8.RuneCountInString(g.Text)
		x := g.X
		for _, p := range parts {
			if p.space {
				flush()
			} else {
				pw := 0.0
				if total > 0 {
					pw = (x1 - g.X) * float64(p.runes) / float64(total)
				}
				cur.add(p.text, x, x+pw, g.Y, size)
			}
			if total > 0 {
				x += (x1 - g.X) * float64(p.runes) / float64(total)
			}
		}
		prevX1 = x1
	}
	flush()
	return tokens
}

type runPart struct {
	text  string
	runes int
	space bool
}

// splitRun breaks a glyph run into alternating word and whitespace parts.
func splitRun(s string) []runPart {
	var (
		parts []runPart
		b     strings.Builder
		n     int
		space bool
	)
	emit := func() {
		if n > 0 {
			parts = append(parts, runPart{text: b.String(), runes: n, space: space})
		}
		b.Reset()
		n = 0
	}
	for _, r := range s {
		isSpace := unicode.IsSpace(r)
		if n > 0 && isSpace != space {
			emit()
		}
		space = isSpace
		b.WriteRune(r)
		n++
	}
	emit()
	return parts
}

// box converts word extents to a token box. With a page height the box is
// flipped so y grows downward from the top edge.
func box(w *word, pageHeight float64) domain.BBox {
	if pageHeight > 0 {
		return domain.BBox{X0: w.x0, Y0: pageHeight - w.top, X1: w.x1, Y1: pageHeight - w.bottom}
	}
	return domain.BBox{X0: w.x0, Y0: w.bottom, X1: w.x1, Y1: w.top}
}
