package pdf

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdf-diff/internal/domain"
)

func fixture(name string) string {
	return filepath.Join("testdata", name)
}

func glyphs(x, y, size float64, text string) []Glyph {
	out := make([]Glyph, 0, len(text))
	for i, r := range text {
		out = append(out, Glyph{Text: string(r), X: x + float64(i)*size/2, Y: y, W: size / 2, FontSize: size})
	}
	return out
}

func TestGapTokenizer_SplitsOnSpaceGlyphs(t *testing.T) {
	tk := NewGapTokenizer()
	tokens := tk.Tokenize(0, glyphs(72, 700, 12, "Hello World"), 0)

	require.Len(t, tokens, 2)
	assert.Equal(t, "Hello", tokens[0].Text)
	assert.Equal(t, "World", tokens[1].Text)
	assert.Equal(t, domain.BBox{X0: 72, Y0: 700, X1: 102, Y1: 712}, tokens[0].BBox)
	assert.Equal(t, 0, tokens[1].Page)
}

func TestGapTokenizer_SplitsOnGap(t *testing.T) {
	gs := append(glyphs(72, 700, 10, "ab"), glyphs(100, 700, 10, "cd")...)
	tokens := NewGapTokenizer().Tokenize(3, gs, 0)

	assert.Equal(t, []string{"ab", "cd"}, domain.Texts(tokens))
	assert.Equal(t, 3, tokens[0].Page)
}

func TestGapTokenizer_RowsTopToBottom(t *testing.T) {
	// emitted bottom row first and right to left within the top row
	gs := glyphs(72, 600, 12, "footer")
	gs = append(gs, glyphs(200, 760, 12, "right")...)
	gs = append(gs, glyphs(72, 761, 12, "left")...)

	tokens := NewGapTokenizer().Tokenize(0, gs, 0)
	assert.Equal(t, []string{"left", "right", "footer"}, domain.Texts(tokens))
}

func TestGapTokenizer_FlipsY(t *testing.T) {
	tokens := NewGapTokenizer().Tokenize(0, glyphs(72, 760, 12, "Top"), 792)
	require.Len(t, tokens, 1)
	assert.Equal(t, domain.BBox{X0: 72, Y0: 20, X1: 90, Y1: 32}, tokens[0].BBox)
	assert.True(t, tokens[0].BBox.Valid())
}

func TestGapTokenizer_MultiCharacterRun(t *testing.T) {
	gs := []Glyph{{Text: " two words ", X: 0, Y: 100, W: 110, FontSize: 10}}
	tokens := NewGapTokenizer().Tokenize(0, gs, 0)

	require.Equal(t, []string{"two", "words"}, domain.Texts(tokens))
	assert.InDelta(t, 10.0, tokens[0].BBox.X0, 1e-9)
	assert.InDelta(t, 40.0, tokens[0].BBox.X1, 1e-9)
	assert.InDelta(t, 50.0, tokens[1].BBox.X0, 1e-9)
}

func TestGapTokenizer_Fingerprint(t *testing.T) {
	a := NewGapTokenizer()
	b := &GapTokenizer{RowTolerance: 2, WordGapMultiplier: 0.3}
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestValidator(t *testing.T) {
	v := NewValidator(nil)

	require.NoError(t, v.ValidatePDFPath(fixture("old.pdf")))

	tests := map[string]string{
		"empty":     " ",
		"missing":   fixture("missing.pdf"),
		"directory": "testdata",
		"extension": fixture("notes.txt"),
	}
	for name, path := range tests {
		t.Run(name, func(t *testing.T) {
			err := v.ValidatePDFPath(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestExtractor_Fixtures(t *testing.T) {
	ex := NewExtractor(NewGapTokenizer())

	var calls []int
	oldDoc, err := ex.Extract(context.Background(), fixture("old.pdf"), func(page, total int) {
		calls = append(calls, page)
		assert.Equal(t, 2, total)
	})
	require.NoError(t, err)
	require.NoError(t, oldDoc.Validate())

	assert.Equal(t, []int{1, 2}, calls)
	require.Equal(t, 2, oldDoc.PageCount())
	assert.Equal(t, []string{"Confidential", "Hello", "World"}, domain.Texts(oldDoc.Pages[0].Tokens))
	assert.Equal(t, []string{"Confidential", "The", "quick", "fox"}, domain.Texts(oldDoc.Pages[1].Tokens))

	hello := oldDoc.Pages[0].Tokens[1].BBox
	assert.InDelta(t, 72.0, hello.X0, 0.5)
	assert.InDelta(t, 80.0, hello.Y0, 0.5)
	assert.InDelta(t, 92.0, hello.Y1, 0.5)
}

func TestExtractor_DropsPagesWithoutText(t *testing.T) {
	doc, err := NewExtractor(NewGapTokenizer()).Extract(context.Background(), fixture("new.pdf"), nil)
	require.NoError(t, err)

	require.Equal(t, 2, doc.PageCount())
	assert.Equal(t, 0, doc.Pages[0].Index)
	assert.Equal(t, 1, doc.Pages[1].Index)
	assert.Equal(t, []string{"Confidential", "Hello", "brave", "World"}, domain.Texts(doc.Pages[0].Tokens))
}

func TestExtractor_NoFlip(t *testing.T) {
	doc, err := NewExtractor(NewGapTokenizer(), WithFlipY(false)).Extract(context.Background(), fixture("old.pdf"), nil)
	require.NoError(t, err)

	hello := doc.Pages[0].Tokens[1].BBox
	assert.InDelta(t, 700.0, hello.Y0, 0.5)
	assert.InDelta(t, 712.0, hello.Y1, 0.5)
}

func TestExtractor_Errors(t *testing.T) {
	ex := NewExtractor(NewGapTokenizer())

	_, err := ex.Extract(context.Background(), fixture("corrupt.pdf"), nil)
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeConversion))

	_, err = ex.Extract(context.Background(), fixture("notes.txt"), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ex.Extract(ctx, fixture("old.pdf"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractor_FingerprintTracksSettings(t *testing.T) {
	a := NewExtractor(NewGapTokenizer())
	b := NewExtractor(NewGapTokenizer(), WithFlipY(false))
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestInspector(t *testing.T) {
	info, err := NewInspector(nil).Inspect(fixture("new.pdf"))
	require.NoError(t, err)

	assert.Equal(t, 3, info.PhysicalPages)
	assert.Equal(t, "New Version", info.Title)
	assert.Equal(t, fixture("new.pdf"), info.Path)

	sizes, err := NewInspector(nil).PageSizes(fixture("old.pdf"))
	require.NoError(t, err)
	require.Len(t, sizes, 2)
	assert.InDelta(t, 612.0, sizes[0].Width, 1)
	assert.InDelta(t, 792.0, sizes[0].Height, 1)
}

func TestMetaValue_StripsPadding(t *testing.T) {
	meta := map[string]string{
		"title":  "New Version\x00\x00\x00\x00",
		"author": "  Jane Roe \x00",
	}
	assert.Equal(t, "New Version", metaValue(meta, "title"))
	assert.Equal(t, "Jane Roe", metaValue(meta, "author"))
	assert.Equal(t, "", metaValue(meta, "producer"))
}
