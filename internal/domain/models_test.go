package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tok(page int, text string) Token {
	return Token{Page: page, BBox: BBox{X0: 1, Y0: 2, X1: 3, Y1: 4}, Text: text}
}

func TestDocument_FlattenAndPageCount(t *testing.T) {
	doc := &Document{Pages: []Page{
		{Index: 0, Tokens: []Token{tok(0, "a"), tok(0, "b")}},
		{Index: 2, Tokens: []Token{tok(2, "c")}},
	}}

	assert.Equal(t, 2, doc.PageCount())
	assert.Equal(t, 3, doc.TokenCount())
	assert.Equal(t, []string{"a", "b", "c"}, Texts(doc.Flatten()))

	var nilDoc *Document
	assert.Equal(t, 0, nilDoc.PageCount())
	assert.Empty(t, nilDoc.Flatten())
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "confidential", NormalizeKey("  Confidential "))
	assert.Equal(t, "confidential", tok(0, "CONFIDENTIAL").NormalizedKey())
}

func TestDocument_Validate(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr bool
	}{
		{name: "nil stream", doc: nil, wantErr: true},
		{name: "zero pages", doc: &Document{}, wantErr: false},
		{
			name: "well formed",
			doc:  &Document{Pages: []Page{{Index: 0, Tokens: []Token{tok(0, "ok")}}}},
		},
		{
			name:    "negative page index",
			doc:     &Document{Pages: []Page{{Index: -1, Tokens: []Token{tok(-1, "x")}}}},
			wantErr: true,
		},
		{
			name:    "empty page",
			doc:     &Document{Pages: []Page{{Index: 0}}},
			wantErr: true,
		},
		{
			name: "inverted bbox",
			doc: &Document{Pages: []Page{{Index: 0, Tokens: []Token{
				{Page: 0, BBox: BBox{X0: 5, Y0: 0, X1: 1, Y1: 1}, Text: "x"},
			}}}},
			wantErr: true,
		},
		{
			name: "NaN bbox",
			doc: &Document{Pages: []Page{{Index: 0, Tokens: []Token{
				{Page: 0, BBox: BBox{X0: math.NaN(), Y1: 1}, Text: "x"},
			}}}},
			wantErr: true,
		},
		{
			name:    "empty text",
			doc:     &Document{Pages: []Page{{Index: 0, Tokens: []Token{tok(0, "")}}}},
			wantErr: true,
		},
		{
			name:    "untrimmed text",
			doc:     &Document{Pages: []Page{{Index: 0, Tokens: []Token{tok(0, " x")}}}},
			wantErr: true,
		},
		{
			name:    "page index mismatch",
			doc:     &Document{Pages: []Page{{Index: 0, Tokens: []Token{tok(1, "x")}}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput), "expected ErrInvalidInput, got %v", err)
			assert.True(t, IsType(err, ErrorTypeValidation))
		})
	}
}

func TestDomainError_Wrapping(t *testing.T) {
	cause := errors.New("boom")
	err := ExtractionError("extract old document", cause)

	assert.Equal(t, "[extraction] extract old document: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.False(t, errors.Is(err, ErrInvalidInput))
}
