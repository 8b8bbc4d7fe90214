package domain

import (
	"strings"
	"time"
)

// BBox is an axis-aligned rectangle in page coordinates.
type BBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Valid reports whether the box is well formed (x0<=x1, y0<=y1, no NaN).
func (b BBox) Valid() bool {
	return b.X0 <= b.X1 && b.Y0 <= b.Y1
}

// Token is a single word-like unit of text with its page and bounding box.
type Token struct {
	Page int    `json:"page"`
	BBox BBox   `json:"bbox"`
	Text string `json:"text"`
}

// NormalizedKey returns the lowercased, trimmed text used for exemption membership.
// Alignment never uses it.
func (t Token) NormalizedKey() string {
	return NormalizeKey(t.Text)
}

// NormalizeKey lowercases and trims a token value.
func NormalizeKey(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Page is an ordered run of tokens sharing one page index.
type Page struct {
	Index  int     `json:"index"`
	Tokens []Token `json:"tokens"`
}

// Document is the token stream of one document version.
// Pages without tokens are dropped by the extractor and never appear here.
type Document struct {
	Pages []Page `json:"pages"`
}

// PageCount returns the number of pages carrying at least one token.
func (d *Document) PageCount() int {
	if d == nil {
		return 0
	}
	return len(d.Pages)
}

// Flatten returns every token across all pages in page order.
func (d *Document) Flatten() []Token {
	if d == nil {
		return nil
	}
	n := 0
	for _, p := range d.Pages {
		n += len(p.Tokens)
	}
	tokens := make([]Token, 0, n)
	for _, p := range d.Pages {
		tokens = append(tokens, p.Tokens...)
	}
	return tokens
}

// TokenCount returns the total number of tokens in the document.
func (d *Document) TokenCount() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, p := range d.Pages {
		n += len(p.Tokens)
	}
	return n
}

// Texts projects tokens onto their raw text values, the alignment keys.
func Texts(tokens []Token) []string {
	texts := make([]string, len(tokens))
	for i, t := range tokens {
		texts[i] = t.Text
	}
	return texts
}

// Side identifies which document of a pair a value belongs to.
type Side string

const (
	SideOld Side = "old"
	SideNew Side = "new"
)

// OpKind is the kind of an edit-script opcode.
type OpKind string

const (
	OpEqual   OpKind = "equal"
	OpDelete  OpKind = "delete"
	OpInsert  OpKind = "insert"
	OpReplace OpKind = "replace"
)

// Opcode relates old[I1:I2] to new[J1:J2] over the filtered index spaces.
type Opcode struct {
	Kind OpKind `json:"kind"`
	I1   int    `json:"i1"`
	I2   int    `json:"i2"`
	J1   int    `json:"j1"`
	J2   int    `json:"j2"`
}

// OldLen is the length of the old range.
func (o Opcode) OldLen() int { return o.I2 - o.I1 }

// NewLen is the length of the new range.
func (o Opcode) NewLen() int { return o.J2 - o.J1 }

// EditScript is an ordered, gap-free sequence of opcodes.
type EditScript []Opcode

// Classification is the per-token outcome of a diff run.
type Classification string

const (
	Unchanged Classification = "unchanged"
	Deleted   Classification = "deleted"
	Inserted  Classification = "inserted"
	Replaced  Classification = "replaced"
)

// ClassifiedToken pairs a token with its classification.
type ClassifiedToken struct {
	Token          Token          `json:"token"`
	Classification Classification `json:"classification"`
}

// Category is the highlight category handed to annotation renderers.
type Category string

const (
	CategoryDeletion       Category = "deletion"
	CategoryInsertion      Category = "insertion"
	CategoryReplacementOld Category = "replacement-old"
	CategoryReplacementNew Category = "replacement-new"
)

// Region is one highlight: a single token's box on a page.
type Region struct {
	Page     int      `json:"page"`
	BBox     BBox     `json:"bbox"`
	Category Category `json:"category"`
}

// PageRegions groups the regions of one page in emission order.
type PageRegions struct {
	Page    int      `json:"page"`
	Regions []Region `json:"regions"`
}

// Statistics summarises an edit script against the filtered totals.
type Statistics struct {
	TotalOld    int     `json:"total_old"`
	TotalNew    int     `json:"total_new"`
	Added       int     `json:"added"`
	Removed     int     `json:"removed"`
	ReplacedOld int     `json:"replaced_old"`
	ReplacedNew int     `json:"replaced_new"`
	Replaced    int     `json:"replaced"`
	AddedPct    float64 `json:"added_pct"`
	RemovedPct  float64 `json:"removed_pct"`
	ReplacedPct float64 `json:"replaced_pct"`
}

// DocumentInfo describes a source file as seen by the inspector and extractor.
type DocumentInfo struct {
	Path          string `json:"path"`
	Title         string `json:"title,omitempty"`
	Author        string `json:"author,omitempty"`
	Producer      string `json:"producer,omitempty"`
	PhysicalPages int    `json:"physical_pages"`
	TextPages     int    `json:"text_pages"`
	Tokens        int    `json:"tokens"`
}

// EventType represents the type of stream event
type EventType string

const (
	EventStart             EventType = "start"
	EventDocumentInspected EventType = "document_inspected"
	EventPageExtracted     EventType = "page_extracted"
	EventDocumentExtracted EventType = "document_extracted"
	EventDiffComplete      EventType = "diff_complete"
	EventError             EventType = "error"
	EventComplete          EventType = "complete"
)

// StreamEvent represents an event emitted during a comparison run
type StreamEvent struct {
	Type       EventType   `json:"type"`
	Side       Side        `json:"side,omitempty"`
	PageNumber int         `json:"page_number,omitempty"`
	TotalPages int         `json:"total_pages,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}
