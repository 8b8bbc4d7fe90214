package domain

import (
	"fmt"
	"strings"
)

// Validate checks the token-stream contract once, at the boundary.
// A document with zero pages is valid; it is a degenerate input, not an error.
func (d *Document) Validate() error {
	if d == nil {
		return ValidationError("token stream is missing", nil)
	}
	for pi, p := range d.Pages {
		if p.Index < 0 {
			return ValidationError(fmt.Sprintf("page %d has negative index %d", pi, p.Index), nil)
		}
		if len(p.Tokens) == 0 {
			return ValidationError(fmt.Sprintf("page %d has no tokens", p.Index), nil)
		}
		for ti, t := range p.Tokens {
			if err := t.validate(); err != nil {
				return ValidationError(fmt.Sprintf("page %d token %d", p.Index, ti), err)
			}
			if t.Page != p.Index {
				return ValidationError(fmt.Sprintf("page %d token %d carries page index %d", p.Index, ti, t.Page), nil)
			}
		}
	}
	return nil
}

func (t Token) validate() error {
	if t.Page < 0 {
		return fmt.Errorf("negative page index %d", t.Page)
	}
	if !t.BBox.Valid() {
		return fmt.Errorf("malformed bbox (%g,%g,%g,%g)", t.BBox.X0, t.BBox.Y0, t.BBox.X1, t.BBox.Y1)
	}
	if t.Text == "" {
		return fmt.Errorf("empty text")
	}
	if strings.TrimSpace(t.Text) != t.Text {
		return fmt.Errorf("text %q is not trimmed", t.Text)
	}
	return nil
}
