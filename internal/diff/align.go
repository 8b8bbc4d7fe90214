package diff

import (
	"fmt"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/spherical/pdf-diff/internal/domain"
)

// Strategy names an alignment algorithm.
type Strategy string

const (
	// StrategyRatcliff is the leftmost-longest-match (Ratcliff/Obershelp) matcher.
	StrategyRatcliff Strategy = "ratcliff"
	// StrategyMyers is the O(ND) Myers diff.
	StrategyMyers Strategy = "myers"
)

// Aligner computes an edit script between two key sequences.
// Implementations must be total: any two sequences, including empty ones,
// yield a script covering both.
type Aligner interface {
	Align(a, b []string) domain.EditScript
	Name() Strategy
}

// NewAligner returns the aligner for a strategy name.
func NewAligner(s Strategy) (Aligner, error) {
	switch s {
	case StrategyRatcliff, "":
		return RatcliffAligner{}, nil
	case StrategyMyers:
		return MyersAligner{}, nil
	default:
		return nil, domain.ValidationError(fmt.Sprintf("unknown diff strategy %q", s), nil)
	}
}

// block is a run a[A:A+Size] == b[B:B+Size].
type block struct {
	A, B, Size int
}

// RatcliffAligner uses difflib's SequenceMatcher with autojunk disabled.
type RatcliffAligner struct{}

func (RatcliffAligner) Name() Strategy { return StrategyRatcliff }

func (RatcliffAligner) Align(a, b []string) domain.EditScript {
	if len(a) == 0 && len(b) == 0 {
		return domain.EditScript{}
	}
	m := difflib.NewMatcherWithJunk(a, b, false, nil)
	matches := m.GetMatchingBlocks()
	blocks := make([]block, 0, len(matches))
	for _, mb := range matches {
		if mb.Size > 0 {
			blocks = append(blocks, block{A: mb.A, B: mb.B, Size: mb.Size})
		}
	}
	return opcodesFromBlocks(blocks, len(a), len(b))
}

// MyersAligner runs diffmatchpatch over one rune per distinct token.
type MyersAligner struct{}

func (MyersAligner) Name() Strategy { return StrategyMyers }

func (MyersAligner) Align(a, b []string) domain.EditScript {
	if len(a) == 0 && len(b) == 0 {
		return domain.EditScript{}
	}
	ra, rb := encodeRunes(a, b)

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	diffs := dmp.DiffMainRunes(ra, rb, false)

	var blocks []block
	i, j := 0, 0
	for _, d := range diffs {
		n := utf8.RuneCountInString(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			if len(blocks) > 0 {
				last := &blocks[len(blocks)-1]
				if last.A+last.Size == i && last.B+last.Size == j {
					last.Size += n
					i += n
					j += n
					continue
				}
			}
			blocks = append(blocks, block{A: i, B: j, Size: n})
			i += n
			j += n
		case diffmatchpatch.DiffDelete:
			i += n
		case diffmatchpatch.DiffInsert:
			j += n
		}
	}
	return opcodesFromBlocks(blocks, len(a), len(b))
}

// encodeRunes maps each distinct token to a private rune, skipping the
// surrogate range so every rune survives a string round trip.
func encodeRunes(a, b []string) ([]rune, []rune) {
	ids := make(map[string]rune)
	next := 0
	enc := func(seq []string) []rune {
		out := make([]rune, len(seq))
		for i, s := range seq {
			r, ok := ids[s]
			if !ok {
				next++
				r = rune(next)
				if r >= 0xD800 {
					r += 0x800
				}
				ids[s] = r
			}
			out[i] = r
		}
		return out
	}
	return enc(a), enc(b)
}

// opcodesFromBlocks partitions both index spaces around ascending matching
// blocks. Gaps become delete, insert or replace; same-kind neighbours merge.
func opcodesFromBlocks(blocks []block, n, m int) domain.EditScript {
	var script domain.EditScript
	emit := func(op domain.Opcode) {
		if op.OldLen() == 0 && op.NewLen() == 0 {
			return
		}
		if k := len(script); k > 0 {
			last := &script[k-1]
			if last.Kind == op.Kind && last.I2 == op.I1 && last.J2 == op.J1 {
				last.I2 = op.I2
				last.J2 = op.J2
				return
			}
		}
		script = append(script, op)
	}
	gap := func(i1, i2, j1, j2 int) {
		switch {
		case i1 < i2 && j1 < j2:
			emit(domain.Opcode{Kind: domain.OpReplace, I1: i1, I2: i2, J1: j1, J2: j2})
		case i1 < i2:
			emit(domain.Opcode{Kind: domain.OpDelete, I1: i1, I2: i2, J1: j1, J2: j1})
		case j1 < j2:
			emit(domain.Opcode{Kind: domain.OpInsert, I1: i1, I2: i1, J1: j1, J2: j2})
		}
	}

	i, j := 0, 0
	for _, bl := range blocks {
		gap(i, bl.A, j, bl.B)
		emit(domain.Opcode{Kind: domain.OpEqual, I1: bl.A, I2: bl.A + bl.Size, J1: bl.B, J2: bl.B + bl.Size})
		i, j = bl.A+bl.Size, bl.B+bl.Size
	}
	gap(i, n, j, m)

	if script == nil {
		script = domain.EditScript{}
	}
	return script
}
