package diff

import (
	"sort"

	"github.com/spherical/pdf-diff/internal/domain"
)

// ExemptionSet holds normalized keys treated as page boilerplate.
type ExemptionSet map[string]struct{}

// Contains reports whether the token's normalized key is exempt.
func (s ExemptionSet) Contains(t domain.Token) bool {
	_, ok := s[t.NormalizedKey()]
	return ok
}

// Keys returns the exempt keys in sorted order.
func (s ExemptionSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ComputeExemptions returns the keys whose count over the whole document
// equals its page count. Placement is not checked: a key seen twice on one
// page and never on another still qualifies.
func ComputeExemptions(doc *domain.Document) ExemptionSet {
	set := ExemptionSet{}
	pages := doc.PageCount()
	if pages == 0 {
		return set
	}

	counts := make(map[string]int)
	for _, p := range doc.Pages {
		for _, t := range p.Tokens {
			counts[t.NormalizedKey()]++
		}
	}
	for k, n := range counts {
		if n == pages {
			set[k] = struct{}{}
		}
	}
	return set
}

// Filter drops exempt tokens, keeping order and every other field.
func Filter(tokens []domain.Token, set ExemptionSet) []domain.Token {
	out := make([]domain.Token, 0, len(tokens))
	for _, t := range tokens {
		if !set.Contains(t) {
			out = append(out, t)
		}
	}
	return out
}
