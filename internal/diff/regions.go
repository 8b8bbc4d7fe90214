package diff

import "github.com/spherical/pdf-diff/internal/domain"

// categoryFor maps a classification to its highlight category on one side.
// The second result is false when the token is not highlighted on that side.
func categoryFor(side domain.Side, c domain.Classification) (domain.Category, bool) {
	switch side {
	case domain.SideOld:
		switch c {
		case domain.Deleted:
			return domain.CategoryDeletion, true
		case domain.Replaced:
			return domain.CategoryReplacementOld, true
		}
	case domain.SideNew:
		switch c {
		case domain.Inserted:
			return domain.CategoryInsertion, true
		case domain.Replaced:
			return domain.CategoryReplacementNew, true
		}
	}
	return "", false
}

// MapRegions projects highlighted tokens onto per-page regions, one per
// token, in classified order. Boxes are passed through untouched.
func MapRegions(side domain.Side, classified []domain.ClassifiedToken) []domain.PageRegions {
	var pages []domain.PageRegions
	index := make(map[int]int)

	for _, ct := range classified {
		cat, ok := categoryFor(side, ct.Classification)
		if !ok {
			continue
		}
		r := domain.Region{Page: ct.Token.Page, BBox: ct.Token.BBox, Category: cat}
		pi, seen := index[r.Page]
		if !seen {
			pi = len(pages)
			index[r.Page] = pi
			pages = append(pages, domain.PageRegions{Page: r.Page})
		}
		pages[pi].Regions = append(pages[pi].Regions, r)
	}
	return pages
}

// FlattenRegions returns all regions in page-group order.
func FlattenRegions(pages []domain.PageRegions) []domain.Region {
	var out []domain.Region
	for _, p := range pages {
		out = append(out, p.Regions...)
	}
	return out
}
