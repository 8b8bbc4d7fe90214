package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical/pdf-diff/internal/compare"
	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/pdf"
)

// Color is an RGB triple in [0,1], the form PDF annotation colors take.
type Color [3]float64

var categoryColors = map[domain.Category]Color{
	domain.CategoryDeletion:       {1, 0.65, 0.65},
	domain.CategoryReplacementOld: {1, 0.83, 0.5},
	domain.CategoryInsertion:      {0.65, 1, 0.65},
	domain.CategoryReplacementNew: {0.68, 0.85, 0.9},
}

// ColorFor returns the highlight color hint of a category.
func ColorFor(c domain.Category) Color {
	return categoryColors[c]
}

// ManifestRegion is one highlight to draw.
type ManifestRegion struct {
	BBox     domain.BBox     `json:"bbox"`
	Category domain.Category `json:"category"`
	Color    Color           `json:"color"`
}

// ManifestPage lists the highlights of one page.
type ManifestPage struct {
	Page    int              `json:"page"`
	Width   float64          `json:"width,omitempty"`
	Height  float64          `json:"height,omitempty"`
	Regions []ManifestRegion `json:"regions"`
}

// Manifest tells an annotation renderer what to highlight in one document.
type Manifest struct {
	Document string         `json:"document"`
	Side     domain.Side    `json:"side"`
	Pages    []ManifestPage `json:"pages"`
}

// PageSizer reports page sizes so renderers can check coordinates.
type PageSizer interface {
	PageSizes(path string) ([]pdf.PageSize, error)
}

// NewManifest builds the manifest of one side. sizes is indexed by page
// and may be nil.
func NewManifest(side domain.Side, document string, pages []domain.PageRegions, sizes []pdf.PageSize) *Manifest {
	m := &Manifest{Document: document, Side: side, Pages: make([]ManifestPage, 0, len(pages))}
	for _, p := range pages {
		mp := ManifestPage{Page: p.Page, Regions: make([]ManifestRegion, 0, len(p.Regions))}
		if p.Page < len(sizes) {
			mp.Width, mp.Height = sizes[p.Page].Width, sizes[p.Page].Height
		}
		for _, r := range p.Regions {
			mp.Regions = append(mp.Regions, ManifestRegion{BBox: r.BBox, Category: r.Category, Color: ColorFor(r.Category)})
		}
		m.Pages = append(m.Pages, mp)
	}
	return m
}

// ManifestFileName is annotated_OLD_<name>.json or annotated_NEW_<name>.json.
func ManifestFileName(side domain.Side, document string) string {
	return fmt.Sprintf("annotated_%s_%s.json", strings.ToUpper(string(side)), baseName(document))
}

// WriteManifests writes both sides' manifests into dir and returns their
// paths, old first. sizer may be nil.
func WriteManifests(dir string, out *compare.Outcome, sizer PageSizer) ([]string, error) {
	if out == nil || out.Result == nil {
		return nil, domain.ValidationError("annotations need a finished comparison", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.IOError("create annotation directory", err)
	}

	sides := []struct {
		side    domain.Side
		path    string
		regions []domain.PageRegions
	}{
		{domain.SideOld, out.Request.OldPath, out.Result.Old.Regions},
		{domain.SideNew, out.Request.NewPath, out.Result.New.Regions},
	}

	paths := make([]string, 0, len(sides))
	for _, s := range sides {
		var sizes []pdf.PageSize
		if sizer != nil {
			var err error
			if sizes, err = sizer.PageSizes(s.path); err != nil {
				return paths, fmt.Errorf("%s document: page sizes: %w", s.side, err)
			}
		}

		data, err := json.MarshalIndent(NewManifest(s.side, s.path, s.regions, sizes), "", "  ")
		if err != nil {
			return paths, domain.IOError("encode annotation manifest", err)
		}
		path := filepath.Join(dir, ManifestFileName(s.side, s.path))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, domain.IOError("write annotation manifest", err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
