package pdf

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/spherical/pdf-diff/internal/domain"
)

// PageSize is a page's width and height in points.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Inspector reads file-level facts with MuPDF.
type Inspector struct {
	validator *Validator
}

// NewInspector creates an inspector sharing the given validator.
func NewInspector(v *Validator) *Inspector {
	if v == nil {
		v = NewValidator(nil)
	}
	return &Inspector{validator: v}
}

// Inspect returns the physical page count and document metadata.
func (i *Inspector) Inspect(path string) (*domain.DocumentInfo, error) {
	if err := i.validator.ValidatePDFPath(path); err != nil {
		return nil, err
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, domain.ConversionError("Failed to open PDF", err)
	}
	defer doc.Close()

	meta := doc.Metadata()
	return &domain.DocumentInfo{
		Path:          path,
		Title:         metaValue(meta, "title"),
		Author:        metaValue(meta, "author"),
		Producer:      metaValue(meta, "producer"),
		PhysicalPages: doc.NumPage(),
	}, nil
}

// metaValue strips the NUL padding MuPDF leaves in its fixed-size buffers.
func metaValue(meta map[string]string, key string) string {
	return strings.TrimSpace(strings.TrimRight(meta[key], "\x00"))
}

// PageSizes returns every page's size, in page order.
func (i *Inspector) PageSizes(path string) ([]PageSize, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, domain.ConversionError("Failed to open PDF", err)
	}
	defer doc.Close()

	sizes := make([]PageSize, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		bound, err := doc.Bound(n)
		if err != nil {
			return nil, domain.ConversionError(fmt.Sprintf("Failed to read bounds of page %d", n+1), err)
		}
		sizes = append(sizes, PageSize{Width: float64(bound.Dx()), Height: float64(bound.Dy())})
	}
	return sizes, nil
}
