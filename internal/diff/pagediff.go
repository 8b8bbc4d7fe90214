package diff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/spherical/pdf-diff/internal/domain"
)

// PageLines renders one line per page: its token texts joined by spaces.
func PageLines(doc *domain.Document) []string {
	if doc == nil {
		return nil
	}
	lines := make([]string, len(doc.Pages))
	for i, p := range doc.Pages {
		lines[i] = strings.Join(domain.Texts(p.Tokens), " ") + "\n"
	}
	return lines
}

// PageTextDiff returns a unified diff of the two documents' page texts.
// An empty string means the page texts are identical.
func PageTextDiff(oldDoc, newDoc *domain.Document, context int) (string, error) {
	if context < 0 {
		context = 3
	}
	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        PageLines(oldDoc),
		B:        PageLines(newDoc),
		FromFile: "Old PDF",
		ToFile:   "New PDF",
		Context:  context,
	})
	if err != nil {
		return "", domain.NewError(domain.ErrorTypeIO, "render page diff", err)
	}
	return out, nil
}
