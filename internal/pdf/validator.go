package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/observability"
)

// largeFileBytes triggers a warning, not a rejection.
const largeFileBytes = 100 * 1024 * 1024

// Validator checks input paths before any parser touches them.
type Validator struct {
	logger *observability.Logger
}

// NewValidator creates a new validator instance.
func NewValidator(logger *observability.Logger) *Validator {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Validator{logger: logger}
}

// ValidatePDFPath validates that a file path is valid and points to a PDF.
func (v *Validator) ValidatePDFPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.ValidationError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ValidationError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return domain.ValidationError(fmt.Sprintf("cannot access file: %s", path), err)
	}

	if info.IsDir() {
		return domain.ValidationError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".pdf" {
		return domain.ValidationError(fmt.Sprintf("file is not a PDF (has extension %s)", ext), nil)
	}

	if info.Size() > largeFileBytes {
		v.logger.Warn().
			Str("path", path).
			Int64("size_mb", info.Size()/(1024*1024)).
			Msg("PDF file is very large, processing may take a while")
	}

	file, err := os.Open(path)
	if err != nil {
		return domain.ValidationError(fmt.Sprintf("cannot open file: %s", path), err)
	}
	file.Close()

	return nil
}
