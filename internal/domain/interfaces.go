package domain

import "context"

// ProgressFunc is called after each physical page is processed.
type ProgressFunc func(page, total int)

// DocumentExtractor turns a file into a token stream.
type DocumentExtractor interface {
	// Extract reads every page of the file and returns its tokens.
	// progress may be nil.
	Extract(ctx context.Context, path string, progress ProgressFunc) (*Document, error)

	// Fingerprint identifies the extraction settings, for cache keys.
	Fingerprint() string
}

// DocumentInspector reads file-level facts (page count, metadata).
type DocumentInspector interface {
	Inspect(path string) (*DocumentInfo, error)
}
