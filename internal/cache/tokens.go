package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/observability"
)

const tokenKeyVersion = "tokens/v1"

// TokenCache stores compressed token streams keyed by file content and
// extractor settings.
type TokenCache struct {
	store  Store
	ttl    time.Duration
	logger *observability.Logger
}

// NewTokenCache wraps a byte store.
func NewTokenCache(store Store, ttl time.Duration, logger *observability.Logger) *TokenCache {
	if store == nil {
		store = NopStore{}
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &TokenCache{store: store, ttl: ttl, logger: logger}
}

// FileKey hashes the file content together with the extractor fingerprint.
func FileKey(path, fingerprint string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", domain.IOError(fmt.Sprintf("open %s", path), err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", domain.IOError(fmt.Sprintf("hash %s", path), err)
	}
	return Key(tokenKeyVersion, fingerprint, hex.EncodeToString(h.Sum(nil))), nil
}

// Get returns the cached document or ErrCacheMiss.
func (c *TokenCache) Get(ctx context.Context, key string) (*domain.Document, error) {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	data, err := decompress(raw)
	if err != nil {
		return nil, domain.StorageError("decode cached tokens", err)
	}
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domain.StorageError("decode cached tokens", err)
	}
	return &doc, nil
}

// Put stores a document under key.
func (c *TokenCache) Put(ctx context.Context, key string, doc *domain.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return domain.StorageError("encode tokens", err)
	}
	packed, err := compress(data)
	if err != nil {
		return domain.StorageError("encode tokens", err)
	}
	if err := c.store.Set(ctx, key, packed, c.ttl); err != nil {
		return domain.StorageError("store tokens", err)
	}
	c.logger.Debug().
		Str("key", key).
		Int("raw_bytes", len(data)).
		Int("stored_bytes", len(packed)).
		Msg("cached token stream")
	return nil
}

// Close closes the underlying store.
func (c *TokenCache) Close() error {
	return c.store.Close()
}

// CachingExtractor consults a TokenCache before delegating to an extractor.
// Cache failures are logged and never fail an extraction.
type CachingExtractor struct {
	next   domain.DocumentExtractor
	cache  *TokenCache
	logger *observability.Logger
}

// NewCachingExtractor wraps next with cache.
func NewCachingExtractor(next domain.DocumentExtractor, cache *TokenCache, logger *observability.Logger) *CachingExtractor {
	if logger == nil {
		logger = observability.Nop()
	}
	return &CachingExtractor{next: next, cache: cache, logger: logger}
}

func (e *CachingExtractor) Fingerprint() string {
	return e.next.Fingerprint()
}

func (e *CachingExtractor) Extract(ctx context.Context, path string, progress domain.ProgressFunc) (*domain.Document, error) {
	key, err := FileKey(path, e.next.Fingerprint())
	if err != nil {
		return e.next.Extract(ctx, path, progress)
	}

	doc, err := e.cache.Get(ctx, key)
	switch {
	case err == nil:
		e.logger.Debug().Str("path", path).Msg("token cache hit")
		return doc, nil
	case !errors.Is(err, ErrCacheMiss):
		e.logger.Warn().Err(err).Str("path", path).Msg("token cache read failed")
	}

	doc, err = e.next.Extract(ctx, path, progress)
	if err != nil {
		return nil, err
	}
	if err := e.cache.Put(ctx, key, doc); err != nil {
		e.logger.Warn().Err(err).Str("path", path).Msg("token cache write failed")
	}
	return doc, nil
}
