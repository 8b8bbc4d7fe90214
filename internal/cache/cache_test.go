package cache

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdf-diff/internal/config"
	"github.com/spherical/pdf-diff/internal/domain"
)

func sampleDoc() *domain.Document {
	return &domain.Document{Pages: []domain.Page{{Index: 0, Tokens: []domain.Token{
		{Page: 0, BBox: domain.BBox{X0: 72, Y0: 80, X1: 102, Y1: 92}, Text: "Hello"},
		{Page: 0, BBox: domain.BBox{X0: 108, Y0: 80, X1: 138, Y1: 92}, Text: "World"},
	}}}}
}

func TestCodec(t *testing.T) {
	data := bytes.Repeat([]byte("Confidential "), 200)
	packed, err := compress(data)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(data))

	out, err := decompress(packed)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	_, err = decompress([]byte("definitely not lz4"))
	assert.Error(t, err)
}

func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Hour))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestBadgerStore(t *testing.T) {
	s, err := OpenBadgerInMemory()
	require.NoError(t, err)
	defer s.Close()

	storeContract(t, s)
}

func TestBadgerStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenBadger(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "k", []byte("persisted"), 0))
	require.NoError(t, s.Close())

	s, err = OpenBadger(dir)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), got)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore(10))
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore(10)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(context.Background(), "k", []byte("v"), time.Minute))
	now = now.Add(2 * time.Minute)

	_, err := s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryStore_Eviction(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, s.Set(ctx, "c", []byte("3"), time.Hour))

	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Len(t, s.data, 2)
}

func TestMemoryStore_EvictionPrefersExpiringEntries(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "pinned", []byte("1"), 0))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, s.Set(ctx, "c", []byte("3"), time.Hour))

	_, err := s.Get(ctx, "pinned")
	assert.NoError(t, err)
	_, err = s.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = s.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestMemoryStore_EvictionWithoutTTLIsInsertionOrder(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, s.Set(ctx, "c", []byte("3"), 0))

	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = s.Get(ctx, "b")
	assert.NoError(t, err)
	assert.Len(t, s.data, 2)
}

func TestTokenCache_RoundTrip(t *testing.T) {
	tc := NewTokenCache(NewMemoryStore(10), time.Hour, nil)
	ctx := context.Background()

	_, err := tc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, tc.Put(ctx, "doc", sampleDoc()))
	got, err := tc.Get(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, sampleDoc(), got)
}

func TestTokenCache_CorruptEntry(t *testing.T) {
	store := NewMemoryStore(10)
	require.NoError(t, store.Set(context.Background(), "doc", []byte("garbage"), 0))

	_, err := NewTokenCache(store, 0, nil).Get(context.Background(), "doc")
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeStorage))
}

func TestFileKey(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "b.pdf")
	require.NoError(t, os.WriteFile(a, []byte("same"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("same"), 0o644))

	ka, err := FileKey(a, "gap")
	require.NoError(t, err)
	kb, err := FileKey(b, "gap")
	require.NoError(t, err)
	kc, err := FileKey(a, "other")
	require.NoError(t, err)

	assert.Equal(t, ka, kb, "key depends on content, not path")
	assert.NotEqual(t, ka, kc)

	_, err = FileKey(filepath.Join(dir, "missing.pdf"), "gap")
	assert.True(t, domain.IsType(err, domain.ErrorTypeIO))
}

type countingExtractor struct {
	calls atomic.Int32
	err   error
}

func (c *countingExtractor) Extract(context.Context, string, domain.ProgressFunc) (*domain.Document, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return sampleDoc(), nil
}

func (c *countingExtractor) Fingerprint() string { return "counting" }

func TestCachingExtractor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 body"), 0o644))

	inner := &countingExtractor{}
	ex := NewCachingExtractor(inner, NewTokenCache(NewMemoryStore(10), time.Hour, nil), nil)

	for i := 0; i < 3; i++ {
		doc, err := ex.Extract(context.Background(), path, nil)
		require.NoError(t, err)
		assert.Equal(t, sampleDoc(), doc)
	}
	assert.EqualValues(t, 1, inner.calls.Load())
	assert.Equal(t, "counting", ex.Fingerprint())
}

func TestCachingExtractor_PropagatesErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	boom := errors.New("boom")
	ex := NewCachingExtractor(&countingExtractor{err: boom}, NewTokenCache(nil, 0, nil), nil)
	_, err := ex.Extract(context.Background(), path, nil)
	assert.ErrorIs(t, err, boom)
}

func TestOpen(t *testing.T) {
	s, err := Open(config.CacheConfig{Driver: "none"})
	require.NoError(t, err)
	assert.IsType(t, NopStore{}, s)

	s, err = Open(config.CacheConfig{Driver: "badger", BadgerDir: filepath.Join(t.TempDir(), "c")})
	require.NoError(t, err)
	assert.IsType(t, &BadgerStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(config.CacheConfig{Driver: "memcached"})
	assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))
}
