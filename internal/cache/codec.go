package cache

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compression failed: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, lz4.NewReader(bytes.NewReader(data))); err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}
	return buf.Bytes(), nil
}
