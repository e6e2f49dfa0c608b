package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/basekick-labs/flightdata/internal/storage"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression of a flight log as stored
type Compression string

const (
	CompressionAuto Compression = "auto"
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// ParseCompression validates a compression name. The empty string means auto.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(s)); c {
	case "":
		return CompressionAuto, nil
	case CompressionAuto, CompressionNone, CompressionGzip, CompressionZstd:
		return c, nil
	}
	return "", fmt.Errorf("unknown compression %q (expected auto, none, gzip or zstd)", s)
}

// resolve picks a concrete compression for path. Auto only looks at the file
// extension: a raw flight log may legitimately start with any byte sequence,
// including a gzip or zstd magic number.
func (c Compression) resolve(path string) Compression {
	if c != CompressionAuto && c != "" {
		return c
	}
	switch {
	case strings.HasSuffix(path, ".gz"), strings.HasSuffix(path, ".gzip"):
		return CompressionGzip
	case strings.HasSuffix(path, ".zst"), strings.HasSuffix(path, ".zstd"):
		return CompressionZstd
	}
	return CompressionNone
}

// OpenSource opens a flight log on backend and returns the decompressed
// byte stream. The caller must close it.
func OpenSource(ctx context.Context, backend storage.Backend, path string, compression Compression) (io.ReadCloser, error) {
	rc, err := backend.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open flight log: %w", err)
	}

	switch compression.resolve(path) {
	case CompressionGzip:
		zr, err := gzip.NewReader(rc)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("open gzip stream %s: %w", path, err)
		}
		return &stackedReader{Reader: zr, closers: []func() error{zr.Close, rc.Close}}, nil

	case CompressionZstd:
		zr, err := zstd.NewReader(rc)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("open zstd stream %s: %w", path, err)
		}
		return &stackedReader{Reader: zr, closers: []func() error{
			func() error { zr.Close(); return nil },
			rc.Close,
		}}, nil
	}
	return rc, nil
}

// stackedReader closes a decompressor and then the stream beneath it
type stackedReader struct {
	io.Reader
	closers []func() error
}

func (s *stackedReader) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
