package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrNotFound is returned (wrapped) when an object does not exist
var ErrNotFound = errors.New("object not found")

// Backend defines where flight recordings are read from and where exports
// are published (local disk, S3, MinIO, Azure Blob Storage)
type Backend interface {
	// Open opens the object at path for streaming reads
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Read reads the whole object at path (for small files such as configurations)
	Read(ctx context.Context, path string) ([]byte, error)

	// Write writes data to the specified path
	Write(ctx context.Context, path string, data []byte) error

	// WriteReader writes data from a reader to the specified path (for large files).
	// size may be -1 when unknown.
	WriteReader(ctx context.Context, path string, reader io.Reader, size int64) error

	// Exists checks if an object exists at the specified path
	Exists(ctx context.Context, path string) (bool, error)

	// Close closes any resources held by the backend
	Close() error

	// Type returns the storage type identifier ("local", "s3", "azure")
	Type() string
}

// contentType picks the object content type from the file extension
func contentType(path string) string {
	switch {
	case strings.HasSuffix(path, ".parquet"):
		return "application/vnd.apache.parquet"
	case strings.HasSuffix(path, ".csv"):
		return "text/csv"
	case strings.HasSuffix(path, ".msgpack"):
		return "application/msgpack"
	case strings.HasSuffix(path, ".tex"):
		return "application/x-tex"
	case strings.HasSuffix(path, ".json"):
		return "application/json"
	}
	return "application/octet-stream"
}
