package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// ResilientBackend wraps a remote storage backend with retry logic.
// Missing objects and cancelled contexts are never retried.
type ResilientBackend struct {
	backend Backend
	logger  zerolog.Logger

	maxRetries    int
	retryDelay    time.Duration
	retryMaxDelay time.Duration
}

// ResilientConfig holds configuration for the resilient backend
type ResilientConfig struct {
	MaxRetries    int
	RetryDelay    time.Duration
	RetryMaxDelay time.Duration
}

// DefaultResilientConfig returns default resilient backend configuration
func DefaultResilientConfig() *ResilientConfig {
	return &ResilientConfig{
		MaxRetries:    3,
		RetryDelay:    100 * time.Millisecond,
		RetryMaxDelay: 5 * time.Second,
	}
}

// NewResilientBackend creates a new resilient storage backend
func NewResilientBackend(backend Backend, cfg *ResilientConfig, logger zerolog.Logger) *ResilientBackend {
	if cfg == nil {
		cfg = DefaultResilientConfig()
	}
	return &ResilientBackend{
		backend:       backend,
		logger:        logger.With().Str("component", "resilient-storage").Logger(),
		maxRetries:    cfg.MaxRetries,
		retryDelay:    cfg.RetryDelay,
		retryMaxDelay: cfg.RetryMaxDelay,
	}
}

// retry runs fn until it succeeds, fails permanently, or retries run out
func (r *ResilientBackend) retry(ctx context.Context, op, path string, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, ErrNotFound) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == r.maxRetries {
			break
		}

		// exponential backoff
		delay := r.retryDelay * time.Duration(1<<uint(attempt))
		if delay > r.retryMaxDelay {
			delay = r.retryMaxDelay
		}

		r.logger.Warn().
			Err(err).
			Str("op", op).
			Str("path", path).
			Int("attempt", attempt+1).
			Int("max_retries", r.maxRetries).
			Dur("retry_delay", delay).
			Msg("Storage operation failed, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("storage %s failed after %d retries: %w", op, r.maxRetries, lastErr)
}

// Open opens the object with resilience. Only opening is retried; a read
// failing mid-stream surfaces to the caller.
func (r *ResilientBackend) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	var rc io.ReadCloser
	err := r.retry(ctx, "open", path, func() error {
		var err error
		rc, err = r.backend.Open(ctx, path)
		return err
	})
	return rc, err
}

// Read reads data from the storage backend with resilience
func (r *ResilientBackend) Read(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := r.retry(ctx, "read", path, func() error {
		var err error
		data, err = r.backend.Read(ctx, path)
		return err
	})
	return data, err
}

// Write writes data to the storage backend with resilience
func (r *ResilientBackend) Write(ctx context.Context, path string, data []byte) error {
	return r.retry(ctx, "write", path, func() error {
		return r.backend.Write(ctx, path, data)
	})
}

// WriteReader writes data from a reader with resilience. The upload is only
// retried when the reader can be rewound.
func (r *ResilientBackend) WriteReader(ctx context.Context, path string, reader io.Reader, size int64) error {
	seeker, ok := reader.(io.Seeker)
	if !ok {
		return r.backend.WriteReader(ctx, path, reader, size)
	}

	first := true
	return r.retry(ctx, "write", path, func() error {
		if !first {
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("rewind upload: %w", err)
			}
		}
		first = false
		return r.backend.WriteReader(ctx, path, reader, size)
	})
}

// Exists checks existence with resilience
func (r *ResilientBackend) Exists(ctx context.Context, path string) (bool, error) {
	var exists bool
	err := r.retry(ctx, "exists", path, func() error {
		var err error
		exists, err = r.backend.Exists(ctx, path)
		return err
	})
	return exists, err
}

// Close closes the underlying backend
func (r *ResilientBackend) Close() error {
	return r.backend.Close()
}

// Type returns the underlying storage type
func (r *ResilientBackend) Type() string {
	return r.backend.Type()
}
