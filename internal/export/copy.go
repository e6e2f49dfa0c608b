package export

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/basekick-labs/flightdata/internal/ingest"
	"github.com/basekick-labs/flightdata/internal/metrics"
	"github.com/basekick-labs/flightdata/pkg/models"
	"github.com/rs/zerolog"
)

// ErrTooManyErrors is returned by Copy when the error budget is exhausted
var ErrTooManyErrors = errors.New("too many decode errors")

// RowSource yields table rows until io.EOF. *ingest.TableGenerator
// implements it.
type RowSource interface {
	Columns() []models.Column
	Next() (models.Row, error)
}

// CopyOptions controls how Copy reacts to streaming errors
type CopyOptions struct {
	// KeepGoing skips rows that failed with a streaming error instead of
	// stopping at the first one. The source must be using PolicyContinue.
	KeepGoing bool

	// MaxErrors stops a keep-going copy once more than this many errors were
	// skipped. Zero means no limit.
	MaxErrors int

	Stats  *metrics.Stats
	Logger zerolog.Logger
}

// CopyResult summarizes a Copy
type CopyResult struct {
	Rows   int64
	Errors int
}

// Copy writes the header and every row of src to w. It does not close w.
// On error the rows written so far stay in w. A keep-going copy stops when
// the source returns the same error twice in a row, which is how a source
// under PolicyAbort reports its sticky failure.
func Copy(ctx context.Context, src RowSource, w RowWriter, opts CopyOptions) (CopyResult, error) {
	var (
		res     CopyResult
		lastErr error
	)

	if err := w.WriteHeader(src.Columns()); err != nil {
		return res, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			if !opts.KeepGoing || !ingest.IsStreamError(err) || err == lastErr {
				return res, err
			}
			lastErr = err
			res.Errors++
			opts.Logger.Warn().
				Err(err).
				Int("errors", res.Errors).
				Int64("rows", res.Rows).
				Msg("Skipping malformed data")
			if opts.MaxErrors > 0 && res.Errors > opts.MaxErrors {
				return res, fmt.Errorf("%w: %d exceeds limit of %d: %w", ErrTooManyErrors, res.Errors, opts.MaxErrors, err)
			}
			continue
		}
		lastErr = nil

		if err := w.WriteRow(row); err != nil {
			return res, err
		}
		res.Rows++
		if opts.Stats != nil {
			opts.Stats.IncRowsWritten(1)
		}
	}
}
