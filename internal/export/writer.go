// Package export writes assembled flight data rows to tabular file formats.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/basekick-labs/flightdata/internal/metrics"
	"github.com/basekick-labs/flightdata/pkg/models"
	"github.com/rs/zerolog"
)

// Format names an output format
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatMsgpack Format = "msgpack"
	FormatSQLite  Format = "sqlite"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatCSV, FormatParquet, FormatMsgpack, FormatSQLite:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (expected csv, parquet, msgpack or sqlite)", s)
}

// Streamable reports whether the format can be written to a pipe such as
// stdout. Parquet and SQLite need a seekable file.
func (f Format) Streamable() bool {
	return f == FormatCSV || f == FormatMsgpack
}

// Extension returns the conventional file extension, including the dot
func (f Format) Extension() string {
	switch f {
	case FormatSQLite:
		return ".db"
	case "":
		return ""
	}
	return "." + string(f)
}

// RowWriter consumes the rows of one table. WriteHeader is called exactly
// once, before any row.
type RowWriter interface {
	WriteHeader(columns []models.Column) error
	WriteRow(row models.Row) error
	Close() error
}

// Options configures the format writers. Zero values select defaults.
type Options struct {
	// BatchSize is the number of rows per Parquet row group, msgpack payload
	// or SQLite transaction
	BatchSize int

	// ParquetCompression is one of snappy, zstd, gzip or none
	ParquetCompression string

	// Table is the SQLite table and the msgpack measurement name
	Table string

	// Metadata is stored alongside the data where the format allows it
	Metadata map[string]string

	// Stats counts written batches when set
	Stats *metrics.Stats

	Logger zerolog.Logger
}

const defaultBatchSize = 10000

func (o Options) batchSize() int {
	if o.BatchSize <= 0 {
		return defaultBatchSize
	}
	return o.BatchSize
}

func (o Options) table() string {
	if o.Table == "" {
		return "flight"
	}
	return o.Table
}

// namer is implemented by *os.File
type namer interface {
	Name() string
}

// NewWriter creates a RowWriter for format writing to w. SQLite output
// requires w to be a file; the database is created at its path.
func NewWriter(format Format, w io.Writer, opts Options) (RowWriter, error) {
	switch format {
	case FormatCSV:
		return NewCSVWriter(w), nil
	case FormatParquet:
		return NewParquetWriter(w, opts)
	case FormatMsgpack:
		return NewMsgpackWriter(w, opts), nil
	case FormatSQLite:
		f, ok := w.(namer)
		if !ok {
			return nil, fmt.Errorf("sqlite output requires a file")
		}
		return NewSQLiteWriter(f.Name(), opts)
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}
