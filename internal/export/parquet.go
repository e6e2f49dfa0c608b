package export

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/basekick-labs/flightdata/internal/metrics"
	"github.com/basekick-labs/flightdata/pkg/models"
	"github.com/rs/zerolog"
)

// ParquetWriter writes rows as a Parquet file with one nullable column per
// table column, typed after the column's value kind. Every BatchSize rows
// form one row group.
type ParquetWriter struct {
	sink        io.Writer
	compression compress.Compression
	batchSize   int
	metadata    map[string]string
	stats       *metrics.Stats
	logger      zerolog.Logger

	mem      memory.Allocator
	schema   *arrow.Schema
	columns  []models.Column
	builders []array.Builder
	writer   *pqarrow.FileWriter
	pending  int
	written  int64
}

// parquetCompression maps a compression name to a Parquet codec
func parquetCompression(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	}
	return compress.Codecs.Uncompressed, fmt.Errorf("unknown parquet compression %q", name)
}

// arrowType returns the Arrow type storing values of kind
func arrowType(kind models.ValueKind) (arrow.DataType, error) {
	switch kind {
	case models.KindInt8:
		return arrow.PrimitiveTypes.Int8, nil
	case models.KindInt16:
		return arrow.PrimitiveTypes.Int16, nil
	case models.KindInt32:
		return arrow.PrimitiveTypes.Int32, nil
	case models.KindInt64:
		return arrow.PrimitiveTypes.Int64, nil
	case models.KindUint8:
		return arrow.PrimitiveTypes.Uint8, nil
	case models.KindUint16:
		return arrow.PrimitiveTypes.Uint16, nil
	case models.KindUint32:
		return arrow.PrimitiveTypes.Uint32, nil
	case models.KindUint64:
		return arrow.PrimitiveTypes.Uint64, nil
	case models.KindFloat32:
		return arrow.PrimitiveTypes.Float32, nil
	case models.KindFloat64:
		return arrow.PrimitiveTypes.Float64, nil
	}
	return nil, fmt.Errorf("no arrow type for kind %s", kind)
}

// NewParquetWriter creates a Parquet writer on w
func NewParquetWriter(w io.Writer, opts Options) (*ParquetWriter, error) {
	comp, err := parquetCompression(opts.ParquetCompression)
	if err != nil {
		return nil, err
	}
	return &ParquetWriter{
		// the Parquet writer closes sinks that are io.Closers; the caller owns w
		sink:        struct{ io.Writer }{w},
		compression: comp,
		batchSize:   opts.batchSize(),
		metadata:    opts.Metadata,
		stats:       opts.Stats,
		logger:      opts.Logger.With().Str("component", "parquet-writer").Logger(),
		mem:         memory.NewGoAllocator(),
	}, nil
}

func (p *ParquetWriter) WriteHeader(columns []models.Column) error {
	fields := make([]arrow.Field, len(columns))
	for i, col := range columns {
		dt, err := arrowType(col.Kind)
		if err != nil {
			return fmt.Errorf("column %s: %w", col.Name, err)
		}
		fields[i] = arrow.Field{Name: col.Name, Type: dt, Nullable: true}
	}

	keys := make([]string, 0, len(p.metadata))
	for k := range p.metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]string, len(keys))
	for i, k := range keys {
		vals[i] = p.metadata[k]
	}
	md := arrow.NewMetadata(keys, vals)

	p.schema = arrow.NewSchema(fields, &md)
	p.columns = columns
	p.builders = make([]array.Builder, len(columns))
	for i, f := range fields {
		p.builders[i] = array.NewBuilder(p.mem, f.Type)
	}

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(p.compression),
		parquet.WithStats(true),
		parquet.WithMaxRowGroupLength(int64(p.batchSize)),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(p.schema, p.sink, writerProps, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create Parquet writer: %w", err)
	}
	p.writer = writer
	return nil
}

func (p *ParquetWriter) WriteRow(row models.Row) error {
	if len(row) != len(p.builders) {
		return fmt.Errorf("parquet row has %d cells, schema has %d columns", len(row), len(p.builders))
	}
	for i, cell := range row {
		if !cell.Valid {
			p.builders[i].AppendNull()
			continue
		}
		if err := appendValue(p.builders[i], cell.Value); err != nil {
			return fmt.Errorf("column %s: %w", p.columns[i].Name, err)
		}
	}
	p.pending++
	if p.pending >= p.batchSize {
		return p.flush()
	}
	return nil
}

// appendValue appends v to the builder matching its kind
func appendValue(b array.Builder, v models.TypedValue) error {
	bits := v.Bits()
	switch b := b.(type) {
	case *array.Int8Builder:
		b.Append(int8(bits))
	case *array.Int16Builder:
		b.Append(int16(bits))
	case *array.Int32Builder:
		b.Append(int32(bits))
	case *array.Int64Builder:
		b.Append(int64(bits))
	case *array.Uint8Builder:
		b.Append(uint8(bits))
	case *array.Uint16Builder:
		b.Append(uint16(bits))
	case *array.Uint32Builder:
		b.Append(uint32(bits))
	case *array.Uint64Builder:
		b.Append(bits)
	case *array.Float32Builder:
		b.Append(math.Float32frombits(uint32(bits)))
	case *array.Float64Builder:
		b.Append(math.Float64frombits(bits))
	default:
		return fmt.Errorf("unsupported builder %T for kind %s", b, v.Kind())
	}
	return nil
}

// flush writes the buffered rows as one row group
func (p *ParquetWriter) flush() error {
	if p.pending == 0 {
		return nil
	}

	arrays := make([]arrow.Array, len(p.builders))
	defer func() {
		for _, arr := range arrays {
			if arr != nil {
				arr.Release()
			}
		}
	}()
	for i, b := range p.builders {
		arrays[i] = b.NewArray()
	}

	record := array.NewRecord(p.schema, arrays, int64(p.pending))
	defer record.Release()

	if err := p.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record batch: %w", err)
	}

	p.logger.Debug().
		Int("columns", len(arrays)).
		Int("rows", p.pending).
		Msg("Wrote Parquet row group")

	if p.stats != nil {
		p.stats.IncBatches()
	}
	p.written += int64(p.pending)
	p.pending = 0
	return nil
}

// Close writes the remaining rows and the file footer
func (p *ParquetWriter) Close() error {
	if p.writer == nil {
		return nil
	}
	defer func() {
		for _, b := range p.builders {
			b.Release()
		}
		p.builders = nil
	}()

	err := p.flush()
	if cerr := p.writer.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close Parquet writer: %w", cerr)
	}
	p.writer = nil
	return err
}
