package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/basekick-labs/flightdata/pkg/models"
)

// CSVWriter renders rows as comma separated text. The header holds the
// column names; empty cells render as empty fields, so every line of an
// N-column table has exactly N-1 separators.
type CSVWriter struct {
	w      *csv.Writer
	record []string
}

// NewCSVWriter creates a CSV writer on w
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

func (c *CSVWriter) WriteHeader(columns []models.Column) error {
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.Name
	}
	c.record = make([]string, len(columns))
	if err := c.w.Write(names); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	return nil
}

func (c *CSVWriter) WriteRow(row models.Row) error {
	if len(row) != len(c.record) {
		return fmt.Errorf("csv row has %d cells, header has %d columns", len(row), len(c.record))
	}
	for i, cell := range row {
		if cell.Valid {
			c.record[i] = cell.Value.String()
		} else {
			c.record[i] = ""
		}
	}
	if err := c.w.Write(c.record); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	return nil
}

// Close flushes buffered output. It does not close the underlying writer.
func (c *CSVWriter) Close() error {
	c.w.Flush()
	return c.w.Error()
}
