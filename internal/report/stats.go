package report

import (
	"fmt"

	"github.com/basekick-labs/flightdata/pkg/models"
)

// ValueStats summarizes the samples of one column
type ValueStats struct {
	Min   models.TypedValue
	Max   models.TypedValue
	Count uint64
}

// Collector folds table rows into per-column statistics. It implements
// export.RowWriter so it can be fed by export.Copy.
type Collector struct {
	columns []models.Column
	stats   []ValueStats
}

// NewCollector creates an empty Collector
func NewCollector() *Collector {
	return &Collector{}
}

// WriteHeader sets the columns of the rows that follow
func (c *Collector) WriteHeader(columns []models.Column) error {
	c.columns = columns
	c.stats = make([]ValueStats, len(columns))
	return nil
}

// WriteRow is Add
func (c *Collector) WriteRow(row models.Row) error {
	return c.Add(row)
}

// Close is a no-op
func (c *Collector) Close() error {
	return nil
}

// Add folds one row into the statistics. Empty cells are skipped.
func (c *Collector) Add(row models.Row) error {
	if len(row) != len(c.columns) {
		return fmt.Errorf("row has %d cells, expected %d columns", len(row), len(c.columns))
	}
	for i, cell := range row {
		if !cell.Valid {
			continue
		}
		s := &c.stats[i]
		if s.Count == 0 {
			s.Min, s.Max = cell.Value, cell.Value
			s.Count = 1
			continue
		}
		min, err := models.Min(s.Min, cell.Value)
		if err != nil {
			return fmt.Errorf("column %s: %w", c.columns[i].Name, err)
		}
		max, err := models.Max(s.Max, cell.Value)
		if err != nil {
			return fmt.Errorf("column %s: %w", c.columns[i].Name, err)
		}
		s.Min, s.Max = min, max
		s.Count++
	}
	return nil
}

// Column returns the statistics of the named column. ok is false when the
// column never held a value.
func (c *Collector) Column(name string) (ValueStats, bool) {
	for i, col := range c.columns {
		if col.Name == name && c.stats[i].Count > 0 {
			return c.stats[i], true
		}
	}
	return ValueStats{}, false
}

// Stats returns the statistics of every column that held at least one value
func (c *Collector) Stats() map[string]ValueStats {
	out := make(map[string]ValueStats, len(c.columns))
	for i, col := range c.columns {
		if c.stats[i].Count > 0 {
			out[col.Name] = c.stats[i]
		}
	}
	return out
}
