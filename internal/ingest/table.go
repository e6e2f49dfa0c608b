package ingest

import (
	"errors"
	"fmt"
	"io"

	"github.com/basekick-labs/flightdata/internal/metrics"
	"github.com/basekick-labs/flightdata/pkg/models"
	"github.com/rs/zerolog"
)

// TableGenerator groups packets into table rows with one column per
// configured (sensor, value) pair.
//
// A row is closed as soon as a packet would overwrite a column that the row
// already holds. That packet is parked in a one-packet lookahead slot and
// starts the next row. Sensors reporting at different rates therefore yield
// sparse rows rather than lost or merged readings.
type TableGenerator struct {
	source PacketSource
	config *models.RocketConfig
	policy ErrorPolicy
	stats  *metrics.Stats
	logger zerolog.Logger

	// fixed for the lifetime of the generator
	columns       []models.Column
	sensorColumns map[uint8][]string

	// output projection into columns; nil means every column
	projection []int

	current map[string]models.TypedValue
	pending packetSlot
	drained bool  // source returned io.EOF
	err     error // sticky error under PolicyAbort, io.EOF once finished
}

// TableOption configures a TableGenerator
type TableOption func(*TableGenerator)

// WithTablePolicy sets the generator's error policy
func WithTablePolicy(p ErrorPolicy) TableOption {
	return func(t *TableGenerator) { t.policy = p }
}

// WithTableStats records row counters into s
func WithTableStats(s *metrics.Stats) TableOption {
	return func(t *TableGenerator) { t.stats = s }
}

// NewTableGenerator creates a generator reading packets from source. The
// configuration must be the one used to decode the packets.
func NewTableGenerator(source PacketSource, config *models.RocketConfig, logger zerolog.Logger, opts ...TableOption) *TableGenerator {
	t := &TableGenerator{
		source:        source,
		config:        config,
		logger:        logger.With().Str("component", "table-generator").Logger(),
		columns:       config.Columns(),
		sensorColumns: make(map[uint8][]string, len(config.Sensors)),
		current:       make(map[string]models.TypedValue),
	}
	for i := range config.Sensors {
		s := &config.Sensors[i]
		if _, seen := t.sensorColumns[s.ID]; seen {
			continue
		}
		names := make([]string, len(s.Values))
		for j := range s.Values {
			names[j] = models.ColumnName(s, &s.Values[j])
		}
		t.sensorColumns[s.ID] = names
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Columns returns the output columns in row order
func (t *TableGenerator) Columns() []models.Column {
	if t.projection == nil {
		out := make([]models.Column, len(t.columns))
		copy(out, t.columns)
		return out
	}
	out := make([]models.Column, len(t.projection))
	for i, idx := range t.projection {
		out[i] = t.columns[idx]
	}
	return out
}

// ColumnNames returns the names of Columns()
func (t *TableGenerator) ColumnNames() []string {
	cols := t.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// AllowColumns restricts the output rows to the named columns, kept in
// configuration order. Row boundaries are still detected over every column,
// so restricting never changes the number of rows. An empty list restores
// every column.
func (t *TableGenerator) AllowColumns(names []string) error {
	if len(names) == 0 {
		t.projection = nil
		return nil
	}

	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}

	projection := make([]int, 0, len(names))
	for i, c := range t.columns {
		if allowed[c.Name] {
			projection = append(projection, i)
			delete(allowed, c.Name)
		}
	}
	for n := range allowed {
		return fmt.Errorf("unknown column %q", n)
	}

	t.projection = projection
	return nil
}

// Next assembles the next row. It returns io.EOF once the source is
// exhausted and no partial row remains.
func (t *TableGenerator) Next() (models.Row, error) {
	if t.err != nil {
		return nil, t.err
	}

	for {
		packet, err := t.nextPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, t.fail(err)
		}

		sensor, ok := t.config.SensorByID(packet.ID)
		if !ok {
			return nil, t.fail(&InvalidIDError{ID: packet.ID, Offset: -1})
		}
		if len(packet.Values) != len(sensor.Values) {
			return nil, t.fail(&InvalidValueCountError{
				SensorID: packet.ID,
				Expected: len(sensor.Values),
				Actual:   len(packet.Values),
			})
		}

		names := t.sensorColumns[packet.ID]
		if t.occupied(names) {
			t.pending.push(packet)
			t.logger.Debug().
				Str("sensor", sensor.Name).
				Int("filled", len(t.current)).
				Msg("Row boundary")
			break
		}

		for i, name := range names {
			t.current[name] = packet.Values[i]
		}
	}

	if len(t.current) == 0 {
		t.err = io.EOF
		return nil, io.EOF
	}

	row := t.finish()
	if t.stats != nil {
		t.stats.RecordRow(row.Sparse())
	}
	return row, nil
}

// nextPacket prefers the lookahead slot over the source
func (t *TableGenerator) nextPacket() (models.Packet, error) {
	if p, ok := t.pending.pop(); ok {
		return p, nil
	}
	if t.drained {
		return models.Packet{}, io.EOF
	}
	p, err := t.source.Next()
	if errors.Is(err, io.EOF) {
		t.drained = true
	}
	return p, err
}

func (t *TableGenerator) occupied(names []string) bool {
	for _, name := range names {
		if _, ok := t.current[name]; ok {
			return true
		}
	}
	return false
}

// finish projects the accumulator onto the output columns and resets it
func (t *TableGenerator) finish() models.Row {
	var row models.Row
	if t.projection == nil {
		row = make(models.Row, len(t.columns))
		for i, c := range t.columns {
			row[i].Value, row[i].Valid = t.current[c.Name]
		}
	} else {
		row = make(models.Row, len(t.projection))
		for i, idx := range t.projection {
			row[i].Value, row[i].Valid = t.current[t.columns[idx].Name]
		}
	}
	clear(t.current)
	return row
}

// fail applies the error policy. Upstream errors that were already counted
// by the decoder are not counted again.
func (t *TableGenerator) fail(err error) error {
	var invalidCount *InvalidValueCountError
	if t.stats != nil && errors.As(err, &invalidCount) {
		t.stats.RecordError(err)
	}
	if t.policy == PolicyAbort || !IsStreamError(err) {
		t.err = err
	}
	return err
}
