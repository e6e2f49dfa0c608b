package export

import (
	"fmt"
	"io"

	"github.com/basekick-labs/flightdata/internal/metrics"
	"github.com/basekick-labs/flightdata/pkg/models"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackWriter writes rows as a stream of Arc columnar MessagePack payloads:
//
//	{"m": <table>, "columns": {<column>: [v0, v1, ...], ...}}
//
// one payload per BatchSize rows. Empty cells are nil. No "time" column is
// emitted; the receiving server assigns one.
type MsgpackWriter struct {
	enc       *msgpack.Encoder
	table     string
	batchSize int
	stats     *metrics.Stats
	logger    zerolog.Logger

	names   []string
	columns map[string][]interface{}
	pending int
}

// NewMsgpackWriter creates a MessagePack writer on w
func NewMsgpackWriter(w io.Writer, opts Options) *MsgpackWriter {
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)
	return &MsgpackWriter{
		enc:       enc,
		table:     opts.table(),
		batchSize: opts.batchSize(),
		stats:     opts.Stats,
		logger:    opts.Logger.With().Str("component", "msgpack-writer").Logger(),
	}
}

func (m *MsgpackWriter) WriteHeader(columns []models.Column) error {
	m.names = make([]string, len(columns))
	for i, c := range columns {
		m.names[i] = c.Name
	}
	m.reset()
	return nil
}

func (m *MsgpackWriter) reset() {
	m.columns = make(map[string][]interface{}, len(m.names))
	for _, n := range m.names {
		m.columns[n] = make([]interface{}, 0, m.batchSize)
	}
	m.pending = 0
}

func (m *MsgpackWriter) WriteRow(row models.Row) error {
	if len(row) != len(m.names) {
		return fmt.Errorf("msgpack row has %d cells, header has %d columns", len(row), len(m.names))
	}
	for i, cell := range row {
		var v interface{}
		if cell.Valid {
			v = cell.Value.Interface()
		}
		m.columns[m.names[i]] = append(m.columns[m.names[i]], v)
	}
	m.pending++
	if m.pending >= m.batchSize {
		return m.flush()
	}
	return nil
}

func (m *MsgpackWriter) flush() error {
	if m.pending == 0 {
		return nil
	}
	payload := map[string]interface{}{
		"m":       m.table,
		"columns": m.columns,
	}
	if err := m.enc.Encode(payload); err != nil {
		return fmt.Errorf("encode msgpack payload: %w", err)
	}
	m.logger.Debug().
		Str("measurement", m.table).
		Int("rows", m.pending).
		Msg("Wrote msgpack payload")
	if m.stats != nil {
		m.stats.IncBatches()
	}
	m.reset()
	return nil
}

// Close writes the last partial payload
func (m *MsgpackWriter) Close() error {
	return m.flush()
}
