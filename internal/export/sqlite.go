package export

import (
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/basekick-labs/flightdata/internal/metrics"
	"github.com/basekick-labs/flightdata/pkg/models"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// SQLiteWriter writes rows into a table of a SQLite database file. Each
// table column becomes a typed SQL column; empty cells are NULL. A "row"
// column keeps the assembly order. Rows are inserted in transactions of
// BatchSize rows.
type SQLiteWriter struct {
	db        *sql.DB
	table     string
	metadata  map[string]string
	batchSize int
	stats     *metrics.Stats
	logger    zerolog.Logger

	columns []models.Column
	insert  string
	tx      *sql.Tx
	stmt    *sql.Stmt
	args    []interface{}
	rowNum  int64
	pending int
}

// NewSQLiteWriter opens (or creates) the database at path
func NewSQLiteWriter(path string, opts Options) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &SQLiteWriter{
		db:        db,
		table:     opts.table(),
		metadata:  opts.Metadata,
		batchSize: opts.batchSize(),
		stats:     opts.Stats,
		logger:    opts.Logger.With().Str("component", "sqlite-writer").Logger(),
	}, nil
}

// quoteIdent quotes an SQL identifier
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sqlType is the declared column type for kind. uint64 columns are left
// untyped: INTEGER affinity would turn values above the int64 range into
// lossy REALs.
func sqlType(kind models.ValueKind) string {
	switch {
	case kind.Float():
		return " REAL"
	case kind == models.KindUint64:
		return ""
	}
	return " INTEGER"
}

func (s *SQLiteWriter) WriteHeader(columns []models.Column) error {
	s.columns = columns

	defs := make([]string, 0, len(columns)+1)
	defs = append(defs, `"row" INTEGER PRIMARY KEY`)
	for _, c := range columns {
		defs = append(defs, quoteIdent(c.Name)+sqlType(c.Kind))
	}

	table := quoteIdent(s.table)
	schema := fmt.Sprintf(`
	DROP TABLE IF EXISTS %[1]s;
	CREATE TABLE %[1]s (%[2]s);

	CREATE TABLE IF NOT EXISTS flightdata_metadata (
		tbl TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT,
		PRIMARY KEY (tbl, key)
	);
	`, table, strings.Join(defs, ", "))

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	for k, v := range s.metadata {
		if _, err := s.db.Exec(
			`INSERT OR REPLACE INTO flightdata_metadata (tbl, key, value) VALUES (?, ?, ?)`,
			s.table, k, v,
		); err != nil {
			return fmt.Errorf("failed to write metadata: %w", err)
		}
	}

	s.insert = s.insertSQL()
	s.args = make([]interface{}, len(columns)+1)
	return s.begin()
}

// begin opens a transaction and prepares the insert statement in it
func (s *SQLiteWriter) begin() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.Prepare(s.insert)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	s.tx = tx
	s.stmt = stmt
	return nil
}

// sqlValue converts v to a driver value. uint64 values above the int64 range
// are stored as decimal text.
func sqlValue(v models.TypedValue) interface{} {
	switch {
	case v.Kind().Float():
		f, _ := v.Float()
		return f
	case v.Kind() == models.KindUint64:
		u, _ := v.Uint()
		if u > math.MaxInt64 {
			return strconv.FormatUint(u, 10)
		}
		return int64(u)
	case v.Kind().Unsigned():
		u, _ := v.Uint()
		return int64(u)
	}
	i, _ := v.Int()
	return i
}

func (s *SQLiteWriter) WriteRow(row models.Row) error {
	if s.stmt == nil {
		return fmt.Errorf("sqlite writer has no open table")
	}
	if len(row) != len(s.columns) {
		return fmt.Errorf("sqlite row has %d cells, table has %d columns", len(row), len(s.columns))
	}

	s.rowNum++
	s.args[0] = s.rowNum
	for i, cell := range row {
		if cell.Valid {
			s.args[i+1] = sqlValue(cell.Value)
		} else {
			s.args[i+1] = nil
		}
	}
	if _, err := s.stmt.Exec(s.args...); err != nil {
		return fmt.Errorf("failed to insert row %d: %w", s.rowNum, err)
	}

	s.pending++
	if s.pending >= s.batchSize {
		return s.commit(true)
	}
	return nil
}

// commit commits the open transaction and optionally starts the next one.
// Statements are bound to their transaction, so each batch prepares anew.
func (s *SQLiteWriter) commit(reopen bool) error {
	s.stmt.Close()
	if err := s.tx.Commit(); err != nil {
		s.stmt, s.tx = nil, nil
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.logger.Debug().
		Str("table", s.table).
		Int("rows", s.pending).
		Msg("Committed SQLite batch")
	if s.stats != nil && s.pending > 0 {
		s.stats.IncBatches()
	}
	s.stmt, s.tx = nil, nil
	s.pending = 0
	if reopen {
		return s.begin()
	}
	return nil
}

func (s *SQLiteWriter) insertSQL() string {
	names := make([]string, 0, len(s.columns)+1)
	placeholders := make([]string, 0, len(s.columns)+1)
	names = append(names, `"row"`)
	placeholders = append(placeholders, "?")
	for _, c := range s.columns {
		names = append(names, quoteIdent(c.Name))
		placeholders = append(placeholders, "?")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(s.table), strings.Join(names, ", "), strings.Join(placeholders, ", "))
}

// Close commits the last batch and closes the database
func (s *SQLiteWriter) Close() error {
	var err error
	if s.tx != nil {
		err = s.commit(false)
	}
	if cerr := s.db.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close database: %w", cerr)
	}
	return err
}
