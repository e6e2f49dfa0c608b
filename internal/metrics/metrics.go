package metrics

import (
	"errors"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Error kinds used as the "kind" label of the error counters
const (
	KindInvalidID         = "invalid_id"
	KindInvalidValueCount = "invalid_value_count"
	KindTruncated         = "truncated"
	KindIO                = "io"
)

// Stats holds the counters of one decode run. All methods are safe for
// concurrent use.
type Stats struct {
	startTime time.Time

	// Decode metrics
	bytesTotal   atomic.Int64
	packetsTotal atomic.Int64

	// Row assembly metrics
	rowsTotal       atomic.Int64
	sparseRowsTotal atomic.Int64

	// Export metrics
	rowsWrittenTotal atomic.Int64
	batchesTotal     atomic.Int64

	// Errors by kind
	mu     sync.Mutex
	errors map[string]int64
}

// NewStats creates an empty Stats starting its clock now
func NewStats() *Stats {
	return &Stats{
		startTime: time.Now(),
		errors:    make(map[string]int64),
	}
}

// kinded is implemented by errors that carry their own metrics label
type kinded interface {
	ErrorKind() string
}

// ErrorKind returns the metrics label for err
func ErrorKind(err error) string {
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return KindIO
}

// Decode metrics
func (s *Stats) RecordPacket(bytes int64) {
	s.packetsTotal.Add(1)
	s.bytesTotal.Add(bytes)
}

// Row assembly metrics
func (s *Stats) RecordRow(sparse bool) {
	s.rowsTotal.Add(1)
	if sparse {
		s.sparseRowsTotal.Add(1)
	}
}

// Export metrics
func (s *Stats) IncRowsWritten(count int64) { s.rowsWrittenTotal.Add(count) }
func (s *Stats) IncBatches()                { s.batchesTotal.Add(1) }

// RecordError counts err under its kind
func (s *Stats) RecordError(err error) {
	kind := ErrorKind(err)
	s.mu.Lock()
	s.errors[kind]++
	s.mu.Unlock()
}

func (s *Stats) Packets() int64    { return s.packetsTotal.Load() }
func (s *Stats) Bytes() int64      { return s.bytesTotal.Load() }
func (s *Stats) Rows() int64       { return s.rowsTotal.Load() }
func (s *Stats) SparseRows() int64 { return s.sparseRowsTotal.Load() }

// Errors returns the total error count across kinds
func (s *Stats) Errors() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, c := range s.errors {
		n += c
	}
	return n
}

// ErrorsByKind returns a copy of the per-kind error counters
func (s *Stats) ErrorsByKind() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

// Snapshot returns all counters as a map (for JSON output)
func (s *Stats) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"elapsed_seconds": time.Since(s.startTime).Seconds(),
		"bytes_total":     s.Bytes(),
		"packets_total":   s.Packets(),
		"rows_total":      s.Rows(),
		"sparse_rows":     s.SparseRows(),
		"rows_written":    s.rowsWrittenTotal.Load(),
		"batches_total":   s.batchesTotal.Load(),
		"errors_total":    s.Errors(),
		"errors_by_kind":  s.ErrorsByKind(),
	}
}

// LogSummary writes a one-line summary of the run at info level
func (s *Stats) LogSummary(logger zerolog.Logger, msg string) {
	ev := logger.Info().
		Int64("bytes", s.Bytes()).
		Int64("packets", s.Packets()).
		Int64("rows", s.Rows()).
		Int64("sparse_rows", s.SparseRows()).
		Int64("errors", s.Errors()).
		Dur("elapsed", time.Since(s.startTime))
	for kind, n := range s.ErrorsByKind() {
		ev = ev.Int64("errors_"+kind, n)
	}
	ev.Msg(msg)
}

// PrometheusFormat returns the counters in Prometheus text exposition
// format, suitable for the node_exporter textfile collector
func (s *Stats) PrometheusFormat() string {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	var b []byte
	b = append(b, "# HELP flightdata_elapsed_seconds Duration of the decode run\n"...)
	b = append(b, "# TYPE flightdata_elapsed_seconds gauge\n"...)
	b = appendMetric(b, "flightdata_elapsed_seconds", time.Since(s.startTime).Seconds())

	b = append(b, "# HELP flightdata_memory_alloc_bytes Current allocated memory\n"...)
	b = append(b, "# TYPE flightdata_memory_alloc_bytes gauge\n"...)
	b = appendMetric(b, "flightdata_memory_alloc_bytes", float64(memStats.Alloc))

	b = append(b, "# HELP flightdata_bytes_total Bytes consumed from the input stream\n"...)
	b = append(b, "# TYPE flightdata_bytes_total counter\n"...)
	b = appendMetric(b, "flightdata_bytes_total", float64(s.Bytes()))

	b = append(b, "# HELP flightdata_packets_total Packets decoded\n"...)
	b = append(b, "# TYPE flightdata_packets_total counter\n"...)
	b = appendMetric(b, "flightdata_packets_total", float64(s.Packets()))

	b = append(b, "# HELP flightdata_rows_total Rows assembled\n"...)
	b = append(b, "# TYPE flightdata_rows_total counter\n"...)
	b = appendMetric(b, "flightdata_rows_total", float64(s.Rows()))

	b = append(b, "# HELP flightdata_sparse_rows_total Rows with at least one empty cell\n"...)
	b = append(b, "# TYPE flightdata_sparse_rows_total counter\n"...)
	b = appendMetric(b, "flightdata_sparse_rows_total", float64(s.SparseRows()))

	b = append(b, "# HELP flightdata_rows_written_total Rows written by the exporter\n"...)
	b = append(b, "# TYPE flightdata_rows_written_total counter\n"...)
	b = appendMetric(b, "flightdata_rows_written_total", float64(s.rowsWrittenTotal.Load()))

	b = append(b, "# HELP flightdata_batches_total Batches flushed by the exporter\n"...)
	b = append(b, "# TYPE flightdata_batches_total counter\n"...)
	b = appendMetric(b, "flightdata_batches_total", float64(s.batchesTotal.Load()))

	errs := s.ErrorsByKind()
	kinds := make([]string, 0, len(errs))
	for k := range errs {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	b = append(b, "# HELP flightdata_errors_total Streaming errors by kind\n"...)
	b = append(b, "# TYPE flightdata_errors_total counter\n"...)
	for _, k := range kinds {
		b = appendMetricWithLabel(b, "flightdata_errors_total", "kind", k, float64(errs[k]))
	}

	return string(b)
}

// Helper functions for Prometheus format
func appendMetric(b []byte, name string, value float64) []byte {
	b = append(b, name...)
	b = append(b, ' ')
	b = appendFloat(b, value)
	b = append(b, '\n')
	return b
}

func appendMetricWithLabel(b []byte, name, labelName, labelValue string, value float64) []byte {
	b = append(b, name...)
	b = append(b, '{')
	b = append(b, labelName...)
	b = append(b, '=', '"')
	b = append(b, labelValue...)
	b = append(b, '"', '}', ' ')
	b = appendFloat(b, value)
	b = append(b, '\n')
	return b
}

func appendFloat(b []byte, v float64) []byte {
	if v == float64(int64(v)) {
		return appendInt(b, int64(v))
	}
	// up to 6 decimal places
	intPart := int64(v)
	fracPart := int64((v - float64(intPart)) * 1000000)
	if fracPart < 0 {
		fracPart = -fracPart
	}
	b = appendInt(b, intPart)
	b = append(b, '.')
	for pad := int64(100000); pad > 1 && fracPart < pad; pad /= 10 {
		b = append(b, '0')
	}
	b = appendInt(b, fracPart)
	return b
}

func appendInt(b []byte, v int64) []byte {
	if v < 0 {
		b = append(b, '-')
		v = -v
	}
	if v == 0 {
		return append(b, '0')
	}
	var digits [20]byte
	i := len(digits)
	for v > 0 {
		i--
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	return append(b, digits[i:]...)
}
