package ingest

import (
	"errors"
	"fmt"
	"io"
)

// Sentinels matched by errors.Is against the typed streaming errors below
var (
	ErrInvalidID         = errors.New("invalid sensor id")
	ErrInvalidValueCount = errors.New("invalid value count")
	ErrTruncatedRead     = errors.New("truncated read")
)

// InvalidIDError reports a packet whose sensor ID has no configuration entry
type InvalidIDError struct {
	ID     uint8
	Offset int64 // stream offset of the ID byte, -1 when unknown
}

func (e *InvalidIDError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("invalid packet id %d at offset %d", e.ID, e.Offset)
	}
	return fmt.Sprintf("invalid packet id %d", e.ID)
}

func (e *InvalidIDError) Is(target error) bool { return target == ErrInvalidID }

// ErrorKind is the metrics label for this error
func (e *InvalidIDError) ErrorKind() string { return "invalid_id" }

// InvalidValueCountError reports a packet whose value count disagrees with
// its sensor configuration. This happens when packets were decoded with a
// different configuration than the one used to assemble rows.
type InvalidValueCountError struct {
	SensorID uint8
	Expected int
	Actual   int
}

func (e *InvalidValueCountError) Error() string {
	return fmt.Sprintf("invalid value count for sensor %d: expected %d, got %d", e.SensorID, e.Expected, e.Actual)
}

func (e *InvalidValueCountError) Is(target error) bool { return target == ErrInvalidValueCount }

func (e *InvalidValueCountError) ErrorKind() string { return "invalid_value_count" }

// TruncatedReadError reports a stream that ended in the middle of a packet
type TruncatedReadError struct {
	SensorID uint8
	Value    string // name of the value being read
	Offset   int64  // stream offset where the value started
	Want     int
	Got      int
}

func (e *TruncatedReadError) Error() string {
	return fmt.Sprintf("truncated read of sensor %d value %q at offset %d: want %d bytes, got %d",
		e.SensorID, e.Value, e.Offset, e.Want, e.Got)
}

func (e *TruncatedReadError) Is(target error) bool { return target == ErrTruncatedRead }

func (e *TruncatedReadError) Unwrap() error { return io.ErrUnexpectedEOF }

func (e *TruncatedReadError) ErrorKind() string { return "truncated" }

// ErrorPolicy decides what happens to a decoder or table generator after a
// streaming error
type ErrorPolicy int

const (
	// PolicyAbort makes the first error sticky: every later call returns it
	PolicyAbort ErrorPolicy = iota
	// PolicyContinue reports each error once and keeps the stream usable.
	// After an unknown ID the decoder resumes at the next byte; nothing
	// guarantees that byte starts a packet.
	PolicyContinue
)

// String returns "abort" or "continue"
func (p ErrorPolicy) String() string {
	if p == PolicyContinue {
		return "continue"
	}
	return "abort"
}

// ParseErrorPolicy converts "abort" or "continue" to an ErrorPolicy
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch s {
	case "", "abort":
		return PolicyAbort, nil
	case "continue", "keep-going":
		return PolicyContinue, nil
	}
	return PolicyAbort, fmt.Errorf("unknown error policy %q (expected abort or continue)", s)
}

// IsStreamError reports whether err is one of the per-unit streaming errors
// (as opposed to an I/O failure of the underlying source)
func IsStreamError(err error) bool {
	return errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidValueCount) ||
		errors.Is(err, ErrTruncatedRead)
}
