package ingest

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/basekick-labs/flightdata/internal/metrics"
	"github.com/basekick-labs/flightdata/pkg/models"
	"github.com/rs/zerolog"
)

const defaultReadBufferSize = 64 * 1024

// PacketSource yields decoded packets until io.EOF
type PacketSource interface {
	Next() (models.Packet, error)
}

// PacketDecoder reads packets from a flight computer byte stream.
//
// Wire format: a flat concatenation of packets, each one
// [1 byte sensor id][value 1]...[value N], where N, the kinds and the widths
// come from the rocket configuration and every multi-byte value uses the
// configuration's byte order. There is no length field, checksum or framing
// beyond the sensor ID.
type PacketDecoder struct {
	reader *bufio.Reader
	config *models.RocketConfig
	order  binary.ByteOrder
	policy ErrorPolicy
	stats  *metrics.Stats
	logger zerolog.Logger

	bufSize int
	offset  int64
	buf     [8]byte
	err     error // sticky error under PolicyAbort, io.EOF once exhausted
}

// DecoderOption configures a PacketDecoder
type DecoderOption func(*PacketDecoder)

// WithDecoderPolicy sets the decoder's error policy
func WithDecoderPolicy(p ErrorPolicy) DecoderOption {
	return func(d *PacketDecoder) { d.policy = p }
}

// WithReadBufferSize sets the size of the read buffer
func WithReadBufferSize(n int) DecoderOption {
	return func(d *PacketDecoder) {
		if n > 0 {
			d.bufSize = n
		}
	}
}

// WithDecoderStats records decode counters into s
func WithDecoderStats(s *metrics.Stats) DecoderOption {
	return func(d *PacketDecoder) { d.stats = s }
}

// NewPacketDecoder creates a decoder reading from r. The configuration must
// be the one the flight computer used to write the stream.
func NewPacketDecoder(r io.Reader, config *models.RocketConfig, logger zerolog.Logger, opts ...DecoderOption) *PacketDecoder {
	d := &PacketDecoder{
		config:  config,
		order:   config.ByteOrder(),
		logger:  logger.With().Str("component", "packet-decoder").Logger(),
		bufSize: defaultReadBufferSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.reader = bufio.NewReaderSize(r, d.bufSize)
	return d
}

// Offset returns the number of bytes consumed so far
func (d *PacketDecoder) Offset() int64 {
	return d.offset
}

// Next decodes the next packet. It returns io.EOF when the stream ends
// exactly on a packet boundary; any other end is a *TruncatedReadError.
func (d *PacketDecoder) Next() (models.Packet, error) {
	if d.err != nil {
		return models.Packet{}, d.err
	}

	idOffset := d.offset
	id, err := d.reader.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			d.err = io.EOF
			return models.Packet{}, io.EOF
		}
		return models.Packet{}, d.fail(fmt.Errorf("read sensor id at offset %d: %w", idOffset, err))
	}
	d.offset++

	sensor, ok := d.config.SensorByID(id)
	if !ok {
		return models.Packet{}, d.fail(&InvalidIDError{ID: id, Offset: idOffset})
	}

	values := make([]models.TypedValue, 0, len(sensor.Values))
	for i := range sensor.Values {
		vc := &sensor.Values[i]
		v, err := d.readValue(sensor.ID, vc)
		if err != nil {
			return models.Packet{}, d.fail(err)
		}
		values = append(values, v)
	}

	if d.stats != nil {
		d.stats.RecordPacket(d.offset - idOffset)
	}

	if e := d.logger.Debug(); e.Enabled() {
		e.Str("sensor", sensor.Name).
			Uint8("id", id).
			Int64("offset", idOffset).
			Int("values", len(values)).
			Msg("Decoded packet")
	}

	return models.Packet{ID: id, Values: values}, nil
}

func (d *PacketDecoder) readValue(sensorID uint8, vc *models.ValueConfig) (models.TypedValue, error) {
	width := vc.DataType.Width()
	start := d.offset
	n, err := io.ReadFull(d.reader, d.buf[:width])
	d.offset += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return models.TypedValue{}, &TruncatedReadError{
				SensorID: sensorID,
				Value:    vc.Name,
				Offset:   start,
				Want:     width,
				Got:      n,
			}
		}
		return models.TypedValue{}, fmt.Errorf("read value %q at offset %d: %w", vc.Name, start, err)
	}
	return DecodeValue(vc.DataType, d.order, d.buf[:width])
}

// fail applies the error policy to err and returns it
func (d *PacketDecoder) fail(err error) error {
	if d.stats != nil {
		d.stats.RecordError(err)
	}

	var truncated *TruncatedReadError
	switch {
	case d.policy == PolicyAbort:
		d.err = err
	case errors.As(err, &truncated):
		// the source is exhausted; the next call ends the sequence
		d.err = io.EOF
	case !IsStreamError(err):
		// I/O failure of the source itself
		d.err = err
	}
	return err
}
