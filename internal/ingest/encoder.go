package ingest

import (
	"fmt"
	"io"

	"github.com/basekick-labs/flightdata/pkg/models"
)

// PacketEncoder writes packets in the flight computer wire format. It is the
// inverse of PacketDecoder and is used to build fixtures and replay streams.
type PacketEncoder struct {
	w      io.Writer
	config *models.RocketConfig
	buf    []byte
}

// NewPacketEncoder creates an encoder writing to w
func NewPacketEncoder(w io.Writer, config *models.RocketConfig) *PacketEncoder {
	return &PacketEncoder{w: w, config: config}
}

// Encode writes one packet. The packet must match its sensor configuration
// in value count and kinds.
func (e *PacketEncoder) Encode(p models.Packet) error {
	sensor, ok := e.config.SensorByID(p.ID)
	if !ok {
		return &InvalidIDError{ID: p.ID, Offset: -1}
	}
	if len(p.Values) != len(sensor.Values) {
		return &InvalidValueCountError{SensorID: p.ID, Expected: len(sensor.Values), Actual: len(p.Values)}
	}

	order := e.config.ByteOrder()
	buf := append(e.buf[:0], p.ID)
	for i, v := range p.Values {
		if want := sensor.Values[i].DataType; v.Kind() != want {
			return fmt.Errorf("sensor %q value %q: got kind %s, want %s", sensor.Name, sensor.Values[i].Name, v.Kind(), want)
		}
		var err error
		buf, err = AppendValue(buf, v, order)
		if err != nil {
			return err
		}
	}
	e.buf = buf

	if _, err := e.w.Write(buf); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}
	return nil
}
