package ingest

import (
	"encoding/binary"
	"fmt"

	"github.com/basekick-labs/flightdata/pkg/models"
)

// DecodeValue interprets exactly kind.Width() bytes of b as a value of the
// given kind. Integers keep their raw bits; floats are IEEE-754 bit patterns
// of the matching width.
func DecodeValue(kind models.ValueKind, order binary.ByteOrder, b []byte) (models.TypedValue, error) {
	width := kind.Width()
	if width == 0 {
		return models.TypedValue{}, fmt.Errorf("cannot decode invalid kind %s", kind)
	}
	if len(b) < width {
		return models.TypedValue{}, fmt.Errorf("decode %s: need %d bytes, have %d", kind, width, len(b))
	}

	var bits uint64
	switch width {
	case 1:
		bits = uint64(b[0])
	case 2:
		bits = uint64(order.Uint16(b))
	case 4:
		bits = uint64(order.Uint32(b))
	case 8:
		bits = order.Uint64(b)
	}
	return models.FromBits(kind, bits), nil
}

// AppendValue appends the wire encoding of v to dst
func AppendValue(dst []byte, v models.TypedValue, order binary.ByteOrder) ([]byte, error) {
	switch v.Kind().Width() {
	case 1:
		return append(dst, byte(v.Bits())), nil
	case 2:
		return binary.Append(dst, order, uint16(v.Bits()))
	case 4:
		return binary.Append(dst, order, uint32(v.Bits()))
	case 8:
		return binary.Append(dst, order, v.Bits())
	}
	return dst, fmt.Errorf("cannot encode invalid kind %s", v.Kind())
}
