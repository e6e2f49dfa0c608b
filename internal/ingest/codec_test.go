package ingest

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/basekick-labs/flightdata/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeValueKnownBytes(t *testing.T) {
	tests := []struct {
		name  string
		kind  models.ValueKind
		order binary.ByteOrder
		in    []byte
		want  models.TypedValue
	}{
		{"int8", models.KindInt8, binary.BigEndian, []byte{0xfe}, models.NewInt8(-2)},
		{"uint8", models.KindUint8, binary.LittleEndian, []byte{0xfe}, models.NewUint8(254)},
		{"int16 big", models.KindInt16, binary.BigEndian, []byte{0xff, 0xfe}, models.NewInt16(-2)},
		{"int16 little", models.KindInt16, binary.LittleEndian, []byte{0xfe, 0xff}, models.NewInt16(-2)},
		{"uint16 big", models.KindUint16, binary.BigEndian, []byte{0x01, 0x02}, models.NewUint16(0x0102)},
		{"int32 little", models.KindInt32, binary.LittleEndian, []byte{0x01, 0x00, 0x00, 0x80}, models.NewInt32(math.MinInt32 + 1)},
		{"uint32 big", models.KindUint32, binary.BigEndian, []byte{0xde, 0xad, 0xbe, 0xef}, models.NewUint32(0xdeadbeef)},
		{"float32 big", models.KindFloat32, binary.BigEndian, []byte{0x3f, 0x80, 0x00, 0x00}, models.NewFloat32(1)},
		{"float32 little", models.KindFloat32, binary.LittleEndian, []byte{0x00, 0x00, 0x80, 0x3f}, models.NewFloat32(1)},
		{"int64 big", models.KindInt64, binary.BigEndian, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, models.NewInt64(-1)},
		{"uint64 little", models.KindUint64, binary.LittleEndian, []byte{1, 0, 0, 0, 0, 0, 0, 0}, models.NewUint64(1)},
		{"float64 big", models.KindFloat64, binary.BigEndian, []byte{0x40, 0x09, 0x21, 0xfb, 0x54, 0x44, 0x2d, 0x18}, models.NewFloat64(math.Pi)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeValue(tt.kind, tt.order, tt.in)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s (%#x), want %s", got, got.Bits(), tt.want)

			out, err := AppendValue(nil, got, tt.order)
			require.NoError(t, err)
			assert.Equal(t, tt.in, out)
		})
	}
}

func TestRoundTripAllKindsBitExact(t *testing.T) {
	// 0xA5 filler exercises every byte position; the float patterns cover
	// NaN payloads and infinities
	patterns := map[models.ValueKind][]uint64{
		models.KindFloat32: {0x7fc00001, 0xff800000, 0x7f800000, 0x80000000},
		models.KindFloat64: {0x7ff8000000000001, 0xfff0000000000000, 0x7ff0000000000000},
	}

	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		for _, kind := range models.AllKinds {
			width := kind.Width()
			raw := make([]byte, width)
			for i := range raw {
				raw[i] = 0xa5 ^ byte(i)
			}
			inputs := [][]byte{raw}
			for _, bits := range patterns[kind] {
				b := make([]byte, 8)
				order.PutUint64(b, bits)
				if width == 4 {
					b = make([]byte, 4)
					order.PutUint32(b, uint32(bits))
				}
				inputs = append(inputs, b)
			}

			for _, in := range inputs {
				// trailing bytes must not be consumed
				buf := append(append([]byte{}, in...), 0x00, 0x11)
				v, err := DecodeValue(kind, order, buf)
				require.NoError(t, err)
				assert.Equal(t, kind, v.Kind())

				out, err := AppendValue(nil, v, order)
				require.NoError(t, err)
				assert.Equal(t, in, out, "%s %s", kind, order)
			}
		}
	}
}

func TestDecodeValueErrors(t *testing.T) {
	_, err := DecodeValue(models.KindUint32, binary.BigEndian, []byte{1, 2, 3})
	assert.Error(t, err)

	_, err = DecodeValue(models.ValueKind(0), binary.BigEndian, []byte{1})
	assert.Error(t, err)

	_, err = AppendValue(nil, models.TypedValue{}, binary.BigEndian)
	assert.Error(t, err)
}

func TestAppendValueAppends(t *testing.T) {
	dst := []byte{0x07}
	dst, err := AppendValue(dst, models.NewUint16(0x0102), binary.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x07, 0x02, 0x01}, dst)
}
