package models

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrKindMismatch is returned when two values of different kinds are compared
var ErrKindMismatch = errors.New("value kinds differ")

// TypedValue is a decoded scalar tagged with its kind.
//
// The raw wire bits are kept zero-extended in a uint64 so that re-encoding is
// bit exact for every kind, including NaN payloads. Reading the value back as
// a Go number always goes through the kind.
type TypedValue struct {
	kind ValueKind
	bits uint64
}

// FromBits builds a value from raw bits as read from the wire. Bits above the
// kind's width are discarded.
func FromBits(kind ValueKind, bits uint64) TypedValue {
	if w := kind.Width(); w > 0 && w < 8 {
		bits &= (uint64(1) << (8 * w)) - 1
	}
	return TypedValue{kind: kind, bits: bits}
}

func NewInt8(v int8) TypedValue     { return FromBits(KindInt8, uint64(uint8(v))) }
func NewInt16(v int16) TypedValue   { return FromBits(KindInt16, uint64(uint16(v))) }
func NewInt32(v int32) TypedValue   { return FromBits(KindInt32, uint64(uint32(v))) }
func NewInt64(v int64) TypedValue   { return FromBits(KindInt64, uint64(v)) }
func NewUint8(v uint8) TypedValue   { return FromBits(KindUint8, uint64(v)) }
func NewUint16(v uint16) TypedValue { return FromBits(KindUint16, uint64(v)) }
func NewUint32(v uint32) TypedValue { return FromBits(KindUint32, uint64(v)) }
func NewUint64(v uint64) TypedValue { return FromBits(KindUint64, v) }
func NewFloat32(v float32) TypedValue {
	return FromBits(KindFloat32, uint64(math.Float32bits(v)))
}
func NewFloat64(v float64) TypedValue {
	return FromBits(KindFloat64, math.Float64bits(v))
}

// Kind returns the value's kind
func (v TypedValue) Kind() ValueKind { return v.kind }

// Bits returns the raw wire bits, zero-extended to 64 bits
func (v TypedValue) Bits() uint64 { return v.bits }

// Int returns the value of a signed integer kind, sign-extended
func (v TypedValue) Int() (int64, bool) {
	switch v.kind {
	case KindInt8:
		return int64(int8(v.bits)), true
	case KindInt16:
		return int64(int16(v.bits)), true
	case KindInt32:
		return int64(int32(v.bits)), true
	case KindInt64:
		return int64(v.bits), true
	}
	return 0, false
}

// Uint returns the value of an unsigned integer kind
func (v TypedValue) Uint() (uint64, bool) {
	if v.kind.Unsigned() {
		return v.bits, true
	}
	return 0, false
}

// Float returns the value of a float kind widened to float64
func (v TypedValue) Float() (float64, bool) {
	switch v.kind {
	case KindFloat32:
		return float64(math.Float32frombits(uint32(v.bits))), true
	case KindFloat64:
		return math.Float64frombits(v.bits), true
	}
	return 0, false
}

// Interface returns the value as its native Go type (int8 ... float64)
func (v TypedValue) Interface() any {
	switch v.kind {
	case KindInt8:
		return int8(v.bits)
	case KindInt16:
		return int16(v.bits)
	case KindInt32:
		return int32(v.bits)
	case KindInt64:
		return int64(v.bits)
	case KindUint8:
		return uint8(v.bits)
	case KindUint16:
		return uint16(v.bits)
	case KindUint32:
		return uint32(v.bits)
	case KindUint64:
		return v.bits
	case KindFloat32:
		return math.Float32frombits(uint32(v.bits))
	case KindFloat64:
		return math.Float64frombits(v.bits)
	}
	return nil
}

// String renders integers as plain decimal and floats with 8 decimal places
func (v TypedValue) String() string {
	switch {
	case v.kind.Signed():
		i, _ := v.Int()
		return strconv.FormatInt(i, 10)
	case v.kind.Unsigned():
		return strconv.FormatUint(v.bits, 10)
	case v.kind == KindFloat32:
		return strconv.FormatFloat(float64(math.Float32frombits(uint32(v.bits))), 'f', 8, 32)
	case v.kind == KindFloat64:
		return strconv.FormatFloat(math.Float64frombits(v.bits), 'f', 8, 64)
	}
	return fmt.Sprintf("<invalid %s>", v.kind)
}

// Compare orders two values of the same kind, returning -1, 0 or +1.
// Floats follow cmp.Compare: NaN sorts before every other value and equals
// itself, which keeps the order total.
func (v TypedValue) Compare(o TypedValue) (int, error) {
	if v.kind != o.kind {
		return 0, fmt.Errorf("%w: %s vs %s", ErrKindMismatch, v.kind, o.kind)
	}
	switch {
	case v.kind.Signed():
		a, _ := v.Int()
		b, _ := o.Int()
		return cmp.Compare(a, b), nil
	case v.kind.Unsigned():
		return cmp.Compare(v.bits, o.bits), nil
	default:
		a, _ := v.Float()
		b, _ := o.Float()
		return cmp.Compare(a, b), nil
	}
}

// Equal reports whether both kind and bits match
func (v TypedValue) Equal(o TypedValue) bool {
	return v.kind == o.kind && v.bits == o.bits
}

// Min returns the smaller of two values of the same kind
func Min(a, b TypedValue) (TypedValue, error) {
	c, err := a.Compare(b)
	if err != nil {
		return a, err
	}
	if c <= 0 {
		return a, nil
	}
	return b, nil
}

// Max returns the larger of two values of the same kind
func Max(a, b TypedValue) (TypedValue, error) {
	c, err := a.Compare(b)
	if err != nil {
		return a, err
	}
	if c >= 0 {
		return a, nil
	}
	return b, nil
}
