package models

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromBitsMasksToWidth(t *testing.T) {
	v := FromBits(KindUint8, 0x1ff)
	assert.Equal(t, uint64(0xff), v.Bits())

	v = FromBits(KindInt16, 0xffff_ffff)
	assert.Equal(t, uint64(0xffff), v.Bits())
	i, ok := v.Int()
	require.True(t, ok)
	assert.Equal(t, int64(-1), i)

	v = FromBits(KindUint64, math.MaxUint64)
	assert.Equal(t, uint64(math.MaxUint64), v.Bits())
}

func TestAccessors(t *testing.T) {
	i, ok := NewInt32(-70000).Int()
	assert.True(t, ok)
	assert.Equal(t, int64(-70000), i)

	_, ok = NewInt32(1).Uint()
	assert.False(t, ok)

	u, ok := NewUint16(65535).Uint()
	assert.True(t, ok)
	assert.Equal(t, uint64(65535), u)

	f, ok := NewFloat32(1.5).Float()
	assert.True(t, ok)
	assert.Equal(t, 1.5, f)

	_, ok = NewFloat64(1).Int()
	assert.False(t, ok)
}

func TestInterfaceNativeTypes(t *testing.T) {
	assert.Equal(t, int8(-5), NewInt8(-5).Interface())
	assert.Equal(t, int16(-300), NewInt16(-300).Interface())
	assert.Equal(t, int32(7), NewInt32(7).Interface())
	assert.Equal(t, int64(-8), NewInt64(-8).Interface())
	assert.Equal(t, uint8(200), NewUint8(200).Interface())
	assert.Equal(t, uint16(60000), NewUint16(60000).Interface())
	assert.Equal(t, uint32(4000000000), NewUint32(4000000000).Interface())
	assert.Equal(t, uint64(math.MaxUint64), NewUint64(math.MaxUint64).Interface())
	assert.Equal(t, float32(0.25), NewFloat32(0.25).Interface())
	assert.Equal(t, 2.5, NewFloat64(2.5).Interface())
	assert.Nil(t, TypedValue{}.Interface())
}

func TestString(t *testing.T) {
	tests := []struct {
		v    TypedValue
		want string
	}{
		{NewInt8(-128), "-128"},
		{NewInt64(math.MinInt64), "-9223372036854775808"},
		{NewUint64(math.MaxUint64), "18446744073709551615"},
		{NewUint8(0), "0"},
		{NewFloat32(1.5), "1.50000000"},
		{NewFloat64(-0.125), "-0.12500000"},
		{NewFloat64(3), "3.00000000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.v.String())
	}
}

func TestCompare(t *testing.T) {
	c, err := NewInt16(-3).Compare(NewInt16(2))
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	// unsigned compares by magnitude, not by the sign bit
	c, err = NewUint64(math.MaxUint64).Compare(NewUint64(1))
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	c, err = NewFloat32(2).Compare(NewFloat32(2))
	require.NoError(t, err)
	assert.Equal(t, 0, c)

	nan := NewFloat64(math.NaN())
	c, err = nan.Compare(NewFloat64(-1e300))
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	_, err = NewInt8(1).Compare(NewUint8(1))
	assert.True(t, errors.Is(err, ErrKindMismatch))
}

func TestMinMax(t *testing.T) {
	lo, err := Min(NewInt32(5), NewInt32(-5))
	require.NoError(t, err)
	assert.True(t, lo.Equal(NewInt32(-5)))

	hi, err := Max(NewFloat64(0.5), NewFloat64(1.5))
	require.NoError(t, err)
	assert.True(t, hi.Equal(NewFloat64(1.5)))

	_, err = Max(NewFloat32(1), NewFloat64(1))
	assert.ErrorIs(t, err, ErrKindMismatch)
}

func TestEqual(t *testing.T) {
	assert.True(t, NewUint8(3).Equal(NewUint8(3)))
	assert.False(t, NewUint8(3).Equal(NewInt8(3)))
	assert.False(t, NewUint8(3).Equal(NewUint8(4)))
}
