package gguf_convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGGMLType_PayloadBytes(t *testing.T) {
	cases := []struct {
		given      GGMLType
		dimensions []uint64
		expected   uint64
	}{
		{GGMLTypeF32, []uint64{10}, 40},
		{GGMLTypeF32, []uint64{0}, 0},
		{GGMLTypeF16, []uint64{4096, 32}, 262144},
		{GGMLTypeQ4_0, []uint64{32}, 18},
		{GGMLTypeQ4_0, []uint64{33}, 36}, // Partial block rounds up.
		{GGMLTypeQ4_0, []uint64{4096, 32}, 73728},
		{GGMLTypeQ8_0, []uint64{32}, 34},
		{GGMLTypeI8, []uint64{7}, 7},
	}
	for _, tc := range cases {
		actual, err := tc.given.PayloadBytes(tc.dimensions)
		assert.NoError(t, err, "%v %v", tc.given, tc.dimensions)
		assert.Equal(t, tc.expected, actual, "%v %v", tc.given, tc.dimensions)
	}
}

func TestGGMLType_PayloadBytes_Deprecated(t *testing.T) {
	for _, tp := range []GGMLType{GGMLTypeQ4_2, GGMLTypeQ4_3} {
		_, err := tp.PayloadBytes([]uint64{32})
		assert.Error(t, err, tp.String())
	}
}

func TestToGGMLType(t *testing.T) {
	tp, err := ToGGMLType(2)
	assert.NoError(t, err)
	assert.Equal(t, GGMLTypeQ4_0, tp)

	_, err = ToGGMLType(uint32(_GGMLTypeCount))
	assert.ErrorIs(t, err, ErrGGMLTypeInvalid)
	_, err = ToGGMLType(999)
	assert.ErrorIs(t, err, ErrGGMLTypeInvalid)
}

func TestParseGGMLType(t *testing.T) {
	tp, err := ParseGGMLType("Q4_0")
	assert.NoError(t, err)
	assert.Equal(t, GGMLTypeQ4_0, tp)

	tp, err = ParseGGMLType("f16")
	assert.NoError(t, err)
	assert.Equal(t, GGMLTypeF16, tp)

	_, err = ParseGGMLType("Q4_9")
	assert.ErrorIs(t, err, ErrGGMLTypeInvalid)
}

func TestGGMLType_ExactCodec(t *testing.T) {
	assert.True(t, GGMLTypeF32.ExactCodec())
	assert.True(t, GGMLTypeF16.ExactCodec())
	assert.True(t, GGMLTypeQ4_0.ExactCodec())
	assert.False(t, GGMLTypeQ8_0.ExactCodec())
	assert.False(t, GGMLTypeBF16.ExactCodec())
}

func TestGGMLPadding(t *testing.T) {
	assert.Equal(t, uint64(0), GGMLPadding(0, 32))
	assert.Equal(t, uint64(32), GGMLPadding(1, 32))
	assert.Equal(t, uint64(32), GGMLPadding(32, 32))
	assert.Equal(t, uint64(64), GGMLPadding(33, 32))
}
