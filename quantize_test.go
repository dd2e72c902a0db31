package gguf_convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestQuantizeFromFloat32s_Q4_0(t *testing.T) {
	vs := make([]float32, 32)
	vs[0], vs[1] = 7, -7

	bs, warns, err := QuantizeFromFloat32s(GGMLTypeQ4_0, vs)
	require.NoError(t, err)
	assert.Empty(t, warns)
	require.Len(t, bs, 18)

	// Scale is maxAbs/7 = 1.0.
	assert.Equal(t, float32(1.0), float16.Frombits(uint16(bs[0])|uint16(bs[1])<<8).Float32())
	// 7 maps to nibble 15 in the low half, -7 to nibble 1 in the high half.
	assert.Equal(t, byte(0x1F), bs[2])
	for i := 3; i < 18; i++ {
		// Zeros map to nibble 8.
		assert.Equal(t, byte(0x88), bs[i], "byte %d", i)
	}
}

func TestQuantizeFromFloat32s_Q4_0_AllZero(t *testing.T) {
	bs, warns, err := QuantizeFromFloat32s(GGMLTypeQ4_0, make([]float32, 32))
	require.NoError(t, err)
	assert.Empty(t, warns)

	// An all-zero block keeps scale 1.0 instead of dividing by zero.
	assert.Equal(t, float32(1.0), float16.Frombits(uint16(bs[0])|uint16(bs[1])<<8).Float32())
	for i := 2; i < 18; i++ {
		assert.Equal(t, byte(0x88), bs[i])
	}
}

func TestQ4_0RoundTripExact(t *testing.T) {
	// Whole multiples of the scale survive the nibble round trip.
	vs := make([]float32, 64)
	for i := range vs {
		vs[i] = float32(i%15 - 7)
	}

	bs, _, err := QuantizeFromFloat32s(GGMLTypeQ4_0, vs)
	require.NoError(t, err)
	require.Len(t, bs, 36)

	got, warns, err := DequantizeToFloat32s(GGMLTypeQ4_0, bs, 64)
	require.NoError(t, err)
	assert.Empty(t, warns)
	assert.Equal(t, vs, got)
}

func TestQuantizeIdempotent(t *testing.T) {
	vs := make([]float32, 32)
	for i := range vs {
		vs[i] = float32(i)*0.37 - 5.1
	}

	bs0, _, err := QuantizeFromFloat32s(GGMLTypeQ4_0, vs)
	require.NoError(t, err)
	ds, _, err := DequantizeToFloat32s(GGMLTypeQ4_0, bs0, 32)
	require.NoError(t, err)
	bs1, _, err := QuantizeFromFloat32s(GGMLTypeQ4_0, ds)
	require.NoError(t, err)

	// Re-encoding already-quantized values is lossless.
	assert.Equal(t, bs0, bs1)
}

func TestDequantizeToFloat32s_F16(t *testing.T) {
	vs := []float32{0, 1, -2.5, 65504}
	bs := make([]byte, len(vs)*2)
	for i, v := range vs {
		b := float16.Fromfloat32(v).Bits()
		bs[i*2] = byte(b)
		bs[i*2+1] = byte(b >> 8)
	}

	got, warns, err := DequantizeToFloat32s(GGMLTypeF16, bs, uint64(len(vs)))
	require.NoError(t, err)
	assert.Empty(t, warns)
	assert.Equal(t, vs, got)
}

func TestDequantizeToFloat32s_Unimplemented(t *testing.T) {
	bs := make([]byte, 34) // One Q8_0 block.
	got, warns, err := DequantizeToFloat32s(GGMLTypeQ8_0, bs, 32)
	require.NoError(t, err)
	assert.NotEmpty(t, warns)
	assert.Equal(t, make([]float32, 32), got)
}

func TestRecodeTensorData(t *testing.T) {
	vs := make([]float32, 32)
	for i := range vs {
		vs[i] = float32(i % 8)
	}
	f32 := float32sToBytes(vs...)

	// Same type degenerates to a copy.
	bs, at, warns, err := RecodeTensorData(GGMLTypeF32, GGMLTypeF32, f32, 32)
	require.NoError(t, err)
	assert.Equal(t, GGMLTypeF32, at)
	assert.Empty(t, warns)
	assert.Equal(t, f32, bs)

	// F32 to Q4_0 shrinks 128 bytes to one block.
	bs, at, warns, err = RecodeTensorData(GGMLTypeF32, GGMLTypeQ4_0, f32, 32)
	require.NoError(t, err)
	assert.Equal(t, GGMLTypeQ4_0, at)
	assert.Empty(t, warns)
	assert.Len(t, bs, 18)

	// An encoder-less target keeps the source payload and reports it.
	bs, at, warns, err = RecodeTensorData(GGMLTypeF32, GGMLTypeQ8_0, f32, 32)
	require.NoError(t, err)
	assert.Equal(t, GGMLTypeF32, at)
	assert.NotEmpty(t, warns)
	assert.Equal(t, f32, bs)
}

func TestRecodeTensorData_SizeMismatch(t *testing.T) {
	_, _, _, err := RecodeTensorData(GGMLTypeF32, GGMLTypeQ4_0, make([]byte, 100), 32)
	assert.Error(t, err)
}
