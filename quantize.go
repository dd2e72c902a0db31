package gguf_convert

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"
)

// Q4_0 block layout constants,
// see https://github.com/ggerganov/ggml/blob/master/docs/gguf.md#file-structure.
//
// A block holds a float16 scale followed by 16 bytes of packed nibbles,
// element 2k in the low nibble of byte k and element 2k+1 in the high nibble.
const (
	_Q4_0BlockElements = 32
	_Q4_0BlockBytes    = 18
)

// RecodeTensorData re-encodes the given tensor payload from one GGMLType to another.
//
// The returned type is the type the payload actually ends up in:
// when the target encoder is not implemented the payload passes through untouched
// and the source type is returned along with a warning,
// synthesizing weights a decoder cannot reproduce is never an option.
// Decoding an unimplemented quantized source yields zeros along with a warning.
func RecodeTensorData(from, to GGMLType, data []byte, elements uint64) ([]byte, GGMLType, []string, error) {
	if err := checkPayloadSize(from, data, elements); err != nil {
		return nil, from, nil, err
	}

	if from == to {
		out := make([]byte, len(data))
		copy(out, data)
		return out, to, nil, nil
	}

	var warnings []string

	if !to.ExactCodec() {
		warnings = append(warnings,
			fmt.Sprintf("encoding into %v is not implemented, keeping %v payload", to, from))
		out := make([]byte, len(data))
		copy(out, data)
		return out, from, warnings, nil
	}

	vs, ws, err := DequantizeToFloat32s(from, data, elements)
	if err != nil {
		return nil, from, nil, err
	}
	warnings = append(warnings, ws...)

	out, ws, err := QuantizeFromFloat32s(to, vs)
	if err != nil {
		return nil, from, nil, err
	}
	warnings = append(warnings, ws...)

	return out, to, warnings, nil
}

// DequantizeToFloat32s decodes the given tensor payload into float32 values.
//
// Types without a decoder in this package come back as zeros plus a warning,
// the caller decides whether that is acceptable.
func DequantizeToFloat32s(t GGMLType, data []byte, elements uint64) ([]float32, []string, error) {
	if err := checkPayloadSize(t, data, elements); err != nil {
		return nil, nil, err
	}

	vs := make([]float32, elements)

	switch t {
	case GGMLTypeF32:
		for i := uint64(0); i < elements; i++ {
			vs[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
	case GGMLTypeF16:
		for i := uint64(0); i < elements; i++ {
			vs[i] = float16.Frombits(binary.LittleEndian.Uint16(data[i*2:])).Float32()
		}
	case GGMLTypeQ4_0:
		dequantizeQ4_0(data, vs)
	default:
		return vs, []string{
			fmt.Sprintf("decoding %v is not implemented, emitting zeros", t),
		}, nil
	}

	return vs, nil, nil
}

// QuantizeFromFloat32s encodes the given float32 values into the target GGMLType.
//
// Only types with ExactCodec support can be produced,
// anything else is an error, the caller should keep the source payload instead.
func QuantizeFromFloat32s(t GGMLType, vs []float32) ([]byte, []string, error) {
	switch t {
	case GGMLTypeF32:
		out := make([]byte, len(vs)*4)
		for i := range vs {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(vs[i]))
		}
		return out, nil, nil
	case GGMLTypeF16:
		out := make([]byte, len(vs)*2)
		for i := range vs {
			binary.LittleEndian.PutUint16(out[i*2:], float16.Fromfloat32(vs[i]).Bits())
		}
		return out, nil, nil
	case GGMLTypeQ4_0:
		return quantizeQ4_0(vs), nil, nil
	default:
	}
	return nil, nil, fmt.Errorf("%w: encoding into %v is not implemented", ErrGGMLTypeInvalid, t)
}

// quantizeQ4_0 packs float32 values into Q4_0 blocks,
// padding the trailing partial block with zeros.
func quantizeQ4_0(vs []float32) []byte {
	nb := (len(vs) + _Q4_0BlockElements - 1) / _Q4_0BlockElements
	out := make([]byte, nb*_Q4_0BlockBytes)

	for b := 0; b < nb; b++ {
		var blk [_Q4_0BlockElements]float32
		copy(blk[:], vs[b*_Q4_0BlockElements:])

		var maxAbs float32
		for _, v := range blk {
			if a := float32(math.Abs(float64(v))); a > maxAbs {
				maxAbs = a
			}
		}
		scale := maxAbs / 7
		if maxAbs == 0 {
			scale = 1.0
		}

		ob := out[b*_Q4_0BlockBytes:]
		binary.LittleEndian.PutUint16(ob, float16.Fromfloat32(scale).Bits())

		// The scale round-trips through float16,
		// quantize against the value a decoder will actually see.
		scale = float16.Fromfloat32(scale).Float32()
		for k := 0; k < _Q4_0BlockElements/2; k++ {
			lo := quantizeNibble(blk[2*k], scale)
			hi := quantizeNibble(blk[2*k+1], scale)
			ob[2+k] = lo | hi<<4
		}
	}
	return out
}

func quantizeNibble(v, scale float32) uint8 {
	q := int(math.Round(float64(v) / float64(scale)))
	if q < -8 {
		q = -8
	} else if q > 7 {
		q = 7
	}
	return uint8(q + 8)
}

// dequantizeQ4_0 unpacks Q4_0 blocks into vs,
// ignoring the zero padding of the trailing partial block.
func dequantizeQ4_0(data []byte, vs []float32) {
	for i := range vs {
		b := i / _Q4_0BlockElements
		e := i % _Q4_0BlockElements

		blk := data[b*_Q4_0BlockBytes:]
		scale := float16.Frombits(binary.LittleEndian.Uint16(blk)).Float32()

		n := blk[2+e/2]
		if e%2 == 0 {
			n &= 0x0F
		} else {
			n >>= 4
		}
		vs[i] = float32(int(n)-8) * scale
	}
}

func checkPayloadSize(t GGMLType, data []byte, elements uint64) error {
	want, err := t.PayloadBytes([]uint64{elements})
	if err != nil {
		return err
	}
	if uint64(len(data)) != want {
		return fmt.Errorf("%w: %v payload is %d bytes, want %d for %d elements",
			ErrGGUFFileInvalidFormat, t, len(data), want, elements)
	}
	return nil
}
