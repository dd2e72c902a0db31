package gguf_convert

import (
	"errors"
	"fmt"
	"strings"
)

// Types for GGMLType.
type (
	// GGMLType is a type of GGML tensor,
	// see https://github.com/ggerganov/ggml/blob/master/docs/gguf.md#file-structure.
	GGMLType uint32

	// GGMLTypeTrait holds the trait of a GGMLType,
	// see https://github.com/ggerganov/ggml/blob/0cbb7c0e053f5419cfbebb46fbf4d4ed60182cf5/src/ggml.c#L564-L918.
	GGMLTypeTrait struct {
		BlockSize uint64 // Original is int, in order to reduce conversion, here we use uint64.
		TypeSize  uint64 // Original is uint32, in order to reduce conversion, here we use uint64.
		Quantized bool
	}
)

// GGMLType constants.
//
// GGMLTypeQ4_2, GGMLTypeQ4_3 are deprecated.
const (
	GGMLTypeF32 GGMLType = iota
	GGMLTypeF16
	GGMLTypeQ4_0
	GGMLTypeQ4_1
	GGMLTypeQ4_2
	GGMLTypeQ4_3
	GGMLTypeQ5_0
	GGMLTypeQ5_1
	GGMLTypeQ8_0
	GGMLTypeQ8_1
	GGMLTypeQ2_K
	GGMLTypeQ3_K
	GGMLTypeQ4_K
	GGMLTypeQ5_K
	GGMLTypeQ6_K
	GGMLTypeQ8_K
	GGMLTypeIQ2_XXS
	GGMLTypeIQ2_XS
	GGMLTypeIQ3_XXS
	GGMLTypeIQ1_S
	GGMLTypeIQ4_NL
	GGMLTypeIQ3_S
	GGMLTypeIQ2_S
	GGMLTypeIQ4_XS
	GGMLTypeI8
	GGMLTypeI16
	GGMLTypeI32
	GGMLTypeI64
	GGMLTypeF64
	GGMLTypeIQ1_M
	GGMLTypeBF16
	_GGMLTypeCount // Unknown
)

// ErrGGMLTypeInvalid is returned when an on-disk type code falls outside the
// closed set of known GGMLType values.
var ErrGGMLTypeInvalid = errors.New("invalid GGML type")

// _GGMLTypeTraits is a table of GGMLTypeTrait for GGMLType.
var _GGMLTypeTraits = map[GGMLType]GGMLTypeTrait{
	GGMLTypeF32:     {BlockSize: 1, TypeSize: 4},
	GGMLTypeF16:     {BlockSize: 1, TypeSize: 2},
	GGMLTypeQ4_0:    {BlockSize: 32, TypeSize: 18, Quantized: true},
	GGMLTypeQ4_1:    {BlockSize: 32, TypeSize: 20, Quantized: true},
	GGMLTypeQ4_2:    {BlockSize: 0, TypeSize: 0}, // Deprecated
	GGMLTypeQ4_3:    {BlockSize: 0, TypeSize: 0}, // Deprecated
	GGMLTypeQ5_0:    {BlockSize: 32, TypeSize: 22, Quantized: true},
	GGMLTypeQ5_1:    {BlockSize: 32, TypeSize: 24, Quantized: true},
	GGMLTypeQ8_0:    {BlockSize: 32, TypeSize: 34, Quantized: true},
	GGMLTypeQ8_1:    {BlockSize: 32, TypeSize: 36, Quantized: true},
	GGMLTypeQ2_K:    {BlockSize: 256, TypeSize: 84, Quantized: true},
	GGMLTypeQ3_K:    {BlockSize: 256, TypeSize: 110, Quantized: true},
	GGMLTypeQ4_K:    {BlockSize: 256, TypeSize: 144, Quantized: true},
	GGMLTypeQ5_K:    {BlockSize: 256, TypeSize: 176, Quantized: true},
	GGMLTypeQ6_K:    {BlockSize: 256, TypeSize: 210, Quantized: true},
	GGMLTypeQ8_K:    {BlockSize: 256, TypeSize: 292, Quantized: true},
	GGMLTypeIQ2_XXS: {BlockSize: 256, TypeSize: 66, Quantized: true},
	GGMLTypeIQ2_XS:  {BlockSize: 256, TypeSize: 74, Quantized: true},
	GGMLTypeIQ3_XXS: {BlockSize: 256, TypeSize: 98, Quantized: true},
	GGMLTypeIQ1_S:   {BlockSize: 256, TypeSize: 50, Quantized: true},
	GGMLTypeIQ4_NL:  {BlockSize: 32, TypeSize: 18, Quantized: true},
	GGMLTypeIQ3_S:   {BlockSize: 256, TypeSize: 110, Quantized: true},
	GGMLTypeIQ2_S:   {BlockSize: 256, TypeSize: 82, Quantized: true},
	GGMLTypeIQ4_XS:  {BlockSize: 256, TypeSize: 136, Quantized: true},
	GGMLTypeI8:      {BlockSize: 1, TypeSize: 1},
	GGMLTypeI16:     {BlockSize: 1, TypeSize: 2},
	GGMLTypeI32:     {BlockSize: 1, TypeSize: 4},
	GGMLTypeI64:     {BlockSize: 1, TypeSize: 8},
	GGMLTypeF64:     {BlockSize: 1, TypeSize: 8},
	GGMLTypeIQ1_M:   {BlockSize: 256, TypeSize: 56, Quantized: true},
	GGMLTypeBF16:    {BlockSize: 1, TypeSize: 2},
}

// ToGGMLType resolves the given on-disk numeric code to a GGMLType.
func ToGGMLType(code uint32) (GGMLType, error) {
	if t := GGMLType(code); t < _GGMLTypeCount {
		return t, nil
	}
	return _GGMLTypeCount, fmt.Errorf("%w: code %d", ErrGGMLTypeInvalid, code)
}

// ParseGGMLType resolves the given name, e.g. "Q4_0" or "f16", to a GGMLType.
func ParseGGMLType(s string) (GGMLType, error) {
	for t := GGMLType(0); t < _GGMLTypeCount; t++ {
		if strings.EqualFold(t.String(), s) {
			return t, nil
		}
	}
	return _GGMLTypeCount, fmt.Errorf("%w: name %q", ErrGGMLTypeInvalid, s)
}

// Trait returns the GGMLTypeTrait of the GGMLType.
func (t GGMLType) Trait() (GGMLTypeTrait, bool) {
	tt, ok := _GGMLTypeTraits[t]
	return tt, ok
}

// IsQuantized returns whether the GGMLType is quantized.
func (t GGMLType) IsQuantized() bool {
	tt, ok := t.Trait()
	if !ok {
		return false
	}
	return tt.Quantized
}

// ExactCodec returns whether the GGMLType has a byte-exact encoder and decoder
// in this package.
//
// Other quantized types can still be carried through a conversion untouched,
// but cannot be produced, see RecodeTensorData.
func (t GGMLType) ExactCodec() bool {
	switch t {
	case GGMLTypeF32, GGMLTypeF16, GGMLTypeQ4_0:
		return true
	}
	return false
}

// PayloadBytes returns the size in bytes that a tensor of the given dimensions
// occupies on disk according to the GGMLType's GGMLTypeTrait,
// which is ceil(elements/BlockSize)*TypeSize.
//
// Partial trailing blocks are always stored in full.
func (t GGMLType) PayloadBytes(dimensions []uint64) (uint64, error) {
	tt, ok := t.Trait()
	if !ok || tt.BlockSize == 0 {
		return 0, fmt.Errorf("%w: %v has no storage layout", ErrGGMLTypeInvalid, t)
	}

	es := uint64(1)
	for i := range dimensions {
		es *= dimensions[i]
	}
	return (es + tt.BlockSize - 1) / tt.BlockSize * tt.TypeSize, nil
}

// RowSizeOf returns the size of the given dimensions according to the GGMLType's GGMLTypeTrait,
// which is inspired by
// https://github.com/ggerganov/ggml/blob/0cbb7c0e053f5419cfbebb46fbf4d4ed60182cf5/src/ggml.c#L3142-L3145.
//
// The index of the given dimensions means the number of dimension,
// i.e. 0 is the first dimension, 1 is the second dimension, and so on.
//
// The value of the item is the number of elements in the corresponding dimension.
func (t GGMLType) RowSizeOf(dimensions []uint64) uint64 {
	if len(dimensions) == 0 {
		panic(errors.New("no dimensions"))
	}

	tt, ok := t.Trait()
	if !ok {
		panic(fmt.Errorf("invalid type: %v", t))
	}

	// https://github.com/ggerganov/ggml/blob/a10a8b880c059b3b29356eb9a9f8df72f03cdb6a/src/ggml.c#L2640-L2643
	ds := tt.TypeSize * dimensions[0] / tt.BlockSize // Row size
	for i := 1; i < len(dimensions); i++ {
		ds *= dimensions[i]
	}
	return ds
}

// GGMLPadding returns the padded size of the given size according to given align,
// see https://github.com/ggerganov/ggml/blob/0cbb7c0e053f5419cfbebb46fbf4d4ed60182cf5/include/ggml/ggml.h#L255.
func GGMLPadding(size, align uint64) uint64 {
	return (size + align - 1) &^ (align - 1)
}
