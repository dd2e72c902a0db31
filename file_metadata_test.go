package gguf_convert

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGGUFFile_Metadata(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tiny.gguf")
	writeTestModel(t, p)

	gf, err := ParseGGUFFile(p)
	require.NoError(t, err)

	gm := gf.Metadata()
	assert.Equal(t, "model", gm.Type)
	assert.Equal(t, "llama", gm.Architecture)
	assert.Equal(t, "tiny", gm.Name)
	assert.Equal(t, uint32(32), gm.Alignment)
	assert.Equal(t, GGUFFileTypeMostlyF32, gm.FileType)
	assert.Equal(t, "F32", gm.FileTypeDescriptor)
	assert.True(t, gm.LittleEndian)

	// 48 F32 parameters at 4 bytes each.
	assert.Equal(t, GGUFParametersScalar(48), gm.Parameters)
	assert.Equal(t, GGUFBytesScalar(192), gm.Size)
	assert.Equal(t, GGUFBitsPerWeightScalar(32), gm.BitsPerWeight)
}

func TestGGUFFile_Metadata_GuessFileType(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tiny.gguf")
	gf, data := testModel()

	// Without the explicit key the type is derived from the tensors.
	kvs := gf.Header.MetadataKV[:0:0]
	for _, kv := range gf.Header.MetadataKV {
		if kv.Key != "general.file_type" {
			kvs = append(kvs, kv)
		}
	}
	gf.Header.MetadataKV = kvs
	require.NoError(t, WriteGGUFFile(p, gf, data))

	rf, err := ParseGGUFFile(p)
	require.NoError(t, err)
	assert.Equal(t, GGUFFileTypeMostlyF32, rf.Metadata().FileType)
}

func TestGetFileType(t *testing.T) {
	cases := []struct {
		given    map[GGMLType]int
		expected GGUFFileType
	}{
		{map[GGMLType]int{GGMLTypeF32: 10}, GGUFFileTypeMostlyF32},
		{map[GGMLType]int{GGMLTypeF32: 2, GGMLTypeF16: 10}, GGUFFileTypeMostlyF16},
		{map[GGMLType]int{GGMLTypeF32: 2, GGMLTypeQ4_0: 10}, GGUFFileTypeMostlyQ4_0},
		{map[GGMLType]int{GGMLTypeQ4_0: 3, GGMLTypeQ4_1: 5}, GGUFFileTypeMostlyQ4_1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, GetFileType(tc.given), "%v", tc.given)
	}
}
