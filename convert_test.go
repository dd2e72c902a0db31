package gguf_convert

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert_Copy(t *testing.T) {
	d := t.TempDir()
	in := filepath.Join(d, "tiny.gguf")
	out := filepath.Join(d, "copy.gguf")
	writeTestModel(t, in)

	res := Convert(in, out)
	require.True(t, res.Success, "%v", res.Errors)
	assert.Equal(t, 1.0, res.CompressionRatio)
	assert.Equal(t, res.InputSize, res.OutputSize)
	assert.True(t, res.MetadataPreserved)
	assert.Empty(t, res.Warnings)

	bs0, err := os.ReadFile(in)
	require.NoError(t, err)
	bs1, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, bs0, bs1)
}

func TestConvert_UnsupportedKinds(t *testing.T) {
	d := t.TempDir()
	in := filepath.Join(d, "model.safetensors")
	out := filepath.Join(d, "model.onnx")
	require.NoError(t, os.WriteFile(in, []byte("x"), 0o600))

	res := Convert(in, out)
	assert.False(t, res.Success)
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0], "unsupported conversion")
	// The failure is reported before any output is created.
	assert.NoFileExists(t, out)
}

func TestConvert_UnknownExtension(t *testing.T) {
	d := t.TempDir()
	in := filepath.Join(d, "tiny.gguf")
	writeTestModel(t, in)

	res := Convert(in, filepath.Join(d, "out.bin"))
	assert.False(t, res.Success)
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0], "unknown container kind")
}

func TestConvert_ValidatorRejects(t *testing.T) {
	d := t.TempDir()
	in := filepath.Join(d, "tiny.gguf")
	out := filepath.Join(d, "out.gguf")
	writeTestModel(t, in)

	res := Convert(in, out, UseValidator(func(string) bool { return false }))
	assert.False(t, res.Success)
	assert.NoFileExists(t, out)
}

func TestConvert_Quantize(t *testing.T) {
	d := t.TempDir()
	in := filepath.Join(d, "tiny.gguf")
	out := filepath.Join(d, "tiny_q4_0.gguf")
	writeTestModel(t, in)

	res := Convert(in, out, UseTargetQuantization(GGMLTypeQ4_0), UseVerifyOutput())
	require.True(t, res.Success, "%v", res.Errors)
	assert.Greater(t, res.CompressionRatio, 1.0)
	assert.Less(t, uint64(res.OutputSize), uint64(res.InputSize))
	assert.NotEmpty(t, res.OutputPayloadDigest)

	gf, err := ParseGGUFFile(out)
	require.NoError(t, err)
	for _, ti := range gf.TensorInfos {
		assert.Equal(t, GGMLTypeQ4_0, ti.Type, ti.Name)
	}
	kv, ok := gf.Header.MetadataKV.Get("general.file_type")
	require.True(t, ok)
	assert.Equal(t, GGUFFileTypeMostlyQ4_0, GGUFFileType(ValueNumeric[uint32](kv)))
}

func TestConvert_QuantizeLossBound(t *testing.T) {
	d := t.TempDir()
	in := filepath.Join(d, "tiny.gguf")
	out := filepath.Join(d, "out.gguf")
	writeTestModel(t, in)

	res := Convert(in, out, UseTargetQuantization(GGMLTypeQ4_0))
	require.True(t, res.Success, "%v", res.Errors)
	// Nibble rounding is off by at most half a scale step.
	assert.Greater(t, res.QuantizationRMSE, 0.0)
	assert.Less(t, res.QuantizationRMSE, 1.0)
}

func TestConvert_Optimize(t *testing.T) {
	d := t.TempDir()
	in := filepath.Join(d, "tiny.gguf")
	out := filepath.Join(d, "out.gguf")

	gf, data := testModel()
	gf.TensorInfos = append(gf.TensorInfos,
		GGUFTensorInfo{Name: "debug_stats.weight", NDimensions: 1, Dimensions: []uint64{4}, Type: GGMLTypeF32},
		GGUFTensorInfo{Name: "blk.0.unused_gate.weight", NDimensions: 1, Dimensions: []uint64{4}, Type: GGMLTypeF32},
		GGUFTensorInfo{Name: "blk.0.sparse.weight", NDimensions: 1, Dimensions: []uint64{8}, Type: GGMLTypeF32},
	)
	data["debug_stats.weight"] = float32sToBytes(1, 2, 3, 4)
	data["blk.0.unused_gate.weight"] = float32sToBytes(5, 6, 7, 8)
	data["blk.0.sparse.weight"] = float32sToBytes(1, 0, 0, 0, 0, 0, 0, 0)
	require.NoError(t, WriteGGUFFile(in, gf, data))

	res := Convert(in, out, UseOptimizationLevel(OptimizationLevelBasic))
	require.True(t, res.Success, "%v", res.Errors)
	assert.True(t, hasWarning(res.Warnings, "debug_stats.weight"))
	assert.True(t, hasWarning(res.Warnings, "blk.0.unused_gate.weight"))
	assert.True(t, hasWarning(res.Warnings, "trailing zero"))

	og, err := ParseGGUFFile(out)
	require.NoError(t, err)
	assert.False(t, og.TensorInfos.HasAll([]string{"debug_stats.weight"}))
	assert.False(t, og.TensorInfos.HasAll([]string{"blk.0.unused_gate.weight"}))

	// The trimmed payload is restored verbatim on write.
	ti, ok := og.TensorInfos.Get("blk.0.sparse.weight")
	require.True(t, ok)
	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	bs, err := og.ReadTensorData(f, ti)
	require.NoError(t, err)
	assert.Equal(t, float32sToBytes(1, 0, 0, 0, 0, 0, 0, 0), bs)
}

func TestConvert_MetadataStrip(t *testing.T) {
	d := t.TempDir()
	in := filepath.Join(d, "tiny.gguf")
	out := filepath.Join(d, "out.gguf")
	writeTestModel(t, in)

	res := Convert(in, out, SkipMetadataPreservation(), UseOptimizationLevel(OptimizationLevelBasic))
	require.True(t, res.Success, "%v", res.Errors)
	assert.False(t, res.MetadataPreserved)

	gf, err := ParseGGUFFile(out)
	require.NoError(t, err)
	for _, kv := range gf.Header.MetadataKV {
		assert.True(t, strings.HasPrefix(kv.Key, "general."), kv.Key)
	}
}

func TestBatchConvert(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeTestModel(t, filepath.Join(in, "a.gguf"))
	writeTestModel(t, filepath.Join(in, "b.gguf"))
	require.NoError(t, os.WriteFile(filepath.Join(in, "c.gguf"), []byte("not a gguf file"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(in, "skip.txt"), []byte("x"), 0o600))

	ress, succeeded, err := BatchConvert(in, out, "*.gguf", UseTargetQuantization(GGMLTypeQ4_0))
	require.NoError(t, err)
	require.Len(t, ress, 3)
	assert.Equal(t, 2, succeeded)

	// Lexical listing order, one result per input.
	assert.Equal(t, filepath.Join(in, "a.gguf"), ress[0].InputPath)
	assert.Equal(t, filepath.Join(in, "b.gguf"), ress[1].InputPath)
	assert.Equal(t, filepath.Join(in, "c.gguf"), ress[2].InputPath)
	assert.True(t, ress[0].Success)
	assert.True(t, ress[1].Success)
	assert.False(t, ress[2].Success)

	assert.FileExists(t, filepath.Join(out, "a_q4_0_quantized.gguf"))
	assert.FileExists(t, filepath.Join(out, "b_q4_0_quantized.gguf"))
}

func hasWarning(warns []string, sub string) bool {
	for _, w := range warns {
		if strings.Contains(w, sub) {
			return true
		}
	}
	return false
}

func TestConvert_QuantizeKeepsFileTypeWidth(t *testing.T) {
	d := t.TempDir()
	in := filepath.Join(d, "in.gguf")
	out := filepath.Join(d, "out.gguf")

	gf, data := testModel()
	for i := range gf.Header.MetadataKV {
		if gf.Header.MetadataKV[i].Key == "general.file_type" {
			gf.Header.MetadataKV[i].ValueType = GGUFMetadataValueTypeInt32
			gf.Header.MetadataKV[i].Value = int32(GGUFFileTypeMostlyF32)
		}
	}
	require.NoError(t, WriteGGUFFile(in, gf, data))

	res := Convert(in, out, UseTargetQuantization(GGMLTypeQ4_0))
	require.True(t, res.Success, "%v", res.Errors)

	ogf, err := ParseGGUFFile(out)
	require.NoError(t, err)
	kv, ok := ogf.Header.MetadataKV.Get("general.file_type")
	require.True(t, ok)
	assert.Equal(t, GGUFMetadataValueTypeInt32, kv.ValueType)
	assert.Equal(t, int32(GGUFFileTypeMostlyQ4_0), kv.ValueInt32())
}
