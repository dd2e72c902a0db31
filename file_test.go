package gguf_convert

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float32sToBytes(vs ...float32) []byte {
	bs := make([]byte, len(vs)*4)
	for i, v := range vs {
		binary.LittleEndian.PutUint32(bs[i*4:], math.Float32bits(v))
	}
	return bs
}

// testModel returns a small but complete in-memory model,
// two F32 tensors under a llama-flavored metadata set.
func testModel() (*GGUFFile, GGUFTensorData) {
	gf := &GGUFFile{
		Header: GGUFHeader{
			Magic:   GGUFMagicGGUFLe,
			Version: GGUFVersionV3,
			MetadataKV: GGUFMetadataKVs{
				{Key: "general.architecture", ValueType: GGUFMetadataValueTypeString, Value: "llama"},
				{Key: "general.name", ValueType: GGUFMetadataValueTypeString, Value: "tiny"},
				{Key: "general.alignment", ValueType: GGUFMetadataValueTypeUint32, Value: uint32(32)},
				{Key: "general.file_type", ValueType: GGUFMetadataValueTypeUint32, Value: uint32(GGUFFileTypeMostlyF32)},
				{Key: "llama.block_count", ValueType: GGUFMetadataValueTypeUint32, Value: uint32(1)},
				{Key: "llama.embedding_length", ValueType: GGUFMetadataValueTypeUint32, Value: uint32(4)},
				{Key: "llama.context_length", ValueType: GGUFMetadataValueTypeUint32, Value: uint32(512)},
				{Key: "llama.attention.head_count", ValueType: GGUFMetadataValueTypeUint32, Value: uint32(2)},
				{Key: "llama.vocab_size", ValueType: GGUFMetadataValueTypeUint32, Value: uint32(8)},
				{Key: "tokenizer.ggml.tokens", ValueType: GGUFMetadataValueTypeArray, Value: GGUFMetadataKVArrayValue{
					Type:  GGUFMetadataValueTypeString,
					Array: []any{"<s>", "</s>", "hello"},
				}},
				{Key: "tokenizer.ggml.token_type", ValueType: GGUFMetadataValueTypeArray, Value: GGUFMetadataKVArrayValue{
					Type:  GGUFMetadataValueTypeInt32,
					Array: []any{int32(3), int32(3), int32(1)},
				}},
			},
		},
		TensorInfos: GGUFTensorInfos{
			{Name: "token_embd.weight", NDimensions: 2, Dimensions: []uint64{4, 8}, Type: GGMLTypeF32},
			{Name: "blk.0.attn_q.weight", NDimensions: 2, Dimensions: []uint64{4, 4}, Type: GGMLTypeF32},
		},
	}

	data := GGUFTensorData{}
	embd := make([]float32, 32)
	for i := range embd {
		embd[i] = float32(i) / 4
	}
	data["token_embd.weight"] = float32sToBytes(embd...)
	attn := make([]float32, 16)
	for i := range attn {
		attn[i] = float32(i) - 8
	}
	data["blk.0.attn_q.weight"] = float32sToBytes(attn...)
	return gf, data
}

func writeTestModel(t *testing.T, path string) (*GGUFFile, GGUFTensorData) {
	t.Helper()
	gf, data := testModel()
	require.NoError(t, WriteGGUFFile(path, gf, data))
	return gf, data
}

func TestWriteParseRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tiny.gguf")
	in, data := writeTestModel(t, p)

	gf, err := ParseGGUFFile(p)
	require.NoError(t, err)
	t.Log("\n", spew.Sdump(gf.Header.MetadataKV), "\n")

	assert.Equal(t, GGUFMagicGGUFLe, gf.Header.Magic)
	assert.Equal(t, GGUFVersionV3, gf.Header.Version)
	assert.Equal(t, uint64(len(in.TensorInfos)), gf.Header.TensorCount)
	assert.Empty(t, gf.Warnings)

	kv, ok := gf.Header.MetadataKV.Get("general.architecture")
	require.True(t, ok)
	assert.Equal(t, "llama", kv.ValueString())
	kv, ok = gf.Header.MetadataKV.Get("general.alignment")
	require.True(t, ok)
	assert.Equal(t, uint32(32), ValueNumeric[uint32](kv))
	kv, ok = gf.Header.MetadataKV.Get("tokenizer.ggml.tokens")
	require.True(t, ok)
	av := kv.ValueArray()
	assert.Equal(t, GGUFMetadataValueTypeString, av.Type)
	assert.Equal(t, uint64(3), av.Len)
	assert.Equal(t, []any{"<s>", "</s>", "hello"}, av.Array)
	kv, ok = gf.Header.MetadataKV.Get("tokenizer.ggml.token_type")
	require.True(t, ok)
	av = kv.ValueArray()
	assert.Equal(t, []any{int32(3), int32(3), int32(1)}, av.Array)

	assert.Zero(t, gf.TensorDataStartOffset%32)

	f, err := os.Open(p)
	require.NoError(t, err)
	defer f.Close()
	for _, ti := range gf.TensorInfos {
		want := data[ti.Name]
		got, err := gf.ReadTensorData(f, ti)
		require.NoError(t, err, ti.Name)
		assert.Equal(t, want, got, ti.Name)
	}
}

func TestWriteParseRoundTrip_Twice(t *testing.T) {
	d := t.TempDir()
	p0 := filepath.Join(d, "a.gguf")
	p1 := filepath.Join(d, "b.gguf")
	writeTestModel(t, p0)

	gf, err := ParseGGUFFile(p0)
	require.NoError(t, err)
	data := GGUFTensorData{}
	f, err := os.Open(p0)
	require.NoError(t, err)
	for _, ti := range gf.TensorInfos {
		data[ti.Name], err = gf.ReadTensorData(f, ti)
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())
	require.NoError(t, WriteGGUFFile(p1, gf, data))

	bs0, err := os.ReadFile(p0)
	require.NoError(t, err)
	bs1, err := os.ReadFile(p1)
	require.NoError(t, err)
	assert.Equal(t, bs0, bs1)
}

func TestParseGGUFFile_Empty(t *testing.T) {
	p := filepath.Join(t.TempDir(), "empty.gguf")
	require.NoError(t, WriteGGUFFile(p, &GGUFFile{}, nil))

	gf, err := ParseGGUFFile(p)
	require.NoError(t, err)
	assert.Zero(t, gf.Header.TensorCount)
	assert.Zero(t, gf.Header.MetadataKVCount)
	// A bare header is 24 bytes, padded up to the default alignment.
	assert.Equal(t, int64(32), gf.TensorDataStartOffset)
}

func TestParseGGUFFile_BadMagic(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.gguf")
	require.NoError(t, os.WriteFile(p, []byte("ggml567890123456"), 0o600))

	_, err := ParseGGUFFile(p)
	assert.ErrorIs(t, err, ErrGGUFFileInvalidFormat)
}

func TestParseGGUFFile_ZeroVersion(t *testing.T) {
	p := filepath.Join(t.TempDir(), "v0.gguf")
	writeTestModel(t, p)
	bs, err := os.ReadFile(p)
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(bs[4:], 0)
	require.NoError(t, os.WriteFile(p, bs, 0o600))

	_, err = ParseGGUFFile(p)
	assert.ErrorIs(t, err, ErrGGUFFileInvalidFormat)
}

func TestParseGGUFFile_NewerVersion(t *testing.T) {
	p := filepath.Join(t.TempDir(), "v9.gguf")
	writeTestModel(t, p)
	bs, err := os.ReadFile(p)
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(bs[4:], 9)
	require.NoError(t, os.WriteFile(p, bs, 0o600))

	// Unknown future versions parse with the current layout,
	// flagged instead of rejected.
	gf, err := ParseGGUFFile(p)
	require.NoError(t, err)
	assert.NotEmpty(t, gf.Warnings)
}

func TestParseGGUFFile_Truncated(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cut.gguf")
	writeTestModel(t, p)
	bs, err := os.ReadFile(p)
	require.NoError(t, err)

	// Cut in the middle of the metadata section.
	require.NoError(t, os.WriteFile(p, bs[:48], 0o600))
	_, err = ParseGGUFFile(p)
	assert.Error(t, err)

	// Cut in the middle of the tensor payloads.
	require.NoError(t, os.WriteFile(p, bs[:len(bs)-8], 0o600))
	_, err = ParseGGUFFile(p)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "beyond file size")
}

func TestParseGGUFBytes(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tiny.gguf")
	writeTestModel(t, p)
	bs, err := os.ReadFile(p)
	require.NoError(t, err)

	gf, err := ParseGGUFBytes(bs)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), gf.Header.TensorCount)
}

func TestParseGGUFBytes_AbsurdCounts(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tiny.gguf")
	writeTestModel(t, p)
	good, err := os.ReadFile(p)
	require.NoError(t, err)

	mutate := func(off int, v uint64) []byte {
		bs := append([]byte(nil), good...)
		binary.LittleEndian.PutUint64(bs[off:], v)
		return bs
	}

	// Claimed tensor count far beyond what the stream can hold.
	_, err = ParseGGUFBytes(mutate(8, 1<<62))
	assert.ErrorIs(t, err, ErrGGUFFileInvalidFormat)
	assert.Contains(t, err.Error(), "cannot fit")

	// Claimed metadata kv count likewise.
	_, err = ParseGGUFBytes(mutate(16, 1<<62))
	assert.ErrorIs(t, err, ErrGGUFFileInvalidFormat)

	// First metadata key claims a huge string length.
	_, err = ParseGGUFBytes(mutate(24, 1<<62))
	assert.ErrorIs(t, err, ErrGGUFFileInvalidFormat)
	assert.Contains(t, err.Error(), "remaining bytes")
}

func TestParseGGUFBytes_ZeroDimensionTensor(t *testing.T) {
	var buf bytes.Buffer
	w := func(v any) { require.NoError(t, binary.Write(&buf, binary.LittleEndian, v)) }
	w(uint32(GGUFMagicGGUFLe))
	w(uint32(GGUFVersionV3))
	w(uint64(1)) // tensor count
	w(uint64(0)) // metadata kv count
	w(uint64(1)) // name length
	buf.WriteString("t")
	w(uint32(0)) // dimension count
	w(uint32(GGMLTypeF32))
	w(uint64(0)) // offset

	_, err := ParseGGUFBytes(buf.Bytes())
	assert.ErrorIs(t, err, ErrGGUFFileInvalidFormat)
	assert.Contains(t, err.Error(), "no dimensions")
}

func TestParseGGUFFile_DuplicateTensorName(t *testing.T) {
	ti := GGUFTensorInfo{Name: "t", NDimensions: 1, Dimensions: []uint64{8}, Type: GGMLTypeF32}
	gf := &GGUFFile{TensorInfos: GGUFTensorInfos{ti, ti}}
	data := GGUFTensorData{"t": float32sToBytes(0, 1, 2, 3, 4, 5, 6, 7)}

	p := filepath.Join(t.TempDir(), "dup.gguf")
	require.NoError(t, WriteGGUFFile(p, gf, data))

	_, err := ParseGGUFFile(p)
	assert.ErrorIs(t, err, ErrGGUFFileInvalidFormat)
	assert.Contains(t, err.Error(), "duplicate tensor name")
}

func TestParseGGUFFileRemote(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "tiny.gguf")
	writeTestModel(t, p)
	bs, err := os.ReadFile(p)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "tiny.gguf", time.Time{}, bytes.NewReader(bs))
	}))
	defer srv.Close()

	cp := filepath.Join(d, "cache")
	gf, err := ParseGGUFFileRemote(context.Background(), srv.URL+"/tiny.gguf", UseCachePath(cp))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), gf.Header.TensorCount)

	// Served from the cache even with the server gone.
	srv.Close()
	gf, err = ParseGGUFFileRemote(context.Background(), srv.URL+"/tiny.gguf",
		UseCachePath(cp), UseCacheExpiration(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), gf.Header.TensorCount)
}

func TestWriteGGUF_ArrayLengthMismatch(t *testing.T) {
	gf := &GGUFFile{Header: GGUFHeader{MetadataKV: GGUFMetadataKVs{
		{Key: "a", ValueType: GGUFMetadataValueTypeArray, Value: GGUFMetadataKVArrayValue{
			Type: GGUFMetadataValueTypeUint32, Len: 4, Array: []any{uint32(1)},
		}},
	}}}

	var buf bytes.Buffer
	err := WriteGGUF(&buf, gf, nil)
	assert.ErrorContains(t, err, "does not match")
}
