package gguf_convert

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGGUFFile_Architecture(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tiny.gguf")
	writeTestModel(t, p)

	gf, err := ParseGGUFFile(p)
	require.NoError(t, err)

	ga := gf.Architecture()
	assert.Equal(t, "model", ga.Type)
	assert.Equal(t, "llama", ga.Architecture)
	assert.Equal(t, uint64(512), ga.MaximumContextLength)
	assert.Equal(t, uint64(4), ga.EmbeddingLength)
	assert.Equal(t, uint64(1), ga.BlockCount)
	assert.Equal(t, uint64(2), ga.AttentionHeadCount)
	// Without a dedicated KV head count, attention is fully multi-head.
	assert.Equal(t, uint64(2), ga.AttentionHeadCountKV)
	assert.Equal(t, uint64(1), ga.EmbeddingGQA)
	assert.Equal(t, uint64(8), ga.VocabularyLength)
}

func TestGGUFFile_Architecture_Defaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bare.gguf")
	require.NoError(t, WriteGGUFFile(p, &GGUFFile{}, nil))

	gf, err := ParseGGUFFile(p)
	require.NoError(t, err)

	ga := gf.Architecture()
	assert.Equal(t, "model", ga.Type)
	assert.Equal(t, "llama", ga.Architecture)
}
