package gguf_convert

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGGUFFileCache(t *testing.T) {
	c := GGUFFileCache(filepath.Join(t.TempDir(), "cache"))
	gf, _ := testModel()

	_, err := c.Get("https://x.test/tiny.gguf", 0)
	assert.ErrorIs(t, err, ErrGGUFFileCacheMissed)

	require.NoError(t, c.Put("https://x.test/tiny.gguf", gf))
	got, err := c.Get("https://x.test/tiny.gguf", 0)
	require.NoError(t, err)
	assert.Equal(t, gf.Header.Magic, got.Header.Magic)
	assert.Len(t, got.TensorInfos, len(gf.TensorInfos))

	// An expiration shorter than the entry age misses.
	_, err = c.Get("https://x.test/tiny.gguf", time.Nanosecond)
	assert.ErrorIs(t, err, ErrGGUFFileCacheMissed)

	require.NoError(t, c.Delete("https://x.test/tiny.gguf"))
	_, err = c.Get("https://x.test/tiny.gguf", 0)
	assert.ErrorIs(t, err, ErrGGUFFileCacheMissed)
}

func TestGGUFFileCache_Disabled(t *testing.T) {
	var c GGUFFileCache
	_, err := c.Get("anything", 0)
	assert.ErrorIs(t, err, ErrGGUFFileCacheDisabled)
	assert.ErrorIs(t, c.Delete("anything"), ErrGGUFFileCacheDisabled)
}
