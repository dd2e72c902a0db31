package gguf_convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGGUFBytesScalar(t *testing.T) {
	cases := []struct {
		given    string
		expected GGUFBytesScalar
	}{
		{"100", 100},
		{"1 KiB", 1024},
		{"4 MiB", 4 * 1024 * 1024},
		{"1 GB", 1_000_000_000},
	}
	for _, tc := range cases {
		actual, err := ParseGGUFBytesScalar(tc.given)
		require.NoError(t, err, tc.given)
		assert.Equal(t, tc.expected, actual, tc.given)
	}

	_, err := ParseGGUFBytesScalar("many bytes")
	assert.Error(t, err)
}

func TestGGUFBytesScalar_String(t *testing.T) {
	assert.Equal(t, "0 B", GGUFBytesScalar(0).String())
	assert.Equal(t, "1.0 KiB", GGUFBytesScalar(1024).String())

	GGUFBytesScalarStringInMiBytes = true
	defer func() { GGUFBytesScalarStringInMiBytes = false }()
	assert.Equal(t, "512 MiB", GGUFBytesScalar(512*1024*1024).String())
}
