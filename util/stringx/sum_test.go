package stringx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToBytes(t *testing.T) {
	s := "hello"
	assert.Equal(t, []byte("hello"), ToBytes(&s))
	assert.Equal(t, "hello", FromBytes(&[]byte{'h', 'e', 'l', 'l', 'o'}))

	e := ""
	assert.Nil(t, ToBytes(&e))
	assert.Nil(t, ToBytes(nil))
}

func TestSumByFNV64a(t *testing.T) {
	// The string and byte views of the same content sum identically.
	assert.Equal(t, SumBytesByFNV64a([]byte("a"), []byte("b")), SumByFNV64a("a", "b"))
	assert.NotEqual(t, SumByFNV64a("a"), SumByFNV64a("b"))
}

func TestSumBytesByBLAKE2b(t *testing.T) {
	assert.Len(t, SumBytesByBLAKE2b([]byte("x")), 64)
	assert.Equal(t, SumBytesByBLAKE2b([]byte("ab")), SumBytesByBLAKE2b([]byte("a"), []byte("b")))
	assert.NotEqual(t, SumBytesByBLAKE2b([]byte("a")), SumBytesByBLAKE2b([]byte("b")))
}
