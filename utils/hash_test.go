package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashSHA256(t *testing.T) {
	// Known vector for "abc".
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", HashSHA256([]byte("abc")))
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashSHA256(nil))
}

func TestStreamingHashMatchesOneShot(t *testing.T) {
	h := NewSHA256()
	h.Write([]byte("abcdef"))
	h.Write([]byte("ghij"))
	assert.Equal(t, HashSHA256([]byte("abcdefghij")), HexDigest(h))
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, SecureCompare("deadbeef", "deadbeef"))
	assert.False(t, SecureCompare("deadbeef", "deadbeee"))
	assert.False(t, SecureCompare("deadbeef", "dead"))
}
