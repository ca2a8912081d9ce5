package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMACSHA256(t *testing.T) {
	var h Hash = NewHMACSHA256("pepper")

	digest, err := h.Hash("012345")
	require.NoError(t, err)
	assert.Len(t, digest, 64)
	assert.NotContains(t, string(digest), "012345")

	assert.True(t, h.Verify(string(digest), "012345"))
	assert.False(t, h.Verify(string(digest), "12345"))
	assert.False(t, h.Verify(string(digest), "012346"))

	other, err := NewHMACSHA256("other").Hash("012345")
	require.NoError(t, err)
	assert.NotEqual(t, digest, other)
}

func TestHMACSHA256_Rotation(t *testing.T) {
	old := NewHMACSHA256("old-key")
	issued, err := old.Hash("654321")
	require.NoError(t, err)

	rotated := NewHMACSHA256("new-key", "old-key", "", "new-key")
	assert.True(t, rotated.Verify(string(issued), "654321"))
	assert.False(t, rotated.Verify(string(issued), "654320"))

	fresh, err := rotated.Hash("654321")
	require.NoError(t, err)
	assert.NotEqual(t, issued, fresh)
	assert.False(t, old.Verify(string(fresh), "654321"))
}
