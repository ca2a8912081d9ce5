package uid

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUID_Generate(t *testing.T) {
	var g StringID = NewUUID()

	a, b := g.Generate(), g.Generate()
	assert.NotEqual(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestUUID_Prefix(t *testing.T) {
	g := NewUUID(WithPrefix("vr_"))

	id := g.Generate()
	assert.True(t, strings.HasPrefix(id, "vr_"))
	_, err := uuid.Parse(strings.TrimPrefix(id, "vr_"))
	require.NoError(t, err)
}

func TestSnowflake_Generate(t *testing.T) {
	_, err := NewSnowflake(4096)
	require.Error(t, err)

	s, err := NewSnowflake(1)
	require.NoError(t, err)

	var g NumberID = s
	prev := g.Generate()
	for range 100 {
		next := g.Generate()
		assert.Greater(t, next, prev)
		prev = next
	}
}
