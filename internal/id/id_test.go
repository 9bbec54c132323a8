package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 500 {
		v, err := NewSession()
		require.NoError(t, err)
		assert.False(t, seen[v], "duplicate id %s", v)
		seen[v] = true
	}
}

func TestGenerate_Format(t *testing.T) {
	v, err := Generate("sess")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(v, "sess-"))
	assert.Len(t, v, len("sess-")+21)
}

func TestHasPrefix(t *testing.T) {
	assert.True(t, HasPrefix("sess-abc", SessionPrefix))
	assert.False(t, HasPrefix("sess-", SessionPrefix))
	assert.False(t, HasPrefix("session-abc", SessionPrefix))
	assert.False(t, HasPrefix("", SessionPrefix))
}
