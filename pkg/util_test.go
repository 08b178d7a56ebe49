package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomString(t *testing.T) {
	s1, err := GenerateRandomString(35)
	require.NoError(t, err)
	s2, err := GenerateRandomString(35)
	require.NoError(t, err)

	assert.NotEqual(t, s1, s2)
	assert.NotEmpty(t, s1)
	assert.NotEmpty(t, s2)
}

func TestBytesToString(t *testing.T) {
	assert.Equal(t, "repflow", BytesToString([]byte("repflow")))
	assert.Equal(t, "", BytesToString(nil))
}

func TestPathExists(t *testing.T) {
	exists, err := PathExists(t.TempDir(), true)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = PathExists("/surely/does/not/exist", true)
	require.NoError(t, err)
	assert.False(t, exists)
}
