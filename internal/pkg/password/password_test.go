package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, Verify("correct horse battery staple", hash))
	assert.False(t, Verify("wrong password", hash))
	assert.False(t, Verify("", hash))
}

func TestHashIsSalted(t *testing.T) {
	first, err := Hash("same password")
	require.NoError(t, err)
	second, err := Hash("same password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestHashToken(t *testing.T) {
	hash := HashToken("some-refresh-token")

	// SHA256 hex is deterministic and 64 chars long.
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, HashToken("some-refresh-token"))
	assert.NotEqual(t, hash, HashToken("other-token"))
}

func TestValidate(t *testing.T) {
	assert.True(t, Validate("12345678"))
	assert.True(t, Validate("a much longer password"))
	assert.False(t, Validate("1234567"))
	assert.False(t, Validate(""))
}
