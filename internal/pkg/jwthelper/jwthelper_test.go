package jwthelper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken(t *testing.T) {
	key := []byte("signing-key")

	token, err := GenerateToken(key, 7, "curl/8.0")
	require.NoError(t, err)

	claims, err := ParseToken(key, token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "curl/8.0", claims.UserAgent)

	_, err = ParseToken([]byte("other-key"), token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken(key, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	anonymous, err := GenerateToken(key, 0, "")
	require.NoError(t, err)
	_, err = ParseToken(key, anonymous)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
