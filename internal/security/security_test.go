package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	tok, err := svc.Issue(42, "seller")
	require.NoError(t, err)

	uid, claims, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), uid)
	assert.Equal(t, "seller", claims.Role)
}

func TestTokenService_Rejects(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := NewTokenService("other", time.Hour).Issue(1, "buyer")
		require.NoError(t, err)
		_, _, err = svc.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		tok, err := svc.IssueWithTTL(1, "buyer", -time.Minute)
		require.NoError(t, err)
		_, _, err = svc.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := svc.Verify("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hashed, err := h.Hash("hunter22")
	require.NoError(t, err)
	assert.True(t, h.Matches("hunter22", hashed))
	assert.False(t, h.Matches("hunter23", hashed))

	_, err = h.Hash(string(make([]byte, 73)))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}
