package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestIssueAndValidate(t *testing.T) {
	issuer, err := NewIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	token, expires, err := issuer.Issue("s1", "u1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.SessionID)
	assert.Equal(t, "u1", claims.Subject)
}

func TestValidateRejectsExpiredAndForeignTokens(t *testing.T) {
	issuer, err := NewIssuer(testSecret, time.Minute)
	require.NoError(t, err)
	token, _, err := issuer.Issue("s1", "u1")
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = issuer.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewIssuer("another-secret-of-enough-length", time.Minute)
	require.NoError(t, err)
	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewIssuerRejectsWeakSecret(t *testing.T) {
	_, err := NewIssuer("short", time.Hour)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
