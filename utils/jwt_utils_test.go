package utils

import (
	"testing"
	"time"

	"checkout-service/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParseToken(t *testing.T) {
	user := &models.User{ID: 7, Email: "winston@example.com", IsAdmin: true}

	token, err := IssueToken("secret", user, time.Hour, time.Now())
	require.NoError(t, err)

	claims, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "winston@example.com", claims.Email)
	assert.True(t, claims.IsAdmin)
}

func TestParseToken_Rejects(t *testing.T) {
	user := &models.User{ID: 7, Email: "winston@example.com"}

	expired, err := IssueToken("secret", user, time.Hour, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = ParseToken("secret", expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	valid, err := IssueToken("secret", user, time.Hour, time.Now())
	require.NoError(t, err)
	_, err = ParseToken("other-secret", valid)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 7}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken("secret", none)
	assert.Error(t, err)
}
