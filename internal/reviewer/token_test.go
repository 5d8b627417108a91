package reviewer

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "intake/pkg/domain-errors"
)

var tokenService = NewTokenService("test-signing-key", "test-issuer")

func Test_GenerateToken(t *testing.T) {
	token, err := tokenService.GenerateToken("dr-house", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tokenService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "dr-house", claims.Subject)
	assert.Equal(t, RoleClinician, claims.Role)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_GenerateToken_BlankReviewer(t *testing.T) {
	_, err := tokenService.GenerateToken(" ", time.Hour)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := tokenService.ValidateToken("invalid-token-string")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := tokenService.GenerateToken("dr-house", -time.Hour)
	require.NoError(t, err)

	_, err = tokenService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
}

func Test_ValidateToken_WrongIssuer(t *testing.T) {
	other := NewTokenService("test-signing-key", "someone-else")
	token, err := other.GenerateToken("dr-house", time.Hour)
	require.NoError(t, err)

	_, err = tokenService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewTokenService("another-key", "test-issuer")
	token, err := other.GenerateToken("dr-house", time.Hour)
	require.NoError(t, err)

	_, err = tokenService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ReviewerID(t *testing.T) {
	t.Run("clinician token", func(t *testing.T) {
		token, err := tokenService.GenerateToken("dr-grey", time.Hour)
		require.NoError(t, err)

		id, err := tokenService.ReviewerID(token)
		require.NoError(t, err)
		assert.Equal(t, "dr-grey", id)
	})

	t.Run("other role is forbidden", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			Role: "patient",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "p-1",
				Issuer:    "test-issuer",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := token.SignedString([]byte("test-signing-key"))
		require.NoError(t, err)

		_, err = tokenService.ReviewerID(signed)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}
