package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345"

func TestGenerateAccessToken(t *testing.T) {
	t.Run("Successfully generate access token", func(t *testing.T) {
		token, err := GenerateAccessToken(uuid.New(), RoleUser, testSecret, time.Hour)

		assert.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("Fail with empty secret", func(t *testing.T) {
		token, err := GenerateAccessToken(uuid.New(), RoleUser, "", time.Hour)

		assert.Equal(t, ErrEmptyJWTSecret, err)
		assert.Empty(t, token)
	})

	t.Run("Token contains correct claims", func(t *testing.T) {
		userID := uuid.New()

		token, err := GenerateAccessToken(userID, RoleAdmin, testSecret, 0)
		require.NoError(t, err)

		claims, err := ValidateToken(token, testSecret)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, RoleAdmin, claims.Role)
		assert.Equal(t, jwtIssuer, claims.Issuer)
		assert.WithinDuration(t, time.Now().Add(DefaultAccessTokenTTL), claims.ExpiresAt.Time, time.Minute)
	})
}

func TestValidateToken(t *testing.T) {
	t.Run("Wrong secret", func(t *testing.T) {
		token, _ := GenerateAccessToken(uuid.New(), RoleUser, testSecret, time.Hour)
		_, err := ValidateToken(token, "another-secret-key-000")
		assert.Error(t, err)
	})

	t.Run("Expired token", func(t *testing.T) {
		claims := &JWTClaims{
			UserID: uuid.New(),
			Role:   RoleUser,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    jwtIssuer,
				Audience:  []string{jwtAudience},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = ValidateToken(token, testSecret)
		assert.Equal(t, ErrTokenExpired, err)
	})

	t.Run("Missing user id", func(t *testing.T) {
		token, err := GenerateAccessToken(uuid.Nil, RoleUser, testSecret, time.Hour)
		require.NoError(t, err)

		_, err = ValidateToken(token, testSecret)
		assert.Equal(t, ErrInvalidToken, err)
	})

	t.Run("Malformed token", func(t *testing.T) {
		_, err := ValidateToken("not.a.token", testSecret)
		assert.Error(t, err)
	})
}
