package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager(t *testing.T) {
	manager := NewJWTManager("test-secret-key-32-chars-long!!", 90*24*time.Hour)
	userID := uuid.New()

	t.Run("round trips claims", func(t *testing.T) {
		token, err := manager.GenerateToken(userID, "op@example.com", "Gate Operator", "OPERATOR")
		require.NoError(t, err)

		claims, err := manager.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, "op@example.com", claims.Email)
		assert.Equal(t, "OPERATOR", claims.Role)
		assert.Equal(t, "gatelog", claims.Issuer)
		assert.WithinDuration(t, time.Now().Add(90*24*time.Hour), claims.ExpiresAt.Time, time.Minute)
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		other := NewJWTManager("another-secret", time.Hour)
		token, err := other.GenerateToken(userID, "op@example.com", "", "ADMIN")
		require.NoError(t, err)

		_, err = manager.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		expired := NewJWTManager("test-secret-key-32-chars-long!!", time.Hour)
		expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := expired.GenerateToken(userID, "op@example.com", "", "VIEWER")
		require.NoError(t, err)

		_, err = manager.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := manager.ValidateToken("not-a-token")
		assert.Error(t, err)
	})
}
