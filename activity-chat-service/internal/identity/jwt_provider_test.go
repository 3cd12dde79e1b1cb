package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/trip-chat/pkg/jwt"
)

func TestJWTProvider_Authenticate(t *testing.T) {
	manager, err := jwt.NewManager(time.Hour, "trip")
	require.NoError(t, err)
	provider := NewJWTProvider(manager)

	t.Run("valid token", func(t *testing.T) {
		token, err := manager.GenerateAccessToken("alice", "Alice")
		require.NoError(t, err)

		userID, name, err := provider.Authenticate(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "alice", userID)
		assert.Equal(t, "Alice", name)
	})

	t.Run("display name falls back to user id", func(t *testing.T) {
		token, err := manager.GenerateAccessToken("bob", "")
		require.NoError(t, err)

		_, name, err := provider.Authenticate(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "bob", name)
	})

	t.Run("missing user id", func(t *testing.T) {
		token, err := manager.GenerateAccessToken("", "Ghost")
		require.NoError(t, err)

		_, _, err = provider.Authenticate(context.Background(), token)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := provider.Authenticate(context.Background(), "not-a-token")
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})
}

type staticValidator struct {
	claims *jwt.Claims
}

func (v staticValidator) ValidateToken(string) (*jwt.Claims, error) {
	return v.claims, nil
}

func TestJWTProvider_RejectsClaimsWithoutUser(t *testing.T) {
	provider := NewJWTProvider(staticValidator{claims: &jwt.Claims{DisplayName: "Ghost"}})

	_, _, err := provider.Authenticate(context.Background(), "t")
	assert.ErrorIs(t, err, ErrMissingSubject)
}
