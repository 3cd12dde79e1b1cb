package jwt

import (
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GenerateAndValidate(t *testing.T) {
	m, err := NewManager(time.Hour, "trip-chat")
	require.NoError(t, err)

	token, err := m.GenerateAccessToken("user-a", "Alice")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-a", claims.UserID)
	assert.Equal(t, "Alice", claims.DisplayName)
}

func TestManager_ExpiredToken(t *testing.T) {
	m, err := NewManager(-time.Minute, "trip-chat")
	require.NoError(t, err)

	token, err := m.GenerateAccessToken("user-a", "Alice")
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestManager_RejectsForeignKey(t *testing.T) {
	issuer, err := NewManager(time.Hour, "trip-chat")
	require.NoError(t, err)
	other, err := NewManager(time.Hour, "trip-chat")
	require.NoError(t, err)

	token, err := issuer.GenerateAccessToken("user-a", "Alice")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifierFromPEM(t *testing.T) {
	signer, err := NewManager(time.Hour, "trip-chat")
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(signer.publicKey)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	verifier, err := NewVerifierFromPEM(pemBytes, "trip-chat")
	require.NoError(t, err)

	token, err := signer.GenerateAccessToken("user-b", "Bob")
	require.NoError(t, err)

	claims, err := verifier.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-b", claims.UserID)

	_, err = verifier.GenerateAccessToken("user-b", "Bob")
	assert.ErrorIs(t, err, ErrSigningKey)
}
