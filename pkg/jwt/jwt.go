package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrSigningKey   = errors.New("manager has no signing key")
)

const tokenTypeAccess = "access"

// Claims represents JWT claims issued by the auth service.
type Claims struct {
	jwt.RegisteredClaims
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
}

// Manager signs and verifies RS256 access tokens. A Manager built from a
// public key alone can only verify.
type Manager struct {
	privateKey     *rsa.PrivateKey
	publicKey      *rsa.PublicKey
	accessDuration time.Duration
	issuer         string
}

// NewManager creates a manager with a freshly generated RSA key pair.
func NewManager(accessDuration time.Duration, issuer string) (*Manager, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	return &Manager{
		privateKey:     privateKey,
		publicKey:      &privateKey.PublicKey,
		accessDuration: accessDuration,
		issuer:         issuer,
	}, nil
}

// NewVerifierFromPEM creates a verify-only manager from a PEM encoded public key.
func NewVerifierFromPEM(publicPEM []byte, issuer string) (*Manager, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return &Manager{publicKey: key, issuer: issuer}, nil
}

// NewVerifierFromFile reads a PEM public key from disk.
func NewVerifierFromFile(path, issuer string) (*Manager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	return NewVerifierFromPEM(data, issuer)
}

// GenerateAccessToken signs an access token for the given user.
func (m *Manager) GenerateAccessToken(userID, displayName string) (string, error) {
	if m.privateKey == nil {
		return "", ErrSigningKey
	}

	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessDuration)),
		},
		UserID:      userID,
		DisplayName: displayName,
		Type:        tokenTypeAccess,
	}

	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(m.privateKey)
}

// ValidateToken validates an access token and returns its claims.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.publicKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Type != tokenTypeAccess {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
