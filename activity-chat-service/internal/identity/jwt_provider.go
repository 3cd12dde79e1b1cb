package identity

import (
	"context"
	"errors"

	"github.com/weiawesome/trip-chat/pkg/jwt"
)

var ErrMissingSubject = errors.New("token carries no user id")

// TokenValidator is satisfied by *jwt.Manager.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// JWTProvider resolves bearer tokens issued by the auth service.
type JWTProvider struct {
	validator TokenValidator
}

func NewJWTProvider(validator TokenValidator) *JWTProvider {
	return &JWTProvider{validator: validator}
}

// Authenticate implements middleware.Authenticator. The display name falls
// back to the user id when the token has none.
func (p *JWTProvider) Authenticate(_ context.Context, token string) (string, string, error) {
	claims, err := p.validator.ValidateToken(token)
	if err != nil {
		return "", "", err
	}
	if claims.UserID == "" {
		return "", "", ErrMissingSubject
	}

	name := claims.DisplayName
	if name == "" {
		name = claims.UserID
	}
	return claims.UserID, name, nil
}
