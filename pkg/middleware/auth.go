package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/trip-chat/pkg/log"
	"github.com/weiawesome/trip-chat/pkg/response"
)

const (
	UserIDKey      = log.FieldUserID
	DisplayNameKey = log.FieldDisplayName
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
	TokenQueryKey  = "token"
)

// Authenticator resolves a bearer token to the caller's identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (userID, displayName string, err error)
}

// AuthMiddleware validates bearer tokens through an Authenticator.
type AuthMiddleware struct {
	auth Authenticator
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// RequireAuth returns a Gin middleware that rejects requests without a valid token.
// Browsers cannot set headers on a WebSocket upgrade, so the token may also
// arrive as the `token` query parameter.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing or malformed credentials")
			return
		}

		ctx := c.Request.Context()
		userID, displayName, err := m.auth.Authenticate(ctx, token)
		if err != nil || userID == "" {
			l := log.Ctx(ctx)
			l.Debug().Err(err).Msg("token rejected")
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid or expired token")
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(DisplayNameKey, displayName)
		c.Request = c.Request.WithContext(log.With(ctx, log.FieldUserID, userID))

		c.Next()
	}
}

func extractToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader(AuthHeaderKey); header != "" {
		if !strings.HasPrefix(header, BearerPrefix) {
			return "", false
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
		return token, token != ""
	}
	if token := c.Query(TokenQueryKey); token != "" {
		return token, true
	}
	return "", false
}

// GetUserID extracts user ID from Gin context.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetDisplayName extracts the display name from Gin context.
func GetDisplayName(c *gin.Context) string {
	return c.GetString(DisplayNameKey)
}
