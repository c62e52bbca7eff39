package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
	"github.com/Worldstreet-team/xtreme-livestream/internal/token"
	"github.com/Worldstreet-team/xtreme-livestream/pkg/response"
)

const identityKey = "identity"

// AuthMiddleware verifies bearer tokens and threads the resulting
// identity through the request context.
type AuthMiddleware struct {
	verifier *token.Verifier
}

func NewAuthMiddleware(verifier *token.Verifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth rejects requests without a valid token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			response.Unauthorized(c, "missing token")
			c.Abort()
			return
		}

		identity, err := m.verifier.Verify(raw)
		if err != nil {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// bearerToken extracts the token from the Authorization header, or
// from the token query parameter for websocket upgrades, where
// browsers cannot set headers.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// GetIdentity returns the verified identity set by RequireAuth.
func GetIdentity(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}
