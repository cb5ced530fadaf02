package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/Modoufinance/healthyimc-sub001/internal/domain/errors"
	"github.com/Modoufinance/healthyimc-sub001/internal/domain/models"
)

// Context keys set by RequireSession.
const (
	ContextAdminKey = "auth.admin"
	ContextTokenKey = "auth.token"
)

// SessionVerifier resolves a bearer token to an identity.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (*models.PublicAdmin, error)
}

// RequireSession guards a route group with bearer-token verification.
// Unknown, revoked and expired tokens all produce the same 401.
func RequireSession(sessions SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false})
			return
		}

		admin, err := sessions.Verify(c.Request.Context(), token)
		if err != nil {
			if domainErrors.IsRetryable(err) {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"success": false})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false})
			return
		}

		c.Set(ContextAdminKey, admin)
		c.Set(ContextTokenKey, token)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
