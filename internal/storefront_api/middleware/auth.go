package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gamevault-settlement/internal/domain/shared"
	"github.com/gamevault-settlement/internal/platform/auth"
)

// PrincipalKey is the gin context key holding the authenticated principal
const PrincipalKey = "principal"

// TokenVerifier turns a bearer token into a principal
type TokenVerifier interface {
	Verify(token string) (shared.Principal, error)
}

// Authenticate requires a valid bearer token and attaches the principal to the request
func Authenticate(logger *slog.Logger, verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token")
			return
		}

		principal, err := verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			logger.Warn("Rejected bearer token", "correlation_id", GetCorrelationID(c), "error", err)
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}

		c.Set(PrincipalKey, principal)
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), principal))

		c.Next()
	}
}

// PrincipalFrom returns the principal set by Authenticate
func PrincipalFrom(c *gin.Context) (shared.Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return shared.Principal{}, false
	}
	p, ok := v.(shared.Principal)
	return p, ok
}
