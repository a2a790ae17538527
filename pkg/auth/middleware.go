package auth

import (
	"net/http"
	"strings"

	"locallibrary/pkg/access"
	"locallibrary/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const identityKey = "identity"

// Middleware resolves the bearer token into an access.Identity. Requests
// without an Authorization header continue as anonymous; a header that
// does not hold a valid token is rejected with 401.
func Middleware(s *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Set(identityKey, access.Anonymous())
			c.Next()
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			abortUnauthenticated(c, "invalid authorization header")
			return
		}
		claims, err := s.Parse(raw)
		if err != nil {
			logger.FromGin(c).Warn("Rejected bearer token", zap.Error(err))
			abortUnauthenticated(c, err.Error())
			return
		}
		c.Set(identityKey, claims.Identity())
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", `Bearer realm="catalog"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthenticated",
		"message": message,
	})
}

// IdentityFrom returns the caller identity, anonymous if none was set.
func IdentityFrom(c *gin.Context) access.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(access.Identity); ok {
			return id
		}
	}
	return access.Anonymous()
}
