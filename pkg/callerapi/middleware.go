package callerapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const identityContextKey = "callerapi.user_id"

// authMiddleware resolves the bearer token on every request into an
// opaque user ID via the identity store, so handlers never see
// credentials, only the resolved identity.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(c, http.StatusUnauthorized, "PermissionDenied", "missing bearer token")
			c.Abort()
			return
		}

		userID, err := s.identity.ResolveAuthSession(c.Request.Context(), token)
		if err != nil {
			writeError(c, http.StatusUnauthorized, "PermissionDenied", "invalid or expired session token")
			c.Abort()
			return
		}

		c.Set(identityContextKey, userID)
		c.Next()
	}
}

func callerUserID(c *gin.Context) string {
	userID, _ := c.Get(identityContextKey)
	s, _ := userID.(string)
	return s
}
