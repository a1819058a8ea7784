package auth

import (
	"net/http"
	"strings"
	"time"

	"outreach-dashboard/pkg/logger"

	"github.com/gin-gonic/gin"
)

const bearerPrefix = "Bearer "

// RequireAccessToken verifies the bearer access token, stores the operator
// identity and client IP in the request context and tags the request logger
// with the operator. Role checks live in internal/rbac.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		tok, ok := strings.CutPrefix(raw, bearerPrefix)
		if !ok || strings.TrimSpace(tok) == "" {
			unauthorized(c, "missing bearer token")
			return
		}

		claims, err := m.Verify(strings.TrimSpace(tok), TokenTypeAccess, time.Now())
		if err != nil {
			logger.FromGin(c).Warn("access token rejected", "err", err)
			unauthorized(c, "invalid token")
			return
		}

		ctx := WithIdentity(c.Request.Context(), claims.UserID, claims.Role)
		c.Request = c.Request.WithContext(WithClientIP(ctx, c.ClientIP()))
		c.Set("user_id", claims.UserID)
		logger.Attach(c, logger.FromGin(c).With("user_id", claims.UserID, "role", claims.Role))

		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "code": "UNAUTHORIZED"})
}
