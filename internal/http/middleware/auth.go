package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/feedback-escalation/internal/domain/valueobject"
	"github.com/ignatzorin/feedback-escalation/internal/interface/http/response"
	"github.com/ignatzorin/feedback-escalation/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "userID"
	ContextRoleKey   = "role"
)

// AuthMiddleware проверяет JWT access токен из заголовка Authorization.
// Для WebSocket, где заголовок недоступен браузеру, токен принимается из ?token=.
func AuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			response.Unauthorized(c, "authorization required")
			c.Abort()
			return
		}

		identity, err := tokens.ParseAccess(raw)
		if err != nil {
			response.Unauthorized(c, "token is invalid or expired")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, identity.UserID)
		c.Set(ContextRoleKey, identity.Role)
		c.Next()
	}
}

// RequireQuorumRole пропускает только CEO, VP, Director и DM.
func RequireQuorumRole() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(ContextRoleKey)
		roleStr, _ := role.(string)
		if _, err := valueobject.ParseApproverRole(roleStr); err != nil {
			response.Forbidden(c, "only CEO, VP, Director or DM may perform this action")
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if c.IsWebsocket() {
		return c.Query("token")
	}
	return ""
}
