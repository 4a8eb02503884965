package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/feedback-escalation/internal/http/middleware"
	"github.com/ignatzorin/feedback-escalation/internal/pkg/apperror"
)

// caller описывает пользователя из access токена.
type caller struct {
	UserID uuid.UUID
	Role   string
}

// actor возвращает имя вызывающего для журнала эскалаций.
func (c caller) actor() string {
	return c.UserID.String()
}

func currentCaller(c *gin.Context) (caller, error) {
	rawID, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return caller{}, apperror.ErrUnauthorized
	}
	userID, ok := rawID.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return caller{}, apperror.ErrUnauthorized
	}

	role, _ := c.Get(middleware.ContextRoleKey)
	roleStr, _ := role.(string)
	return caller{UserID: userID, Role: roleStr}, nil
}

func caseIDParam(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperror.New(apperror.ErrCodeBadRequest, "feedback id must be a valid UUID")
	}
	return id, nil
}
