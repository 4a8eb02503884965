package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/feedback-escalation/internal/interface/http/response"
	"github.com/ignatzorin/feedback-escalation/internal/logger"
	"github.com/ignatzorin/feedback-escalation/internal/pkg/apperror"
)

// ErrorHandler логирует ошибки, собранные через c.Error, и отвечает клиенту,
// если обработчик сам ответ не записал. Внутренние детали наружу не уходят.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		entry := logger.WithFields(logrus.Fields{
			"error":  err.Error(),
			"code":   apperror.CodeOf(err),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
		if code := apperror.CodeOf(err); code == "" || code == apperror.ErrCodeInternal || code == apperror.ErrCodePersistenceUnavailable {
			entry.Error("request error")
		} else {
			entry.Warn("request rejected")
		}

		if c.Writer.Written() {
			return
		}
		response.Error(c, err)
	}
}

// Recovery превращает panic обработчика в ответ 500 и запись в лог.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.WithFields(logrus.Fields{
			"panic":  recovered,
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Error("handler panic")
		response.Error(c, apperror.New(apperror.ErrCodeInternal, "internal server error"))
		c.Abort()
	})
}
