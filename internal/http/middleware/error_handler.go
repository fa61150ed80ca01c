package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/escrow-backend/internal/interface/http/response"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки, добавленные через c.Error, если хэндлер сам не ответил.
// Внутренние ошибки маскируются, коды apperror отдаются как есть.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()

		entry := logger.Get().WithFields(logrus.Fields{
			"error":  err.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
		if apperror.CodeOf(err.Err) == apperror.ErrCodeInternal || apperror.CodeOf(err.Err) == apperror.ErrCodeDatabaseError {
			entry.Error("Request error")
		} else {
			entry.Warn("Request error")
		}

		// Проверяем, не был ли уже отправлен ответ
		if c.Writer.Written() {
			return
		}
		response.Error(c, err.Err)
	}
}
