package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/http/middleware"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/response"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/usecase/lifecycle"
)

// currentActor собирает вызывающего пользователя из контекста, заполненного AuthMiddleware.
func currentActor(c *gin.Context) (lifecycle.Actor, bool) {
	rawID, ok := c.Get(middleware.ContextUserIDKey)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized)
		return lifecycle.Actor{}, false
	}
	userID, ok := rawID.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		response.Error(c, apperror.ErrUnauthorized)
		return lifecycle.Actor{}, false
	}
	role, _ := c.Get(middleware.ContextRoleKey)
	r, _ := role.(valueobject.Role)
	return lifecycle.Actor{ID: userID, Role: r}, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "некорректный "+name)
		return uuid.Nil, false
	}
	return id, true
}

func optionalUUIDQuery(c *gin.Context, key string) (*uuid.UUID, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.BadRequest(c, "параметр "+key+" должен быть валидным UUID")
		return nil, false
	}
	return &id, true
}

func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func pagination(c *gin.Context, defaultLimit int) (limit, offset int) {
	limit = parseIntQuery(c, "limit", defaultLimit)
	offset = parseIntQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
