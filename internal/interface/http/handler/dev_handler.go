package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/dto"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/response"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

// DevHandler выпускает токены без внешнего провайдера. Подключается только в development.
type DevHandler struct {
	tokens *service.TokenManager
}

func NewDevHandler(tokens *service.TokenManager) *DevHandler {
	return &DevHandler{tokens: tokens}
}

func (h *DevHandler) IssueToken(c *gin.Context) {
	var req dto.DevTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "укажите user_id и role")
		return
	}
	role := valueobject.Role(req.Role)
	if !role.IsValid() {
		response.Error(c, apperror.Validation("роль должна быть requester, fulfiller или mediator"))
		return
	}

	token, exp, err := h.tokens.Issue(req.UserID, role)
	if err != nil {
		response.Error(c, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось выпустить токен"))
		return
	}
	response.Success(c, gin.H{"access_token": token, "expires_at": exp})
}
