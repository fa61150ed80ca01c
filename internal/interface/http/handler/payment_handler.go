package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/interface/http/dto"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/response"
	"github.com/ignatzorin/escrow-backend/internal/usecase/escrow"
)

type PaymentHandler struct {
	hold  *escrow.HoldPaymentUseCase
	money dto.MoneyCodec
}

func NewPaymentHandler(hold *escrow.HoldPaymentUseCase, money dto.MoneyCodec) *PaymentHandler {
	return &PaymentHandler{hold: hold, money: money}
}

// Hold обрабатывает POST /api/payments/:id/hold (медиатор, причина обязательна).
func (h *PaymentHandler) Hold(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	paymentID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req dto.HoldPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "укажите причину удержания")
		return
	}

	p, err := h.hold.Execute(c.Request.Context(), escrow.HoldPaymentInput{
		PaymentID: paymentID,
		Actor:     actor,
		Reason:    req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.money.Payment(p))
}
