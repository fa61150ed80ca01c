package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/interface/http/dto"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/response"
	"github.com/ignatzorin/escrow-backend/internal/usecase/execution"
	"github.com/ignatzorin/escrow-backend/internal/usecase/lifecycle"
)

type ExecutionUseCases struct {
	MarkStart     *execution.MarkStartUseCase
	ConfirmStart  *execution.ConfirmStartUseCase
	MarkFinish    *execution.MarkFinishUseCase
	ConfirmFinish *execution.ConfirmFinishUseCase
}

// ExecutionHandler обслуживает двустороннее подтверждение начала и завершения работы.
type ExecutionHandler struct {
	uc    ExecutionUseCases
	money dto.MoneyCodec
}

func NewExecutionHandler(uc ExecutionUseCases, money dto.MoneyCodec) *ExecutionHandler {
	return &ExecutionHandler{uc: uc, money: money}
}

func (h *ExecutionHandler) MarkStart(c *gin.Context)     { h.step(c, h.uc.MarkStart.Execute) }
func (h *ExecutionHandler) ConfirmStart(c *gin.Context)  { h.step(c, h.uc.ConfirmStart.Execute) }
func (h *ExecutionHandler) MarkFinish(c *gin.Context)    { h.step(c, h.uc.MarkFinish.Execute) }
func (h *ExecutionHandler) ConfirmFinish(c *gin.Context) { h.step(c, h.uc.ConfirmFinish.Execute) }

type executionStep func(ctx context.Context, orderID uuid.UUID, actor lifecycle.Actor) (*execution.Result, error)

func (h *ExecutionHandler) step(c *gin.Context, run executionStep) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	res, err := run(c.Request.Context(), orderID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.EscrowStateResponse{
		Order:     h.money.Order(res.Order),
		Payment:   h.money.Payment(res.Payment),
		Execution: dto.ToExecutionResponse(res.Execution),
	})
}
