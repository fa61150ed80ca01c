package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/dto"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/response"
	"github.com/ignatzorin/escrow-backend/internal/usecase/lifecycle"
	"github.com/ignatzorin/escrow-backend/internal/usecase/order"
	"github.com/ignatzorin/escrow-backend/internal/validation"
)

// OrderUseCases - набор сценариев жизненного цикла заказа до начала исполнения.
type OrderUseCases struct {
	Submit     *order.SubmitOrderUseCase
	Accept     *order.AcceptOrderUseCase
	Reject     *order.RejectOrderUseCase
	Counter    *order.CounterOfferUseCase
	Finalize   *order.FinalizeDetailsUseCase
	Cancel     *order.CancelOrderUseCase
	Capture    *order.CapturePaymentUseCase
	Get        *order.GetOrderUseCase
	List       *order.ListOrdersUseCase
	EscrowView *order.GetEscrowViewUseCase
}

type OrderHandler struct {
	uc    OrderUseCases
	money dto.MoneyCodec
}

func NewOrderHandler(uc OrderUseCases, money dto.MoneyCodec) *OrderHandler {
	return &OrderHandler{uc: uc, money: money}
}

// Submit обрабатывает POST /api/orders.
func (h *OrderHandler) Submit(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req dto.SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}
	if err := validation.ValidateOrderDetails(req.Location, req.Notes); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	amount, err := h.money.ToMoney(req.TotalAmount)
	if err != nil {
		response.Error(c, err)
		return
	}

	created, err := h.uc.Submit.Execute(c.Request.Context(), order.SubmitOrderInput{
		Actor:       actor,
		FulfillerID: req.FulfillerID,
		ServiceID:   req.ServiceID,
		PricingMode: req.PricingMode,
		TotalAmount: amount,
		ScheduledAt: req.ScheduledAt,
		Location:    req.Location,
		Notes:       req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, h.money.Order(created))
}

func (h *OrderHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	o, err := h.uc.Get.Execute(c.Request.Context(), orderID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.money.Order(o))
}

// List обрабатывает GET /api/orders?requester_id=&fulfiller_id=&status=&limit=&offset=.
func (h *OrderHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var filter repository.OrderFilter
	if filter.RequesterID, ok = optionalUUIDQuery(c, "requester_id"); !ok {
		return
	}
	if filter.FulfillerID, ok = optionalUUIDQuery(c, "fulfiller_id"); !ok {
		return
	}
	if raw := c.Query("status"); raw != "" {
		status, err := valueobject.NewOrderStatus(raw)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.Status = &status
	}
	filter.Limit, filter.Offset = pagination(c, 20)

	orders, total, err := h.uc.List.Execute(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, h.money.Orders(orders), total, filter.Limit, filter.Offset)
}

// Escrow обрабатывает GET /api/orders/:id/escrow.
func (h *OrderHandler) Escrow(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	view, err := h.uc.EscrowView.Execute(c.Request.Context(), orderID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.EscrowStateResponse{
		Order:     h.money.Order(view.Order),
		Payment:   h.money.Payment(view.Payment),
		Execution: dto.ToExecutionResponse(view.Execution),
		Dispute:   dto.ToDisputeResponse(view.Dispute),
	})
}

func (h *OrderHandler) Accept(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	o, err := h.uc.Accept.Execute(c.Request.Context(), orderID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.money.Order(o))
}

func (h *OrderHandler) Reject(c *gin.Context) {
	h.withReason(c, h.uc.Reject.Execute)
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	h.withReason(c, h.uc.Cancel.Execute)
}

func (h *OrderHandler) CounterOffer(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req dto.CounterOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}
	amount, err := h.money.ToMoney(req.TotalAmount)
	if err != nil {
		response.Error(c, err)
		return
	}

	o, err := h.uc.Counter.Execute(c.Request.Context(), orderID, actor, amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.money.Order(o))
}

func (h *OrderHandler) FinalizeDetails(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req dto.FinalizeDetailsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "некорректные данные запроса")
			return
		}
	}
	if err := validation.ValidateOrderDetails(req.Location, req.Notes); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	o, err := h.uc.Finalize.Execute(c.Request.Context(), order.FinalizeDetailsInput{
		OrderID:     orderID,
		Actor:       actor,
		ScheduledAt: req.ScheduledAt,
		Location:    req.Location,
		Notes:       req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.money.Order(o))
}

// CapturePayment обрабатывает POST /api/orders/:id/payment.
func (h *OrderHandler) CapturePayment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req dto.CapturePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "не указан способ оплаты")
		return
	}
	if err := validation.ValidatePaymentMethod(req.Method); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	res, err := h.uc.Capture.Execute(c.Request.Context(), orderID, actor, req.Method)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.EscrowStateResponse{
		Order:     h.money.Order(res.Order),
		Payment:   h.money.Payment(res.Payment),
		Execution: dto.ToExecutionResponse(res.Execution),
	})
}

type reasonedTransition func(ctx context.Context, orderID uuid.UUID, actor lifecycle.Actor, reason string) (*entity.Order, error)

// withReason обслуживает переходы с необязательной причиной в теле запроса.
func (h *OrderHandler) withReason(c *gin.Context, run reasonedTransition) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req dto.ReasonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "некорректные данные запроса")
			return
		}
	}
	if err := validation.ValidateReason(req.Reason); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	o, err := run(c.Request.Context(), orderID, actor, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.money.Order(o))
}
