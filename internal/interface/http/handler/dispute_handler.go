package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/dto"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/response"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/usecase/dispute"
	"github.com/ignatzorin/escrow-backend/internal/validation"
)

type DisputeUseCases struct {
	Open        *dispute.OpenDisputeUseCase
	BeginReview *dispute.BeginReviewUseCase
	Resolve     *dispute.ResolveDisputeUseCase
	Close       *dispute.CloseDisputeUseCase
	Get         *dispute.GetDisputeUseCase
	List        *dispute.ListDisputesUseCase
	AddEvidence *dispute.AddEvidenceUseCase
}

type DisputeHandler struct {
	uc            DisputeUseCases
	money         dto.MoneyCodec
	maxUploadSize int64
}

func NewDisputeHandler(uc DisputeUseCases, money dto.MoneyCodec, maxUploadMB int64) *DisputeHandler {
	return &DisputeHandler{uc: uc, money: money, maxUploadSize: maxUploadMB * 1024 * 1024}
}

// Open обрабатывает POST /api/orders/:id/dispute.
func (h *DisputeHandler) Open(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req dto.OpenDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "укажите причину спора")
		return
	}
	if err := validation.ValidateReason(req.Reason); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	res, err := h.uc.Open.Execute(c.Request.Context(), dispute.OpenDisputeInput{
		OrderID: orderID,
		Actor:   actor,
		Reason:  req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{
		"order":   h.money.Order(res.Order),
		"dispute": dto.ToDisputeResponse(res.Dispute),
	})
}

func (h *DisputeHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	disputeID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	details, err := h.uc.Get.Execute(c.Request.Context(), disputeID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	evidence := make([]*dto.EvidenceResponse, 0, len(details.Evidence))
	for _, e := range details.Evidence {
		evidence = append(evidence, dto.ToEvidenceResponse(e))
	}
	response.Success(c, dto.DisputeDetailsResponse{
		Dispute:  dto.ToDisputeResponse(details.Dispute),
		Evidence: evidence,
	})
}

// List обрабатывает GET /api/disputes?status=&order_id= (медиатор).
func (h *DisputeHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var filter repository.DisputeFilter
	if raw := c.Query("status"); raw != "" {
		status, err := valueobject.NewDisputeStatus(raw)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.Status = &status
	}
	if filter.OrderID, ok = optionalUUIDQuery(c, "order_id"); !ok {
		return
	}
	filter.Limit, filter.Offset = pagination(c, 20)

	disputes, total, err := h.uc.List.Execute(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dto.ToDisputeResponses(disputes), total, filter.Limit, filter.Offset)
}

func (h *DisputeHandler) BeginReview(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	disputeID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	d, err := h.uc.BeginReview.Execute(c.Request.Context(), disputeID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToDisputeResponse(d))
}

// Resolve обрабатывает POST /api/disputes/:id/resolve.
func (h *DisputeHandler) Resolve(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	disputeID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req dto.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "укажите решение и обоснование")
		return
	}

	res, err := h.uc.Resolve.Execute(c.Request.Context(), dispute.ResolveInput{
		DisputeID: disputeID,
		Actor:     actor,
		Decision:  req.Decision,
		Notes:     req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"dispute": dto.ToDisputeResponse(res.Dispute),
		"order":   h.money.Order(res.Order),
		"payment": h.money.Payment(res.Payment),
	})
}

func (h *DisputeHandler) Close(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	disputeID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	d, err := h.uc.Close.Execute(c.Request.Context(), disputeID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToDisputeResponse(d))
}

// UploadEvidence обрабатывает POST /api/disputes/:id/evidence (multipart, поле file).
func (h *DisputeHandler) UploadEvidence(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	disputeID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	// Лимит на тело запроса с запасом на служебные поля multipart
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+1024*1024)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(c, apperror.Validation("файл превышает допустимый размер"))
			return
		}
		response.BadRequest(c, "файл не найден в запросе")
		return
	}
	if err := validation.ValidateFileName(fileHeader.Filename); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "не удалось прочитать файл")
		return
	}
	defer file.Close()

	evidence, err := h.uc.AddEvidence.Execute(c.Request.Context(), dispute.AddEvidenceInput{
		DisputeID: disputeID,
		Actor:     actor,
		FileName:  fileHeader.Filename,
		Content:   file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToEvidenceResponse(evidence))
}
