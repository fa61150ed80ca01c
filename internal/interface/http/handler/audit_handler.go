package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/dto"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/response"
	"github.com/ignatzorin/escrow-backend/internal/usecase/audit"
)

type AuditHandler struct {
	list   *audit.ListAuditUseCase
	verify *audit.VerifyChainUseCase
}

func NewAuditHandler(list *audit.ListAuditUseCase, verify *audit.VerifyChainUseCase) *AuditHandler {
	return &AuditHandler{list: list, verify: verify}
}

// List обрабатывает GET /api/audit?entity_type=&entity_id=&actor_id=&action=&since=.
func (h *AuditHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	filter := repository.AuditFilter{
		EntityType: c.Query("entity_type"),
		Action:     c.Query("action"),
	}
	if filter.EntityID, ok = optionalUUIDQuery(c, "entity_id"); !ok {
		return
	}
	if filter.ActorID, ok = optionalUUIDQuery(c, "actor_id"); !ok {
		return
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(c, "параметр since должен быть в формате RFC3339")
			return
		}
		filter.Since = &since
	}
	filter.Limit, filter.Offset = pagination(c, 50)

	entries, total, err := h.list.Execute(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dto.ToAuditResponses(entries), total, filter.Limit, filter.Offset)
}

// Verify обрабатывает GET /api/audit/verify.
func (h *AuditHandler) Verify(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	res, err := h.verify.Execute(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	body := gin.H{"checked": res.Checked, "valid": res.Valid}
	if res.Broken != nil {
		body["broken_at_seq"] = res.Broken.Seq
		body["reason"] = res.Broken.Reason
	}
	response.Success(c, body)
}
