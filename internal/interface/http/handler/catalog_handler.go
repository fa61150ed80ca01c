package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/interface/http/dto"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/response"
	"github.com/ignatzorin/escrow-backend/internal/usecase/catalog"
)

// CatalogHandler - минимальное управление услугами исполнителей.
type CatalogHandler struct {
	uc    *catalog.ServiceUseCases
	money dto.MoneyCodec
}

func NewCatalogHandler(uc *catalog.ServiceUseCases, money dto.MoneyCodec) *CatalogHandler {
	return &CatalogHandler{uc: uc, money: money}
}

func (h *CatalogHandler) input(c *gin.Context) (catalog.ServiceInput, bool) {
	var req dto.ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return catalog.ServiceInput{}, false
	}
	price, err := h.money.ToMoney(req.BasePrice)
	if err != nil {
		response.Error(c, err)
		return catalog.ServiceInput{}, false
	}
	return catalog.ServiceInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		BasePrice:   price,
	}, true
}

func (h *CatalogHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	in, ok := h.input(c)
	if !ok {
		return
	}

	svc, err := h.uc.Create(c.Request.Context(), actor, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, h.money.Service(svc))
}

func (h *CatalogHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	in, ok := h.input(c)
	if !ok {
		return
	}

	svc, err := h.uc.Update(c.Request.Context(), actor, id, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.money.Service(svc))
}

func (h *CatalogHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.uc.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

func (h *CatalogHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	svc, err := h.uc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.money.Service(svc))
}
