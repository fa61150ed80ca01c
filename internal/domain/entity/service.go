package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

// CatalogService - услуга исполнителя в каталоге.
type CatalogService struct {
	ID          uuid.UUID
	ProviderID  uuid.UUID
	Title       string
	Description string
	Category    string
	BasePrice   valueobject.Money
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewCatalogService(providerID uuid.UUID, title, description, category string, basePrice valueobject.Money) (*CatalogService, error) {
	s := &CatalogService{
		ID:         uuid.New(),
		ProviderID: providerID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Update(title, description, category, basePrice); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CatalogService) Update(title, description, category string, basePrice valueobject.Money) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return apperror.Validation("название услуги обязательно")
	}
	if basePrice < 0 {
		return apperror.Validation("цена не может быть отрицательной")
	}
	s.Title = title
	s.Description = strings.TrimSpace(description)
	s.Category = strings.TrimSpace(category)
	s.BasePrice = basePrice
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *CatalogService) Snapshot() ServiceSnapshot {
	return ServiceSnapshot{
		Title:       s.Title,
		Description: s.Description,
		Category:    s.Category,
		BasePrice:   s.BasePrice,
	}
}
