package lifecycle

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
)

// OrderSnapshot - полный снимок заказа, который уходит подписчикам ретранслятора.
type OrderSnapshot struct {
	ID                 uuid.UUID  `json:"id"`
	RequesterID        uuid.UUID  `json:"requester_id"`
	FulfillerID        uuid.UUID  `json:"fulfiller_id"`
	ServiceID          uuid.UUID  `json:"service_id"`
	PricingMode        string     `json:"pricing_mode"`
	ScheduledAt        *time.Time `json:"scheduled_at,omitempty"`
	Location           string     `json:"location,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	TotalAmountMinor   int64      `json:"total_amount_minor"`
	ServiceTitle       string     `json:"service_title_snapshot"`
	ServiceDescription string     `json:"service_description_snapshot"`
	ServiceCategory    string     `json:"service_category_snapshot"`
	ServiceBasePrice   int64      `json:"service_base_price_snapshot_minor"`
	Status             string     `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func NewOrderSnapshot(o *entity.Order) OrderSnapshot {
	return OrderSnapshot{
		ID:                 o.ID,
		RequesterID:        o.RequesterID,
		FulfillerID:        o.FulfillerID,
		ServiceID:          o.ServiceID,
		PricingMode:        string(o.PricingMode),
		ScheduledAt:        o.ScheduledAt,
		Location:           o.Location,
		Notes:              o.Notes,
		TotalAmountMinor:   int64(o.TotalAmount),
		ServiceTitle:       o.Snapshot.Title,
		ServiceDescription: o.Snapshot.Description,
		ServiceCategory:    o.Snapshot.Category,
		ServiceBasePrice:   int64(o.Snapshot.BasePrice),
		Status:             string(o.Status),
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

// stateView - короткое состояние заказа для before/after в аудите.
type stateView struct {
	Status           string `json:"status"`
	TotalAmountMinor int64  `json:"total_amount_minor"`
}

func orderState(o *entity.Order) stateView {
	return stateView{Status: string(o.Status), TotalAmountMinor: int64(o.TotalAmount)}
}
