package dto

import (
	"time"

	"github.com/google/uuid"
)

type SubmitOrderRequest struct {
	FulfillerID uuid.UUID  `json:"fulfiller_id" binding:"required"`
	ServiceID   uuid.UUID  `json:"service_id" binding:"required"`
	PricingMode string     `json:"pricing_mode" binding:"required"`
	TotalAmount float64    `json:"total_amount" binding:"gte=0"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Location    string     `json:"location"`
	Notes       string     `json:"notes"`
}

// ReasonRequest используется для отклонения и отмены заказа.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

type CounterOfferRequest struct {
	TotalAmount float64 `json:"total_amount" binding:"gte=0"`
}

type FinalizeDetailsRequest struct {
	ScheduledAt *time.Time `json:"scheduled_at"`
	Location    string     `json:"location"`
	Notes       string     `json:"notes"`
}

type CapturePaymentRequest struct {
	Method string `json:"method" binding:"required"`
}

type OpenDisputeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type ResolveDisputeRequest struct {
	Decision string `json:"decision" binding:"required"`
	Notes    string `json:"notes" binding:"required"`
}

type HoldPaymentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type ServiceRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	BasePrice   float64 `json:"base_price" binding:"gte=0"`
}

type DevTokenRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Role   string    `json:"role" binding:"required"`
}
