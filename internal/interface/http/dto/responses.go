package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
)

type ServiceSnapshotResponse struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	BasePrice   float64 `json:"base_price"`
}

type OrderResponse struct {
	ID          uuid.UUID               `json:"id"`
	RequesterID uuid.UUID               `json:"requester_id"`
	FulfillerID uuid.UUID               `json:"fulfiller_id"`
	ServiceID   uuid.UUID               `json:"service_id"`
	PricingMode string                  `json:"pricing_mode"`
	ScheduledAt *time.Time              `json:"scheduled_at"`
	Location    string                  `json:"location"`
	Notes       string                  `json:"notes"`
	TotalAmount float64                 `json:"total_amount"`
	Service     ServiceSnapshotResponse `json:"service"`
	Status      string                  `json:"status"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

func (c MoneyCodec) Order(o *entity.Order) *OrderResponse {
	if o == nil {
		return nil
	}
	return &OrderResponse{
		ID:          o.ID,
		RequesterID: o.RequesterID,
		FulfillerID: o.FulfillerID,
		ServiceID:   o.ServiceID,
		PricingMode: string(o.PricingMode),
		ScheduledAt: o.ScheduledAt,
		Location:    o.Location,
		Notes:       o.Notes,
		TotalAmount: c.FromMoney(o.TotalAmount),
		Service: ServiceSnapshotResponse{
			Title:       o.Snapshot.Title,
			Description: o.Snapshot.Description,
			Category:    o.Snapshot.Category,
			BasePrice:   c.FromMoney(o.Snapshot.BasePrice),
		},
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func (c MoneyCodec) Orders(orders []*entity.Order) []*OrderResponse {
	out := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, c.Order(o))
	}
	return out
}

type PaymentResponse struct {
	ID             uuid.UUID `json:"id"`
	OrderID        uuid.UUID `json:"order_id"`
	GrossAmount    float64   `json:"gross_amount"`
	OperatorFee    float64   `json:"operator_fee"`
	NetAmount      float64   `json:"net_amount"`
	FeeBps         int64     `json:"fee_bps"`
	Status         string    `json:"status"`
	Method         string    `json:"method"`
	Reference      string    `json:"reference"`
	TransactionRef string    `json:"transaction_ref"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (c MoneyCodec) Payment(p *entity.Payment) *PaymentResponse {
	if p == nil {
		return nil
	}
	return &PaymentResponse{
		ID:             p.ID,
		OrderID:        p.OrderID,
		GrossAmount:    c.FromMoney(p.GrossAmount),
		OperatorFee:    c.FromMoney(p.OperatorFee),
		NetAmount:      c.FromMoney(p.NetAmount),
		FeeBps:         p.FeeBps,
		Status:         string(p.Status),
		Method:         p.Method,
		Reference:      p.Reference,
		TransactionRef: p.TransactionRef,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

type ExecutionResponse struct {
	ID                       uuid.UUID  `json:"id"`
	OrderID                  uuid.UUID  `json:"order_id"`
	StartedAt                *time.Time `json:"started_at"`
	EndedAt                  *time.Time `json:"ended_at"`
	FulfillerMarkedStart     bool       `json:"fulfiller_marked_start"`
	RequesterConfirmedStart  bool       `json:"requester_confirmed_start"`
	FulfillerMarkedFinish    bool       `json:"fulfiller_marked_finish"`
	RequesterConfirmedFinish bool       `json:"requester_confirmed_finish"`
	ElapsedSeconds           *int64     `json:"elapsed_seconds,omitempty"`
}

func ToExecutionResponse(e *entity.Execution) *ExecutionResponse {
	if e == nil {
		return nil
	}
	resp := &ExecutionResponse{
		ID:                       e.ID,
		OrderID:                  e.OrderID,
		StartedAt:                e.StartedAt,
		EndedAt:                  e.EndedAt,
		FulfillerMarkedStart:     e.FulfillerMarkedStart,
		RequesterConfirmedStart:  e.RequesterConfirmedStart,
		FulfillerMarkedFinish:    e.FulfillerMarkedFinish,
		RequesterConfirmedFinish: e.RequesterConfirmedFinish,
	}
	if e.StartedAt != nil && e.EndedAt != nil {
		secs := int64(e.Elapsed() / time.Second)
		resp.ElapsedSeconds = &secs
	}
	return resp
}

type DisputeResponse struct {
	ID              uuid.UUID  `json:"id"`
	OrderID         uuid.UUID  `json:"order_id"`
	OpenedBy        uuid.UUID  `json:"opened_by"`
	OpenerRole      string     `json:"opener_role"`
	Reason          string     `json:"reason"`
	Status          string     `json:"status"`
	Decision        *string    `json:"decision"`
	ResolutionNotes *string    `json:"resolution_notes"`
	ResolvedBy      *uuid.UUID `json:"resolved_by"`
	ResolvedAt      *time.Time `json:"resolved_at"`
	ClosedAt        *time.Time `json:"closed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func ToDisputeResponse(d *entity.Dispute) *DisputeResponse {
	if d == nil {
		return nil
	}
	resp := &DisputeResponse{
		ID:              d.ID,
		OrderID:         d.OrderID,
		OpenedBy:        d.OpenedBy,
		OpenerRole:      string(d.OpenerRole),
		Reason:          d.Reason,
		Status:          string(d.Status),
		ResolutionNotes: d.ResolutionNotes,
		ResolvedBy:      d.ResolvedBy,
		ResolvedAt:      d.ResolvedAt,
		ClosedAt:        d.ClosedAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if d.Decision != nil {
		decision := string(*d.Decision)
		resp.Decision = &decision
	}
	return resp
}

func ToDisputeResponses(disputes []*entity.Dispute) []*DisputeResponse {
	out := make([]*DisputeResponse, 0, len(disputes))
	for _, d := range disputes {
		out = append(out, ToDisputeResponse(d))
	}
	return out
}

type EvidenceResponse struct {
	ID          uuid.UUID `json:"id"`
	DisputeID   uuid.UUID `json:"dispute_id"`
	UploadedBy  uuid.UUID `json:"uploaded_by"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

func ToEvidenceResponse(e *entity.DisputeEvidence) *EvidenceResponse {
	return &EvidenceResponse{
		ID:          e.ID,
		DisputeID:   e.DisputeID,
		UploadedBy:  e.UploadedBy,
		FileName:    e.FileName,
		ContentType: e.ContentType,
		SizeBytes:   e.SizeBytes,
		CreatedAt:   e.CreatedAt,
	}
}

type DisputeDetailsResponse struct {
	Dispute  *DisputeResponse    `json:"dispute"`
	Evidence []*EvidenceResponse `json:"evidence"`
}

type AuditEntryResponse struct {
	Seq        int64           `json:"seq"`
	ID         uuid.UUID       `json:"id"`
	ActorID    *uuid.UUID      `json:"actor_id"`
	EntityType string          `json:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id"`
	Action     string          `json:"action"`
	Payload    json.RawMessage `json:"payload"`
	PrevHash   string          `json:"prev_hash"`
	EntryHash  string          `json:"entry_hash"`
	CreatedAt  time.Time       `json:"created_at"`
}

func ToAuditResponses(entries []*entity.AuditEntry) []*AuditEntryResponse {
	out := make([]*AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, &AuditEntryResponse{
			Seq:        e.Seq,
			ID:         e.ID,
			ActorID:    e.ActorID,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Action:     e.Action,
			Payload:    e.Payload,
			PrevHash:   e.PrevHash,
			EntryHash:  e.EntryHash,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}

type ServiceResponse struct {
	ID          uuid.UUID `json:"id"`
	ProviderID  uuid.UUID `json:"provider_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	BasePrice   float64   `json:"base_price"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c MoneyCodec) Service(s *entity.CatalogService) *ServiceResponse {
	return &ServiceResponse{
		ID:          s.ID,
		ProviderID:  s.ProviderID,
		Title:       s.Title,
		Description: s.Description,
		Category:    s.Category,
		BasePrice:   c.FromMoney(s.BasePrice),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// EscrowStateResponse - заказ вместе с платежом, исполнением и спором.
type EscrowStateResponse struct {
	Order     *OrderResponse     `json:"order"`
	Payment   *PaymentResponse   `json:"payment"`
	Execution *ExecutionResponse `json:"execution"`
	Dispute   *DisputeResponse   `json:"dispute"`
}
