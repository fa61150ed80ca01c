package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

const (
	MinDisputeReasonLength   = 3
	MaxDisputeReasonLength   = 2000
	MinResolutionNotesLength = 5
	MaxResolutionNotesLength = 5000
)

type Dispute struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	OpenedBy        uuid.UUID
	OpenerRole      valueobject.Role
	Reason          string
	Status          valueobject.DisputeStatus
	Decision        *valueobject.DisputeDecision
	ResolutionNotes *string
	ResolvedBy      *uuid.UUID
	ResolvedAt      *time.Time
	ClosedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewDispute(orderID, openedBy uuid.UUID, role valueobject.Role, reason string) (*Dispute, error) {
	reason = strings.TrimSpace(reason)
	if len([]rune(reason)) < MinDisputeReasonLength || len([]rune(reason)) > MaxDisputeReasonLength {
		return nil, apperror.Validation("причина спора должна содержать от 3 до 2000 символов")
	}
	if role != valueobject.RoleRequester && role != valueobject.RoleFulfiller {
		return nil, apperror.Validation("спор может открыть только заказчик или исполнитель")
	}
	now := time.Now().UTC()
	return &Dispute{
		ID:         uuid.New(),
		OrderID:    orderID,
		OpenedBy:   openedBy,
		OpenerRole: role,
		Reason:     reason,
		Status:     valueobject.DisputeStatusOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (d *Dispute) BeginReview() error {
	if d.Status != valueobject.DisputeStatusOpen {
		return apperror.InvalidTransition("взять спор в работу можно только из статуса open")
	}
	d.Status = valueobject.DisputeStatusInReview
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// Resolve фиксирует решение медиатора. Без обоснования решение не принимается.
func (d *Dispute) Resolve(mediatorID uuid.UUID, decision valueobject.DisputeDecision, notes string) error {
	notes = strings.TrimSpace(notes)
	if len([]rune(notes)) < MinResolutionNotesLength || len([]rune(notes)) > MaxResolutionNotesLength {
		return apperror.Validation("обоснование решения обязательно (от 5 до 5000 символов)")
	}
	if !d.Status.IsActive() {
		return apperror.InvalidTransition("спор уже разрешен")
	}
	now := time.Now().UTC()
	d.Status = valueobject.DisputeStatusResolved
	d.Decision = &decision
	d.ResolutionNotes = &notes
	d.ResolvedBy = &mediatorID
	d.ResolvedAt = &now
	d.UpdatedAt = now
	return nil
}

func (d *Dispute) Close() error {
	if d.Status != valueobject.DisputeStatusResolved {
		return apperror.InvalidTransition("закрыть можно только разрешенный спор")
	}
	now := time.Now().UTC()
	d.Status = valueobject.DisputeStatusClosed
	d.ClosedAt = &now
	d.UpdatedAt = now
	return nil
}

type DisputeEvidence struct {
	ID          uuid.UUID
	DisputeID   uuid.UUID
	UploadedBy  uuid.UUID
	FileName    string
	ContentType string
	SizeBytes   int64
	StoragePath string
	CreatedAt   time.Time
}
