package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
)

type DisputeRepository interface {
	// Create возвращает CONFLICT, если у заказа уже есть открытый спор.
	Create(ctx context.Context, dispute *entity.Dispute) error
	Update(ctx context.Context, dispute *entity.Dispute, expected valueobject.DisputeStatus) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Dispute, error)
	FindActiveByOrderID(ctx context.Context, orderID uuid.UUID) (*entity.Dispute, error)
	List(ctx context.Context, filter DisputeFilter) ([]*entity.Dispute, int, error)

	// AddEvidence прикрепляет файл только к активному спору и держит строку спора
	// до конца транзакции: параллельное разрешение ждет ее или получает CONFLICT.
	AddEvidence(ctx context.Context, evidence *entity.DisputeEvidence) error
	ListEvidence(ctx context.Context, disputeID uuid.UUID) ([]*entity.DisputeEvidence, error)
}

type DisputeFilter struct {
	Status  *valueobject.DisputeStatus
	OrderID *uuid.UUID
	Limit   int
	Offset  int
}
