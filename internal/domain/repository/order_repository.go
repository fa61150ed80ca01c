package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
)

// OrderRepository - точечное чтение, условное обновление и выборка по внешним ключам.
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	// Update сохраняет заказ только если в хранилище он все еще в статусе expected.
	// Иначе возвращает apperror с кодом CONFLICT и ничего не меняет.
	Update(ctx context.Context, order *entity.Order, expected valueobject.OrderStatus) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*entity.Order, int, error)
}

type OrderFilter struct {
	RequesterID *uuid.UUID
	FulfillerID *uuid.UUID
	Status      *valueobject.OrderStatus
	// ParticipantID ограничивает выборку заказами, где пользователь заказчик или исполнитель
	ParticipantID *uuid.UUID
	Limit         int
	Offset        int
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	Update(ctx context.Context, payment *entity.Payment, expected valueobject.EscrowStatus) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*entity.Payment, error)
}

type ExecutionRepository interface {
	Create(ctx context.Context, exec *entity.Execution) error
	Update(ctx context.Context, exec *entity.Execution) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*entity.Execution, error)
}

type ServiceCatalog interface {
	Create(ctx context.Context, svc *entity.CatalogService) error
	Update(ctx context.Context, svc *entity.CatalogService) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.CatalogService, error)
}
