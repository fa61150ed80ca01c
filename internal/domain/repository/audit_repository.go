package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
)

// AuditRepository только добавляет и читает. Изменения и удаления не предусмотрены.
type AuditRepository interface {
	Append(ctx context.Context, entry *entity.AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]*entity.AuditEntry, int, error)
}

type AuditFilter struct {
	EntityType string
	EntityID   *uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	Since      *time.Time
	// Ascending нужен для проверки цепочки хэшей
	Ascending bool
	Limit     int
	Offset    int
}

// OrderEventRepository - outbox для ретранслятора уведомлений.
type OrderEventRepository interface {
	Enqueue(ctx context.Context, event *entity.OrderEvent) error
	// ClaimPending блокирует до limit неотправленных событий до конца транзакции.
	ClaimPending(ctx context.Context, limit int) ([]*entity.OrderEvent, error)
	MarkDispatched(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}
