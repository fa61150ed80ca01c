package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

// Execution хранит двустороннее подтверждение начала и завершения работы.
// Флаги только устанавливаются и никогда не сбрасываются.
type Execution struct {
	ID                       uuid.UUID
	OrderID                  uuid.UUID
	StartedAt                *time.Time
	EndedAt                  *time.Time
	FulfillerMarkedStart     bool
	RequesterConfirmedStart  bool
	FulfillerMarkedFinish    bool
	RequesterConfirmedFinish bool
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

func NewExecution(orderID uuid.UUID) *Execution {
	now := time.Now().UTC()
	return &Execution{
		ID:        uuid.New(),
		OrderID:   orderID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (e *Execution) MarkStart(now time.Time) error {
	if e.FulfillerMarkedStart {
		return apperror.Conflict("начало работы уже отмечено")
	}
	e.FulfillerMarkedStart = true
	e.StartedAt = &now
	e.UpdatedAt = now
	return nil
}

func (e *Execution) ConfirmStart(now time.Time) error {
	if !e.FulfillerMarkedStart {
		return apperror.Conflict("исполнитель еще не отметил начало работы")
	}
	if e.RequesterConfirmedStart {
		return apperror.Conflict("начало работы уже подтверждено")
	}
	e.RequesterConfirmedStart = true
	e.UpdatedAt = now
	return nil
}

func (e *Execution) MarkFinish(now time.Time) error {
	if !e.RequesterConfirmedStart || e.StartedAt == nil {
		return apperror.Conflict("начало работы не подтверждено заказчиком")
	}
	if e.FulfillerMarkedFinish {
		return apperror.Conflict("завершение уже отмечено")
	}
	// ended_at не может оказаться раньше started_at даже при сдвиге часов
	if now.Before(*e.StartedAt) {
		now = *e.StartedAt
	}
	e.FulfillerMarkedFinish = true
	e.EndedAt = &now
	e.UpdatedAt = now
	return nil
}

func (e *Execution) ConfirmFinish(now time.Time) error {
	if !e.FulfillerMarkedFinish {
		return apperror.Conflict("исполнитель еще не отметил завершение работы")
	}
	if e.RequesterConfirmedFinish {
		return apperror.Conflict("завершение уже подтверждено")
	}
	e.RequesterConfirmedFinish = true
	e.UpdatedAt = now
	return nil
}

func (e *Execution) FinishConfirmed() bool {
	return e.FulfillerMarkedFinish && e.RequesterConfirmedFinish
}

// Elapsed - оплачиваемое время по отметкам исполнителя.
func (e *Execution) Elapsed() time.Duration {
	if e.StartedAt == nil || e.EndedAt == nil {
		return 0
	}
	return e.EndedAt.Sub(*e.StartedAt)
}
