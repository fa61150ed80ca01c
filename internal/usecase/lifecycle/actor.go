package lifecycle

import (
	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

// Actor - вызывающий пользователь, как его описал провайдер идентификации.
type Actor struct {
	ID   uuid.UUID
	Role valueobject.Role
}

func (a Actor) IsMediator() bool {
	return a.Role == valueobject.RoleMediator
}

func (a Actor) RequireMediator() error {
	if !a.IsMediator() {
		return apperror.ErrMediatorRequired
	}
	return nil
}

func (a Actor) Ref() *uuid.UUID {
	if a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}
