package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/usecase/lifecycle"
)

type GetOrderUseCase struct {
	store repository.Store
}

func NewGetOrderUseCase(store repository.Store) *GetOrderUseCase {
	return &GetOrderUseCase{store: store}
}

func (uc *GetOrderUseCase) Execute(ctx context.Context, orderID uuid.UUID, actor lifecycle.Actor) (*entity.Order, error) {
	order, err := uc.store.Repositories().Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsMediator() && !order.IsParticipant(actor.ID) {
		return nil, apperror.ErrForbidden
	}
	return order, nil
}

type ListOrdersUseCase struct {
	store repository.Store
}

func NewListOrdersUseCase(store repository.Store) *ListOrdersUseCase {
	return &ListOrdersUseCase{store: store}
}

// Execute возвращает страницу заказов. Участники видят только свои заказы.
func (uc *ListOrdersUseCase) Execute(ctx context.Context, actor lifecycle.Actor, filter repository.OrderFilter) ([]*entity.Order, int, error) {
	if !actor.IsMediator() {
		id := actor.ID
		filter.ParticipantID = &id
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return uc.store.Repositories().Orders.List(ctx, filter)
}

// EscrowView - заказ вместе с платежом, исполнением и активным спором.
type EscrowView struct {
	Order     *entity.Order
	Payment   *entity.Payment
	Execution *entity.Execution
	Dispute   *entity.Dispute
}

type GetEscrowViewUseCase struct {
	store repository.Store
}

func NewGetEscrowViewUseCase(store repository.Store) *GetEscrowViewUseCase {
	return &GetEscrowViewUseCase{store: store}
}

func (uc *GetEscrowViewUseCase) Execute(ctx context.Context, orderID uuid.UUID, actor lifecycle.Actor) (*EscrowView, error) {
	repos := uc.store.Repositories()
	order, err := repos.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsMediator() && !order.IsParticipant(actor.ID) {
		return nil, apperror.ErrForbidden
	}

	view := &EscrowView{Order: order}
	if view.Payment, err = optional(repos.Payments.FindByOrderID(ctx, orderID)); err != nil {
		return nil, err
	}
	if view.Execution, err = optional(repos.Executions.FindByOrderID(ctx, orderID)); err != nil {
		return nil, err
	}
	if view.Dispute, err = optional(repos.Disputes.FindActiveByOrderID(ctx, orderID)); err != nil {
		return nil, err
	}
	return view, nil
}

func optional[T any](v *T, err error) (*T, error) {
	if err != nil && apperror.IsNotFound(err) {
		return nil, nil
	}
	return v, err
}
