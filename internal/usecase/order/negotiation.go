package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/usecase/lifecycle"
)

type AcceptOrderUseCase struct {
	runner *lifecycle.Runner
}

func NewAcceptOrderUseCase(runner *lifecycle.Runner) *AcceptOrderUseCase {
	return &AcceptOrderUseCase{runner: runner}
}

func (uc *AcceptOrderUseCase) Execute(ctx context.Context, orderID uuid.UUID, actor lifecycle.Actor) (*entity.Order, error) {
	return uc.runner.Run(ctx, lifecycle.Transition{
		Action:  "order.accept",
		OrderID: orderID,
		Actor:   actor,
		Apply: func(_ context.Context, o *entity.Order) error {
			return o.Accept(actor.ID)
		},
	})
}

type RejectOrderUseCase struct {
	runner *lifecycle.Runner
}

func NewRejectOrderUseCase(runner *lifecycle.Runner) *RejectOrderUseCase {
	return &RejectOrderUseCase{runner: runner}
}

func (uc *RejectOrderUseCase) Execute(ctx context.Context, orderID uuid.UUID, actor lifecycle.Actor, reason string) (*entity.Order, error) {
	return uc.runner.Run(ctx, lifecycle.Transition{
		Action:  "order.reject",
		OrderID: orderID,
		Actor:   actor,
		Apply: func(_ context.Context, o *entity.Order) error {
			return o.Reject(actor.ID)
		},
		Audit: func(o *entity.Order, p *entity.AuditPayload) (string, uuid.UUID) {
			p.Reason = reason
			return entity.AuditEntityOrder, o.ID
		},
	})
}

type CounterOfferUseCase struct {
	runner *lifecycle.Runner
}

func NewCounterOfferUseCase(runner *lifecycle.Runner) *CounterOfferUseCase {
	return &CounterOfferUseCase{runner: runner}
}

func (uc *CounterOfferUseCase) Execute(ctx context.Context, orderID uuid.UUID, actor lifecycle.Actor, amount valueobject.Money) (*entity.Order, error) {
	return uc.runner.Run(ctx, lifecycle.Transition{
		Action:  "order.counter_offer",
		OrderID: orderID,
		Actor:   actor,
		Apply: func(_ context.Context, o *entity.Order) error {
			return o.CounterOffer(actor.ID, amount)
		},
	})
}

type FinalizeDetailsInput struct {
	OrderID     uuid.UUID
	Actor       lifecycle.Actor
	ScheduledAt *time.Time
	Location    string
	Notes       string
}

type FinalizeDetailsUseCase struct {
	runner *lifecycle.Runner
}

func NewFinalizeDetailsUseCase(runner *lifecycle.Runner) *FinalizeDetailsUseCase {
	return &FinalizeDetailsUseCase{runner: runner}
}

func (uc *FinalizeDetailsUseCase) Execute(ctx context.Context, input FinalizeDetailsInput) (*entity.Order, error) {
	return uc.runner.Run(ctx, lifecycle.Transition{
		Action:  "order.finalize_details",
		OrderID: input.OrderID,
		Actor:   input.Actor,
		Apply: func(_ context.Context, o *entity.Order) error {
			return o.FinalizeDetails(input.Actor.ID, input.ScheduledAt, input.Location, input.Notes)
		},
	})
}

type CancelOrderUseCase struct {
	runner *lifecycle.Runner
}

func NewCancelOrderUseCase(runner *lifecycle.Runner) *CancelOrderUseCase {
	return &CancelOrderUseCase{runner: runner}
}

func (uc *CancelOrderUseCase) Execute(ctx context.Context, orderID uuid.UUID, actor lifecycle.Actor, reason string) (*entity.Order, error) {
	return uc.runner.Run(ctx, lifecycle.Transition{
		Action:  "order.cancel",
		OrderID: orderID,
		Actor:   actor,
		Apply: func(_ context.Context, o *entity.Order) error {
			return o.Cancel(actor.ID)
		},
		Audit: func(o *entity.Order, p *entity.AuditPayload) (string, uuid.UUID) {
			p.Reason = reason
			return entity.AuditEntityOrder, o.ID
		},
	})
}
