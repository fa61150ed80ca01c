package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/usecase/lifecycle"
	"github.com/sirupsen/logrus"
)

type SubmitOrderInput struct {
	Actor       lifecycle.Actor
	FulfillerID uuid.UUID
	ServiceID   uuid.UUID
	PricingMode string
	TotalAmount valueobject.Money
	ScheduledAt *time.Time
	Location    string
	Notes       string
}

type SubmitOrderUseCase struct {
	store    repository.Store
	recorder *lifecycle.Recorder
}

func NewSubmitOrderUseCase(store repository.Store, recorder *lifecycle.Recorder) *SubmitOrderUseCase {
	return &SubmitOrderUseCase{store: store, recorder: recorder}
}

func (uc *SubmitOrderUseCase) Execute(ctx context.Context, input SubmitOrderInput) (*entity.Order, error) {
	const action = "order.submit"
	order, err := uc.build(ctx, input)
	if err != nil {
		uc.recorder.Fail(action, err)
		return nil, err
	}

	err = uc.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Orders.Create(ctx, order); err != nil {
			return err
		}
		uc.recorder.Audit(ctx, repos, input.Actor.Ref(), entity.AuditEntityOrder, order.ID, action, entity.AuditPayload{
			After: lifecycle.NewOrderSnapshot(order),
			Metadata: map[string]string{
				"service_id":   order.ServiceID.String(),
				"fulfiller_id": order.FulfillerID.String(),
			},
		})
		return uc.recorder.OrderChanged(ctx, repos, order, action)
	})
	if err != nil {
		uc.recorder.Fail(action, err)
		return nil, err
	}

	logger.Get().WithFields(logrus.Fields{
		"order_id":     order.ID,
		"user_id":      order.RequesterID,
		"fulfiller_id": order.FulfillerID,
		"to":           order.Status,
	}).Info("заказ: создан")
	return order, nil
}

func (uc *SubmitOrderUseCase) build(ctx context.Context, input SubmitOrderInput) (*entity.Order, error) {
	if input.Actor.IsMediator() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "медиатор не может создавать заказы")
	}
	if input.ServiceID == uuid.Nil {
		return nil, apperror.Validation("не указана услуга")
	}
	if input.FulfillerID == uuid.Nil {
		return nil, apperror.Validation("не указан исполнитель")
	}
	if input.PricingMode == "" {
		return nil, apperror.Validation("не указан режим оплаты")
	}

	svc, err := uc.store.Repositories().Services.FindByID(ctx, input.ServiceID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.Validation("услуга не найдена в каталоге")
		}
		return nil, err
	}
	if svc.ProviderID != input.FulfillerID {
		return nil, apperror.Validation("услуга не принадлежит указанному исполнителю")
	}

	return entity.NewOrder(entity.NewOrderParams{
		RequesterID: input.Actor.ID,
		FulfillerID: input.FulfillerID,
		ServiceID:   input.ServiceID,
		PricingMode: input.PricingMode,
		ScheduledAt: input.ScheduledAt,
		Location:    input.Location,
		Notes:       input.Notes,
		TotalAmount: input.TotalAmount,
	}, svc.Snapshot())
}
