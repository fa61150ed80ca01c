package dispute

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/usecase/lifecycle"
	"github.com/sirupsen/logrus"
)

// statusChange выполняет административный переход спора без влияния на заказ и платеж.
func statusChange(ctx context.Context, store repository.Store, recorder *lifecycle.Recorder, action string, disputeID uuid.UUID, actor lifecycle.Actor, apply func(d *entity.Dispute) error) (*entity.Dispute, error) {
	if err := actor.RequireMediator(); err != nil {
		recorder.Fail(action, err)
		return nil, err
	}
	d, err := store.Repositories().Disputes.FindByID(ctx, disputeID)
	if err != nil {
		recorder.Fail(action, err)
		return nil, err
	}
	expected := d.Status
	if err := apply(d); err != nil {
		recorder.Fail(action, err)
		return nil, err
	}

	err = store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Disputes.Update(ctx, d, expected); err != nil {
			return err
		}
		recorder.Audit(ctx, repos, actor.Ref(), entity.AuditEntityDispute, d.ID, action, entity.AuditPayload{
			Before: map[string]string{"status": string(expected)},
			After:  map[string]string{"status": string(d.Status)},
			Metadata: map[string]string{
				"order_id":    d.OrderID.String(),
				"mediator_id": actor.ID.String(),
			},
		})
		return nil
	})
	if err != nil {
		recorder.Fail(action, err)
		return nil, err
	}

	logger.Get().WithFields(logrus.Fields{
		"dispute_id": d.ID,
		"order_id":   d.OrderID,
		"user_id":    actor.ID,
		"from":       expected,
		"to":         d.Status,
	}).Info("спор: статус изменен")
	return d, nil
}

type BeginReviewUseCase struct {
	store    repository.Store
	recorder *lifecycle.Recorder
}

func NewBeginReviewUseCase(store repository.Store, recorder *lifecycle.Recorder) *BeginReviewUseCase {
	return &BeginReviewUseCase{store: store, recorder: recorder}
}

func (uc *BeginReviewUseCase) Execute(ctx context.Context, disputeID uuid.UUID, actor lifecycle.Actor) (*entity.Dispute, error) {
	return statusChange(ctx, uc.store, uc.recorder, "dispute.begin_review", disputeID, actor, (*entity.Dispute).BeginReview)
}

// CloseDisputeUseCase архивирует разрешенный спор.
type CloseDisputeUseCase struct {
	store    repository.Store
	recorder *lifecycle.Recorder
}

func NewCloseDisputeUseCase(store repository.Store, recorder *lifecycle.Recorder) *CloseDisputeUseCase {
	return &CloseDisputeUseCase{store: store, recorder: recorder}
}

func (uc *CloseDisputeUseCase) Execute(ctx context.Context, disputeID uuid.UUID, actor lifecycle.Actor) (*entity.Dispute, error) {
	return statusChange(ctx, uc.store, uc.recorder, "dispute.close", disputeID, actor, (*entity.Dispute).Close)
}

type ListDisputesUseCase struct {
	store repository.Store
}

func NewListDisputesUseCase(store repository.Store) *ListDisputesUseCase {
	return &ListDisputesUseCase{store: store}
}

func (uc *ListDisputesUseCase) Execute(ctx context.Context, actor lifecycle.Actor, filter repository.DisputeFilter) ([]*entity.Dispute, int, error) {
	if err := actor.RequireMediator(); err != nil {
		return nil, 0, err
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	return uc.store.Repositories().Disputes.List(ctx, filter)
}

type DisputeDetails struct {
	Dispute  *entity.Dispute
	Evidence []*entity.DisputeEvidence
}

type GetDisputeUseCase struct {
	store repository.Store
}

func NewGetDisputeUseCase(store repository.Store) *GetDisputeUseCase {
	return &GetDisputeUseCase{store: store}
}

func (uc *GetDisputeUseCase) Execute(ctx context.Context, disputeID uuid.UUID, actor lifecycle.Actor) (*DisputeDetails, error) {
	repos := uc.store.Repositories()
	d, err := repos.Disputes.FindByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if err := authorizeParticipant(ctx, repos, d, actor); err != nil {
		return nil, err
	}
	evidence, err := repos.Disputes.ListEvidence(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	return &DisputeDetails{Dispute: d, Evidence: evidence}, nil
}

func authorizeParticipant(ctx context.Context, repos repository.Repositories, d *entity.Dispute, actor lifecycle.Actor) error {
	if actor.Role == valueobject.RoleMediator {
		return nil
	}
	order, err := repos.Orders.FindByID(ctx, d.OrderID)
	if err != nil {
		return err
	}
	if !order.IsParticipant(actor.ID) {
		return apperror.ErrForbidden
	}
	return nil
}
