package dispute

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/usecase/lifecycle"
)

type OpenDisputeInput struct {
	OrderID uuid.UUID
	Actor   lifecycle.Actor
	Reason  string
}

type OpenDisputeResult struct {
	Order   *entity.Order
	Dispute *entity.Dispute
}

// OpenDisputeUseCase замораживает заказ: пока он в disputed, обычные операции
// исполнения и эскроу отклоняются.
type OpenDisputeUseCase struct {
	runner *lifecycle.Runner
}

func NewOpenDisputeUseCase(runner *lifecycle.Runner) *OpenDisputeUseCase {
	return &OpenDisputeUseCase{runner: runner}
}

func (uc *OpenDisputeUseCase) Execute(ctx context.Context, input OpenDisputeInput) (*OpenDisputeResult, error) {
	var dispute *entity.Dispute
	order, err := uc.runner.Run(ctx, lifecycle.Transition{
		Action:  "dispute.open",
		OrderID: input.OrderID,
		Actor:   input.Actor,
		Apply: func(_ context.Context, o *entity.Order) error {
			role, ok := o.RoleOf(input.Actor.ID)
			if !ok {
				return apperror.ErrForbidden
			}
			d, err := entity.NewDispute(o.ID, input.Actor.ID, role, input.Reason)
			if err != nil {
				return err
			}
			if err := o.OpenDispute(input.Actor.ID); err != nil {
				return err
			}
			dispute = d
			return nil
		},
		InTx: func(ctx context.Context, repos repository.Repositories, o *entity.Order) error {
			if _, err := repos.Payments.FindByOrderID(ctx, o.ID); err != nil {
				if apperror.IsNotFound(err) {
					return apperror.InvalidTransition("спор возможен только по заказу с платежом")
				}
				return err
			}
			return repos.Disputes.Create(ctx, dispute)
		},
		Audit: func(o *entity.Order, p *entity.AuditPayload) (string, uuid.UUID) {
			p.Reason = dispute.Reason
			p.Metadata = map[string]string{
				"dispute_id":  dispute.ID.String(),
				"opener_role": string(dispute.OpenerRole),
			}
			return entity.AuditEntityOrder, o.ID
		},
	})
	if err != nil {
		return nil, err
	}
	return &OpenDisputeResult{Order: order, Dispute: dispute}, nil
}
