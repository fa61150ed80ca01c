package dispute

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/metrics"
	"github.com/ignatzorin/escrow-backend/internal/usecase/escrow"
	"github.com/ignatzorin/escrow-backend/internal/usecase/lifecycle"
	"github.com/sirupsen/logrus"
)

type ResolveInput struct {
	DisputeID uuid.UUID
	Actor     lifecycle.Actor
	Decision  string
	Notes     string
}

type ResolveResult struct {
	Dispute *entity.Dispute
	Order   *entity.Order
	Payment *entity.Payment
}

// ResolveDisputeUseCase - единственный путь, где деньги двигаются без двустороннего
// подтверждения. Решение, медиатор и обоснование попадают в аудит дословно.
type ResolveDisputeUseCase struct {
	store    repository.Store
	ledger   *escrow.Ledger
	recorder *lifecycle.Recorder
	metrics  *metrics.EscrowMetrics
}

func NewResolveDisputeUseCase(store repository.Store, ledger *escrow.Ledger, recorder *lifecycle.Recorder, m *metrics.EscrowMetrics) *ResolveDisputeUseCase {
	return &ResolveDisputeUseCase{store: store, ledger: ledger, recorder: recorder, metrics: m}
}

func (uc *ResolveDisputeUseCase) Execute(ctx context.Context, input ResolveInput) (*ResolveResult, error) {
	const action = "dispute.resolve"
	res, err := uc.execute(ctx, input)
	if err != nil {
		uc.recorder.Fail(action, err)
		return nil, err
	}
	uc.metrics.Transition(string(valueobject.OrderStatusDisputed), string(res.Order.Status))
	logger.Get().WithFields(logrus.Fields{
		"dispute_id":    res.Dispute.ID,
		"order_id":      res.Order.ID,
		"user_id":       input.Actor.ID,
		"decision":      *res.Dispute.Decision,
		"escrow_status": res.Payment.Status,
		"to":            res.Order.Status,
	}).Warn("спор: средства перемещены по решению медиатора")
	return res, nil
}

func (uc *ResolveDisputeUseCase) execute(ctx context.Context, input ResolveInput) (*ResolveResult, error) {
	const action = "dispute.resolve"
	if err := input.Actor.RequireMediator(); err != nil {
		return nil, err
	}
	decision, err := valueobject.NewDisputeDecision(input.Decision)
	if err != nil {
		return nil, err
	}

	repos := uc.store.Repositories()
	d, err := repos.Disputes.FindByID(ctx, input.DisputeID)
	if err != nil {
		return nil, err
	}
	order, err := repos.Orders.FindByID(ctx, d.OrderID)
	if err != nil {
		return nil, err
	}

	expectedDispute := d.Status
	if err := d.Resolve(input.Actor.ID, decision, input.Notes); err != nil {
		return nil, err
	}
	if err := order.SettleDispute(decision); err != nil {
		return nil, err
	}

	var payment *entity.Payment
	err = uc.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Disputes.Update(ctx, d, expectedDispute); err != nil {
			return err
		}
		if err := repos.Orders.Update(ctx, order, valueobject.OrderStatusDisputed); err != nil {
			return err
		}

		var err error
		if decision == valueobject.DecisionReleaseToFulfiller {
			payment, err = uc.ledger.ReleaseOverride(ctx, repos, order, d)
		} else {
			payment, err = uc.ledger.RefundOverride(ctx, repos, order, d)
		}
		if err != nil {
			return err
		}

		uc.recorder.Audit(ctx, repos, input.Actor.Ref(), entity.AuditEntityDispute, d.ID, action, entity.AuditPayload{
			Before: map[string]string{
				"dispute_status": string(expectedDispute),
				"order_status":   string(valueobject.OrderStatusDisputed),
				"escrow_status":  string(valueobject.EscrowStatusHeld),
			},
			After: map[string]string{
				"dispute_status": string(d.Status),
				"order_status":   string(order.Status),
				"escrow_status":  string(payment.Status),
			},
			Reason: *d.ResolutionNotes,
			Metadata: map[string]string{
				"decision":    string(decision),
				"mediator_id": input.Actor.ID.String(),
				"order_id":    order.ID.String(),
				"payment_id":  payment.ID.String(),
			},
		})
		return uc.recorder.OrderChanged(ctx, repos, order, action)
	})
	if err != nil {
		return nil, err
	}
	return &ResolveResult{Dispute: d, Order: order, Payment: payment}, nil
}
