package escrow

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/usecase/lifecycle"
	"github.com/sirupsen/logrus"
)

type HoldPaymentInput struct {
	PaymentID uuid.UUID
	Actor     lifecycle.Actor
	Reason    string
}

// HoldPaymentUseCase - ручное удержание средств медиатором на время разбирательства.
type HoldPaymentUseCase struct {
	store    repository.Store
	ledger   *Ledger
	recorder *lifecycle.Recorder
}

func NewHoldPaymentUseCase(store repository.Store, ledger *Ledger, recorder *lifecycle.Recorder) *HoldPaymentUseCase {
	return &HoldPaymentUseCase{store: store, ledger: ledger, recorder: recorder}
}

func (uc *HoldPaymentUseCase) Execute(ctx context.Context, input HoldPaymentInput) (*entity.Payment, error) {
	const action = "payment.hold"
	if err := input.Actor.RequireMediator(); err != nil {
		uc.recorder.Fail(action, err)
		return nil, err
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		err := apperror.Validation("укажите причину удержания")
		uc.recorder.Fail(action, err)
		return nil, err
	}

	payment, err := uc.store.Repositories().Payments.FindByID(ctx, input.PaymentID)
	if err != nil {
		uc.recorder.Fail(action, err)
		return nil, err
	}
	before := payment.Status

	err = uc.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		changed, err := uc.ledger.Hold(ctx, repos, payment, true, reason)
		if err != nil || !changed {
			return err
		}
		uc.recorder.Audit(ctx, repos, input.Actor.Ref(), entity.AuditEntityPayment, payment.ID, "payment.hold_override", entity.AuditPayload{
			Before:   map[string]string{"escrow_status": string(before)},
			After:    map[string]string{"escrow_status": string(payment.Status)},
			Reason:   reason,
			Metadata: map[string]string{"order_id": payment.OrderID.String(), "mediator_id": input.Actor.ID.String()},
		})
		return nil
	})
	if err != nil {
		uc.recorder.Fail(action, err)
		return nil, err
	}

	if before != payment.Status {
		logger.Get().WithFields(logrus.Fields{
			"payment_id": payment.ID,
			"order_id":   payment.OrderID,
			"user_id":    input.Actor.ID,
			"from":       before,
			"to":         payment.Status,
		}).Warn("эскроу: средства возвращены в удержание медиатором")
	}
	return payment, nil
}
