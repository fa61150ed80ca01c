package escrow_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/usecase/dispute"
	"github.com/ignatzorin/escrow-backend/internal/usecase/escrow"
	"github.com/ignatzorin/escrow-backend/internal/usecase/usecasetest"
)

func TestHold_OnHeldPaymentIsNoop(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()
	paid := env.PaidOrder(t, 20000)
	auditBefore := len(env.Audit(t, repository.AuditFilter{}))

	for i := 0; i < 2; i++ {
		p, err := env.Hold.Execute(ctx, escrow.HoldPaymentInput{PaymentID: paid.Payment.ID, Actor: env.Mediator, Reason: "проверка"})
		require.NoError(t, err)
		assert.Equal(t, valueobject.EscrowStatusHeld, p.Status)
		assert.Equal(t, paid.Payment.UpdatedAt, p.UpdatedAt)
	}
	assert.Len(t, env.Audit(t, repository.AuditFilter{}), auditBefore)
}

func TestHold_OverrideAfterRefund(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()
	paid := env.PaidOrder(t, 20000)
	opened, err := env.OpenDispute.Execute(ctx, dispute.OpenDisputeInput{OrderID: paid.Order.ID, Actor: env.Requester, Reason: "no-show"})
	require.NoError(t, err)
	_, err = env.Resolve.Execute(ctx, dispute.ResolveInput{DisputeID: opened.Dispute.ID, Actor: env.Mediator, Decision: "refund_to_requester", Notes: "verified no-show"})
	require.NoError(t, err)

	_, err = env.Hold.Execute(ctx, escrow.HoldPaymentInput{PaymentID: paid.Payment.ID, Actor: env.Requester, Reason: "верните"})
	assert.True(t, apperror.Is(err, apperror.ErrCodeForbidden))

	_, err = env.Hold.Execute(ctx, escrow.HoldPaymentInput{PaymentID: paid.Payment.ID, Actor: env.Mediator})
	assert.True(t, apperror.Is(err, apperror.ErrCodeValidation))

	p, err := env.Hold.Execute(ctx, escrow.HoldPaymentInput{PaymentID: paid.Payment.ID, Actor: env.Mediator, Reason: "chargeback от банка"})
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusHeld, p.Status)

	entries := env.Audit(t, repository.AuditFilter{EntityID: &paid.Payment.ID})
	require.Len(t, entries, 1)
	assert.Equal(t, "payment.hold_override", entries[0].Action)
	assert.Contains(t, string(entries[0].Payload), "chargeback от банка")
}

func TestHold_UnknownPayment(t *testing.T) {
	env := usecasetest.New(t)
	_, err := env.Hold.Execute(context.Background(), escrow.HoldPaymentInput{PaymentID: uuid.New(), Actor: env.Mediator, Reason: "проверка"})
	assert.True(t, apperror.IsNotFound(err))
}

func TestLedger_FeeFixedAtCapture(t *testing.T) {
	env := usecasetest.New(t, usecasetest.WithFee(1500))
	paid := env.PaidOrder(t, 10000)

	assert.Equal(t, int64(1500), paid.Payment.FeeBps)
	assert.Equal(t, valueobject.Money(1500), paid.Payment.OperatorFee)
	assert.Equal(t, valueobject.Money(8500), paid.Payment.NetAmount)
	assert.Equal(t, int64(1500), env.Ledger.Fees().Bps)
}
