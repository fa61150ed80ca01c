package execution_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-backend/internal/domain/gateway"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/usecase/usecasetest"
)

// markStart -> confirmStart -> markFinish -> confirmFinish из paid_escrow_held
func TestScenario_HandshakeReleasesFunds(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()
	paid := env.PaidOrder(t, 20000)
	id := paid.Order.ID

	started, err := env.MarkStart.Execute(ctx, id, env.Fulfiller)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusAwaitingStartConfirmation, started.Order.Status)
	require.NotNil(t, started.Execution.StartedAt)

	confirmed, err := env.ConfirmStart.Execute(ctx, id, env.Requester)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusInExecution, confirmed.Order.Status)

	finished, err := env.MarkFinish.Execute(ctx, id, env.Fulfiller)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusAwaitingFinishConfirmation, finished.Order.Status)
	require.NotNil(t, finished.Execution.EndedAt)
	assert.False(t, finished.Execution.EndedAt.Before(*finished.Execution.StartedAt))

	done, err := env.ConfirmFinish.Execute(ctx, id, env.Requester)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusCompleted, done.Order.Status)
	assert.Equal(t, valueobject.EscrowStatusReleased, done.Payment.Status)
	assert.True(t, done.Execution.FinishConfirmed())

	require.Len(t, env.Gateway.Payouts, 1)
	assert.Equal(t, paid.Payment.NetAmount, env.Gateway.Payouts[0].Amount)
	assert.Equal(t, valueobject.Money(18000), env.Gateway.Payouts[0].Amount)

	entries := env.Audit(t, repository.AuditFilter{EntityID: &id})
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{
		"order.submit", "order.accept", "order.capture_payment",
		"execution.mark_start", "execution.confirm_start",
		"execution.mark_finish", "execution.confirm_finish",
	}, actions)

	_, err = env.ConfirmFinish.Execute(ctx, id, env.Requester)
	assert.True(t, apperror.Is(err, apperror.ErrCodeInvalidStateTransition))
	assert.Len(t, env.Gateway.Payouts, 1)
}

func TestMarkStart_BeforePaymentIsConflict(t *testing.T) {
	env := usecasetest.New(t)
	o := env.SentOrder(t, 20000)

	_, err := env.MarkStart.Execute(context.Background(), o.ID, env.Fulfiller)
	assert.True(t, apperror.Is(err, apperror.ErrCodeConflict), "got %v", err)
}

func TestConfirmStart_WithoutMarkIsConflict(t *testing.T) {
	env := usecasetest.New(t)
	paid := env.PaidOrder(t, 20000)

	_, err := env.ConfirmStart.Execute(context.Background(), paid.Order.ID, env.Requester)
	assert.True(t, apperror.Is(err, apperror.ErrCodeConflict), "got %v", err)
	assert.Equal(t, valueobject.OrderStatusPaidEscrowHeld, env.Order(t, paid.Order.ID).Status)
}

func TestHandshake_RolesAreEnforced(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()
	paid := env.PaidOrder(t, 20000)
	id := paid.Order.ID

	_, err := env.MarkStart.Execute(ctx, id, env.Requester)
	assert.True(t, apperror.Is(err, apperror.ErrCodeForbidden))

	_, err = env.MarkStart.Execute(ctx, id, env.Fulfiller)
	require.NoError(t, err)
	_, err = env.ConfirmStart.Execute(ctx, id, env.Fulfiller)
	assert.True(t, apperror.Is(err, apperror.ErrCodeForbidden))
}

func TestConfirmFinish_PayoutFailureRollsBack(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()
	o := env.InExecution(t, 20000)
	_, err := env.MarkFinish.Execute(ctx, o.ID, env.Fulfiller)
	require.NoError(t, err)

	env.Gateway.PayoutErr = gateway.ErrDeclined
	_, err = env.ConfirmFinish.Execute(ctx, o.ID, env.Requester)
	assert.True(t, apperror.Is(err, apperror.ErrCodePayoutGateway), "got %v", err)

	assert.Equal(t, valueobject.OrderStatusAwaitingFinishConfirmation, env.Order(t, o.ID).Status)
	exec, err := env.Store.Repositories().Executions.FindByOrderID(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, exec.RequesterConfirmedFinish)
	payment, err := env.Store.Repositories().Payments.FindByOrderID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusHeld, payment.Status)

	env.Gateway.PayoutErr = nil
	done, err := env.ConfirmFinish.Execute(ctx, o.ID, env.Requester)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusReleased, done.Payment.Status)
}

func TestConfirmFinish_FrozenByDispute(t *testing.T) {
	env := usecasetest.New(t)
	ctx := context.Background()
	o := env.InExecution(t, 20000)
	_, err := env.MarkFinish.Execute(ctx, o.ID, env.Fulfiller)
	require.NoError(t, err)

	_, err = env.OpenDispute.Execute(ctx, disputeInput(o.ID, env))
	require.NoError(t, err)

	_, err = env.ConfirmFinish.Execute(ctx, o.ID, env.Requester)
	assert.True(t, apperror.Is(err, apperror.ErrCodeInvalidStateTransition))
	assert.Empty(t, env.Gateway.Payouts)
}
