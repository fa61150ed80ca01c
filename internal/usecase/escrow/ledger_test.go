package escrow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/gateway"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Capture(ctx context.Context, req gateway.CaptureRequest) (gateway.CaptureResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(gateway.CaptureResult), args.Error(1)
}

func (m *mockGateway) Payout(ctx context.Context, req gateway.PayoutRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func newTestLedger(t *testing.T, gw gateway.PaymentGateway, retries int) *Ledger {
	t.Helper()
	fees, err := valueobject.NewFeePolicy(1000)
	require.NoError(t, err)
	l, err := NewLedger(gw, Config{Fees: fees, MaxRetries: retries}, nil)
	require.NoError(t, err)
	return l
}

func awaitingPayment(amount valueobject.Money) *entity.Order {
	return &entity.Order{
		ID:          uuid.New(),
		RequesterID: uuid.New(),
		FulfillerID: uuid.New(),
		TotalAmount: amount,
		Status:      valueobject.OrderStatusAwaitingPayment,
	}
}

func inTx(t *testing.T, store *memory.Store, fn func(repos repository.Repositories) error) error {
	t.Helper()
	return store.WithinTx(context.Background(), func(_ context.Context, repos repository.Repositories) error {
		return fn(repos)
	})
}

func TestLedger_Capture_SplitsFee(t *testing.T) {
	order := awaitingPayment(150000)
	gw := new(mockGateway)
	gw.On("Capture", mock.Anything, mock.MatchedBy(func(req gateway.CaptureRequest) bool {
		return req.Amount == 150000 && req.Method == "card" && req.Reference == "cap_"+order.ID.String()
	})).Return(gateway.CaptureResult{TransactionID: "tx_1"}, nil).Once()

	store := memory.NewStore()
	ledger := newTestLedger(t, gw, 3)

	var payment *entity.Payment
	require.NoError(t, inTx(t, store, func(repos repository.Repositories) error {
		var err error
		payment, err = ledger.Capture(context.Background(), repos, order, "card")
		return err
	}))

	assert.Equal(t, valueobject.EscrowStatusHeld, payment.Status)
	assert.Equal(t, valueobject.Money(15000), payment.OperatorFee)
	assert.Equal(t, valueobject.Money(135000), payment.NetAmount)
	assert.Equal(t, "tx_1", payment.TransactionRef)
	gw.AssertExpectations(t)

	stored, err := store.Repositories().Payments.FindByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, stored.ID)
}

func TestLedger_Capture_DeclinedIsNotRetried(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Capture", mock.Anything, mock.Anything).
		Return(gateway.CaptureResult{}, fmt.Errorf("%w: insufficient funds", gateway.ErrDeclined))

	store := memory.NewStore()
	ledger := newTestLedger(t, gw, 3)
	order := awaitingPayment(5000)

	err := inTx(t, store, func(repos repository.Repositories) error {
		_, err := ledger.Capture(context.Background(), repos, order, "card")
		return err
	})

	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.ErrCodePaymentGateway))
	gw.AssertNumberOfCalls(t, "Capture", 1)

	_, err = store.Repositories().Payments.FindByOrderID(context.Background(), order.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestNewLedger_RejectsBadConfig(t *testing.T) {
	_, err := NewLedger(nil, Config{}, nil)
	assert.Error(t, err)

	_, err = NewLedger(new(mockGateway), Config{Fees: valueobject.FeePolicy{Bps: 20000}}, nil)
	assert.True(t, apperror.Is(err, apperror.ErrCodeValidation))
}

func TestLedger_Capture_RetriesTransientErrors(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Capture", mock.Anything, mock.Anything).Return(gateway.CaptureResult{}, errors.New("timeout")).Twice()
	gw.On("Capture", mock.Anything, mock.Anything).Return(gateway.CaptureResult{TransactionID: "tx_3"}, nil).Once()

	store := memory.NewStore()
	ledger := newTestLedger(t, gw, 3)

	err := inTx(t, store, func(repos repository.Repositories) error {
		_, err := ledger.Capture(context.Background(), repos, awaitingPayment(5000), "card")
		return err
	})

	require.NoError(t, err)
	gw.AssertNumberOfCalls(t, "Capture", 3)
}

func TestLedger_Release_RequiresFinishConfirmation(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Capture", mock.Anything, mock.Anything).Return(gateway.CaptureResult{TransactionID: "tx_1"}, nil)
	gw.On("Payout", mock.Anything, mock.Anything).Return(nil)

	store := memory.NewStore()
	ledger := newTestLedger(t, gw, 1)
	order := awaitingPayment(10000)
	require.NoError(t, inTx(t, store, func(repos repository.Repositories) error {
		_, err := ledger.Capture(context.Background(), repos, order, "card")
		return err
	}))

	exec := entity.NewExecution(order.ID)
	err := inTx(t, store, func(repos repository.Repositories) error {
		_, err := ledger.Release(context.Background(), repos, order, exec)
		return err
	})
	require.Error(t, err)
	gw.AssertNotCalled(t, "Payout", mock.Anything, mock.Anything)

	order.Status = valueobject.OrderStatusDisputed
	err = inTx(t, store, func(repos repository.Repositories) error {
		_, err := ledger.Release(context.Background(), repos, order, exec)
		return err
	})
	assert.True(t, apperror.IsConflict(err))
}

func TestLedger_RefundOverride_RequiresMatchingDecision(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Capture", mock.Anything, mock.Anything).Return(gateway.CaptureResult{TransactionID: "tx_9"}, nil)
	gw.On("Payout", mock.Anything, mock.MatchedBy(func(req gateway.PayoutRequest) bool {
		return req.Amount == 10000 && req.Destination == "refund:tx_9"
	})).Return(nil).Once()

	store := memory.NewStore()
	ledger := newTestLedger(t, gw, 1)
	order := awaitingPayment(10000)
	require.NoError(t, inTx(t, store, func(repos repository.Repositories) error {
		_, err := ledger.Capture(context.Background(), repos, order, "card")
		return err
	}))

	d, err := entity.NewDispute(order.ID, order.RequesterID, valueobject.RoleRequester, "работа не выполнена")
	require.NoError(t, err)

	// спор не разрешен
	err = inTx(t, store, func(repos repository.Repositories) error {
		_, err := ledger.RefundOverride(context.Background(), repos, order, d)
		return err
	})
	assert.True(t, apperror.IsForbidden(err))

	require.NoError(t, d.Resolve(uuid.New(), valueobject.DecisionReleaseToFulfiller, "работа принята по фото"))
	err = inTx(t, store, func(repos repository.Repositories) error {
		_, err := ledger.RefundOverride(context.Background(), repos, order, d)
		return err
	})
	assert.True(t, apperror.IsForbidden(err))

	d.Decision = new(valueobject.DisputeDecision)
	*d.Decision = valueobject.DecisionRefundToRequester
	var refunded *entity.Payment
	require.NoError(t, inTx(t, store, func(repos repository.Repositories) error {
		var err error
		refunded, err = ledger.RefundOverride(context.Background(), repos, order, d)
		return err
	}))
	assert.Equal(t, valueobject.EscrowStatusRefunded, refunded.Status)
	gw.AssertExpectations(t)
}
