package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := NewOrder(NewOrderParams{
		RequesterID: uuid.New(),
		FulfillerID: uuid.New(),
		ServiceID:   uuid.New(),
		PricingMode: "fixed",
		TotalAmount: 20000,
	}, ServiceSnapshot{Title: "Ремонт", BasePrice: 20000})
	require.NoError(t, err)
	return o
}

func TestNewOrder_Validation(t *testing.T) {
	requester, fulfiller, service := uuid.New(), uuid.New(), uuid.New()
	cases := []struct {
		name   string
		params NewOrderParams
	}{
		{"без услуги", NewOrderParams{RequesterID: requester, FulfillerID: fulfiller, PricingMode: "fixed"}},
		{"без исполнителя", NewOrderParams{RequesterID: requester, ServiceID: service, PricingMode: "fixed"}},
		{"без режима оплаты", NewOrderParams{RequesterID: requester, FulfillerID: fulfiller, ServiceID: service}},
		{"сам себе исполнитель", NewOrderParams{RequesterID: requester, FulfillerID: requester, ServiceID: service, PricingMode: "fixed"}},
		{"отрицательная сумма", NewOrderParams{RequesterID: requester, FulfillerID: fulfiller, ServiceID: service, PricingMode: "fixed", TotalAmount: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewOrder(tc.params, ServiceSnapshot{})
			assert.True(t, apperror.Is(err, apperror.ErrCodeValidation), "got %v", err)
		})
	}
}

func TestNewOrder_StartsSent(t *testing.T) {
	o := newTestOrder(t)
	assert.Equal(t, valueobject.OrderStatusSent, o.Status)
	assert.Equal(t, "Ремонт", o.Snapshot.Title)
}

func TestOrder_AcceptOnlyByFulfiller(t *testing.T) {
	o := newTestOrder(t)

	err := o.Accept(o.RequesterID)
	assert.True(t, apperror.Is(err, apperror.ErrCodeForbidden))
	assert.Equal(t, valueobject.OrderStatusSent, o.Status)

	require.NoError(t, o.Accept(o.FulfillerID))
	assert.Equal(t, valueobject.OrderStatusAccepted, o.Status)

	err = o.Accept(o.FulfillerID)
	assert.True(t, apperror.Is(err, apperror.ErrCodeInvalidStateTransition))
}

func TestOrder_CounterOfferChangesAmount(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.CounterOffer(o.FulfillerID, 25000))
	assert.Equal(t, valueobject.Money(25000), o.TotalAmount)
	assert.Equal(t, valueobject.OrderStatusAwaitingDetails, o.Status)

	err := o.CounterOffer(o.FulfillerID, 30000)
	assert.True(t, apperror.Is(err, apperror.ErrCodeInvalidStateTransition))
	assert.Equal(t, valueobject.Money(25000), o.TotalAmount)
}

func TestOrder_FinalizeDetailsOnlyRequester(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.Accept(o.FulfillerID))

	err := o.FinalizeDetails(o.FulfillerID, nil, "", "")
	assert.True(t, apperror.Is(err, apperror.ErrCodeForbidden))

	at := time.Now().Add(24 * time.Hour)
	require.NoError(t, o.FinalizeDetails(o.RequesterID, &at, " ул. Ленина, 1 ", "домофон 12"))
	assert.Equal(t, valueobject.OrderStatusAwaitingPayment, o.Status)
	assert.Equal(t, "ул. Ленина, 1", o.Location)
	assert.Equal(t, &at, o.ScheduledAt)
}

func TestOrder_CancelAfterPaymentIsConflict(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.Accept(o.FulfillerID))
	require.NoError(t, o.MarkPaid(o.RequesterID))

	err := o.Cancel(o.RequesterID)
	assert.True(t, apperror.Is(err, apperror.ErrCodeConflict))
	assert.Equal(t, valueobject.OrderStatusPaidEscrowHeld, o.Status)
}

func TestOrder_TerminalStatesAreFinal(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.Reject(o.FulfillerID))

	assert.Error(t, o.Accept(o.FulfillerID))
	assert.Error(t, o.Cancel(o.RequesterID))
	assert.Error(t, o.CounterOffer(o.FulfillerID, 1))
	assert.Error(t, o.OpenDispute(o.RequesterID))
	assert.Equal(t, valueobject.OrderStatusRejected, o.Status)
}

func TestOrder_OpenDisputeRequiresPayment(t *testing.T) {
	o := newTestOrder(t)
	err := o.OpenDispute(o.RequesterID)
	assert.True(t, apperror.Is(err, apperror.ErrCodeInvalidStateTransition))

	require.NoError(t, o.Accept(o.FulfillerID))
	require.NoError(t, o.MarkPaid(o.RequesterID))
	assert.True(t, apperror.Is(o.OpenDispute(uuid.New()), apperror.ErrCodeForbidden))
	require.NoError(t, o.OpenDispute(o.FulfillerID))
	assert.Equal(t, valueobject.OrderStatusDisputed, o.Status)

	assert.True(t, apperror.Is(o.OpenDispute(o.RequesterID), apperror.ErrCodeConflict))
	assert.True(t, apperror.Is(o.ConfirmFinish(o.RequesterID), apperror.ErrCodeInvalidStateTransition))
}

func TestOrder_MarkStartRequiresPaidOrder(t *testing.T) {
	o := newTestOrder(t)
	err := o.MarkStart(o.FulfillerID)
	assert.True(t, apperror.Is(err, apperror.ErrCodeConflict))
}

func TestOrder_SettleDispute(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.Accept(o.FulfillerID))
	require.NoError(t, o.MarkPaid(o.RequesterID))
	require.NoError(t, o.OpenDispute(o.RequesterID))

	release := *o
	require.NoError(t, release.SettleDispute(valueobject.DecisionReleaseToFulfiller))
	assert.Equal(t, valueobject.OrderStatusCompleted, release.Status)

	require.NoError(t, o.SettleDispute(valueobject.DecisionRefundToRequester))
	assert.Equal(t, valueobject.OrderStatusCancelled, o.Status)
}
