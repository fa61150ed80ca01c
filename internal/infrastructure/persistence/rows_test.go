package persistence

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

func TestDBError(t *testing.T) {
	assert.NoError(t, dbError(nil, "x"))

	// доменные ошибки проходят без обертки
	assert.Same(t, apperror.ErrConcurrentUpdate, dbError(apperror.ErrConcurrentUpdate, "x"))

	err := dbError(errors.New("pq: connection refused"), "не удалось получить заказ")
	assert.True(t, apperror.Is(err, apperror.ErrCodeDatabaseError))
	assert.EqualError(t, errors.Unwrap(err), "pq: connection refused")
}

func TestDisputeRow_Decision(t *testing.T) {
	row := disputeRow{ID: uuid.New(), Status: "open", OpenerRole: "requester"}
	d := row.toEntity()
	assert.Nil(t, d.Decision)
	assert.Nil(t, decisionValue(d.Decision))

	decision := string(valueobject.DecisionReleaseToFulfiller)
	row.Status, row.Decision = "resolved", &decision
	d = row.toEntity()
	require.NotNil(t, d.Decision)
	assert.Equal(t, valueobject.DecisionReleaseToFulfiller, *d.Decision)
	assert.Equal(t, valueobject.DisputeStatusResolved, d.Status)
	assert.Equal(t, &decision, decisionValue(d.Decision))
}

func TestPaymentRow_ToEntity(t *testing.T) {
	now := time.Now().UTC()
	p := paymentRow{
		ID: uuid.New(), OrderID: uuid.New(), GrossAmount: 150000, OperatorFee: 15000, NetAmount: 135000,
		FeeBps: 1000, Status: "held", Method: "card", Reference: "cap_1", TransactionRef: "tx_1",
		CreatedAt: now, UpdatedAt: now,
	}.toEntity()

	assert.Equal(t, valueobject.EscrowStatusHeld, p.Status)
	assert.Equal(t, p.GrossAmount, p.OperatorFee+p.NetAmount)
	assert.Equal(t, "tx_1", p.TransactionRef)
}
