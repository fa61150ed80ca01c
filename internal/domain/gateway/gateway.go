package gateway

import (
	"context"
	"errors"

	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
)

// ErrDeclined - окончательный отказ шлюза. Повторять такой вызов бессмысленно.
var ErrDeclined = errors.New("gateway: операция отклонена")

type CaptureRequest struct {
	Amount    valueobject.Money
	Method    string
	Reference string
}

type CaptureResult struct {
	TransactionID string
}

type PayoutRequest struct {
	Amount      valueobject.Money
	Destination string
	Reference   string
}

// PaymentGateway - синхронный внешний шлюз. Вызов либо полностью успешен, либо нет.
type PaymentGateway interface {
	Capture(ctx context.Context, req CaptureRequest) (CaptureResult, error)
	Payout(ctx context.Context, req PayoutRequest) error
}
