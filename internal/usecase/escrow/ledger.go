package escrow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/gateway"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/metrics"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Fees       valueobject.FeePolicy
	MaxRetries int
	RetryDelay time.Duration
}

// Ledger - единственный, кто меняет статус хранения средств.
// Все методы работают внутри транзакции вызывающей операции; ошибка шлюза
// возвращается до записи платежа, и транзакция откатывается целиком.
type Ledger struct {
	gateway gateway.PaymentGateway
	cfg     Config
	metrics *metrics.EscrowMetrics
}

func NewLedger(gw gateway.PaymentGateway, cfg Config, m *metrics.EscrowMetrics) (*Ledger, error) {
	if gw == nil {
		return nil, errors.New("платежный шлюз не задан")
	}
	if _, err := valueobject.NewFeePolicy(cfg.Fees.Bps); err != nil {
		return nil, err
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return &Ledger{gateway: gw, cfg: cfg, metrics: m}, nil
}

func (l *Ledger) Fees() valueobject.FeePolicy {
	return l.cfg.Fees
}

// Capture списывает средства заказчика и создает платеж в статусе held.
func (l *Ledger) Capture(ctx context.Context, repos repository.Repositories, order *entity.Order, method string) (*entity.Payment, error) {
	if method == "" {
		return nil, apperror.Validation("не указан способ оплаты")
	}
	if _, err := repos.Payments.FindByOrderID(ctx, order.ID); err == nil {
		return nil, apperror.Conflict("по заказу уже есть платеж")
	} else if !apperror.IsNotFound(err) {
		return nil, err
	}

	// Ссылка выводится из заказа: повторный захват после отката транзакции
	// уходит с тем же ключом идемпотентности, и шлюз не списывает деньги дважды.
	reference := CaptureReference(order.ID)
	var result gateway.CaptureResult
	err := l.withRetry(ctx, "capture", func() error {
		var err error
		result, err = l.gateway.Capture(ctx, gateway.CaptureRequest{
			Amount:    order.TotalAmount,
			Method:    method,
			Reference: reference,
		})
		return err
	})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodePaymentGateway, "платежный шлюз не подтвердил списание")
	}

	payment, err := entity.NewHeldPayment(order.ID, order.TotalAmount, l.cfg.Fees, method, reference, result.TransactionID)
	if err != nil {
		return nil, err
	}
	if err := repos.Payments.Create(ctx, payment); err != nil {
		return nil, err
	}
	l.metrics.EscrowAmount("held", int64(payment.GrossAmount), 0)
	return payment, nil
}

func CaptureReference(orderID uuid.UUID) string {
	return "cap_" + orderID.String()
}

// Release - обычная выплата исполнителю после двустороннего подтверждения завершения.
func (l *Ledger) Release(ctx context.Context, repos repository.Repositories, order *entity.Order, exec *entity.Execution) (*entity.Payment, error) {
	if order.Status == valueobject.OrderStatusDisputed {
		return nil, apperror.Conflict("по заказу открыт спор, операции с эскроу заморожены")
	}
	payment, err := repos.Payments.FindByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if err := payment.Release(exec); err != nil {
		return nil, err
	}
	if err := l.payout(ctx, payment.NetAmount, "user:"+order.FulfillerID.String(), "rel_"+payment.Reference); err != nil {
		return nil, err
	}
	if err := repos.Payments.Update(ctx, payment, valueobject.EscrowStatusHeld); err != nil {
		return nil, err
	}
	l.metrics.EscrowAmount("released", int64(payment.NetAmount), int64(payment.OperatorFee))
	return payment, nil
}

// ReleaseOverride - выплата по решению медиатора. Проверка подтверждений здесь
// намеренно отсутствует, поэтому метод требует разрешенный спор по этому заказу.
func (l *Ledger) ReleaseOverride(ctx context.Context, repos repository.Repositories, order *entity.Order, dispute *entity.Dispute) (*entity.Payment, error) {
	payment, err := l.overridePayment(ctx, repos, order, dispute, valueobject.DecisionReleaseToFulfiller)
	if err != nil {
		return nil, err
	}
	if err := payment.ReleaseOverride(); err != nil {
		return nil, err
	}
	if err := l.payout(ctx, payment.NetAmount, "user:"+order.FulfillerID.String(), "rel_"+payment.Reference); err != nil {
		return nil, err
	}
	if err := repos.Payments.Update(ctx, payment, valueobject.EscrowStatusHeld); err != nil {
		return nil, err
	}
	l.metrics.EscrowAmount("released_override", int64(payment.NetAmount), int64(payment.OperatorFee))
	return payment, nil
}

// RefundOverride возвращает заказчику всю сумму по решению медиатора.
func (l *Ledger) RefundOverride(ctx context.Context, repos repository.Repositories, order *entity.Order, dispute *entity.Dispute) (*entity.Payment, error) {
	payment, err := l.overridePayment(ctx, repos, order, dispute, valueobject.DecisionRefundToRequester)
	if err != nil {
		return nil, err
	}
	if err := payment.RefundOverride(); err != nil {
		return nil, err
	}
	if err := l.payout(ctx, payment.GrossAmount, "refund:"+payment.TransactionRef, "ref_"+payment.Reference); err != nil {
		return nil, err
	}
	if err := repos.Payments.Update(ctx, payment, valueobject.EscrowStatusHeld); err != nil {
		return nil, err
	}
	l.metrics.EscrowAmount("refunded", int64(payment.GrossAmount), 0)
	return payment, nil
}

func (l *Ledger) overridePayment(ctx context.Context, repos repository.Repositories, order *entity.Order, dispute *entity.Dispute, decision valueobject.DisputeDecision) (*entity.Payment, error) {
	if dispute == nil || dispute.OrderID != order.ID || dispute.Status != valueobject.DisputeStatusResolved ||
		dispute.Decision == nil || *dispute.Decision != decision || dispute.ResolutionNotes == nil {
		return nil, apperror.New(apperror.ErrCodeForbidden, "обход подтверждений возможен только по решению медиатора")
	}
	return repos.Payments.FindByOrderID(ctx, order.ID)
}

// Hold возвращает средства в удержание. Для held это пустая операция.
func (l *Ledger) Hold(ctx context.Context, repos repository.Repositories, payment *entity.Payment, mediatorOverride bool, reason string) (bool, error) {
	expected := payment.Status
	changed, err := payment.Hold(mediatorOverride, reason)
	if err != nil || !changed {
		return false, err
	}
	if err := repos.Payments.Update(ctx, payment, expected); err != nil {
		return false, err
	}
	return true, nil
}

func (l *Ledger) payout(ctx context.Context, amount valueobject.Money, destination, reference string) error {
	err := l.withRetry(ctx, "payout", func() error {
		return l.gateway.Payout(ctx, gateway.PayoutRequest{Amount: amount, Destination: destination, Reference: reference})
	})
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodePayoutGateway, "шлюз выплат не подтвердил операцию")
	}
	return nil
}

// withRetry повторяет временные ошибки шлюза с линейной задержкой.
func (l *Ledger) withRetry(ctx context.Context, call string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= l.cfg.MaxRetries; attempt++ {
		started := time.Now()
		err = fn()
		l.metrics.ObserveGateway(call, started, err)
		if err == nil || errors.Is(err, gateway.ErrDeclined) {
			return err
		}
		logger.Get().WithFields(logrus.Fields{
			"call":    call,
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("шлюз: временная ошибка")

		if attempt < l.cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * l.cfg.RetryDelay):
			}
		}
	}
	return err
}
