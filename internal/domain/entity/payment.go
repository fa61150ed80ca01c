package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

// Payment - эскроу-запись заказа. Комиссия и выплата считаются один раз при захвате.
type Payment struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	GrossAmount    valueobject.Money
	OperatorFee    valueobject.Money
	NetAmount      valueobject.Money
	FeeBps         int64
	Status         valueobject.EscrowStatus
	Method         string
	Reference      string
	TransactionRef string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewHeldPayment(orderID uuid.UUID, gross valueobject.Money, policy valueobject.FeePolicy, method, reference, transactionRef string) (*Payment, error) {
	if gross < 0 {
		return nil, apperror.Validation("сумма платежа не может быть отрицательной")
	}
	if strings.TrimSpace(method) == "" {
		return nil, apperror.Validation("не указан способ оплаты")
	}
	fee, net := policy.Split(gross)
	now := time.Now().UTC()
	return &Payment{
		ID:             uuid.New(),
		OrderID:        orderID,
		GrossAmount:    gross,
		OperatorFee:    fee,
		NetAmount:      net,
		FeeBps:         policy.Bps,
		Status:         valueobject.EscrowStatusHeld,
		Method:         strings.TrimSpace(method),
		Reference:      reference,
		TransactionRef: transactionRef,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (p *Payment) setStatus(to valueobject.EscrowStatus) {
	p.Status = to
	p.UpdatedAt = time.Now().UTC()
}

// Release выпускает средства исполнителю. Без двух подтверждений завершения не проходит.
func (p *Payment) Release(exec *Execution) error {
	if p.Status != valueobject.EscrowStatusHeld {
		return apperror.Conflict("средства не находятся в эскроу, статус " + string(p.Status))
	}
	if exec == nil || !exec.FinishConfirmed() {
		return apperror.Conflict("выплата невозможна без подтверждения завершения обеими сторонами")
	}
	p.setStatus(valueobject.EscrowStatusReleased)
	return nil
}

// ReleaseOverride - выплата по решению медиатора, минуя подтверждения.
func (p *Payment) ReleaseOverride() error {
	if p.Status != valueobject.EscrowStatusHeld {
		return apperror.Conflict("средства не находятся в эскроу, статус " + string(p.Status))
	}
	p.setStatus(valueobject.EscrowStatusReleased)
	return nil
}

func (p *Payment) RefundOverride() error {
	if p.Status != valueobject.EscrowStatusHeld {
		return apperror.Conflict("средства не находятся в эскроу, статус " + string(p.Status))
	}
	p.setStatus(valueobject.EscrowStatusRefunded)
	return nil
}

// Hold возвращает true, если статус действительно изменился.
// Повторный hold для held ничего не меняет и ошибкой не считается.
func (p *Payment) Hold(override bool, reason string) (bool, error) {
	switch p.Status {
	case valueobject.EscrowStatusHeld:
		return false, nil
	case valueobject.EscrowStatusReleased, valueobject.EscrowStatusRefunded:
		if !override {
			return false, apperror.New(apperror.ErrCodeForbidden, "повторное удержание доступно только медиатору")
		}
		if strings.TrimSpace(reason) == "" {
			return false, apperror.Validation("для повторного удержания нужна причина")
		}
		p.setStatus(valueobject.EscrowStatusHeld)
		return true, nil
	}
	return false, apperror.InvalidTransition("удержание невозможно из статуса " + string(p.Status))
}
