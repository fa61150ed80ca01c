package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

// ServiceSnapshot фиксирует данные услуги на момент создания заказа.
// Последующие правки каталога на размещенный заказ не влияют.
type ServiceSnapshot struct {
	Title       string
	Description string
	Category    string
	BasePrice   valueobject.Money
}

type Order struct {
	ID          uuid.UUID
	RequesterID uuid.UUID
	FulfillerID uuid.UUID
	ServiceID   uuid.UUID
	PricingMode valueobject.PricingMode
	ScheduledAt *time.Time
	Location    string
	Notes       string
	TotalAmount valueobject.Money
	Snapshot    ServiceSnapshot
	Status      valueobject.OrderStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type NewOrderParams struct {
	RequesterID uuid.UUID
	FulfillerID uuid.UUID
	ServiceID   uuid.UUID
	PricingMode string
	ScheduledAt *time.Time
	Location    string
	Notes       string
	TotalAmount valueobject.Money
}

// NewOrder создает заказ сразу в статусе sent: заказчик отправляет его исполнителю.
func NewOrder(p NewOrderParams, snapshot ServiceSnapshot) (*Order, error) {
	if p.RequesterID == uuid.Nil {
		return nil, apperror.Validation("не указан заказчик")
	}
	if p.FulfillerID == uuid.Nil {
		return nil, apperror.Validation("не указан исполнитель")
	}
	if p.ServiceID == uuid.Nil {
		return nil, apperror.Validation("не указана услуга")
	}
	if p.RequesterID == p.FulfillerID {
		return nil, apperror.Validation("заказчик и исполнитель должны различаться")
	}
	if strings.TrimSpace(p.PricingMode) == "" {
		return nil, apperror.Validation("не указан режим оплаты")
	}
	mode, err := valueobject.NewPricingMode(p.PricingMode)
	if err != nil {
		return nil, err
	}
	if p.TotalAmount < 0 {
		return nil, apperror.Validation("сумма заказа не может быть отрицательной")
	}

	now := time.Now().UTC()
	return &Order{
		ID:          uuid.New(),
		RequesterID: p.RequesterID,
		FulfillerID: p.FulfillerID,
		ServiceID:   p.ServiceID,
		PricingMode: mode,
		ScheduledAt: p.ScheduledAt,
		Location:    strings.TrimSpace(p.Location),
		Notes:       strings.TrimSpace(p.Notes),
		TotalAmount: p.TotalAmount,
		Snapshot:    snapshot,
		Status:      valueobject.OrderStatusSent,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (o *Order) IsParticipant(userID uuid.UUID) bool {
	return userID == o.RequesterID || userID == o.FulfillerID
}

// RoleOf возвращает роль пользователя в этом заказе.
func (o *Order) RoleOf(userID uuid.UUID) (valueobject.Role, bool) {
	switch userID {
	case o.RequesterID:
		return valueobject.RoleRequester, true
	case o.FulfillerID:
		return valueobject.RoleFulfiller, true
	}
	return "", false
}

func (o *Order) RequireFulfiller(actor uuid.UUID) error {
	if actor != o.FulfillerID {
		return apperror.New(apperror.ErrCodeForbidden, "операция доступна только исполнителю заказа")
	}
	return nil
}

func (o *Order) RequireRequester(actor uuid.UUID) error {
	if actor != o.RequesterID {
		return apperror.New(apperror.ErrCodeForbidden, "операция доступна только заказчику")
	}
	return nil
}

func (o *Order) transition(to valueobject.OrderStatus, message string) error {
	if !o.Status.CanTransitionTo(to) {
		return apperror.InvalidTransition(message + " в статусе " + string(o.Status))
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (o *Order) Accept(actor uuid.UUID) error {
	if err := o.RequireFulfiller(actor); err != nil {
		return err
	}
	if o.Status != valueobject.OrderStatusSent {
		return apperror.InvalidTransition("принять можно только отправленный заказ, текущий статус " + string(o.Status))
	}
	return o.transition(valueobject.OrderStatusAccepted, "невозможно принять заказ")
}

func (o *Order) Reject(actor uuid.UUID) error {
	if err := o.RequireFulfiller(actor); err != nil {
		return err
	}
	return o.transition(valueobject.OrderStatusRejected, "невозможно отклонить заказ")
}

// CounterOffer меняет сумму и возвращает заказ на согласование деталей.
func (o *Order) CounterOffer(actor uuid.UUID, amount valueobject.Money) error {
	if err := o.RequireFulfiller(actor); err != nil {
		return err
	}
	if amount < 0 {
		return apperror.Validation("сумма заказа не может быть отрицательной")
	}
	if o.Status != valueobject.OrderStatusSent && o.Status != valueobject.OrderStatusAccepted {
		return apperror.InvalidTransition("встречное предложение возможно только для статусов sent и accepted")
	}
	if err := o.transition(valueobject.OrderStatusAwaitingDetails, "невозможно сделать встречное предложение"); err != nil {
		return err
	}
	o.TotalAmount = amount
	return nil
}

func (o *Order) FinalizeDetails(actor uuid.UUID, scheduledAt *time.Time, location, notes string) error {
	if err := o.RequireRequester(actor); err != nil {
		return err
	}
	if o.Status != valueobject.OrderStatusAccepted && o.Status != valueobject.OrderStatusAwaitingDetails {
		return apperror.InvalidTransition("детали можно зафиксировать только после принятия заказа")
	}
	if err := o.transition(valueobject.OrderStatusAwaitingPayment, "невозможно зафиксировать детали"); err != nil {
		return err
	}
	if scheduledAt != nil {
		o.ScheduledAt = scheduledAt
	}
	if strings.TrimSpace(location) != "" {
		o.Location = strings.TrimSpace(location)
	}
	if strings.TrimSpace(notes) != "" {
		o.Notes = strings.TrimSpace(notes)
	}
	return nil
}

// MarkPaid переводит заказ в эскроу после успешного захвата средств.
func (o *Order) MarkPaid(actor uuid.UUID) error {
	if err := o.RequireRequester(actor); err != nil {
		return err
	}
	if o.Status != valueobject.OrderStatusAccepted && o.Status != valueobject.OrderStatusAwaitingPayment {
		return apperror.InvalidTransition("оплата возможна только из статусов accepted и awaiting_payment, текущий статус " + string(o.Status))
	}
	return o.transition(valueobject.OrderStatusPaidEscrowHeld, "невозможно оплатить заказ")
}

// Cancel допустим только до оплаты. После захвата средств возврат идет через спор.
func (o *Order) Cancel(actor uuid.UUID) error {
	if !o.IsParticipant(actor) {
		return apperror.ErrForbidden
	}
	if o.Status.IsPaymentBearing() {
		return apperror.Conflict("средства уже в эскроу, отмена возможна только через спор")
	}
	return o.transition(valueobject.OrderStatusCancelled, "невозможно отменить заказ")
}

func (o *Order) OpenDispute(actor uuid.UUID) error {
	if !o.IsParticipant(actor) {
		return apperror.ErrForbidden
	}
	if o.Status == valueobject.OrderStatusDisputed {
		return apperror.Conflict("по заказу уже открыт спор")
	}
	if !o.Status.IsPaymentBearing() {
		return apperror.InvalidTransition("спор можно открыть только по оплаченному незавершенному заказу")
	}
	return o.transition(valueobject.OrderStatusDisputed, "невозможно открыть спор")
}

func (o *Order) MarkStart(actor uuid.UUID) error {
	if err := o.RequireFulfiller(actor); err != nil {
		return err
	}
	if o.Status != valueobject.OrderStatusPaidEscrowHeld {
		return apperror.Conflict("начать работу можно только после оплаты, текущий статус " + string(o.Status))
	}
	return o.transition(valueobject.OrderStatusAwaitingStartConfirmation, "невозможно отметить начало работы")
}

func (o *Order) ConfirmStart(actor uuid.UUID) error {
	if err := o.RequireRequester(actor); err != nil {
		return err
	}
	if o.Status != valueobject.OrderStatusAwaitingStartConfirmation {
		return apperror.InvalidTransition("начало работы нельзя подтвердить в статусе " + string(o.Status))
	}
	return o.transition(valueobject.OrderStatusInExecution, "невозможно подтвердить начало работы")
}

func (o *Order) MarkFinish(actor uuid.UUID) error {
	if err := o.RequireFulfiller(actor); err != nil {
		return err
	}
	if o.Status != valueobject.OrderStatusInExecution {
		return apperror.InvalidTransition("завершить работу можно только в статусе in_execution, текущий статус " + string(o.Status))
	}
	return o.transition(valueobject.OrderStatusAwaitingFinishConfirmation, "невозможно отметить завершение работы")
}

func (o *Order) ConfirmFinish(actor uuid.UUID) error {
	if err := o.RequireRequester(actor); err != nil {
		return err
	}
	if o.Status != valueobject.OrderStatusAwaitingFinishConfirmation {
		return apperror.InvalidTransition("завершение нельзя подтвердить в статусе " + string(o.Status))
	}
	return o.transition(valueobject.OrderStatusCompleted, "невозможно подтвердить завершение")
}

// SettleDispute закрывает заказ по решению медиатора.
func (o *Order) SettleDispute(decision valueobject.DisputeDecision) error {
	if o.Status != valueobject.OrderStatusDisputed {
		return apperror.InvalidTransition("заказ не находится в споре")
	}
	target := valueobject.OrderStatusCancelled
	if decision == valueobject.DecisionReleaseToFulfiller {
		target = valueobject.OrderStatusCompleted
	}
	return o.transition(target, "невозможно применить решение по спору")
}
