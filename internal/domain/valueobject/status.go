package valueobject

import "github.com/ignatzorin/escrow-backend/internal/pkg/apperror"

type OrderStatus string

const (
	OrderStatusDraft                      OrderStatus = "draft"
	OrderStatusSent                       OrderStatus = "sent"
	OrderStatusAccepted                   OrderStatus = "accepted"
	OrderStatusRejected                   OrderStatus = "rejected"
	OrderStatusAwaitingDetails            OrderStatus = "awaiting_details"
	OrderStatusAwaitingPayment            OrderStatus = "awaiting_payment"
	OrderStatusPaidEscrowHeld             OrderStatus = "paid_escrow_held"
	OrderStatusAwaitingStartConfirmation  OrderStatus = "awaiting_start_confirmation"
	OrderStatusInExecution                OrderStatus = "in_execution"
	OrderStatusAwaitingFinishConfirmation OrderStatus = "awaiting_finish_confirmation"
	OrderStatusCompleted                  OrderStatus = "completed"
	OrderStatusDisputed                   OrderStatus = "disputed"
	OrderStatusCancelled                  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusDraft:                      {OrderStatusSent, OrderStatusCancelled},
	OrderStatusSent:                       {OrderStatusAccepted, OrderStatusRejected, OrderStatusAwaitingDetails, OrderStatusCancelled},
	OrderStatusAccepted:                   {OrderStatusAwaitingDetails, OrderStatusAwaitingPayment, OrderStatusPaidEscrowHeld, OrderStatusCancelled},
	OrderStatusAwaitingDetails:            {OrderStatusAwaitingPayment, OrderStatusCancelled},
	OrderStatusAwaitingPayment:            {OrderStatusPaidEscrowHeld, OrderStatusCancelled},
	OrderStatusPaidEscrowHeld:             {OrderStatusAwaitingStartConfirmation, OrderStatusDisputed},
	OrderStatusAwaitingStartConfirmation:  {OrderStatusInExecution, OrderStatusDisputed},
	OrderStatusInExecution:                {OrderStatusAwaitingFinishConfirmation, OrderStatusDisputed},
	OrderStatusAwaitingFinishConfirmation: {OrderStatusCompleted, OrderStatusDisputed},
	// выход из спора только через решение медиатора
	OrderStatusDisputed:  {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted: {},
	OrderStatusRejected:  {},
	OrderStatusCancelled: {},
}

func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusDraft, OrderStatusSent, OrderStatusAccepted, OrderStatusRejected,
		OrderStatusAwaitingDetails, OrderStatusAwaitingPayment, OrderStatusPaidEscrowHeld,
		OrderStatusAwaitingStartConfirmation, OrderStatusInExecution,
		OrderStatusAwaitingFinishConfirmation, OrderStatusCompleted, OrderStatusDisputed,
		OrderStatusCancelled,
	}
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal сообщает, что из статуса нет ни одного перехода.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusRejected, OrderStatusCancelled:
		return true
	}
	return false
}

// IsPaymentBearing сообщает, что по заказу уже захвачены средства и они находятся в эскроу.
func (s OrderStatus) IsPaymentBearing() bool {
	switch s {
	case OrderStatusPaidEscrowHeld, OrderStatusAwaitingStartConfirmation,
		OrderStatusInExecution, OrderStatusAwaitingFinishConfirmation, OrderStatusDisputed:
		return true
	}
	return false
}

func (s OrderStatus) IsPrePayment() bool {
	switch s {
	case OrderStatusDraft, OrderStatusSent, OrderStatusAccepted,
		OrderStatusAwaitingDetails, OrderStatusAwaitingPayment:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	for _, status := range orderTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

func NewOrderStatus(status string) (OrderStatus, error) {
	s := OrderStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заказа")
	}
	return s, nil
}

type EscrowStatus string

const (
	EscrowStatusPending  EscrowStatus = "pending"
	EscrowStatusHeld     EscrowStatus = "held"
	EscrowStatusReleased EscrowStatus = "released"
	EscrowStatusFailed   EscrowStatus = "failed"
	EscrowStatusRefunded EscrowStatus = "refunded"
)

func (s EscrowStatus) IsValid() bool {
	switch s {
	case EscrowStatusPending, EscrowStatusHeld, EscrowStatusReleased, EscrowStatusFailed, EscrowStatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo описывает обычный граф хранения средств.
// Возврат в held из released/refunded сюда не входит: это отдельное действие медиатора.
func (s EscrowStatus) CanTransitionTo(newStatus EscrowStatus) bool {
	switch s {
	case EscrowStatusPending:
		return newStatus == EscrowStatusHeld || newStatus == EscrowStatusFailed
	case EscrowStatusHeld:
		return newStatus == EscrowStatusReleased || newStatus == EscrowStatusRefunded
	}
	return false
}

type DisputeStatus string

const (
	DisputeStatusOpen     DisputeStatus = "open"
	DisputeStatusInReview DisputeStatus = "in_review"
	DisputeStatusResolved DisputeStatus = "resolved"
	DisputeStatusClosed   DisputeStatus = "closed"
)

func (s DisputeStatus) IsValid() bool {
	switch s {
	case DisputeStatusOpen, DisputeStatusInReview, DisputeStatusResolved, DisputeStatusClosed:
		return true
	}
	return false
}

// IsActive: спор еще удерживает заказ.
func (s DisputeStatus) IsActive() bool {
	return s == DisputeStatusOpen || s == DisputeStatusInReview
}

func NewDisputeStatus(status string) (DisputeStatus, error) {
	s := DisputeStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус спора")
	}
	return s, nil
}

type DisputeDecision string

const (
	DecisionReleaseToFulfiller DisputeDecision = "release_to_fulfiller"
	DecisionRefundToRequester  DisputeDecision = "refund_to_requester"
)

func NewDisputeDecision(decision string) (DisputeDecision, error) {
	d := DisputeDecision(decision)
	if d != DecisionReleaseToFulfiller && d != DecisionRefundToRequester {
		return "", apperror.New(apperror.ErrCodeValidation, "решение должно быть release_to_fulfiller или refund_to_requester")
	}
	return d, nil
}
