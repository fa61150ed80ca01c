package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	AuditEntityOrder     = "order"
	AuditEntityPayment   = "payment"
	AuditEntityExecution = "execution"
	AuditEntityDispute   = "dispute"
	AuditEntityService   = "service"
)

// AuditPayload - структурированное тело записи аудита.
type AuditPayload struct {
	Before   any               `json:"before,omitempty"`
	After    any               `json:"after,omitempty"`
	Reason   string            `json:"reason,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// AuditEntry - неизменяемая запись журнала. PrevHash и EntryHash связывают записи в цепочку.
type AuditEntry struct {
	ID         uuid.UUID
	Seq        int64
	ActorID    *uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	Action     string
	Payload    json.RawMessage
	PrevHash   string
	EntryHash  string
	CreatedAt  time.Time
}

func NewAuditEntry(actorID *uuid.UUID, entityType string, entityID uuid.UUID, action string, payload AuditPayload) (*AuditEntry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &AuditEntry{
		ID:         uuid.New(),
		ActorID:    actorID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Payload:    raw,
		// postgres хранит микросекунды, хэш считается по тому же значению
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}, nil
}

type OrderEventStatus string

const (
	OrderEventPending    OrderEventStatus = "pending"
	OrderEventDispatched OrderEventStatus = "dispatched"
)

// OrderEvent - запись outbox: полный снимок заказа после изменения.
type OrderEvent struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	EventType    string
	Payload      json.RawMessage
	Recipients   []uuid.UUID
	Status       OrderEventStatus
	Attempts     int
	LastError    *string
	CreatedAt    time.Time
	DispatchedAt *time.Time
}

func NewOrderEvent(order *Order, eventType string, snapshot any) (*OrderEvent, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}
	return &OrderEvent{
		ID:         uuid.New(),
		OrderID:    order.ID,
		EventType:  eventType,
		Payload:    raw,
		Recipients: []uuid.UUID{order.RequesterID, order.FulfillerID},
		Status:     OrderEventPending,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
