package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
)

// Store - хранилище леджера в памяти для разработки и тестов.
// Транзакция работает с копией состояния и подменяет его только при успехе.
type Store struct {
	mu sync.Mutex
	st *state
}

type state struct {
	orders     map[uuid.UUID]entity.Order
	payments   map[uuid.UUID]entity.Payment
	executions map[uuid.UUID]entity.Execution
	disputes   map[uuid.UUID]entity.Dispute
	services   map[uuid.UUID]entity.CatalogService
	evidence   []entity.DisputeEvidence
	audit      []entity.AuditEntry
	events     []entity.OrderEvent
}

func NewStore() *Store {
	return &Store{st: &state{
		orders:     make(map[uuid.UUID]entity.Order),
		payments:   make(map[uuid.UUID]entity.Payment),
		executions: make(map[uuid.UUID]entity.Execution),
		disputes:   make(map[uuid.UUID]entity.Dispute),
		services:   make(map[uuid.UUID]entity.CatalogService),
	}}
}

func (s *state) clone() *state {
	c := &state{
		orders:     make(map[uuid.UUID]entity.Order, len(s.orders)),
		payments:   make(map[uuid.UUID]entity.Payment, len(s.payments)),
		executions: make(map[uuid.UUID]entity.Execution, len(s.executions)),
		disputes:   make(map[uuid.UUID]entity.Dispute, len(s.disputes)),
		services:   make(map[uuid.UUID]entity.CatalogService, len(s.services)),
		evidence:   append([]entity.DisputeEvidence(nil), s.evidence...),
		audit:      append([]entity.AuditEntry(nil), s.audit...),
		events:     append([]entity.OrderEvent(nil), s.events...),
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.executions {
		c.executions[k] = v
	}
	for k, v := range s.disputes {
		c.disputes[k] = v
	}
	for k, v := range s.services {
		c.services[k] = v
	}
	return c
}

// view выполняет операции либо над зафиксированным состоянием под мьютексом,
// либо над копией, принадлежащей транзакции.
type view struct {
	store *Store
	tx    *state
}

func (v *view) run(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.st)
}

func (s *Store) repositories(tx *state) repository.Repositories {
	v := &view{store: s, tx: tx}
	return repository.Repositories{
		Orders:     &orderRepo{v},
		Payments:   &paymentRepo{v},
		Executions: &executionRepo{v},
		Disputes:   &disputeRepo{v},
		Audit:      &auditRepo{v},
		Events:     &eventRepo{v},
		Services:   &serviceRepo{v},
	}
}

func (s *Store) Repositories() repository.Repositories {
	return s.repositories(nil)
}

// WithinTx сериализует транзакции. Внутри fn нельзя обращаться к Repositories() этого же Store.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := s.st.clone()
	if err := fn(ctx, s.repositories(tx)); err != nil {
		return err
	}
	s.st = tx
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func sortOrders(items []*entity.Order) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
