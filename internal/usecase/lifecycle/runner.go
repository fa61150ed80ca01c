package lifecycle

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Transition описывает одну операцию жизненного цикла заказа.
type Transition struct {
	// Action попадает в аудит и в событие outbox, например "order.accept"
	Action  string
	OrderID uuid.UUID
	Actor   Actor
	// Apply проверяет права и допустимость перехода и меняет заказ в памяти.
	// Вызывается до транзакции: ошибка здесь ничего не записывает.
	Apply func(ctx context.Context, order *entity.Order) error
	// InTx выполняет сопутствующие записи (платеж, исполнение, спор) в той же транзакции.
	InTx func(ctx context.Context, repos repository.Repositories, order *entity.Order) error
	// Audit дополняет запись журнала; по умолчанию пишется before/after статус заказа
	Audit func(order *entity.Order, payload *entity.AuditPayload) (entityType string, entityID uuid.UUID)
}

// Runner выполняет переходы как атомарный read-modify-write: заказ обновляется
// условно по статусу, прочитанному до проверки, и параллельный победитель дает CONFLICT.
type Runner struct {
	store    repository.Store
	recorder *Recorder
	metrics  *metrics.EscrowMetrics
}

func NewRunner(store repository.Store, recorder *Recorder, m *metrics.EscrowMetrics) *Runner {
	return &Runner{store: store, recorder: recorder, metrics: m}
}

func (r *Runner) Store() repository.Store {
	return r.store
}

func (r *Runner) Recorder() *Recorder {
	return r.recorder
}

func (r *Runner) Run(ctx context.Context, t Transition) (*entity.Order, error) {
	order, err := r.store.Repositories().Orders.FindByID(ctx, t.OrderID)
	if err != nil {
		r.recorder.Fail(t.Action, err)
		return nil, err
	}

	expected := order.Status
	before := orderState(order)
	if err := t.Apply(ctx, order); err != nil {
		r.recorder.Fail(t.Action, err)
		return nil, err
	}

	err = r.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Orders.Update(ctx, order, expected); err != nil {
			return err
		}
		if t.InTx != nil {
			if err := t.InTx(ctx, repos, order); err != nil {
				return err
			}
		}

		payload := entity.AuditPayload{Before: before, After: orderState(order)}
		entityType, entityID := entity.AuditEntityOrder, order.ID
		if t.Audit != nil {
			entityType, entityID = t.Audit(order, &payload)
		}
		r.recorder.Audit(ctx, repos, t.Actor.Ref(), entityType, entityID, t.Action, payload)

		return r.recorder.OrderChanged(ctx, repos, order, t.Action)
	})
	if err != nil {
		r.recorder.Fail(t.Action, err)
		return nil, err
	}

	r.metrics.Transition(string(expected), string(order.Status))
	logger.Get().WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  t.Actor.ID,
		"action":   t.Action,
		"from":     expected,
		"to":       order.Status,
	}).Info("заказ: статус изменен")

	return order, nil
}
