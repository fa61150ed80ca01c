package relay

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Sink - внешний получатель событий заказа (брокер, websocket).
type Sink interface {
	Name() string
	Publish(ctx context.Context, event *entity.OrderEvent) error
}

type Config struct {
	BatchSize    int
	PollInterval time.Duration
}

// Dispatcher вычитывает outbox и раздает события приемникам. Ядро только пишет
// строки; доставка происходит здесь, после фиксации транзакции операции.
type Dispatcher struct {
	store   repository.Store
	sinks   []Sink
	cfg     Config
	metrics *metrics.EscrowMetrics
}

func NewDispatcher(store repository.Store, cfg Config, m *metrics.EscrowMetrics, sinks ...Sink) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Dispatcher{store: store, sinks: sinks, cfg: cfg, metrics: m}
}

// Run опрашивает outbox до отмены контекста.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.DispatchOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Get().WithError(err).Error("relay: ошибка обработки outbox")
			}
		}
	}
}

// DispatchOnce обрабатывает одну пачку и возвращает число доставленных событий.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	delivered := 0
	err := d.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		events, err := repos.Events.ClaimPending(ctx, d.cfg.BatchSize)
		if err != nil {
			return err
		}
		d.metrics.RelayClaimed(len(events))

		for _, event := range events {
			if failures := d.publish(ctx, event); len(failures) > 0 {
				if err := repos.Events.MarkFailed(ctx, event.ID, strings.Join(failures, "; ")); err != nil {
					return err
				}
				continue
			}
			if err := repos.Events.MarkDispatched(ctx, event.ID, time.Now().UTC()); err != nil {
				return err
			}
			delivered++
		}
		return nil
	})
	return delivered, err
}

func (d *Dispatcher) publish(ctx context.Context, event *entity.OrderEvent) []string {
	var failures []string
	for _, sink := range d.sinks {
		err := sink.Publish(ctx, event)
		d.metrics.RelayPublished(sink.Name(), err)
		if err != nil {
			failures = append(failures, sink.Name()+": "+err.Error())
			logger.Get().WithFields(logrus.Fields{
				"order_id": event.OrderID,
				"event_id": event.ID,
				"sink":     sink.Name(),
				"attempt":  event.Attempts + 1,
				"error":    err.Error(),
			}).Warn("relay: не удалось доставить событие")
		}
	}
	return failures
}
