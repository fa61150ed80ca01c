package kafka

import (
	"context"
	"time"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/segmentio/kafka-go"
)

// OrderPublisher публикует события заказов в топик. Ключ сообщения - id заказа,
// поэтому события одного заказа попадают в одну партицию и сохраняют порядок.
type OrderPublisher struct {
	writer *kafka.Writer
}

func NewOrderPublisher(brokers []string, topic string) *OrderPublisher {
	return &OrderPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *OrderPublisher) Name() string {
	return "kafka"
}

func (p *OrderPublisher) Publish(ctx context.Context, event *entity.OrderEvent) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID.String()),
		Value: event.Payload,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.ID.String())},
		},
	})
}

func (p *OrderPublisher) Close() error {
	return p.writer.Close()
}
