package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alovak/cardflow-gateway/gateway/models"
	"github.com/segmentio/kafka-go"
)

// TypePaymentRecorded is emitted once per stored payment.
const TypePaymentRecorded = "payment.recorded"

// Publisher announces stored payments to downstream consumers.
type Publisher interface {
	PublishPaymentRecorded(ctx context.Context, payment models.Payment) error
	Close() error
}

// PaymentRecorded is the event body. It only ever carries the sanitized record.
type PaymentRecorded struct {
	Type       string         `json:"type"`
	Payment    models.Payment `json:"payment"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// NewMessage builds the kafka message for a stored payment, keyed by payment id so that
// all events of one payment land on the same partition.
func NewMessage(payment models.Payment, at time.Time) (kafka.Message, error) {
	body, err := json.Marshal(PaymentRecorded{
		Type:       TypePaymentRecorded,
		Payment:    payment,
		RecordedAt: at.UTC(),
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(payment.ID),
		Value: body,
		Time:  at,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(TypePaymentRecorded)},
		},
	}, nil
}

type KafkaPublisher struct {
	writer *kafka.Writer
	now    func() time.Time
}

// NewKafkaPublisher writes to topic on the comma separated brokers list.
func NewKafkaPublisher(brokers, topic string) *KafkaPublisher {
	var addrs []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(addrs...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
		now: time.Now,
	}
}

func (p *KafkaPublisher) PublishPaymentRecorded(ctx context.Context, payment models.Payment) error {
	msg, err := NewMessage(payment, p.now())
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing %s event: %w", TypePaymentRecorded, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
