// Package events publishes completed payments to Kafka for downstream
// consumers (fulfillment, producer notifications).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"raices-verdes/internal/domain"
)

type Publisher interface {
	PaymentCreated(ctx context.Context, p *domain.Payment) error
	Close() error
}

// PaymentCreatedEvent is the message value written for every committed checkout.
type PaymentCreatedEvent struct {
	PaymentID     string               `json:"paymentId"`
	ClientID      string               `json:"clientId"`
	InvoiceNumber int64                `json:"invoiceNumber"`
	Method        domain.PaymentMethod `json:"method"`
	Total         decimal.Decimal      `json:"total"`
	CreatedAt     time.Time            `json:"createdAt"`
	Lines         []PaymentLine        `json:"lines"`
}

type PaymentLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	logger zerolog.Logger
}

// NewKafkaWriter builds the writer for topic on the given brokers.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
	}
}

func NewKafkaPublisher(w *kafka.Writer, logger *zerolog.Logger) *KafkaPublisher {
	return newKafkaPublisher(w, logger)
}

func newKafkaPublisher(w messageWriter, logger *zerolog.Logger) *KafkaPublisher {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "payment_events").Logger()
	}
	return &KafkaPublisher{writer: w, logger: l}
}

// PaymentCreated writes one message keyed by payment.created.<id>. The key
// hashes to a stable partition so consumers see a payment's events in order.
func (p *KafkaPublisher) PaymentCreated(ctx context.Context, pay *domain.Payment) error {
	value, err := json.Marshal(newPaymentCreatedEvent(pay))
	if err != nil {
		return fmt.Errorf("marshal payment event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(MessageKey(pay.ID)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte("payment.created")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write payment event: %w", err)
	}
	p.logger.Debug().Str("payment_id", pay.ID).Msg("payment event published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func MessageKey(paymentID string) string {
	return "payment.created." + strings.TrimSpace(paymentID)
}

func newPaymentCreatedEvent(p *domain.Payment) PaymentCreatedEvent {
	ev := PaymentCreatedEvent{
		PaymentID:     p.ID,
		ClientID:      p.ClientID,
		InvoiceNumber: p.InvoiceNumber,
		Method:        p.Method,
		Total:         p.Total,
		CreatedAt:     p.CreatedAt,
		Lines:         make([]PaymentLine, 0, len(p.Details)),
	}
	for _, d := range p.Details {
		ev.Lines = append(ev.Lines, PaymentLine{
			ProductID: d.ProductID,
			Name:      d.ProductName,
			Quantity:  d.Quantity,
			UnitPrice: d.UnitPrice,
		})
	}
	return ev
}

// Nop discards events. Used when no brokers are configured.
type Nop struct{}

func (Nop) PaymentCreated(context.Context, *domain.Payment) error { return nil }
func (Nop) Close() error                                          { return nil }
