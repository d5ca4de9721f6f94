package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Courier/internal/domain"
)

// EventType — тип события в очереди.
type EventType string

// Типы событий.
const (
	EventBatchCreated  EventType = "batch.created"
	EventMessageSent   EventType = "message.sent"
	EventMessageFailed EventType = "message.failed"
)

// Publisher публикует события доставки в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Event — событие для публикации.
type Event struct {
	// ID — уникальный идентификатор события.
	ID string `json:"id"`

	// Type — тип события.
	Type EventType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// BatchCreatedPayload — payload события о принятом batch'е.
type BatchCreatedPayload struct {
	BatchID  uuid.UUID `json:"batch_id"`
	Accepted int       `json:"accepted"`
	Rejected int       `json:"rejected"`
}

// MessageSentPayload — payload события об успешной доставке.
type MessageSentPayload struct {
	MessageID         uuid.UUID `json:"message_id"`
	BatchID           uuid.UUID `json:"batch_id"`
	ExternalMessageID string    `json:"external_message_id"`
	Attempts          int       `json:"attempts"`
}

// MessageFailedPayload — payload события о неудачной попытке.
type MessageFailedPayload struct {
	MessageID uuid.UUID            `json:"message_id"`
	BatchID   uuid.UUID            `json:"batch_id"`
	Status    domain.MessageStatus `json:"status"`
	Failure   domain.Failure       `json:"failure"`
	Attempts  int                  `json:"attempts"`
}

// Publish публикует событие с указанным routing key.
func (p *Publisher) Publish(ctx context.Context, routingKey RoutingKey, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(ExchangeEvents), // exchange
			string(routingKey),     // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // событие переживёт рестарт RabbitMQ
				MessageId:    event.ID,
				Timestamp:    event.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish %s: %w", routingKey, err)
		}

		p.logger.Debug("published event",
			"routing_key", routingKey,
			"event_id", event.ID,
			"type", event.Type,
		)

		return nil
	})
}

// PublishBatchCreated публикует событие о принятом batch'е.
func (p *Publisher) PublishBatchCreated(ctx context.Context, payload BatchCreatedPayload) error {
	return p.Publish(ctx, RoutingKeyBatchCreated, &Event{
		ID:        uuid.New().String(),
		Type:      EventBatchCreated,
		Payload:   payload,
		Timestamp: time.Now(),
	})
}

// PublishMessageSent публикует событие об успешной доставке.
func (p *Publisher) PublishMessageSent(ctx context.Context, payload MessageSentPayload) error {
	return p.Publish(ctx, RoutingKeyMessageSent, &Event{
		ID:        uuid.New().String(),
		Type:      EventMessageSent,
		Payload:   payload,
		Timestamp: time.Now(),
	})
}

// PublishMessageFailed публикует событие о неудачной попытке.
func (p *Publisher) PublishMessageFailed(ctx context.Context, payload MessageFailedPayload) error {
	return p.Publish(ctx, RoutingKeyMessageFailed, &Event{
		ID:        uuid.New().String(),
		Type:      EventMessageFailed,
		Payload:   payload,
		Timestamp: time.Now(),
	})
}
