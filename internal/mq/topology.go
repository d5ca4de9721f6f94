package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// ExchangeEvents — обменник событий доставки.
const ExchangeEvents Exchange = "courier.events"

// Queues — имена очередей.
const (
	QueueOutcomes Queue = "courier.outcomes"
	QueueBatches  Queue = "courier.batches"
)

// Routing keys.
const (
	RoutingKeyBatchCreated  RoutingKey = "batch.created"
	RoutingKeyMessageSent   RoutingKey = "message.sent"
	RoutingKeyMessageFailed RoutingKey = "message.failed"
)

// SetupTopology объявляет exchange, очереди и привязки.
// Идемпотентно: безопасно вызывать при каждом старте.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangeEvents), // name
			"topic",                // type
			true,                   // durable
			false,                  // auto-deleted
			false,                  // internal
			false,                  // no-wait
			nil,                    // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeEvents, err)
		}

		queues := []Queue{QueueOutcomes, QueueBatches}
		for _, q := range queues {
			_, err := ch.QueueDeclare(
				string(q), // name
				true,      // durable
				false,     // delete when unused
				false,     // exclusive
				false,     // no-wait
				nil,       // arguments
			)
			if err != nil {
				return fmt.Errorf("declare queue %s: %w", q, err)
			}
		}

		bindings := []struct {
			queue   Queue
			pattern string
		}{
			{QueueOutcomes, "message.*"},
			{QueueBatches, "batch.*"},
		}
		for _, b := range bindings {
			err := ch.QueueBind(
				string(b.queue),        // queue name
				b.pattern,              // routing key pattern
				string(ExchangeEvents), // exchange
				false,                  // no-wait
				nil,                    // arguments
			)
			if err != nil {
				return fmt.Errorf("bind queue %s: %w", b.queue, err)
			}
		}

		return nil
	})
}
