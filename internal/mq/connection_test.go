package mq

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestConnection_IsConnected_NotConnected(t *testing.T) {
	c := &Connection{}

	if c.IsConnected() {
		t.Error("connection without an underlying amqp connection should report disconnected")
	}
}

func TestConnection_WithChannel_NoChannel(t *testing.T) {
	c := &Connection{}

	err := c.WithChannel(context.Background(), func(ch *amqp.Channel) error { return nil })
	if err == nil {
		t.Error("WithChannel without a channel should fail")
	}
}
