package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

const exchangeName = "mailer"

// outboundEmail is the payload handed to the mailer daemon.
type outboundEmail struct {
	To       string  `json:"to"`
	Subject  string  `json:"subject"`
	Body     string  `json:"body"`
	BodyHTML *string `json:"body_html,omitempty"`
}

// AMQPTransport hands outbox items to an external mailer daemon over
// RabbitMQ. The broker's persistence is what carries the message after the
// outbox marks it sent.
type AMQPTransport struct {
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	routingKey string
}

func NewAMQPTransport(url, routingKey string) (*AMQPTransport, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &AMQPTransport{
		conn:       conn,
		channel:    ch,
		routingKey: routingKey,
	}, nil
}

func (t *AMQPTransport) Close() {
	if t.channel != nil {
		_ = t.channel.Close()
	}
	if t.conn != nil {
		_ = t.conn.Close()
	}
}

// Send publishes one outbound email. The context bounds the publish; a
// timed-out publish is a failed delivery attempt.
func (t *AMQPTransport) Send(ctx context.Context, to, subject, body string, bodyHTML *string) error {
	payload, err := json.Marshal(outboundEmail{
		To:       to,
		Subject:  subject,
		Body:     body,
		BodyHTML: bodyHTML,
	})
	if err != nil {
		return err
	}

	return t.channel.PublishWithContext(
		ctx,
		exchangeName,
		t.routingKey,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp091.Persistent,
		},
	)
}
