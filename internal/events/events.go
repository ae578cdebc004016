// Package events publishes catalog and loan domain events to a RabbitMQ
// topic exchange so other campus systems (reminders, statistics) can react
// without the API calling them directly. Publishing is best-effort: the API
// never fails a request because the broker is down, and a nil *Publisher is
// a valid no-op publisher for deployments without a broker.
package events

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys for the events this application emits.
const (
	BookCreated  = "book.created"
	BookDeleted  = "book.deleted"
	LoanCreated  = "loan.created"
	LoanReturned = "loan.returned"
)

// Publisher wraps an AMQP channel bound to a durable topic exchange.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewPublisher dials the broker and declares the topic exchange.
// An empty url disables publishing: the returned *Publisher is nil, and all
// its methods are safe to call.
func NewPublisher(url, exchange string) (*Publisher, error) {
	if url == "" {
		return nil, nil
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Publish sends body to the exchange under the given routing key.
// Safe to call on a nil Publisher.
func (p *Publisher) Publish(ctx context.Context, key string, body []byte) error {
	if p == nil || p.ch == nil {
		return nil
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now(),
	})
}

// Close shuts down the channel and connection. Safe to call on a nil Publisher.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
