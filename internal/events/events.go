// Package events publishes domain events for downstream consumers such as
// notification workers and enrichment jobs.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "ex.prospects"
	QueueName    = "q.import.completed"
	DLXName      = "ex.prospects.dlx"
	DLQName      = "q.import.completed.dlq"

	RoutingKeyImportCompleted = "k.import.completed"
)

// ImportCompleted is emitted after an import pass commits at least its
// first chunk, including partially failed imports.
type ImportCompleted struct {
	ImportID          string    `json:"import_id"`
	Scope             string    `json:"scope"`
	UserID            string    `json:"user_id"`
	FileName          string    `json:"file_name"`
	TotalRows         int       `json:"total_rows"`
	Imported          int       `json:"imported"`
	DuplicatesSkipped int       `json:"duplicates_skipped"`
	SkippedNoName     int       `json:"skipped_no_name"`
	MalformedRows     int       `json:"malformed_rows"`
	Partial           bool      `json:"partial"`
	CompletedAt       time.Time `json:"completed_at"`
}

// Publisher sends events.
type Publisher interface {
	PublishImportCompleted(ctx context.Context, ev ImportCompleted) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) PublishImportCompleted(context.Context, ImportCompleted) error { return nil }

// RabbitMQ publishes persistent JSON messages to ExchangeName.
type RabbitMQ struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewRabbitMQ dials url and declares the exchange, queue and dead-letter
// topology.
func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setupTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare topology: %w", err)
	}

	return &RabbitMQ{conn: conn, ch: ch}, nil
}

func setupTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(DLXName, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(DLQName, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(DLQName, RoutingKeyImportCompleted, DLXName, false, nil); err != nil {
		return err
	}

	if err := ch.ExchangeDeclare(ExchangeName, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	args := amqp.Table{
		"x-dead-letter-exchange":    DLXName,
		"x-dead-letter-routing-key": RoutingKeyImportCompleted,
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, args); err != nil {
		return err
	}
	return ch.QueueBind(QueueName, RoutingKeyImportCompleted, ExchangeName, false, nil)
}

// PublishImportCompleted implements Publisher.
func (r *RabbitMQ) PublishImportCompleted(ctx context.Context, ev ImportCompleted) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	err = r.ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKeyImportCompleted,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.ImportID,
			Timestamp:    ev.CompletedAt,
			Type:         "import.completed",
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish import.completed: %w", err)
	}
	return nil
}

// Ping reports whether the connection is still open.
func (r *RabbitMQ) Ping() error {
	if r.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection closed")
	}
	return nil
}

// Close shuts the channel and connection.
func (r *RabbitMQ) Close() error {
	if err := r.ch.Close(); err != nil {
		r.conn.Close()
		return err
	}
	return r.conn.Close()
}
