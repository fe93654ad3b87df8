package service

// Activity events are published to RabbitMQ after a write commits.
// Publishing is best-effort: failures are logged and never returned to
// the caller, so a broker outage cannot fail a request.

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/webseries-catalog/internal/queue"
)

// Publisher delivers activity events.
type Publisher interface {
	Publish(ctx context.Context, ev queue.ActivityEvent) error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.ActivityEvent) error { return nil }

// AMQPPublisher publishes persistent JSON messages to one durable queue on
// the default exchange. The connection is dialled lazily and re-dialled
// after the broker drops it; each publish uses its own channel.
type AMQPPublisher struct {
	url         string
	queue       string
	dialTimeout time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
}

// DefaultDialTimeout bounds connecting to the broker, handshake included.
const DefaultDialTimeout = 2 * time.Second

// NewAMQPPublisher returns a publisher for queueName. No connection is made
// until the first Publish.
func NewAMQPPublisher(url, queueName string) *AMQPPublisher {
	if queueName == "" {
		queueName = queue.DefaultQueue
	}
	return &AMQPPublisher{url: url, queue: queueName, dialTimeout: DefaultDialTimeout}
}

func (p *AMQPPublisher) cached() *amqp.Connection {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn
	}
	return nil
}

// connection returns the live connection or dials a new one. The dial is
// bounded by dialTimeout and by ctx's deadline, and runs without p.mu held.
func (p *AMQPPublisher) connection(ctx context.Context) (*amqp.Connection, error) {
	if conn := p.cached(); conn != nil {
		return conn, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	timeout := p.dialTimeout
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = time.Until(dl)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("rabbitmq: dial: %w", context.DeadlineExceeded)
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(timeout)})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil && !p.conn.IsClosed() {
		// Lost a race with a concurrent dial.
		_ = conn.Close()
		return p.conn, nil
	}
	p.conn = conn
	return conn, nil
}

// Publish declares the queue (idempotent) and publishes ev to it.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.ActivityEvent) error {
	conn, err := p.connection(ctx)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		return fmt.Errorf("rabbitmq: queue declare: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}

// Close releases the broker connection, if any.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

// emitter stamps and publishes events for a service.
type emitter struct {
	pub Publisher
	log logrus.FieldLogger
	now func() time.Time
}

func (e emitter) emit(ctx context.Context, ev queue.ActivityEvent) {
	if e.pub == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.OccurredAt = e.now().UTC()
	// The request may already be finishing; give the broker its own deadline.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := e.pub.Publish(pctx, ev); err != nil {
		e.log.WithError(err).WithField("event", ev.Type).Warn("publish activity event failed")
	}
}
