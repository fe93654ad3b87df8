package queue

// The consumer listens to the activity queue and appends one line per
// event to an activity log file.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// DefaultLogPath is where cmd/activity-consumer writes by default.
var DefaultLogPath = filepath.Join("logs", "activity.log")

// ActivityLog appends formatted events to a file, creating its directory
// on first use.
type ActivityLog struct {
	mu   sync.Mutex
	path string
}

// NewActivityLog returns a sink writing to path.
func NewActivityLog(path string) *ActivityLog { return &ActivityLog{path: path} }

// Handle decodes one message body and appends it to the log.
func (a *ActivityLog) Handle(body []byte) error {
	var ev ActivityEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := io.WriteString(f, FormatEvent(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatEvent renders ev as a single human-friendly line ending in "\n".
func FormatEvent(ev ActivityEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type)
	field := func(name string, v uint64) {
		if v != 0 {
			fmt.Fprintf(&b, " | %s=%d", name, v)
		}
	}
	field("viewer_id", ev.ViewerID)
	field("series_id", ev.SeriesID)
	field("episode_id", ev.EpisodeID)
	field("feedback_id", ev.FeedbackID)
	if ev.Progress != nil {
		fmt.Fprintf(&b, " | progress=%d", *ev.Progress)
	}
	fmt.Fprintf(&b, " | event_id=%s\n", ev.ID)
	return b.String()
}

// Handler processes one delivery body. A non-nil error rejects it.
type Handler func(body []byte) error

// StartActivityConsumer connects to RabbitMQ, declares queueName (durable)
// and feeds every delivery to handle. It reconnects with exponential
// backoff until ctx is cancelled, then returns ctx.Err(). Messages that
// fail are rejected without requeue to avoid tight loops.
func StartActivityConsumer(ctx context.Context, url, queueName string, handle Handler, log logrus.FieldLogger) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).Warnf("activity-consumer: failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queueName, handle, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("activity-consumer: consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queueName string, handle Handler, log logrus.FieldLogger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("activity-consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handle(d.Body); err != nil {
			log.WithError(err).Error("activity-consumer: handle message failed")
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}
