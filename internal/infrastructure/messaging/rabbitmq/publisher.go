package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/taskflow/internal/domain"
)

const (
	DefaultExchange = "taskflow.events"

	RoutingTaskCreated      = "task.created"
	RoutingTaskCompleted    = "task.completed"
	RoutingMeetingScheduled = "meeting.scheduled"
	RoutingTelemetryBatch   = "telemetry.batch"

	// upper bound on waiting for a broker confirm when ctx has no deadline
	publishWait = 2 * time.Second
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends domain events to a topic exchange in confirm mode. Events
// are fire-and-forget from the caller's point of view: services log a
// failed publish and carry on.
type Publisher struct {
	url      string
	exchange string

	mu sync.Mutex

	conn      *amqp.Connection
	ch        amqpChannel
	confirmCh <-chan amqp.Confirmation

	dial func() error
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{url: url, exchange: exchange}
	p.dial = p.connect
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetConn()
	return nil
}

// ---- event publishers ----

func (p *Publisher) PublishTaskCreated(ctx context.Context, evt domain.TaskCreatedEvent) error {
	return p.publishJSON(ctx, RoutingTaskCreated, evt)
}

func (p *Publisher) PublishTaskCompleted(ctx context.Context, evt domain.TaskCompletedEvent) error {
	return p.publishJSON(ctx, RoutingTaskCompleted, evt)
}

func (p *Publisher) PublishMeetingScheduled(ctx context.Context, evt domain.MeetingScheduledEvent) error {
	return p.publishJSON(ctx, RoutingMeetingScheduled, evt)
}

// PublishTelemetry forwards a client batch untouched.
func (p *Publisher) PublishTelemetry(ctx context.Context, payload []byte) error {
	return p.publish(ctx, RoutingTelemetryBatch, payload)
}

// ---- internal ----

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		p.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("exchange declare: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("confirm mode: %w", err)
	}

	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.conn = conn
	p.ch = ch
	return nil
}

func (p *Publisher) ensureConnected() error {
	if p.ch != nil && (p.conn == nil || !p.conn.IsClosed()) {
		return nil
	}
	p.resetConn()
	return p.dial()
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return p.publish(ctx, routingKey, body)
}

func (p *Publisher) publish(ctx context.Context, routingKey string, body []byte) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, publishWait)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnected(); err != nil {
		return err
	}

	// drop confirms left over from a publish that gave up waiting
drain:
	for {
		select {
		case <-p.confirmCh:
		default:
			break drain
		}
	}

	if err := p.ch.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory: events may have no subscribers yet
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	); err != nil {
		p.resetConn()
		return fmt.Errorf("publish failed: %w", err)
	}

	select {
	case conf, ok := <-p.confirmCh:
		if !ok {
			p.resetConn()
			return fmt.Errorf("rabbitmq channel closed: key=%s", routingKey)
		}
		if !conf.Ack {
			return fmt.Errorf("rabbitmq nack: key=%s deliveryTag=%d", routingKey, conf.DeliveryTag)
		}
		zlog.Debug().Str("routing_key", routingKey).Uint64("tag", conf.DeliveryTag).Msg("event published")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("rabbitmq publish timeout: key=%s: %w", routingKey, ctx.Err())
	}
}

func (p *Publisher) resetConn() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
