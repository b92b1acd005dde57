package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/omnisphere/auth-service/internal/application/auth"
)

const (
	DefaultExchange = "omnisphere.events"

	// How long to wait for the broker's Return/Confirm after a publish.
	confirmTimeout = 150 * time.Millisecond

	// Applied when the caller's context has no deadline.
	defaultPublishTimeout = 2 * time.Second
)

// Publisher emits auth events onto a durable topic exchange. Publishes are
// mandatory and confirm-mode, so an unroutable or nacked message surfaces as
// an error instead of vanishing.
type Publisher struct {
	url      string
	exchange string

	mu sync.Mutex

	conn *amqp.Connection
	ch   *amqp.Channel

	confirms <-chan amqp.Confirmation
	returns  <-chan amqp.Return
}

func NewPublisher(url string) (*Publisher, error) {
	p := &Publisher{url: url, exchange: DefaultExchange}
	if err := p.dial(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardown()
	return nil
}

// ---- auth.EventPublisher ----

func (p *Publisher) PublishConfirmationCode(ctx context.Context, evt auth.ConfirmationCodeEvent) error {
	return p.publish(ctx, "auth.password.code.requested", evt)
}

func (p *Publisher) PublishAvatarCleanup(ctx context.Context, evt auth.AvatarCleanupEvent) error {
	return p.publish(ctx, "auth.avatar.cleanup.requested", evt)
}

// ---- connection lifecycle ----

func (p *Publisher) dial() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}

	// Topic exchange, declared idempotently on every connect.
	err = ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil)
	if err == nil {
		err = ch.Confirm(false)
	}
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("rabbitmq setup: %w", err)
	}

	p.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returns = ch.NotifyReturn(make(chan amqp.Return, 1))
	p.conn = conn
	p.ch = ch
	return nil
}

func (p *Publisher) ensure() error {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil {
		return nil
	}
	return p.dial()
}

func (p *Publisher) teardown() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// ---- publishing ----

func (p *Publisher) publish(ctx context.Context, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultPublishTimeout)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensure(); err != nil {
		return err
	}

	p.drainStale()

	err = p.ch.PublishWithContext(ctx, p.exchange, key,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		// Channel-level failure; force a fresh dial next time.
		p.teardown()
		return fmt.Errorf("publish failed: %w", err)
	}

	return p.awaitOutcome(ctx, key)
}

// drainStale discards confirm/return leftovers from a previous publish so
// they cannot be attributed to this one.
func (p *Publisher) drainStale() {
	for {
		select {
		case <-p.confirms:
		case <-p.returns:
		default:
			return
		}
	}
}

func (p *Publisher) awaitOutcome(ctx context.Context, key string) error {
	select {
	case ret := <-p.returns:
		return unroutableErr(key, ret)

	case conf := <-p.confirms:
		// A Return for an unroutable message can race the Ack; give the
		// return channel one last look.
		select {
		case ret := <-p.returns:
			return unroutableErr(key, ret)
		default:
		}
		if !conf.Ack {
			return fmt.Errorf("rabbitmq nack: key=%s deliveryTag=%d", key, conf.DeliveryTag)
		}
		return nil

	case <-time.After(confirmTimeout):
		return fmt.Errorf("rabbitmq publish timeout: key=%s", key)

	case <-ctx.Done():
		return ctx.Err()
	}
}

func unroutableErr(key string, ret amqp.Return) error {
	return fmt.Errorf("rabbitmq unroutable: key=%s code=%d text=%s", key, ret.ReplyCode, ret.ReplyText)
}
