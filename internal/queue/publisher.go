package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher enqueues notification jobs.  It keeps one connection and
// channel open and redials lazily after the broker drops them.  The
// channel is in confirm mode and a publish only succeeds once the broker
// has acked the message; with persistent messages on durable queues an
// accepted job survives a broker restart.
type Publisher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a Publisher for the given broker and queue.  No
// connection is made until the first publish.
func NewPublisher(url, queue string) *Publisher {
	return &Publisher{url: url, queue: queue}
}

// Enqueue places a new job for entityID on the notification queue.
func (p *Publisher) Enqueue(ctx context.Context, kind JobKind, entityID uint64) error {
	job := NewJob(kind, entityID)
	if err := p.publish(ctx, p.queue, job, ""); err != nil {
		log.Printf("notify-publisher: enqueue %s entity=%d failed: %v", kind, entityID, err)
		return err
	}
	log.Printf("notify-publisher: enqueued %s job=%s entity=%d", kind, job.ID, entityID)
	return nil
}

// Retry publishes job to the retry queue, from which the broker moves it
// back to the main queue after delay.
func (p *Publisher) Retry(ctx context.Context, job Job, delay time.Duration) error {
	ms := delay.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return p.publish(ctx, RetryQueueName(p.queue), job, strconv.FormatInt(ms, 10))
}

// Close releases the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resetLocked()
}

func (p *Publisher) publish(ctx context.Context, routingKey string, job Job, expiration string) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Type:         string(job.Kind),
		Timestamp:    time.Now().UTC(),
		Expiration:   expiration,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked()
	if err != nil {
		return err
	}
	conf, err := ch.PublishWithDeferredConfirmWithContext(ctx, "", routingKey, false, false, pub)
	if err != nil {
		// the channel is unusable after most publish errors
		_ = p.resetLocked()
		return fmt.Errorf("publish: %w", err)
	}
	if conf == nil {
		// only happens if the channel left confirm mode
		_ = p.resetLocked()
		return errors.New("publish: channel not in confirm mode")
	}
	if err := awaitConfirm(ctx, conf); err != nil {
		// confirmations are per channel; start over on a fresh one
		_ = p.resetLocked()
		return err
	}
	return nil
}

// confirmation is satisfied by *amqp.DeferredConfirmation.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// awaitConfirm blocks until the broker acks or nacks the publish, or ctx
// ends.  Anything but an ack is an error, so the caller keeps its own copy
// of the job.
func awaitConfirm(ctx context.Context, conf confirmation) error {
	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("publish confirm: %w", err)
	}
	if !acked {
		return errors.New("publish confirm: broker nacked message")
	}
	return nil
}

func (p *Publisher) channelLocked() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	_ = p.resetLocked()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if err := DeclareTopology(ch, p.queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("confirm mode: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) resetLocked() error {
	var errs []error
	if p.ch != nil {
		if err := p.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
		p.ch = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
		p.conn = nil
	}
	return errors.Join(errs...)
}
