package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Executor runs one attempt of a job and classifies the result.
type Executor interface {
	Execute(ctx context.Context, job Job) Outcome
}

// Retrier schedules a job to run again after a delay.
type Retrier interface {
	Retry(ctx context.Context, job Job, delay time.Duration) error
}

// ConsumerConfig holds the consumer's tunables.
type ConsumerConfig struct {
	URL         string
	Queue       string
	Concurrency int
	RetryDelay  time.Duration
}

// Consumer pulls jobs off the notification queue and hands them to an
// Executor.  Concurrency worker goroutines share one channel whose
// prefetch equals Concurrency, so the broker never hands a worker process
// more jobs than it has free slots, and each delivery is owned by exactly
// one goroutine until it is acknowledged.
type Consumer struct {
	cfg   ConsumerConfig
	exec  Executor
	retry Retrier
	done  DoneMarker
}

// NewConsumer wires a consumer.  done may be nil, which disables
// redelivery deduplication.
func NewConsumer(cfg ConsumerConfig, exec Executor, retry Retrier, done DoneMarker) *Consumer {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if done == nil {
		done = NopDoneMarker{}
	}
	return &Consumer{cfg: cfg, exec: exec, retry: retry, done: done}
}

// Run connects to the broker and consumes until ctx is cancelled.  Broker
// failures are logged and followed by a reconnect with exponential
// backoff; Run only returns once ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.cfg.URL)
		if err != nil {
			log.Printf("notify-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("notify-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.cfg.Concurrency, 0, false); err != nil {
		log.Printf("notify-consumer: set QoS failed: %v", err)
	}
	if err := DeclareTopology(ch, c.cfg.Queue); err != nil {
		return err
	}
	msgs, err := ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	log.Printf("notify-consumer: consuming %s with %d slots", c.cfg.Queue, c.cfg.Concurrency)

	// in-flight jobs finish even after ctx is cancelled; only new
	// deliveries stop being accepted
	jobCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-msgs:
					if !ok {
						return
					}
					c.settle(d, c.process(jobCtx, d.Body))
				}
			}
		}()
	}
	wg.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errors.New("deliveries channel closed")
}

// disposition is what happens to a delivery after processing.
type disposition int

const (
	ack disposition = iota
	requeue
	reject
)

func (c *Consumer) settle(d amqp.Delivery, disp disposition) {
	var err error
	switch disp {
	case ack:
		err = d.Ack(false)
	case requeue:
		err = d.Nack(false, true)
	case reject:
		err = d.Nack(false, false)
	}
	if err != nil {
		log.Printf("notify-consumer: settle delivery %d failed: %v", d.DeliveryTag, err)
	}
}

// process runs one delivery through the executor and decides its fate.
// It is independent of the AMQP delivery so it can be tested directly.
func (c *Consumer) process(ctx context.Context, body []byte) disposition {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		log.Printf("notify-consumer: drop malformed message: %v", err)
		return reject
	}
	if job.ID == "" || job.Kind == "" {
		log.Printf("notify-consumer: drop message without id or kind: %s", body)
		return reject
	}

	seen, err := c.done.Seen(ctx, job.ID)
	if err != nil {
		log.Printf("notify-consumer: dedup lookup job=%s failed: %v", job.ID, err)
	}
	if seen {
		log.Printf("notify-consumer: job=%s already completed; skipping redelivery", job.ID)
		return ack
	}

	switch c.exec.Execute(ctx, job) {
	case OutcomeSucceeded:
		if err := c.done.Mark(ctx, job.ID); err != nil {
			log.Printf("notify-consumer: mark job=%s done failed: %v", job.ID, err)
		}
		return ack
	case OutcomeRetry:
		next := job
		next.Retries++
		if err := c.retry.Retry(ctx, next, c.cfg.RetryDelay); err != nil {
			log.Printf("notify-consumer: schedule retry job=%s failed: %v; requeueing", job.ID, err)
			return requeue
		}
		return ack
	default:
		return ack
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
