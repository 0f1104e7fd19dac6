// Package worker executes notification jobs.  Handlers are registered
// explicitly per job kind when the worker is built; the worker decides
// from each handler's result whether the job succeeded, should be retried
// or is abandoned.  Scheduling the retry itself is the queue's job.
package worker

import (
	"context"
	"errors"
	"log"

	"github.com/iliyamo/travel-booking/internal/metrics"
	"github.com/iliyamo/travel-booking/internal/queue"
)

// DefaultMaxRetries is how many times a failed job is retried before it
// is abandoned.
const DefaultMaxRetries = 3

// Handler performs the work for one job.  Return nil on success, a
// *RetryableError for transient failures and anything else for failures
// that must not be retried.
type Handler func(ctx context.Context, entityID uint64) error

// Worker maps job kinds to handlers.
type Worker struct {
	handlers   map[queue.JobKind]Handler
	maxRetries int
	metrics    *metrics.Metrics
}

// Option customises a Worker.
type Option func(*Worker)

// WithMaxRetries overrides DefaultMaxRetries.
func WithMaxRetries(n int) Option {
	return func(w *Worker) {
		if n >= 0 {
			w.maxRetries = n
		}
	}
}

// WithMetrics records every outcome in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

// New returns a Worker that dispatches to handlers.  The map is copied.
func New(handlers map[queue.JobKind]Handler, opts ...Option) *Worker {
	w := &Worker{
		handlers:   make(map[queue.JobKind]Handler, len(handlers)),
		maxRetries: DefaultMaxRetries,
	}
	for k, h := range handlers {
		w.handlers[k] = h
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Execute runs one attempt of job.
//
//	Queued -> Running -> Succeeded
//	                  -> Retrying (job.Retries < max) -> Queued
//	                  -> Abandoned (permanent failure, or job.Retries == max)
func (w *Worker) Execute(ctx context.Context, job queue.Job) queue.Outcome {
	out := w.execute(ctx, job)
	w.metrics.JobFinished(string(job.Kind), out.String())
	return out
}

func (w *Worker) execute(ctx context.Context, job queue.Job) queue.Outcome {
	h, ok := w.handlers[job.Kind]
	if !ok {
		log.Printf("worker: job=%s unknown kind %q; abandoning", job.ID, job.Kind)
		return queue.OutcomeAbandoned
	}

	err := run(ctx, h, job.EntityID)
	if err == nil {
		log.Printf("worker: job=%s kind=%s entity=%d succeeded (attempt %d)", job.ID, job.Kind, job.EntityID, job.Retries+1)
		return queue.OutcomeSucceeded
	}

	var retryable *RetryableError
	if !errors.As(err, &retryable) {
		log.Printf("worker: job=%s kind=%s entity=%d failed permanently: %v", job.ID, job.Kind, job.EntityID, err)
		return queue.OutcomeAbandoned
	}
	if job.Retries >= w.maxRetries {
		log.Printf("worker: job=%s kind=%s entity=%d abandoned after %d retries: %v", job.ID, job.Kind, job.EntityID, job.Retries, err)
		return queue.OutcomeAbandoned
	}
	log.Printf("worker: job=%s kind=%s entity=%d failed, retry %d/%d: %v", job.ID, job.Kind, job.EntityID, job.Retries+1, w.maxRetries, err)
	return queue.OutcomeRetry
}

// run calls h and turns a panic into a retryable failure.
func run(ctx context.Context, h Handler, entityID uint64) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = Retryable(panicError(v))
		}
	}()
	return h(ctx, entityID)
}
