// Package queue carries notification jobs over RabbitMQ.  A job names the
// kind of email to send and the id of the entity it is about; the worker
// loads the entity itself, so jobs stay small and never go stale.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobKind identifies which handler runs a job.
type JobKind string

const (
	KindBookingConfirmation JobKind = "booking_confirmation"
	KindPaymentConfirmation JobKind = "payment_confirmation"
)

// Job is the message body published to the notification queue.
type Job struct {
	ID         string    `json:"id"`
	Kind       JobKind   `json:"kind"`
	EntityID   uint64    `json:"entity_id"`
	Retries    int       `json:"retries"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewJob returns a fresh job with a random id and no retries.
func NewJob(kind JobKind, entityID uint64) Job {
	return Job{
		ID:         uuid.NewString(),
		Kind:       kind,
		EntityID:   entityID,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Outcome is the result of executing one attempt of a job.
type Outcome int

const (
	// OutcomeSucceeded means the job is done and must not run again.
	OutcomeSucceeded Outcome = iota
	// OutcomeRetry means the attempt failed transiently and the job should
	// be queued again after the retry delay.
	OutcomeRetry
	// OutcomeAbandoned means the job failed for good, either permanently or
	// after exhausting its retries.
	OutcomeAbandoned
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeRetry:
		return "retrying"
	case OutcomeAbandoned:
		return "abandoned"
	}
	return "unknown"
}
