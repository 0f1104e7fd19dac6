package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DoneMarker remembers which jobs completed.  The queue delivers at least
// once, so a job whose ack was lost is delivered again; the marker lets the
// consumer acknowledge such a redelivery without sending a second email.
type DoneMarker interface {
	Seen(ctx context.Context, jobID string) (bool, error)
	Mark(ctx context.Context, jobID string) error
}

// NopDoneMarker never remembers anything.
type NopDoneMarker struct{}

func (NopDoneMarker) Seen(context.Context, string) (bool, error) { return false, nil }
func (NopDoneMarker) Mark(context.Context, string) error         { return nil }

// RedisDoneMarker stores completion markers as expiring Redis keys.
type RedisDoneMarker struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewDoneMarker returns a Redis-backed marker, or a NopDoneMarker when rdb
// is nil.
func NewDoneMarker(rdb *redis.Client, ttl time.Duration) DoneMarker {
	if rdb == nil {
		return NopDoneMarker{}
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDoneMarker{rdb: rdb, prefix: "notify:done:", ttl: ttl}
}

func (m *RedisDoneMarker) Seen(ctx context.Context, jobID string) (bool, error) {
	_, err := m.rdb.Get(ctx, m.prefix+jobID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *RedisDoneMarker) Mark(ctx context.Context, jobID string) error {
	return m.rdb.Set(ctx, m.prefix+jobID, time.Now().UTC().Unix(), m.ttl).Err()
}
