package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"ms-membership/internal/logger"
)

// ErrLockTimeout is returned when the lock could not be taken within the wait.
var ErrLockTimeout = errors.New("event lock wait timed out")

const retryInterval = 20 * time.Millisecond

// Only the holder's token may delete the key.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// EventLock serializes speaker bookings per event across service instances.
type EventLock struct {
	Client *redis.Client
	TTL    time.Duration
	Wait   time.Duration
	Logger *logger.Logger
}

func NewEventLock(client *redis.Client, ttl, wait time.Duration, log *logger.Logger) *EventLock {
	return &EventLock{Client: client, TTL: ttl, Wait: wait, Logger: log}
}

func lockKey(eventID string) string {
	return "event_lock:" + eventID
}

// Acquire blocks until the event's lock is held, the wait elapses, or ctx is
// done. The returned func releases the lock and is safe to call once.
func (l *EventLock) Acquire(ctx context.Context, eventID string) (func(), error) {
	key := lockKey(eventID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.Wait)

	for {
		ok, err := l.Client.SetNX(ctx, key, token, l.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("lock event %s: %w", eventID, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("lock event %s: %w", eventID, ErrLockTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	return func() {
		// The caller's ctx may already be cancelled; release regardless.
		if err := releaseScript.Run(context.Background(), l.Client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			l.Logger.Warn("REDIS", fmt.Sprintf("Failed to release lock for event %s: %v", eventID, err))
		}
	}, nil
}
