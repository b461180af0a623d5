// Package runlock provides mutual exclusion for sync runs. Overlapping runs
// (a long run still in flight when the next interval fires, or a second
// process) skip instead of interleaving check-then-write cycles on the same
// event rows.
package runlock

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockKey = "tracktime365:sync:lock"

// Lock is a best-effort run lock. With redis it excludes runs across
// processes; without redis it falls back to in-process exclusion only.
type Lock struct {
	redis *redis.Client
	ttl   time.Duration
	token string

	mu   sync.Mutex
	held bool
}

// New creates a run lock. redisClient may be nil.
func New(redisClient *redis.Client, token string, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Lock{
		redis: redisClient,
		ttl:   ttl,
		token: token,
	}
}

// TryAcquire attempts to take the lock. It never blocks: a held lock means
// another run is in flight and the caller should skip this cycle.
func (l *Lock) TryAcquire(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return false
	}

	if l.redis != nil {
		ok, err := l.redis.SetNX(ctx, lockKey, l.token, l.ttl).Result()
		if err != nil {
			// Redis unavailable: degrade to in-process exclusion rather
			// than blocking the sync entirely.
			l.held = true
			return true
		}
		if !ok {
			return false
		}
	}

	l.held = true
	return true
}

// Release gives the lock back. Only the token that acquired the redis key
// releases it, so an expired-and-reacquired lock is not stolen.
func (l *Lock) Release(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return
	}
	l.held = false

	if l.redis == nil {
		return
	}

	current, err := l.redis.Get(ctx, lockKey).Result()
	if err == nil && current == l.token {
		l.redis.Del(ctx, lockKey)
	}
}
