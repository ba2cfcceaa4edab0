package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// DefaultLockKey guards the shared membership document.
	DefaultLockKey = "lock:members:document"

	defaultLockTTL    = 5 * time.Second
	defaultRetryDelay = 25 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token, so a lock
// that expired and was taken by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a single-key mutual exclusion lock shared by every process that
// points at the same Redis. Key format: lock:<resource>.
type Locker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	retry  time.Duration
	log    zerolog.Logger
}

// NewLocker returns a Locker on key. The lock expires after ttl if the holder
// never releases it.
func NewLocker(client *redis.Client, key string, ttl time.Duration, log zerolog.Logger) *Locker {
	if key == "" {
		key = DefaultLockKey
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Locker{client: client, key: key, ttl: ttl, retry: defaultRetryDelay, log: log}
}

// Lock blocks until the key is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", l.key, err)
		}
		if ok {
			return func() { l.release(token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire %s: %w", l.key, ctx.Err())
		case <-time.After(l.retry):
		}
	}
}

func (l *Locker) release(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), l.ttl)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
		l.log.Warn().Err(err).Str("key", l.key).Msg("failed to release storage lock")
	}
}
