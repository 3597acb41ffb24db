package redislock

import (
	"context"
	"fmt"
	"time"

	"rifei/application"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// releaseScript deletes the lock only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

const keyPrefix = "rifei:lock:"

// Locker hands out short-lived exclusive locks stored in Redis
type Locker struct {
	client *redis.Client
}

// NewLocker creates a locker on top of an open client
func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client}
}

// Open parses a redis:// URL and pings the server
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Acquire takes the lock for key until ttl passes or release is called.
// A lock held by someone else yields application.ErrLockHeld.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	redisKey := keyPrefix + key

	ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: %w", key, application.ErrLockHeld)
	}

	release := func() {
		// The caller's context may already be done
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil {
			log.WithFields(log.Fields{
				"key":   key,
				"error": err,
			}).Warn("Failed to release lock")
		}
	}
	return release, nil
}
