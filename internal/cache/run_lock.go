package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const runLockKey = keyPrefix + "run_lock"

// RunLock guarantees at most one active replenishment run.
type RunLock interface {
	// TryAcquire returns a release func when the lock was free, or ok=false when
	// another run holds it.
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}

// releaseScript deletes the lock only when it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisRunLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRunLock returns a lock shared by every process using the same redis.
// ttl bounds how long a crashed holder can block later runs.
func NewRedisRunLock(client *redis.Client, ttl time.Duration) RunLock {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &redisRunLock{client: client, ttl: ttl}
}

func (l *redisRunLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()

	err := l.client.SetArgs(ctx, runLockKey, token, redis.SetArgs{Mode: "NX", TTL: l.ttl}).Err()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis lock failed: %w", err)
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		deleted, err := releaseScript.Run(ctx, l.client, []string{runLockKey}, token).Int()
		if err != nil {
			log.Warn().Err(err).Str("key", runLockKey).Msg("failed to release run lock, it expires with its ttl")
			return
		}
		if deleted == 0 {
			log.Warn().Str("key", runLockKey).Dur("ttl", l.ttl).Msg("run lock expired before release")
		}
	}
	return release, true, nil
}

type localRunLock struct {
	mu sync.Mutex
}

// NewLocalRunLock returns an in-process lock, used when redis is disabled.
func NewLocalRunLock() RunLock {
	return &localRunLock{}
}

func (l *localRunLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	return l.mu.Unlock, true, nil
}
