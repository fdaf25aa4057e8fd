package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ShepherdLoop/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FollowUpLocker serialises mutations of a single follow-up. fn runs while the
// lock for id is held.
type FollowUpLocker interface {
	WithFollowUpLock(ctx context.Context, id int, fn func(ctx context.Context) error) error
}

const (
	lockRetries    = 5
	lockRetryDelay = 50 * time.Millisecond

	DefaultFollowUpLockTTL = 10 * time.Second
)

type localFollowUpLocker struct {
	mu    sync.Mutex
	locks map[int]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// NewLocalFollowUpLocker locks within this process only. It is the fallback
// when Redis is not configured.
func NewLocalFollowUpLocker() FollowUpLocker {
	return &localFollowUpLocker{locks: make(map[int]*keyedLock)}
}

func (l *localFollowUpLocker) WithFollowUpLock(ctx context.Context, id int, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[id] = lock
	}
	lock.refs++
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}()

	select {
	case lock.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-lock.ch }()

	return fn(ctx)
}

type redisFollowUpLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisFollowUpLocker locks across processes with a per follow-up Redis key.
// When the key stays held through all retries the call fails with
// models.ErrVersionConflict.
func NewRedisFollowUpLocker(client *redis.Client, ttl time.Duration) FollowUpLocker {
	return &redisFollowUpLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisFollowUpLocker) WithFollowUpLock(ctx context.Context, id int, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:follow_up:%d", id)
	token := uuid.NewString()

	acquired := false
	for i := 0; i < lockRetries; i++ {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire follow-up lock: %w", err)
		}
		if ok {
			acquired = true
			break
		}

		select {
		case <-time.After(lockRetryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if !acquired {
		return fmt.Errorf("%w: follow-up %d is being modified", models.ErrVersionConflict, id)
	}

	defer func() {
		if err := l.release(context.WithoutCancel(ctx), key, token); err != nil {
			log.Printf("Failed to release lock for follow-up %d: %v", id, err)
		}
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisFollowUpLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release follow-up lock: %w", err)
	}
	return nil
}
