// Package lock provides a single-holder Redis lock. A holder identifies itself
// with a random token so only it can release or extend its own lock.
package lock

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotAcquired = errors.New("lock not acquired")
	ErrNotHeld     = errors.New("lock not held")
)

const (
	unlockScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"
	extendScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('pexpire', KEYS[1], ARGV[2]) else return 0 end"
)

type Mutex struct {
	client redis.UniversalClient
	key    string
	token  string
}

func NewMutex(client redis.UniversalClient, key, token string) *Mutex {
	return &Mutex{client: client, key: key, token: token}
}

func (m *Mutex) Key() string {
	return m.key
}

// TryLock makes one attempt to take the lock for ttl.
func (m *Mutex) TryLock(ctx context.Context, ttl time.Duration) error {
	ok, err := m.client.SetNX(ctx, m.key, m.token, ttl).Result()
	if err != nil {
		return fmt.Errorf("lock %s: %w", m.key, err)
	}
	if !ok {
		return fmt.Errorf("lock %s is already held: %w", m.key, ErrNotAcquired)
	}
	return nil
}

// Lock retries TryLock with a short random pause until it succeeds, wait
// elapses or ctx is done.
func (m *Mutex) Lock(ctx context.Context, ttl, wait time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	for {
		err := m.TryLock(ctx, ttl)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNotAcquired) && ctx.Err() == nil {
			return err
		}

		pause := time.Duration(10+rand.Intn(90)) * time.Millisecond
		select {
		case <-ctx.Done():
			return fmt.Errorf("lock %s not acquired within %s: %w", m.key, wait, ErrNotAcquired)
		case <-time.After(pause):
		}
	}
}

func (m *Mutex) Unlock(ctx context.Context) error {
	res, err := m.client.Eval(ctx, unlockScript, []string{m.key}, m.token).Result()
	if err != nil {
		return fmt.Errorf("unlock %s: %w", m.key, err)
	}
	if res == int64(0) {
		return fmt.Errorf("unlock %s: %w", m.key, ErrNotHeld)
	}
	return nil
}

func (m *Mutex) Extend(ctx context.Context, ttl time.Duration) error {
	res, err := m.client.Eval(ctx, extendScript, []string{m.key}, m.token, fmt.Sprintf("%d", ttl.Milliseconds())).Result()
	if err != nil {
		return fmt.Errorf("extend %s: %w", m.key, err)
	}
	if res == int64(0) {
		return fmt.Errorf("extend %s: %w", m.key, ErrNotHeld)
	}
	return nil
}

// Manager hands out mutexes with fresh tokens and fixed timings.
type Manager struct {
	client redis.UniversalClient
	ttl    time.Duration
	wait   time.Duration
	log    logrus.FieldLogger
}

func NewManager(client redis.UniversalClient, ttl, wait time.Duration, log logrus.FieldLogger) *Manager {
	return &Manager{client: client, ttl: ttl, wait: wait, log: log}
}

// WithLock runs fn while holding key. The lock is released even when fn
// fails; a failed release is only logged since the TTL reclaims it.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	mu := NewMutex(m.client, key, uuid.NewString())
	if err := mu.Lock(ctx, m.ttl, m.wait); err != nil {
		return err
	}

	defer func() {
		if err := mu.Unlock(context.WithoutCancel(ctx)); err != nil {
			m.log.WithError(err).WithField("key", key).Warn("release lock")
		}
	}()

	return fn(ctx)
}
