package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/pkg/errors"
)

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeRuleImportLocked, "lock is held by another owner")
	ErrLockNotHeld     = errors.New(errors.ErrCodeConflict, "lock not held by this owner")
)

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Locker guards a named resource across processes.
type Locker interface {
	Lock(ctx context.Context) error
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
	Extend(ctx context.Context, ttl time.Duration) (bool, error)
}

type LockOption func(*Mutex)

func WithLockTTL(ttl time.Duration) LockOption {
	return func(m *Mutex) { m.ttl = ttl }
}

func WithRetry(count int, delay time.Duration) LockOption {
	return func(m *Mutex) {
		m.retryCount = count
		m.retryDelay = delay
	}
}

// WithWatchdog keeps the lock alive while held, refreshing every ttl/3.
func WithWatchdog() LockOption {
	return func(m *Mutex) { m.watchdog = true }
}

// Mutex is a single-owner lock stored as a plain key with a random token.
type Mutex struct {
	client     *Client
	key        string
	token      string
	ttl        time.Duration
	retryCount int
	retryDelay time.Duration
	watchdog   bool
	logger     logging.Logger

	stop chan struct{}
	done chan struct{}
}

// NewMutex builds a lock on "<prefix>lock:<name>".
func NewMutex(client *Client, name string, log logging.Logger, opts ...LockOption) *Mutex {
	if log == nil {
		log = logging.NewNopLogger()
	}
	m := &Mutex{
		client:     client,
		key:        client.Key("lock", name),
		token:      uuid.NewString(),
		ttl:        30 * time.Second,
		retryCount: 1,
		retryDelay: 100 * time.Millisecond,
		logger:     log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Key returns the redis key backing the lock.
func (m *Mutex) Key() string { return m.key }

// TryLock makes one acquisition attempt.
func (m *Mutex) TryLock(ctx context.Context) (bool, error) {
	ok, err := m.client.SetNX(ctx, m.key, m.token, m.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "lock acquisition failed")
	}
	if ok && m.watchdog {
		m.startWatchdog()
	}
	return ok, nil
}

// Lock retries TryLock up to the configured count.
func (m *Mutex) Lock(ctx context.Context) error {
	for i := 0; i < m.retryCount; i++ {
		ok, err := m.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if i == m.retryCount-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.retryDelay):
		}
	}
	return ErrLockNotAcquired.WithDetail(m.key)
}

// Unlock releases the lock if this Mutex still owns it.
func (m *Mutex) Unlock(ctx context.Context) error {
	m.stopWatchdog()
	res, err := unlockScript.Run(ctx, m.client.Underlying(), []string{m.key}, m.token).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "lock release failed")
	}
	if res == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Extend resets the expiry when this Mutex still owns the lock.
func (m *Mutex) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	res, err := extendScript.Run(ctx, m.client.Underlying(), []string{m.key}, m.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (m *Mutex) startWatchdog() {
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go func(stop <-chan struct{}, done chan<- struct{}) {
		defer close(done)
		ticker := time.NewTicker(m.ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), m.ttl/3)
				ok, err := m.Extend(ctx, m.ttl)
				cancel()
				if err != nil || !ok {
					m.logger.Warn("lock watchdog lost the lock", logging.String("key", m.key), logging.Err(err))
					return
				}
			}
		}
	}(m.stop, m.done)
}

func (m *Mutex) stopWatchdog() {
	if m.stop == nil {
		return
	}
	close(m.stop)
	<-m.done
	m.stop, m.done = nil, nil
}

//Personal.AI order the ending
