package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/turtacn/smartscanon/pkg/errors"
)

func TestMutex_LockUnlock(t *testing.T) {
	c, mr := newMiniClient(t)
	ctx := context.Background()

	m := NewMutex(c, "rules", nil, WithLockTTL(time.Second))
	assert.Equal(t, "t:lock:rules", m.Key())

	require.NoError(t, m.Lock(ctx))
	assert.True(t, mr.Exists("t:lock:rules"))

	require.NoError(t, m.Unlock(ctx))
	assert.False(t, mr.Exists("t:lock:rules"))
}

func TestMutex_Contention(t *testing.T) {
	c, _ := newMiniClient(t)
	ctx := context.Background()

	first := NewMutex(c, "rules", nil)
	second := NewMutex(c, "rules", nil, WithRetry(2, 5*time.Millisecond))

	require.NoError(t, first.Lock(ctx))
	err := second.Lock(ctx)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeRuleImportLocked), "%v", err)

	assert.Equal(t, ErrLockNotHeld, second.Unlock(ctx))
	require.NoError(t, first.Unlock(ctx))

	ok, err := second.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMutex_Expiry(t *testing.T) {
	c, mr := newMiniClient(t)
	ctx := context.Background()

	m := NewMutex(c, "rules", nil, WithLockTTL(time.Second))
	require.NoError(t, m.Lock(ctx))
	mr.FastForward(2 * time.Second)

	other := NewMutex(c, "rules", nil)
	ok, err := other.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ErrLockNotHeld, m.Unlock(ctx))
}

func TestMutex_Extend(t *testing.T) {
	c, mr := newMiniClient(t)
	ctx := context.Background()

	m := NewMutex(c, "rules", nil, WithLockTTL(time.Second))
	require.NoError(t, m.Lock(ctx))

	ok, err := m.Extend(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Greater(t, mr.TTL("t:lock:rules"), 30*time.Second)
}

func TestMutex_Watchdog(t *testing.T) {
	c, _ := newMiniClient(t)
	m := NewMutex(c, "rules", nil, WithLockTTL(300*time.Millisecond), WithWatchdog())
	require.NoError(t, m.Lock(context.Background()))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, m.Unlock(context.Background()))
}

//Personal.AI order the ending
