package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/smartscanon/internal/config"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/smartscanon/pkg/errors"
)

func newMiniClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(config.RedisConfig{Mode: "standalone", Addr: mr.Addr(), KeyPrefix: "t:"}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestNewClient_Standalone(t *testing.T) {
	c, _ := newMiniClient(t)
	assert.NoError(t, c.Ping(context.Background()))
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	c, err := NewClient(config.RedisConfig{Mode: "standalone", Addr: "127.0.0.1:1"}, nil)
	assert.Nil(t, c)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func TestClient_Key(t *testing.T) {
	c := NewClientFromRedis(nil, "smartscanon:", nil)
	assert.Equal(t, "smartscanon:canon:abc", c.Key("canon:abc"))
	assert.Equal(t, "smartscanon:lock:rules", c.Key("lock", "rules"))
}

func TestClient_Commands(t *testing.T) {
	c, mr := newMiniClient(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, c.Key("a"), "1", 0).Err())
	v, err := mr.Get("t:a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	ok, err := c.SetNX(ctx, c.Key("a"), "2", 0).Result()
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := c.Del(ctx, c.Key("a")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestClient_Close(t *testing.T) {
	c, _ := newMiniClient(t)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.Equal(t, ErrClientClosed, c.Get(context.Background(), "x").Err())
	assert.Equal(t, ErrClientClosed, c.Ping(context.Background()))
}

//Personal.AI order the ending
