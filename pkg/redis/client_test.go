package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vestige-studio/payments-bridge/config"
	"github.com/vestige-studio/payments-bridge/pkg/queue"
)

func TestOptions(t *testing.T) {
	opts := Options(config.RedisConfig{Addr: "localhost:6379", Password: "secret", DB: 3})

	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 5*time.Second, opts.DialTimeout)
	assert.Equal(t, 3*time.Second, opts.ReadTimeout)
}

func TestNewFromConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	c, err := NewFromConfig(ctx, config.RedisConfig{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	defer c.Close()

	q := c.FailureQueue()
	require.NoError(t, q.Push(ctx, queue.FailedRecord{Reference: "cs_1", Flow: "cours"}))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.True(t, mr.Exists(queue.QueueForwardFailures))
}

func TestNewFromConfigDisabled(t *testing.T) {
	_, err := NewFromConfig(context.Background(), config.RedisConfig{}, nil)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNewFromConfigUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewFromConfig(context.Background(), config.RedisConfig{Addr: addr}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), addr)
}

func TestNewFromConfigWrongPassword(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("right")

	_, err := NewFromConfig(context.Background(), config.RedisConfig{Addr: mr.Addr(), Password: "wrong"}, nil)
	assert.Error(t, err)
}
