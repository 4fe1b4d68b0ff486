// Package redis connects the optional failure sink.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vestige-studio/payments-bridge/config"
	"github.com/vestige-studio/payments-bridge/pkg/queue"
)

// ErrDisabled is returned when no REDIS_ADDR is configured.
var ErrDisabled = errors.New("failure sink disabled: REDIS_ADDR not set")

const (
	dialTimeout = 5 * time.Second
	ioTimeout   = 3 * time.Second
)

// Client is the connection behind the failure sink.
type Client struct {
	*redis.Client
	addr   string
	logger *zap.Logger
}

// Options maps the sink settings to go-redis options. Timeouts are short so a
// slow sink cannot hold a webhook response.
func Options(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
		MaxRetries:   1,
	}
}

// NewFromConfig connects to the sink described by cfg and pings it.
func NewFromConfig(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rdb := redis.NewClient(Options(cfg))
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	logger.Info("failure sink connected", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return &Client{Client: rdb, addr: cfg.Addr, logger: logger}, nil
}

// FailureQueue returns the forward-failure list on this connection.
func (c *Client) FailureQueue() *queue.Queue {
	return queue.NewQueue(c.Client, c.logger)
}

// Close releases the connection.
func (c *Client) Close() error {
	if err := c.Client.Close(); err != nil {
		return fmt.Errorf("close redis %s: %w", c.addr, err)
	}
	c.logger.Debug("failure sink closed", zap.String("addr", c.addr))
	return nil
}
