package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kidpech/users_api/internal/config"
)

const pingTimeout = 5 * time.Second

// Client holds the connection shared by the session cache and the rate
// limiter.
type Client struct {
	Native *redis.Client
}

func options(cfg config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// Connect dials redis and fails unless it answers a PING in time. Callers
// treat a failure as "run without redis".
func Connect(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address not configured")
	}
	native := redis.NewClient(options(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := native.Ping(pingCtx).Err(); err != nil {
		_ = native.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	if logger != nil {
		logger.Info("redis connected", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}
	return &Client{Native: native}, nil
}

// Close releases the pool. Safe on a nil Client.
func (c *Client) Close() error {
	if c == nil || c.Native == nil {
		return nil
	}
	return c.Native.Close()
}
