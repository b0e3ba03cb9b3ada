package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PageCache keeps fetched source documents keyed by URL so reruns against
// the same snapshot do not hit the network.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func New(addr string, db int, ttl time.Duration, logger *zap.Logger) *PageCache {
	logger.Info("Creating redis page cache",
		zap.String("addr", addr),
		zap.Int("db", db),
		zap.Duration("ttl", ttl))
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	return NewWithClient(client, ttl, logger)
}

func NewWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *PageCache {
	return &PageCache{client: client, ttl: ttl, logger: logger}
}

// Ping checks the connection to the Redis server.
func (c *PageCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *PageCache) key(url string) string {
	return fmt.Sprintf("banketl:page:%s", url)
}

// Get returns the cached body. A miss is reported as ok=false with no error.
func (c *PageCache) Get(ctx context.Context, url string) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, c.key(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("Page cache miss", zap.String("url", url))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	c.logger.Debug("Page cache hit", zap.String("url", url), zap.Int("bytes", len(b)))
	return b, true, nil
}

func (c *PageCache) Set(ctx context.Context, url string, body []byte) error {
	return c.client.Set(ctx, c.key(url), body, c.ttl).Err()
}

func (c *PageCache) Close() error {
	return c.client.Close()
}
