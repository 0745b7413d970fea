package geocode

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/house-marketplace/pkg/helpers"
)

// Resolver is implemented by PositionStack and Cached.
type Resolver interface {
	Resolve(ctx context.Context, address string) (Result, error)
}

// Cached remembers resolved addresses in Redis. Misses and failures are not cached.
type Cached struct {
	Next   Resolver
	RDB    *redis.Client
	TTL    time.Duration
	Logger *logrus.Logger
}

func cacheKey(address string) string {
	return "geocode:" + strings.Join(strings.Fields(strings.ToLower(address)), " ")
}

func (c *Cached) Resolve(ctx context.Context, address string) (Result, error) {
	if c.RDB == nil {
		return c.Next.Resolve(ctx, address)
	}
	key := cacheKey(address)
	var hit Result
	if ok, err := helpers.RedisGetJSON(ctx, c.RDB, key, &hit); err == nil && ok {
		return hit, nil
	} else if err != nil && c.Logger != nil {
		c.Logger.WithError(err).WithField("key", key).Warn("geocode cache read failed")
	}

	res, err := c.Next.Resolve(ctx, address)
	if err != nil {
		return Result{}, err
	}
	if err := helpers.RedisSetJSON(ctx, c.RDB, key, res, c.TTL); err != nil && c.Logger != nil {
		c.Logger.WithError(err).WithField("key", key).Warn("geocode cache write failed")
	}
	return res, nil
}
