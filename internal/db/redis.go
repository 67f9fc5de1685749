package db

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisOptions selects a Redis server. URL (redis:// or rediss://) takes precedence over Addr.
type RedisOptions struct {
	URL      string
	Addr     string
	Password string
	DB       int
}

// NewRedisClient builds a client from opts without connecting.
func NewRedisClient(opts RedisOptions) (*redis.Client, error) {
	if opts.URL != "" {
		o, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, err
		}
		return redis.NewClient(o), nil
	}
	return redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB}), nil
}

// OpenRedis builds a client and pings it. Caller must Close the client when done.
func OpenRedis(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	c, err := NewRedisClient(opts)
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}
