package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Client wraps a go-redis connection so the stores in this package share one
// handle and the rest of the codebase never imports go-redis directly.
type Client struct {
	rdb *goredis.Client
}

func New(addr, password string, db int) *Client {
	opts := &goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	return &Client{rdb: goredis.NewClient(opts)}
}

// Ping verifies connectivity with a short bootstrap timeout.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
