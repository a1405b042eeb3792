package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewClient dials redis with a short probe. Callers should treat a nil client
// as "cache disabled" and run uncached.
func NewClient(addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}
