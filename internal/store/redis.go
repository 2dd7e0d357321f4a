package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis holds the client shared by the health check and the study activity
// queue.
type Redis struct {
	Client *redis.Client
}

// NewRedis opens a client against addr. opTimeout bounds each read and write;
// dialing gets twice that so a cold connect does not trip the limit.
func NewRedis(addr string, opTimeout time.Duration) *Redis {
	if opTimeout <= 0 {
		opTimeout = time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * opTimeout,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
	})
	return &Redis{Client: client}
}

// Healthy reports whether a ping round-trips. A nil receiver counts as down,
// so callers holding an optional Redis can check it without guarding.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
