// Package cache holds short-lived key/value state: cached quotes and refresh
// tokens.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache: miss")

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Take returns the value and removes the key in one step.
	Take(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}
