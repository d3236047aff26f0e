package cache

import (
	"context"
	"time"
)

// Cache stores short-lived JSON values. The analysis service uses it to
// dedupe identical non-regenerate requests.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
