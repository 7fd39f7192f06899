package db

import (
	"context"
	"time"
)

// Store is the database facade used by the envelope cache and budget counters.
type Store interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only if key is absent. ttl <= 0 means no expiry.
	// Reports whether the write happened.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}
