package envcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/allbravos/styletelling-ai/internal/db"
)

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn   func(ctx context.Context, key string) ([]byte, error)
	setNXFn func(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if m.setNXFn != nil {
		return m.setNXFn(ctx, key, value, ttl)
	}
	return true, nil
}

// memStore is a write-once in-memory store.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) SetNX(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value
	return true, nil
}

func newTestCache(t *testing.T, s store) *Cache {
	t.Helper()
	return New(s, "test:", time.Hour, nil, zap.NewNop())
}
