// Package budget persists oracle token and cost counters in a key-value store.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/allbravos/styletelling-ai/internal/db"
)

// Default counter lifetimes: a day key outlives its day, a month key its month.
const (
	DefaultDailyTTL   = 48 * time.Hour
	DefaultMonthlyTTL = 62 * 24 * time.Hour
)

// store is the consumer interface for budget operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store implements oracle.BudgetStore with INCRBY counters that expire after their period.
type Store struct {
	store    store
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a budget store. Zero TTLs fall back to the defaults.
func New(s store, dailyTTL, monthTTL time.Duration) *Store {
	if dailyTTL <= 0 {
		dailyTTL = DefaultDailyTTL
	}
	if monthTTL <= 0 {
		monthTTL = DefaultMonthlyTTL
	}
	return &Store{
		store:    s,
		dailyTTL: dailyTTL,
		monthTTL: monthTTL,
	}
}

// IncrBy adds val to a counter and arms its expiry on first write.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if err := s.store.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("budget incr %s: %w", key, err)
	}

	// NX keeps the first expiry; later increments must not extend it.
	if err := s.store.Expire(ctx, key, s.ttlForKey(key), true); err != nil {
		return fmt.Errorf("budget expire %s: %w", key, err)
	}
	return nil
}

// Get returns a counter value, 0 when the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget get %s: %w", key, err)
	}

	val, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget get %s: parse %q: %w", key, data, err)
	}
	return val, nil
}

// ttlForKey picks the lifetime from the period segment of
// <prefix>budget:<provider>[:cost]:<daily|monthly>:<stamp>.
func (s *Store) ttlForKey(key string) time.Duration {
	if strings.Contains(key, ":daily:") {
		return s.dailyTTL
	}
	return s.monthTTL
}
