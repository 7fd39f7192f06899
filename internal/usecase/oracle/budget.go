package oracle

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/allbravos/styletelling-ai/internal/domain"
)

// BudgetAction defines behavior when the token budget is exhausted.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but lets the call through.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject fails the call with domain.ErrOracleQuotaExceeded.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetLimits caps token consumption. Zero means unlimited.
type BudgetLimits struct {
	DailyTokens   int64
	MonthlyTokens int64
	Action        BudgetAction
}

// BudgetStore persists counters. IncrBy must be safe to call repeatedly.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// Usage is a point-in-time view of consumption.
type Usage struct {
	Provider       string
	DailyUsed      int64
	DailyLimit     int64
	MonthlyUsed    int64
	MonthlyLimit   int64
	DailyCostUSD   float64
	MonthlyCostUSD float64
	DayStart       time.Time
	MonthStart     time.Time
}

// counters is one accounting period. Cost is kept in micro-dollars so it can
// share the integer INCRBY path with tokens.
type counters struct {
	start      time.Time
	tokens     int64
	costMicros int64
}

// BudgetTracker accounts oracle tokens and spend per provider. Check never
// leaves memory; Record persists write-behind when a store is attached.
type BudgetTracker struct {
	mu        sync.Mutex
	keyPrefix string
	provider  string
	limits    BudgetLimits
	day       counters
	month     counters
	store     BudgetStore
	now       func() time.Time
	logger    *zap.Logger
}

// NewBudgetTracker creates a tracker for provider.
func NewBudgetTracker(keyPrefix, provider string, limits BudgetLimits, logger *zap.Logger) *BudgetTracker {
	b := &BudgetTracker{
		keyPrefix: keyPrefix,
		provider:  provider,
		limits:    limits,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
	now := b.now()
	b.day.start = truncateToDay(now)
	b.month.start = truncateToMonth(now)
	return b
}

// WithStore attaches a persistence store and loads the current period counters.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	b.load(ctx, &b.day, "daily", b.day.start.Format("2006-01-02"))
	b.load(ctx, &b.month, "monthly", b.month.start.Format("2006-01"))

	b.logger.Info("Oracle budget loaded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.day.tokens),
		zap.Int64("monthly_used", b.month.tokens),
	)
	return b
}

func (b *BudgetTracker) load(ctx context.Context, c *counters, period, stamp string) {
	if v, err := b.store.Get(ctx, b.tokensKey(period, stamp)); err == nil {
		c.tokens = v
	} else {
		b.logger.Warn("Failed to load token budget", zap.String("period", period), zap.Error(err))
	}
	if v, err := b.store.Get(ctx, b.costKey(period, stamp)); err == nil {
		c.costMicros = v
	} else {
		b.logger.Warn("Failed to load cost budget", zap.String("period", period), zap.Error(err))
	}
}

func (b *BudgetTracker) tokensKey(period, stamp string) string {
	return fmt.Sprintf("%sbudget:%s:%s:%s", b.keyPrefix, b.provider, period, stamp)
}

func (b *BudgetTracker) costKey(period, stamp string) string {
	return fmt.Sprintf("%sbudget:%s:cost:%s:%s", b.keyPrefix, b.provider, period, stamp)
}

// Check reports domain.ErrOracleQuotaExceeded when a limit is hit and the action is reject.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollover()

	dailyExceeded := b.limits.DailyTokens > 0 && b.day.tokens >= b.limits.DailyTokens
	monthlyExceeded := b.limits.MonthlyTokens > 0 && b.month.tokens >= b.limits.MonthlyTokens
	if !dailyExceeded && !monthlyExceeded {
		return nil
	}
	if b.limits.Action == BudgetActionReject {
		return fmt.Errorf("provider %s: %w", b.provider, domain.ErrOracleQuotaExceeded)
	}

	b.logger.Warn("Oracle token budget exceeded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.day.tokens),
		zap.Int64("daily_limit", b.limits.DailyTokens),
		zap.Int64("monthly_used", b.month.tokens),
		zap.Int64("monthly_limit", b.limits.MonthlyTokens),
	)
	return nil
}

// Record adds consumed tokens and spend to both periods.
func (b *BudgetTracker) Record(tokens int64, costUSD float64) {
	micros := int64(math.Round(costUSD * 1e6))

	b.mu.Lock()
	b.rollover()
	b.day.tokens += tokens
	b.month.tokens += tokens
	b.day.costMicros += micros
	b.month.costMicros += micros
	store := b.store
	dayStamp := b.day.start.Format("2006-01-02")
	monthStamp := b.month.start.Format("2006-01")
	b.mu.Unlock()

	if store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	writes := []struct {
		key string
		val int64
	}{
		{b.tokensKey("daily", dayStamp), tokens},
		{b.tokensKey("monthly", monthStamp), tokens},
		{b.costKey("daily", dayStamp), micros},
		{b.costKey("monthly", monthStamp), micros},
	}
	for _, w := range writes {
		if w.val == 0 {
			continue
		}
		if err := store.IncrBy(ctx, w.key, w.val); err != nil {
			b.logger.Warn("Failed to persist oracle budget", zap.String("key", w.key), zap.Error(err))
		}
	}
}

// RemainingDaily returns tokens left today, or -1 when unlimited.
func (b *BudgetTracker) RemainingDaily() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()
	return remaining(b.limits.DailyTokens, b.day.tokens)
}

// RemainingMonthly returns tokens left this month, or -1 when unlimited.
func (b *BudgetTracker) RemainingMonthly() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()
	return remaining(b.limits.MonthlyTokens, b.month.tokens)
}

// Snapshot returns current consumption.
func (b *BudgetTracker) Snapshot() Usage {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()
	return Usage{
		Provider:       b.provider,
		DailyUsed:      b.day.tokens,
		DailyLimit:     b.limits.DailyTokens,
		MonthlyUsed:    b.month.tokens,
		MonthlyLimit:   b.limits.MonthlyTokens,
		DailyCostUSD:   float64(b.day.costMicros) / 1e6,
		MonthlyCostUSD: float64(b.month.costMicros) / 1e6,
		DayStart:       b.day.start,
		MonthStart:     b.month.start,
	}
}

func remaining(limit, used int64) int64 {
	if limit == 0 {
		return -1
	}
	return max(limit-used, 0)
}

// rollover zeroes a period once the clock leaves it. Caller holds mu.
func (b *BudgetTracker) rollover() {
	now := b.now()
	if today := truncateToDay(now); today.After(b.day.start) {
		b.day = counters{start: today}
	}
	if thisMonth := truncateToMonth(now); thisMonth.After(b.month.start) {
		b.month = counters{start: thisMonth}
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
