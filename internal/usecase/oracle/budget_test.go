package oracle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/allbravos/styletelling-ai/internal/domain"
)

// --- Mocks ---

type mockBudgetStore struct {
	mu     sync.Mutex
	data   map[string]int64
	getErr error
	setErr error
}

func newMockBudgetStore() *mockBudgetStore {
	return &mockBudgetStore{data: make(map[string]int64)}
}

func (m *mockBudgetStore) IncrBy(_ context.Context, key string, val int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] += val
	return nil
}

func (m *mockBudgetStore) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return 0, m.getErr
	}
	return m.data[key], nil
}

func (m *mockBudgetStore) value(key string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key]
}

func newTracker(daily, monthly int64, action BudgetAction) *BudgetTracker {
	return NewBudgetTracker("st:", "openai", BudgetLimits{
		DailyTokens: daily, MonthlyTokens: monthly, Action: action,
	}, zap.NewNop())
}

// --- Tests ---

func TestBudgetTracker_RejectWhenExceeded(t *testing.T) {
	bt := newTracker(100, 0, BudgetActionReject)
	bt.Record(100, 0)

	err := bt.Check(context.Background())
	if !errors.Is(err, domain.ErrOracleQuotaExceeded) {
		t.Fatalf("expected ErrOracleQuotaExceeded, got %v", err)
	}
}

func TestBudgetTracker_WarnWhenExceeded(t *testing.T) {
	bt := newTracker(100, 0, BudgetActionWarn)
	bt.Record(200, 0)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil error for warn action, got %v", err)
	}
}

func TestBudgetTracker_MonthlyReject(t *testing.T) {
	bt := newTracker(0, 500, BudgetActionReject)
	bt.Record(500, 0)

	if err := bt.Check(context.Background()); !errors.Is(err, domain.ErrOracleQuotaExceeded) {
		t.Fatalf("expected ErrOracleQuotaExceeded for monthly limit, got %v", err)
	}
}

func TestBudgetTracker_Unlimited(t *testing.T) {
	bt := newTracker(0, 0, BudgetActionReject)
	bt.Record(999999999, 0)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil error for unlimited budget, got %v", err)
	}
	if bt.RemainingDaily() != -1 || bt.RemainingMonthly() != -1 {
		t.Errorf("expected -1 remaining, got %d/%d", bt.RemainingDaily(), bt.RemainingMonthly())
	}
}

func TestBudgetTracker_Remaining(t *testing.T) {
	bt := newTracker(1000, 10000, BudgetActionWarn)
	bt.Record(300, 0)

	if got := bt.RemainingDaily(); got != 700 {
		t.Errorf("expected daily remaining 700, got %d", got)
	}
	if got := bt.RemainingMonthly(); got != 9700 {
		t.Errorf("expected monthly remaining 9700, got %d", got)
	}

	bt.Record(5000, 0)
	if got := bt.RemainingDaily(); got != 0 {
		t.Errorf("expected daily remaining clamped to 0, got %d", got)
	}
}

func TestBudgetTracker_SnapshotCost(t *testing.T) {
	bt := newTracker(0, 0, BudgetActionWarn)
	bt.Record(1000, 0.0015)
	bt.Record(1000, 0.0025)

	u := bt.Snapshot()
	if u.DailyUsed != 2000 || u.MonthlyUsed != 2000 {
		t.Errorf("expected 2000 tokens, got %d/%d", u.DailyUsed, u.MonthlyUsed)
	}
	if u.DailyCostUSD < 0.00399 || u.DailyCostUSD > 0.00401 {
		t.Errorf("expected daily cost 0.004, got %f", u.DailyCostUSD)
	}
	if u.Provider != "openai" {
		t.Errorf("expected provider openai, got %q", u.Provider)
	}
}

func TestBudgetTracker_Rollover(t *testing.T) {
	bt := newTracker(100, 0, BudgetActionReject)
	day := time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)
	bt.now = func() time.Time { return day }
	bt.day.start = truncateToDay(day)
	bt.month.start = truncateToMonth(day)

	bt.Record(100, 0.01)
	if err := bt.Check(context.Background()); err == nil {
		t.Fatal("expected quota error before rollover")
	}

	day = day.Add(2 * time.Hour)
	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected budget reset after midnight, got %v", err)
	}
	u := bt.Snapshot()
	if u.MonthlyUsed != 0 || u.MonthlyCostUSD != 0 {
		t.Errorf("expected month reset on April 1st, got %d tokens / %f", u.MonthlyUsed, u.MonthlyCostUSD)
	}
}

func TestBudgetTracker_WithStore_LoadsValues(t *testing.T) {
	store := newMockBudgetStore()
	bt := newTracker(1000, 10000, BudgetActionReject)
	store.data[bt.tokensKey("daily", bt.day.start.Format("2006-01-02"))] = 300
	store.data[bt.tokensKey("monthly", bt.month.start.Format("2006-01"))] = 5000
	store.data[bt.costKey("daily", bt.day.start.Format("2006-01-02"))] = 1500000

	bt.WithStore(context.Background(), store)

	u := bt.Snapshot()
	if u.DailyUsed != 300 {
		t.Errorf("expected daily_used=300, got %d", u.DailyUsed)
	}
	if u.MonthlyUsed != 5000 {
		t.Errorf("expected monthly_used=5000, got %d", u.MonthlyUsed)
	}
	if u.DailyCostUSD != 1.5 {
		t.Errorf("expected daily cost 1.5, got %f", u.DailyCostUSD)
	}
}

func TestBudgetTracker_Record_PersistsToStore(t *testing.T) {
	store := newMockBudgetStore()
	bt := newTracker(1000, 10000, BudgetActionWarn).WithStore(context.Background(), store)

	bt.Record(100, 0.000002)
	bt.Record(200, 0)

	dayStamp := bt.day.start.Format("2006-01-02")
	if got := store.value(bt.tokensKey("daily", dayStamp)); got != 300 {
		t.Errorf("expected store daily=300, got %d", got)
	}
	if got := store.value(bt.costKey("daily", dayStamp)); got != 2 {
		t.Errorf("expected store daily cost=2 micros, got %d", got)
	}
	if got := store.value("st:budget:openai:daily:" + dayStamp); got != 300 {
		t.Errorf("expected prefixed key, got %d", got)
	}
}

func TestBudgetTracker_StoreErrors(t *testing.T) {
	store := newMockBudgetStore()
	store.getErr = errors.New("connection refused")

	bt := newTracker(1000, 10000, BudgetActionWarn).WithStore(context.Background(), store)
	if bt.Snapshot().DailyUsed != 0 {
		t.Errorf("expected daily_used=0 on load error, got %d", bt.Snapshot().DailyUsed)
	}

	store.mu.Lock()
	store.setErr = errors.New("write timeout")
	store.mu.Unlock()

	bt.Record(50, 0)
	if bt.Snapshot().DailyUsed != 50 {
		t.Errorf("expected in-memory daily_used=50 despite store error, got %d", bt.Snapshot().DailyUsed)
	}
}

func TestBudgetTracker_ConcurrentRecord(t *testing.T) {
	bt := newTracker(0, 0, BudgetActionWarn)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bt.Record(10, 0)
		}()
	}
	wg.Wait()

	if got := bt.Snapshot().DailyUsed; got != 500 {
		t.Errorf("expected 500 tokens, got %d", got)
	}
}
