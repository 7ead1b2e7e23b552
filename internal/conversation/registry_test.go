package conversation

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"expense-tracker-bot-go/internal/database"
	"expense-tracker-bot-go/internal/models"
	"expense-tracker-bot-go/internal/store"

	"github.com/shopspring/decimal"
)

type fakeInserter struct {
	mu     sync.Mutex
	params []store.InsertParams
	err    error
}

func (f *fakeInserter) Insert(_ context.Context, params store.InsertParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.params = append(f.params, params)
	return int64(len(f.params)), nil
}

func (f *fakeInserter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.params)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func feed(t *testing.T, r *Registry, key Key, inputs ...string) []string {
	t.Helper()
	var out []string
	for _, input := range inputs {
		replies, handled, err := r.Handle(context.Background(), key, input)
		if err != nil {
			t.Fatalf("Handle(%q) failed: %v", input, err)
		}
		if !handled {
			t.Fatalf("Handle(%q): no active session", input)
		}
		out = append(out, replies...)
	}
	return out
}

func TestRegistry_InteractiveScenarioPersistsOneRow(t *testing.T) {
	ctx := context.Background()
	service, err := database.NewService(ctx, models.DatabaseConfig{
		Driver:      "sqlite3",
		SqlitePath:  filepath.Join(t.TempDir(), "flow.db"),
		MinConns:    1,
		MaxConns:    1,
		PingTimeout: 5 * time.Second,
		IdRetries:   3,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	defer service.Close()

	c := &clock{now: testNow}
	registry := NewRegistry(RegistryConfig{Store: service, Now: c.Now})
	key := Key{ChatId: 10, UserId: 77}

	if got := registry.Begin(key); len(got) != 1 || got[0] != PromptCategory {
		t.Fatalf("Unexpected begin replies: %v", got)
	}

	replies := feed(t, registry, key, "petrol", "abc", "500", "not a date", "2025-01-15", "")
	want := []string{PromptAmount, PromptAmountRetry, PromptDate, PromptDateRetry, PromptDescription, ReplySaved}
	if len(replies) != len(want) {
		t.Fatalf("Expected replies %v, got %v", want, replies)
	}
	for i := range want {
		if replies[i] != want[i] {
			t.Errorf("Reply %d: expected %q, got %q", i, want[i], replies[i])
		}
	}
	if registry.Active(key) {
		t.Error("Expected session to be discarded after completion")
	}

	rows, err := service.ExportAll(ctx, 77)
	if err != nil {
		t.Fatalf("ExportAll failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected exactly one row, got %d", len(rows))
	}
	row := rows[0]
	if row.Category != "petrol" || !row.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Unexpected row: %s %s", row.Category, row.Amount.String())
	}
	if row.Date.Format("2006-01-02") != "2025-01-15" {
		t.Errorf("Expected 2025-01-15, got %s", row.Date.Format("2006-01-02"))
	}
	if row.DescriptionOrEmpty() != "" {
		t.Errorf("Expected empty description, got %q", row.DescriptionOrEmpty())
	}
}

func TestRegistry_CancelAtEveryStepPersistsNothing(t *testing.T) {
	steps := []string{"food", "250", "today"}
	for n := 0; n <= len(steps); n++ {
		inserter := &fakeInserter{}
		registry := NewRegistry(RegistryConfig{Store: inserter, Now: func() time.Time { return testNow }})
		key := Key{ChatId: 1, UserId: 1}

		registry.Begin(key)
		feed(t, registry, key, steps[:n]...)

		if got := registry.Cancel(key); got != ReplyCancelled {
			t.Errorf("After %d steps: expected %q, got %q", n, ReplyCancelled, got)
		}
		if registry.Active(key) {
			t.Errorf("After %d steps: session still active", n)
		}
		if inserter.count() != 0 {
			t.Errorf("After %d steps: expected no inserts, got %d", n, inserter.count())
		}

		_, handled, err := registry.Handle(context.Background(), key, "more text")
		if handled || err != nil {
			t.Errorf("After cancel: expected message to be unhandled, got handled=%v err=%v", handled, err)
		}
	}
}

func TestRegistry_CancelWithoutSession(t *testing.T) {
	registry := NewRegistry(RegistryConfig{Store: &fakeInserter{}})
	if got := registry.Cancel(Key{ChatId: 5, UserId: 5}); got != ReplyNothingActive {
		t.Errorf("Expected %q, got %q", ReplyNothingActive, got)
	}
}

func TestRegistry_FailedInsertKeepsDescriptionStep(t *testing.T) {
	inserter := &fakeInserter{err: store.ErrStorage}
	registry := NewRegistry(RegistryConfig{Store: inserter, Now: func() time.Time { return testNow }})
	key := Key{ChatId: 3, UserId: 4}

	registry.Begin(key)
	feed(t, registry, key, "rent", "12000", "2025-03-01")

	replies, handled, err := registry.Handle(context.Background(), key, "march")
	if !handled {
		t.Fatal("Expected message to be handled")
	}
	if !errors.Is(err, store.ErrStorage) {
		t.Fatalf("Expected ErrStorage, got %v", err)
	}
	if len(replies) != 0 {
		t.Errorf("Expected no success reply, got %v", replies)
	}
	if !registry.Active(key) {
		t.Fatal("Expected session to survive a failed insert")
	}

	// Retry once storage recovers
	inserter.mu.Lock()
	inserter.err = nil
	inserter.mu.Unlock()

	replies = feed(t, registry, key, "march rent")
	if len(replies) != 1 || replies[0] != ReplySaved {
		t.Errorf("Expected saved reply, got %v", replies)
	}
	if inserter.count() != 1 {
		t.Fatalf("Expected one insert, got %d", inserter.count())
	}
	got := inserter.params[0]
	if got.UserId != 4 || got.Category != "rent" || got.DateText != "2025-03-01" {
		t.Errorf("Unexpected insert params: %+v", got)
	}
	if got.Description == nil || *got.Description != "march rent" {
		t.Errorf("Expected description 'march rent', got %v", got.Description)
	}
}

func TestRegistry_BeginRestartsActiveSession(t *testing.T) {
	inserter := &fakeInserter{}
	registry := NewRegistry(RegistryConfig{Store: inserter})
	key := Key{ChatId: 1, UserId: 2}

	registry.Begin(key)
	feed(t, registry, key, "food", "99")
	registry.Begin(key)

	replies := feed(t, registry, key, "travel")
	if len(replies) != 1 || replies[0] != PromptAmount {
		t.Errorf("Expected fresh flow to ask for amount, got %v", replies)
	}
}

func TestRegistry_SessionsAreIsolatedPerKey(t *testing.T) {
	inserter := &fakeInserter{}
	registry := NewRegistry(RegistryConfig{Store: inserter, Now: func() time.Time { return testNow }})
	alice := Key{ChatId: 100, UserId: 1}
	bob := Key{ChatId: 200, UserId: 2}

	registry.Begin(alice)
	registry.Begin(bob)
	feed(t, registry, alice, "food")
	feed(t, registry, bob, "fuel", "40")

	// Alice is still at the amount step
	replies := feed(t, registry, alice, "not a number")
	if len(replies) != 1 || replies[0] != PromptAmountRetry {
		t.Errorf("Expected alice to be re-prompted for amount, got %v", replies)
	}

	if registry.Cancel(bob) != ReplyCancelled {
		t.Error("Expected bob's session to be cancelled")
	}
	if !registry.Active(alice) {
		t.Error("Cancelling bob must not affect alice")
	}
}

func TestRegistry_CleanupIdleSessions(t *testing.T) {
	c := &clock{now: testNow}
	registry := NewRegistry(RegistryConfig{Store: &fakeInserter{}, IdleTTL: 10 * time.Minute, Now: c.Now})
	stale := Key{ChatId: 1, UserId: 1}
	fresh := Key{ChatId: 2, UserId: 2}

	registry.Begin(stale)
	c.Advance(8 * time.Minute)
	registry.Begin(fresh)
	c.Advance(5 * time.Minute)

	if cleaned := registry.cleanupIdleSessions(); cleaned != 1 {
		t.Errorf("Expected 1 session cleaned, got %d", cleaned)
	}
	if registry.Active(stale) {
		t.Error("Expected stale session to be swept")
	}
	if !registry.Active(fresh) {
		t.Error("Expected fresh session to remain")
	}
}

func TestRegistry_StartStop(t *testing.T) {
	registry := NewRegistry(RegistryConfig{Store: &fakeInserter{}, CleanupInterval: time.Millisecond})
	registry.Start(context.Background())
	registry.Start(context.Background())
	registry.Stop()
	registry.Stop()

	unstarted := NewRegistry(RegistryConfig{Store: &fakeInserter{}})
	unstarted.Stop()
}
