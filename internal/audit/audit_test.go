package audit

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"guild-ledger/internal/storage"
)

type fakeClock struct{ now time.Time }

func (f fakeClock) Now() time.Time { return f.now }

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestRecordPersistsWithUniqueIDs(t *testing.T) {
	store := newStore(t)
	logger := NewLogger(store, zap.NewNop(), 0)
	now := time.Unix(1_700_000_000, 0)
	logger.WithClock(fakeClock{now: now})

	ctx := context.Background()
	logger.Record(ctx, 1, 2, 100, "Daily reward")
	logger.Record(ctx, 1, 2, -50, "Slots bet")

	txs, err := store.ListTransactions(ctx, 1, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[0].ID == txs[1].ID || txs[0].ID == "" {
		t.Fatalf("expected distinct ids, got %q and %q", txs[0].ID, txs[1].ID)
	}
	if txs[0].Amount != -50 || txs[0].Reason != "Slots bet" || !txs[0].CreatedAt.Equal(now) {
		t.Fatalf("expected newest transaction first, got %+v", txs[0])
	}
}

func TestPruneHonoursRetention(t *testing.T) {
	store := newStore(t)
	logger := NewLogger(store, zap.NewNop(), 2)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		logger.Record(ctx, 9, 1, int64(i), "test")
	}

	removed, err := logger.Prune(ctx)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
}

func TestPruneDisabled(t *testing.T) {
	logger := NewLogger(newStore(t), zap.NewNop(), 0)
	removed, err := logger.Prune(context.Background())
	if err != nil || removed != 0 {
		t.Fatalf("expected no-op, got %d %v", removed, err)
	}
}
