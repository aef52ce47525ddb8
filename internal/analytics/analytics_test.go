package analytics

import (
	"context"
	"testing"
	"time"

	"guild-ledger/internal/storage"
)

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

func TestEconomyReport(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	err := store.SaveEconomyAccounts(ctx,
		storage.EconomyAccount{GuildID: 1, UserID: 20, Balance: 500, Bank: 100, TotalEarned: 900, TotalSpent: 400},
		storage.EconomyAccount{GuildID: 1, UserID: 10, Balance: 500, TotalEarned: 600, TotalSpent: 100},
		storage.EconomyAccount{GuildID: 1, UserID: 30, Balance: 50, TotalEarned: 1000, TotalSpent: 950},
		storage.EconomyAccount{GuildID: 2, UserID: 40, Balance: 9000},
	)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	report, err := New(store).EconomyReport(ctx, 1)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Users != 3 || report.Circulation != 1150 || report.TotalEarned != 2500 || report.TotalSpent != 1450 {
		t.Fatalf("unexpected totals: %+v", report)
	}
	if report.RichestUserID != 10 || report.RichestBalance != 500 {
		t.Fatalf("expected user 10 to win the tie, got %+v", report)
	}

	empty, err := New(store).EconomyReport(ctx, 99)
	if err != nil {
		t.Fatalf("empty report: %v", err)
	}
	if empty.Users != 0 || empty.RichestUserID != 0 {
		t.Fatalf("unexpected empty report: %+v", empty)
	}
}

func TestTransactionReportSince(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)

	txs := []storage.Transaction{
		{ID: "old", GuildID: 1, UserID: 2, Amount: 999, Reason: "Daily reward", CreatedAt: base.Add(-time.Hour)},
		{ID: "a", GuildID: 1, UserID: 2, Amount: 120, Reason: "Daily reward", CreatedAt: base},
		{ID: "b", GuildID: 1, UserID: 3, Amount: 130, Reason: "Daily reward", CreatedAt: base.Add(time.Minute)},
		{ID: "c", GuildID: 1, UserID: 2, Amount: -50, Reason: "Coinflip loss", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "d", GuildID: 2, UserID: 2, Amount: 10, Reason: "Daily reward", CreatedAt: base},
	}
	for _, tx := range txs {
		if err := store.AddTransaction(ctx, tx); err != nil {
			t.Fatalf("add %s: %v", tx.ID, err)
		}
	}

	report, err := New(store).TransactionReport(ctx, 1, base)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Total != 3 || report.Credits != 250 || report.Debits != 50 {
		t.Fatalf("unexpected totals: %+v", report)
	}
	daily := report.ByReason["Daily reward"]
	if daily.Count != 2 || daily.Sum != 250 {
		t.Fatalf("unexpected daily bucket: %+v", daily)
	}
	if loss := report.ByReason["Coinflip loss"]; loss.Count != 1 || loss.Sum != -50 {
		t.Fatalf("unexpected loss bucket: %+v", loss)
	}
}
