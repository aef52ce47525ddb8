package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"guild-ledger/internal/analytics"
	"guild-ledger/internal/config"
	"guild-ledger/internal/economy"
	"guild-ledger/internal/leveling"
	"guild-ledger/internal/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, *storage.Store) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.DefaultConfig()
	econ := economy.NewService(store, cfg.Economy, nil, zap.NewNop())
	levels := leveling.NewService(store, cfg.Leveling, nil, zap.NewNop())
	h := NewHandler(econ, levels, analytics.New(store), 10, zap.NewNop())

	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, store
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	var body map[string]string
	if status := getJSON(t, srv.URL+"/healthz", &body); status != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health: %d %v", status, body)
	}
}

func TestEconomyLeaderboard(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	err := store.SaveEconomyAccounts(ctx,
		storage.EconomyAccount{GuildID: 1, UserID: 3, Balance: 10},
		storage.EconomyAccount{GuildID: 1, UserID: 2, Balance: 700},
		storage.EconomyAccount{GuildID: 1, UserID: 1, Balance: 700},
	)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	var body leaderboardResponse
	if status := getJSON(t, srv.URL+"/guilds/1/leaderboard/balance?limit=2", &body); status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if len(body.Entries) != 2 || body.Entries[0].UserID != "1" || body.Entries[1].UserID != "2" || body.Entries[1].Rank != 2 {
		t.Fatalf("unexpected leaderboard: %+v", body)
	}

	if status := getJSON(t, srv.URL+"/guilds/1/leaderboard/karma", nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown category, got %d", status)
	}
	if status := getJSON(t, srv.URL+"/guilds/abc/leaderboard/balance", nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad guild id, got %d", status)
	}
	if status := getJSON(t, srv.URL+"/guilds/1/leaderboard/balance?limit=-1", nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative limit, got %d", status)
	}
}

func TestLevelLeaderboard(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	for user, xp := range map[uint64]int64{5: 100, 6: 900} {
		if err := store.SaveLevelAccount(ctx, storage.LevelAccount{GuildID: 1, UserID: user, XP: xp}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	var body leaderboardResponse
	if status := getJSON(t, srv.URL+"/guilds/1/levels", &body); status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if body.Category != "xp" || len(body.Entries) != 2 || body.Entries[0].UserID != "6" || body.Entries[0].Value != 900 {
		t.Fatalf("unexpected leaderboard: %+v", body)
	}
}

func TestStats(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	if err := store.SaveEconomyAccounts(ctx, storage.EconomyAccount{GuildID: 1, UserID: 2, Balance: 300, Bank: 50, TotalEarned: 400, TotalSpent: 100}); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	tx := storage.Transaction{ID: "t1", GuildID: 1, UserID: 2, Amount: 120, Reason: "Daily reward", CreatedAt: time.Now()}
	if err := store.AddTransaction(ctx, tx); err != nil {
		t.Fatalf("seed tx: %v", err)
	}

	var body statsResponse
	if status := getJSON(t, srv.URL+"/guilds/1/stats", &body); status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if body.Users != 1 || body.Circulation != 350 || body.RichestUserID != "2" || body.Transactions != 1 || body.ByReason["Daily reward"] != 120 {
		t.Fatalf("unexpected stats: %+v", body)
	}
	if status := getJSON(t, srv.URL+"/guilds/1/stats?hours=0", nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero hours, got %d", status)
	}
}
