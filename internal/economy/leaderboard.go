package economy

import (
	"context"
	"fmt"

	"guild-ledger/internal/ranking"
	"guild-ledger/internal/storage"
)

type Category string

const (
	CategoryBalance     Category = "balance"
	CategoryTotalEarned Category = "total_earned"
	CategoryStreak      Category = "streak"
)

type LeaderboardResult struct {
	OK       bool
	Reason   Reason
	Category Category
	Entries  []ranking.Entry
}

func categoryValue(category Category) (func(storage.EconomyAccount) int64, bool) {
	switch category {
	case CategoryBalance:
		return func(a storage.EconomyAccount) int64 { return a.Balance }, true
	case CategoryTotalEarned:
		return func(a storage.EconomyAccount) int64 { return a.TotalEarned }, true
	case CategoryStreak:
		return func(a storage.EconomyAccount) int64 { return a.DailyStreak }, true
	default:
		return nil, false
	}
}

// Leaderboard ranks every known account of the guild. A limit of zero
// returns all of them.
func (s *Service) Leaderboard(ctx context.Context, guildID uint64, category Category, limit int) (LeaderboardResult, error) {
	value, ok := categoryValue(category)
	if !ok {
		return LeaderboardResult{Reason: ReasonInvalidCategory, Category: category}, nil
	}
	if limit < 0 {
		return LeaderboardResult{Reason: ReasonInvalidArgument, Category: category}, nil
	}

	accounts, err := s.store.ListEconomyAccounts(ctx, guildID)
	if err != nil {
		return LeaderboardResult{}, fmt.Errorf("list accounts: %w", err)
	}
	entries := make([]ranking.Entry, 0, len(accounts))
	for _, acct := range accounts {
		entries = append(entries, ranking.Entry{UserID: acct.UserID, Value: value(acct)})
	}
	return LeaderboardResult{OK: true, Category: category, Entries: ranking.Rank(entries, limit)}, nil
}
