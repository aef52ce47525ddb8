// Package analytics derives guild-wide economy figures from stored records.
package analytics

import (
	"context"
	"fmt"
	"time"

	"guild-ledger/internal/ranking"
	"guild-ledger/internal/storage"
)

type Store interface {
	ListEconomyAccounts(ctx context.Context, guildID uint64) ([]storage.EconomyAccount, error)
	ListTransactions(ctx context.Context, guildID uint64, since time.Time) ([]storage.Transaction, error)
}

type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

type EconomyReport struct {
	Users          int
	Circulation    int64
	TotalEarned    int64
	TotalSpent     int64
	RichestUserID  uint64
	RichestBalance int64
}

// EconomyReport summarizes every account of the guild. Circulation counts
// wallet and bank. The richest user is chosen by wallet balance with the
// leaderboard tie-break.
func (s *Service) EconomyReport(ctx context.Context, guildID uint64) (EconomyReport, error) {
	accounts, err := s.store.ListEconomyAccounts(ctx, guildID)
	if err != nil {
		return EconomyReport{}, fmt.Errorf("list accounts: %w", err)
	}

	report := EconomyReport{Users: len(accounts)}
	var richest *ranking.Entry
	for _, acct := range accounts {
		report.Circulation += acct.Balance + acct.Bank
		report.TotalEarned += acct.TotalEarned
		report.TotalSpent += acct.TotalSpent

		entry := ranking.Entry{UserID: acct.UserID, Value: acct.Balance}
		if richest == nil || ranking.Less(entry, *richest) {
			richest = &entry
		}
	}
	if richest != nil {
		report.RichestUserID = richest.UserID
		report.RichestBalance = richest.Value
	}
	return report, nil
}

type ReasonTotal struct {
	Count int
	Sum   int64
}

type TransactionReport struct {
	Total    int
	Credits  int64
	Debits   int64
	ByReason map[string]ReasonTotal
}

func (s *Service) TransactionReport(ctx context.Context, guildID uint64, since time.Time) (TransactionReport, error) {
	txs, err := s.store.ListTransactions(ctx, guildID, since)
	if err != nil {
		return TransactionReport{}, fmt.Errorf("list transactions: %w", err)
	}

	report := TransactionReport{ByReason: make(map[string]ReasonTotal)}
	for _, tx := range txs {
		report.Total++
		if tx.Amount >= 0 {
			report.Credits += tx.Amount
		} else {
			report.Debits -= tx.Amount
		}
		total := report.ByReason[tx.Reason]
		total.Count++
		total.Sum += tx.Amount
		report.ByReason[tx.Reason] = total
	}
	return report, nil
}
