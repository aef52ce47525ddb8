// Package audit keeps the economy transaction log.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"guild-ledger/internal/storage"
)

type Store interface {
	AddTransaction(ctx context.Context, tx storage.Transaction) error
	PruneTransactions(ctx context.Context, keepPerGuild int) (int64, error)
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Logger struct {
	store     Store
	logger    *zap.Logger
	clock     Clock
	retention int
}

// NewLogger keeps at most retention transactions per guild once Prune runs.
// A retention of zero or less disables pruning.
func NewLogger(store Store, logger *zap.Logger, retention int) *Logger {
	return &Logger{store: store, logger: logger, clock: realClock{}, retention: retention}
}

func (l *Logger) WithClock(clock Clock) {
	l.clock = clock
}

// Record appends one balance movement. The movement itself is already
// committed, so a failed write is logged and swallowed.
func (l *Logger) Record(ctx context.Context, guildID, userID uint64, amount int64, reason string) {
	entry := storage.Transaction{
		ID:        uuid.NewString(),
		GuildID:   guildID,
		UserID:    userID,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: l.clock.Now(),
	}
	if l.store != nil {
		if err := l.store.AddTransaction(ctx, entry); err != nil {
			l.logger.Warn("transaction log write failed", zap.Error(err), zap.String("transaction_id", entry.ID))
		}
	}
	l.logger.Debug("transaction",
		zap.String("transaction_id", entry.ID),
		zap.Uint64("guild_id", guildID),
		zap.Uint64("user_id", userID),
		zap.Int64("amount", amount),
		zap.String("reason", reason),
	)
}

// Prune trims every guild's log down to the configured retention.
func (l *Logger) Prune(ctx context.Context) (int64, error) {
	if l.store == nil || l.retention <= 0 {
		return 0, nil
	}
	removed, err := l.store.PruneTransactions(ctx, l.retention)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		l.logger.Info("transaction log pruned", zap.Int64("removed", removed), zap.Int("retention", l.retention))
	}
	return removed, nil
}
