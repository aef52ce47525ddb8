package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const economyColumns = `guild_id, user_id, balance, bank, total_earned, total_spent, daily_streak,
	last_daily, last_work, inventory, job, job_experience`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEconomyAccount(row rowScanner) (EconomyAccount, error) {
	var (
		acct                  EconomyAccount
		guildID, userID       string
		lastDaily, lastWork   int64
		inventory, experience string
	)
	err := row.Scan(&guildID, &userID, &acct.Balance, &acct.Bank, &acct.TotalEarned, &acct.TotalSpent,
		&acct.DailyStreak, &lastDaily, &lastWork, &inventory, &acct.Job, &experience)
	if err != nil {
		return EconomyAccount{}, err
	}
	if acct.GuildID, err = ParseID(guildID); err != nil {
		return EconomyAccount{}, fmt.Errorf("guild id %q: %w", guildID, err)
	}
	if acct.UserID, err = ParseID(userID); err != nil {
		return EconomyAccount{}, fmt.Errorf("user id %q: %w", userID, err)
	}
	acct.LastDaily = UnixOrZero(lastDaily)
	acct.LastWork = UnixOrZero(lastWork)
	if acct.Inventory, err = DecodeCounts(inventory); err != nil {
		return EconomyAccount{}, fmt.Errorf("inventory: %w", err)
	}
	if acct.JobExperience, err = DecodeCounts(experience); err != nil {
		return EconomyAccount{}, fmt.Errorf("job experience: %w", err)
	}
	return acct, nil
}

func (s *Store) GetEconomyAccount(ctx context.Context, guildID, userID uint64) (EconomyAccount, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+economyColumns+`
		FROM economy_accounts WHERE guild_id = ? AND user_id = ?`, FormatID(guildID), FormatID(userID))
	acct, err := scanEconomyAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return EconomyAccount{}, false, nil
		}
		return EconomyAccount{}, false, err
	}
	return acct, true, nil
}

// SaveEconomyAccounts upserts every account in a single transaction.
func (s *Store) SaveEconomyAccounts(ctx context.Context, accounts ...EconomyAccount) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, acct := range accounts {
			inventory, err := EncodeCounts(acct.Inventory)
			if err != nil {
				return err
			}
			experience, err := EncodeCounts(acct.JobExperience)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO economy_accounts (`+economyColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(guild_id, user_id) DO UPDATE SET
					balance = excluded.balance,
					bank = excluded.bank,
					total_earned = excluded.total_earned,
					total_spent = excluded.total_spent,
					daily_streak = excluded.daily_streak,
					last_daily = excluded.last_daily,
					last_work = excluded.last_work,
					inventory = excluded.inventory,
					job = excluded.job,
					job_experience = excluded.job_experience
			`,
				FormatID(acct.GuildID),
				FormatID(acct.UserID),
				acct.Balance,
				acct.Bank,
				acct.TotalEarned,
				acct.TotalSpent,
				acct.DailyStreak,
				ToUnix(acct.LastDaily),
				ToUnix(acct.LastWork),
				inventory,
				acct.Job,
				experience,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListEconomyAccounts(ctx context.Context, guildID uint64) ([]EconomyAccount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+economyColumns+`
		FROM economy_accounts WHERE guild_id = ?`, FormatID(guildID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []EconomyAccount
	for rows.Next() {
		acct, err := scanEconomyAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}

func (s *Store) AddTransaction(ctx context.Context, tx Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO economy_transactions (id, guild_id, user_id, amount, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, tx.ID, FormatID(tx.GuildID), FormatID(tx.UserID), tx.Amount, tx.Reason, tx.CreatedAt.Unix())
	return err
}

func (s *Store) ListTransactions(ctx context.Context, guildID uint64, since time.Time) ([]Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, amount, reason, created_at
		FROM economy_transactions
		WHERE guild_id = ? AND created_at >= ?
		ORDER BY created_at DESC, seq DESC
	`, FormatID(guildID), since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var (
			tx          Transaction
			guild, user string
			created     int64
		)
		if err := rows.Scan(&tx.ID, &guild, &user, &tx.Amount, &tx.Reason, &created); err != nil {
			return nil, err
		}
		if tx.GuildID, err = ParseID(guild); err != nil {
			return nil, err
		}
		if tx.UserID, err = ParseID(user); err != nil {
			return nil, err
		}
		tx.CreatedAt = time.Unix(created, 0)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// PruneTransactions keeps only the newest keepPerGuild entries of every guild.
func (s *Store) PruneTransactions(ctx context.Context, keepPerGuild int) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM economy_transactions WHERE seq IN (
			SELECT seq FROM (
				SELECT seq, ROW_NUMBER() OVER (PARTITION BY guild_id ORDER BY seq DESC) AS rn
				FROM economy_transactions
			) AS ranked WHERE rn > ?
		)
	`, keepPerGuild)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
