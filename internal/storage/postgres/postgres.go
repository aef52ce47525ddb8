// Package postgres is the PostgreSQL implementation of storage.Backend.
// It keeps the same table layout as the SQLite store so that records can be
// moved between the two with a plain dump.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"guild-ledger/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PoolOptions tunes the connection pool.
type PoolOptions struct {
	MaxConns int32
	MinConns int32
}

type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Backend = (*Store)(nil)

// New connects to dsn and pings the server before returning.
func New(ctx context.Context, dsn string, opts PoolOptions) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = opts.MinConns
	}
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Migrate() error {
	ctx := context.Background()
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

const economyColumns = `guild_id, user_id, balance, bank, total_earned, total_spent, daily_streak,
	last_daily, last_work, inventory, job, job_experience`

func scanEconomyAccount(row pgx.Row) (storage.EconomyAccount, error) {
	var (
		acct                  storage.EconomyAccount
		guildID, userID       string
		lastDaily, lastWork   int64
		inventory, experience string
	)
	err := row.Scan(&guildID, &userID, &acct.Balance, &acct.Bank, &acct.TotalEarned, &acct.TotalSpent,
		&acct.DailyStreak, &lastDaily, &lastWork, &inventory, &acct.Job, &experience)
	if err != nil {
		return storage.EconomyAccount{}, err
	}
	if acct.GuildID, err = storage.ParseID(guildID); err != nil {
		return storage.EconomyAccount{}, err
	}
	if acct.UserID, err = storage.ParseID(userID); err != nil {
		return storage.EconomyAccount{}, err
	}
	acct.LastDaily = storage.UnixOrZero(lastDaily)
	acct.LastWork = storage.UnixOrZero(lastWork)
	if acct.Inventory, err = storage.DecodeCounts(inventory); err != nil {
		return storage.EconomyAccount{}, fmt.Errorf("inventory: %w", err)
	}
	if acct.JobExperience, err = storage.DecodeCounts(experience); err != nil {
		return storage.EconomyAccount{}, fmt.Errorf("job experience: %w", err)
	}
	return acct, nil
}

func (s *Store) GetEconomyAccount(ctx context.Context, guildID, userID uint64) (storage.EconomyAccount, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+economyColumns+`
		FROM economy_accounts WHERE guild_id = $1 AND user_id = $2`,
		storage.FormatID(guildID), storage.FormatID(userID))
	acct, err := scanEconomyAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.EconomyAccount{}, false, nil
		}
		return storage.EconomyAccount{}, false, err
	}
	return acct, true, nil
}

func (s *Store) SaveEconomyAccounts(ctx context.Context, accounts ...storage.EconomyAccount) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, acct := range accounts {
		inventory, err := storage.EncodeCounts(acct.Inventory)
		if err != nil {
			return err
		}
		experience, err := storage.EncodeCounts(acct.JobExperience)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO economy_accounts (`+economyColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (guild_id, user_id) DO UPDATE SET
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
			storage.FormatID(acct.GuildID),
			storage.FormatID(acct.UserID),
			acct.Balance,
			acct.Bank,
			acct.TotalEarned,
			acct.TotalSpent,
			acct.DailyStreak,
			storage.ToUnix(acct.LastDaily),
			storage.ToUnix(acct.LastWork),
			inventory,
			acct.Job,
			experience,
		)
		if err != nil {
			return fmt.Errorf("upsert account: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) ListEconomyAccounts(ctx context.Context, guildID uint64) ([]storage.EconomyAccount, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+economyColumns+`
		FROM economy_accounts WHERE guild_id = $1`, storage.FormatID(guildID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []storage.EconomyAccount
	for rows.Next() {
		acct, err := scanEconomyAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}

func (s *Store) AddTransaction(ctx context.Context, tx storage.Transaction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO economy_transactions (id, guild_id, user_id, amount, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, tx.ID, storage.FormatID(tx.GuildID), storage.FormatID(tx.UserID), tx.Amount, tx.Reason, tx.CreatedAt.Unix())
	return err
}

func (s *Store) ListTransactions(ctx context.Context, guildID uint64, since time.Time) ([]storage.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, amount, reason, created_at
		FROM economy_transactions
		WHERE guild_id = $1 AND created_at >= $2
		ORDER BY created_at DESC, seq DESC
	`, storage.FormatID(guildID), since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []storage.Transaction
	for rows.Next() {
		tx := storage.Transaction{GuildID: guildID}
		var (
			user    string
			created int64
		)
		if err := rows.Scan(&tx.ID, &user, &tx.Amount, &tx.Reason, &created); err != nil {
			return nil, err
		}
		if tx.UserID, err = storage.ParseID(user); err != nil {
			return nil, err
		}
		tx.CreatedAt = time.Unix(created, 0)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *Store) PruneTransactions(ctx context.Context, keepPerGuild int) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM economy_transactions WHERE seq IN (
			SELECT seq FROM (
				SELECT seq, ROW_NUMBER() OVER (PARTITION BY guild_id ORDER BY seq DESC) AS rn
				FROM economy_transactions
			) AS ranked WHERE rn > $1
		)
	`, keepPerGuild)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) GetLevelAccount(ctx context.Context, guildID, userID uint64) (storage.LevelAccount, bool, error) {
	acct := storage.LevelAccount{GuildID: guildID, UserID: userID}
	var lastMessage int64
	err := s.pool.QueryRow(ctx, `
		SELECT xp, level, total_messages, last_message
		FROM level_accounts WHERE guild_id = $1 AND user_id = $2
	`, storage.FormatID(guildID), storage.FormatID(userID)).Scan(&acct.XP, &acct.Level, &acct.TotalMessages, &lastMessage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.LevelAccount{}, false, nil
		}
		return storage.LevelAccount{}, false, err
	}
	acct.LastMessage = storage.UnixOrZero(lastMessage)
	return acct, true, nil
}

func (s *Store) SaveLevelAccount(ctx context.Context, account storage.LevelAccount) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO level_accounts (guild_id, user_id, xp, level, total_messages, last_message)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (guild_id, user_id) DO UPDATE SET
			xp = excluded.xp,
			level = excluded.level,
			total_messages = excluded.total_messages,
			last_message = excluded.last_message
	`,
		storage.FormatID(account.GuildID),
		storage.FormatID(account.UserID),
		account.XP,
		account.Level,
		account.TotalMessages,
		storage.ToUnix(account.LastMessage),
	)
	return err
}

func (s *Store) ListLevelAccounts(ctx context.Context, guildID uint64) ([]storage.LevelAccount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, xp, level, total_messages, last_message
		FROM level_accounts WHERE guild_id = $1
	`, storage.FormatID(guildID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []storage.LevelAccount
	for rows.Next() {
		acct := storage.LevelAccount{GuildID: guildID}
		var (
			userID      string
			lastMessage int64
		)
		if err := rows.Scan(&userID, &acct.XP, &acct.Level, &acct.TotalMessages, &lastMessage); err != nil {
			return nil, err
		}
		if acct.UserID, err = storage.ParseID(userID); err != nil {
			return nil, err
		}
		acct.LastMessage = storage.UnixOrZero(lastMessage)
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}

func (s *Store) GetLevelSettings(ctx context.Context, guildID uint64) (storage.LevelSettings, bool, error) {
	settings := storage.LevelSettings{GuildID: guildID}
	var roles string
	err := s.pool.QueryRow(ctx, `
		SELECT xp_enabled, spam_protection, levelup_channel, level_roles, levelup_message
		FROM level_settings WHERE guild_id = $1
	`, storage.FormatID(guildID)).Scan(&settings.XPEnabled, &settings.SpamProtection,
		&settings.LevelUpChannelID, &roles, &settings.LevelUpMessage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.LevelSettings{}, false, nil
		}
		return storage.LevelSettings{}, false, err
	}
	if settings.LevelRoles, err = storage.DecodeLevelRoles(roles); err != nil {
		return storage.LevelSettings{}, false, err
	}
	return settings, true, nil
}

func (s *Store) SaveLevelSettings(ctx context.Context, settings storage.LevelSettings) error {
	roles, err := storage.EncodeLevelRoles(settings.LevelRoles)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO level_settings (guild_id, xp_enabled, spam_protection, levelup_channel, level_roles, levelup_message)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (guild_id) DO UPDATE SET
			xp_enabled = excluded.xp_enabled,
			spam_protection = excluded.spam_protection,
			levelup_channel = excluded.levelup_channel,
			level_roles = excluded.level_roles,
			levelup_message = excluded.levelup_message
	`,
		storage.FormatID(settings.GuildID),
		settings.XPEnabled,
		settings.SpamProtection,
		settings.LevelUpChannelID,
		roles,
		settings.LevelUpMessage,
	)
	return err
}

func (s *Store) GetSpamRecord(ctx context.Context, guildID, userID uint64) (storage.SpamRecord, bool, error) {
	record := storage.SpamRecord{GuildID: guildID, UserID: userID}
	var lastWarning int64
	err := s.pool.QueryRow(ctx, `
		SELECT warnings, last_warning FROM spam_records WHERE guild_id = $1 AND user_id = $2
	`, storage.FormatID(guildID), storage.FormatID(userID)).Scan(&record.Warnings, &lastWarning)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.SpamRecord{}, false, nil
		}
		return storage.SpamRecord{}, false, err
	}
	record.LastWarning = storage.UnixOrZero(lastWarning)
	return record, true, nil
}

func (s *Store) SaveSpamRecord(ctx context.Context, record storage.SpamRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO spam_records (guild_id, user_id, warnings, last_warning)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (guild_id, user_id) DO UPDATE SET
			warnings = excluded.warnings,
			last_warning = excluded.last_warning
	`, storage.FormatID(record.GuildID), storage.FormatID(record.UserID), record.Warnings, storage.ToUnix(record.LastWarning))
	return err
}

func (s *Store) ListPrefixes(ctx context.Context) (map[uint64]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT guild_id, prefix FROM guild_prefixes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prefixes := make(map[uint64]string)
	for rows.Next() {
		var guild, prefix string
		if err := rows.Scan(&guild, &prefix); err != nil {
			return nil, err
		}
		guildID, err := storage.ParseID(guild)
		if err != nil {
			return nil, err
		}
		prefixes[guildID] = prefix
	}
	return prefixes, rows.Err()
}

func (s *Store) SetPrefix(ctx context.Context, guildID uint64, prefix string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO guild_prefixes (guild_id, prefix) VALUES ($1, $2)
		ON CONFLICT (guild_id) DO UPDATE SET prefix = excluded.prefix
	`, storage.FormatID(guildID), prefix)
	return err
}

func (s *Store) DeletePrefix(ctx context.Context, guildID uint64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM guild_prefixes WHERE guild_id = $1`, storage.FormatID(guildID))
	return err
}
