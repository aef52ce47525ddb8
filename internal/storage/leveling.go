package storage

import (
	"context"
	"database/sql"
	"errors"
)

func (s *Store) GetLevelAccount(ctx context.Context, guildID, userID uint64) (LevelAccount, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT xp, level, total_messages, last_message
		FROM level_accounts WHERE guild_id = ? AND user_id = ?
	`, FormatID(guildID), FormatID(userID))

	acct := LevelAccount{GuildID: guildID, UserID: userID}
	var lastMessage int64
	if err := row.Scan(&acct.XP, &acct.Level, &acct.TotalMessages, &lastMessage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LevelAccount{}, false, nil
		}
		return LevelAccount{}, false, err
	}
	acct.LastMessage = UnixOrZero(lastMessage)
	return acct, true, nil
}

func (s *Store) SaveLevelAccount(ctx context.Context, account LevelAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO level_accounts (guild_id, user_id, xp, level, total_messages, last_message)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			xp = excluded.xp,
			level = excluded.level,
			total_messages = excluded.total_messages,
			last_message = excluded.last_message
	`,
		FormatID(account.GuildID),
		FormatID(account.UserID),
		account.XP,
		account.Level,
		account.TotalMessages,
		ToUnix(account.LastMessage),
	)
	return err
}

func (s *Store) ListLevelAccounts(ctx context.Context, guildID uint64) ([]LevelAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, xp, level, total_messages, last_message
		FROM level_accounts WHERE guild_id = ?
	`, FormatID(guildID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []LevelAccount
	for rows.Next() {
		acct := LevelAccount{GuildID: guildID}
		var (
			userID      string
			lastMessage int64
		)
		if err := rows.Scan(&userID, &acct.XP, &acct.Level, &acct.TotalMessages, &lastMessage); err != nil {
			return nil, err
		}
		if acct.UserID, err = ParseID(userID); err != nil {
			return nil, err
		}
		acct.LastMessage = UnixOrZero(lastMessage)
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}

func (s *Store) GetLevelSettings(ctx context.Context, guildID uint64) (LevelSettings, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT xp_enabled, spam_protection, levelup_channel, level_roles, levelup_message
		FROM level_settings WHERE guild_id = ?
	`, FormatID(guildID))

	settings := LevelSettings{GuildID: guildID}
	var (
		xpEnabled, spam int
		roles           string
	)
	err := row.Scan(&xpEnabled, &spam, &settings.LevelUpChannelID, &roles, &settings.LevelUpMessage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LevelSettings{}, false, nil
		}
		return LevelSettings{}, false, err
	}
	settings.XPEnabled = xpEnabled == 1
	settings.SpamProtection = spam == 1
	if settings.LevelRoles, err = DecodeLevelRoles(roles); err != nil {
		return LevelSettings{}, false, err
	}
	return settings, true, nil
}

func (s *Store) SaveLevelSettings(ctx context.Context, settings LevelSettings) error {
	roles, err := EncodeLevelRoles(settings.LevelRoles)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO level_settings (guild_id, xp_enabled, spam_protection, levelup_channel, level_roles, levelup_message)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			xp_enabled = excluded.xp_enabled,
			spam_protection = excluded.spam_protection,
			levelup_channel = excluded.levelup_channel,
			level_roles = excluded.level_roles,
			levelup_message = excluded.levelup_message
	`,
		FormatID(settings.GuildID),
		boolToInt(settings.XPEnabled),
		boolToInt(settings.SpamProtection),
		settings.LevelUpChannelID,
		roles,
		settings.LevelUpMessage,
	)
	return err
}

func (s *Store) GetSpamRecord(ctx context.Context, guildID, userID uint64) (SpamRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT warnings, last_warning FROM spam_records WHERE guild_id = ? AND user_id = ?
	`, FormatID(guildID), FormatID(userID))

	record := SpamRecord{GuildID: guildID, UserID: userID}
	var lastWarning int64
	if err := row.Scan(&record.Warnings, &lastWarning); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SpamRecord{}, false, nil
		}
		return SpamRecord{}, false, err
	}
	record.LastWarning = UnixOrZero(lastWarning)
	return record, true, nil
}

func (s *Store) SaveSpamRecord(ctx context.Context, record SpamRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spam_records (guild_id, user_id, warnings, last_warning)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			warnings = excluded.warnings,
			last_warning = excluded.last_warning
	`, FormatID(record.GuildID), FormatID(record.UserID), record.Warnings, ToUnix(record.LastWarning))
	return err
}
