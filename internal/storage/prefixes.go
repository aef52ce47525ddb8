package storage

import "context"

func (s *Store) ListPrefixes(ctx context.Context) (map[uint64]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT guild_id, prefix FROM guild_prefixes`)
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
		guildID, err := ParseID(guild)
		if err != nil {
			return nil, err
		}
		prefixes[guildID] = prefix
	}
	return prefixes, rows.Err()
}

func (s *Store) SetPrefix(ctx context.Context, guildID uint64, prefix string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_prefixes (guild_id, prefix) VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET prefix = excluded.prefix
	`, FormatID(guildID), prefix)
	return err
}

func (s *Store) DeletePrefix(ctx context.Context, guildID uint64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM guild_prefixes WHERE guild_id = ?`, FormatID(guildID))
	return err
}
