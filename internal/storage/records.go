package storage

import (
	"context"
	"encoding/json"
	"strconv"
	"time"
)

// EconomyAccount is the persisted economy state of one member of one guild.
type EconomyAccount struct {
	GuildID       uint64
	UserID        uint64
	Balance       int64
	Bank          int64
	TotalEarned   int64
	TotalSpent    int64
	DailyStreak   int64
	LastDaily     time.Time
	LastWork      time.Time
	Inventory     map[string]int64
	Job           string
	JobExperience map[string]int64
}

// LevelAccount is the persisted leveling state of one member of one guild.
// Level is derived from XP by the leveling service and stored only so that
// reads do not need to recompute it.
type LevelAccount struct {
	GuildID       uint64
	UserID        uint64
	XP            int64
	Level         int64
	TotalMessages int64
	LastMessage   time.Time
}

type LevelSettings struct {
	GuildID          uint64
	XPEnabled        bool
	SpamProtection   bool
	LevelUpChannelID string
	LevelRoles       map[int64]string
	LevelUpMessage   string
}

type SpamRecord struct {
	GuildID     uint64
	UserID      uint64
	Warnings    int64
	LastWarning time.Time
}

type Transaction struct {
	ID        string
	GuildID   uint64
	UserID    uint64
	Amount    int64
	Reason    string
	CreatedAt time.Time
}

// Backend is the full persistence surface used by the process. Both the
// SQLite Store and the PostgreSQL store implement it.
type Backend interface {
	Migrate() error
	Close()

	GetEconomyAccount(ctx context.Context, guildID, userID uint64) (EconomyAccount, bool, error)
	SaveEconomyAccounts(ctx context.Context, accounts ...EconomyAccount) error
	ListEconomyAccounts(ctx context.Context, guildID uint64) ([]EconomyAccount, error)

	AddTransaction(ctx context.Context, tx Transaction) error
	ListTransactions(ctx context.Context, guildID uint64, since time.Time) ([]Transaction, error)
	PruneTransactions(ctx context.Context, keepPerGuild int) (int64, error)

	GetLevelAccount(ctx context.Context, guildID, userID uint64) (LevelAccount, bool, error)
	SaveLevelAccount(ctx context.Context, account LevelAccount) error
	ListLevelAccounts(ctx context.Context, guildID uint64) ([]LevelAccount, error)

	GetLevelSettings(ctx context.Context, guildID uint64) (LevelSettings, bool, error)
	SaveLevelSettings(ctx context.Context, settings LevelSettings) error

	GetSpamRecord(ctx context.Context, guildID, userID uint64) (SpamRecord, bool, error)
	SaveSpamRecord(ctx context.Context, record SpamRecord) error

	ListPrefixes(ctx context.Context) (map[uint64]string, error)
	SetPrefix(ctx context.Context, guildID uint64, prefix string) error
	DeletePrefix(ctx context.Context, guildID uint64) error
}

// FormatID renders a snowflake the way it is stored.
func FormatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// ParseID is the inverse of FormatID.
func ParseID(value string) (uint64, error) {
	return strconv.ParseUint(value, 10, 64)
}

// UnixOrZero maps the stored "never" value (0) back to the zero time.
func UnixOrZero(seconds int64) time.Time {
	if seconds <= 0 {
		return time.Time{}
	}
	return time.Unix(seconds, 0)
}

// ToUnix is the inverse of UnixOrZero.
func ToUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func EncodeCounts(values map[string]int64) (string, error) {
	if len(values) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeCounts is lenient: an empty or missing column decodes to an empty map.
func DecodeCounts(raw string) (map[string]int64, error) {
	values := make(map[string]int64)
	if raw == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}

func EncodeLevelRoles(roles map[int64]string) (string, error) {
	if len(roles) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(roles)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func DecodeLevelRoles(raw string) (map[int64]string, error) {
	roles := make(map[int64]string)
	if raw == "" {
		return roles, nil
	}
	if err := json.Unmarshal([]byte(raw), &roles); err != nil {
		return nil, err
	}
	return roles, nil
}
