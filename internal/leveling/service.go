// Package leveling implements the per-guild XP ledger together with its
// spam guard and guild settings.
package leveling

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"guild-ledger/internal/config"
	"guild-ledger/internal/ranking"
	"guild-ledger/internal/storage"
	"guild-ledger/internal/utils"
)

type Reason string

const (
	ReasonNone            Reason = ""
	ReasonCooldown        Reason = "cooldown"
	ReasonInvalidArgument Reason = "invalid_argument"
)

type Store interface {
	GetLevelAccount(ctx context.Context, guildID, userID uint64) (storage.LevelAccount, bool, error)
	SaveLevelAccount(ctx context.Context, account storage.LevelAccount) error
	ListLevelAccounts(ctx context.Context, guildID uint64) ([]storage.LevelAccount, error)

	GetLevelSettings(ctx context.Context, guildID uint64) (storage.LevelSettings, bool, error)
	SaveLevelSettings(ctx context.Context, settings storage.LevelSettings) error

	GetSpamRecord(ctx context.Context, guildID, userID uint64) (storage.SpamRecord, bool, error)
	SaveSpamRecord(ctx context.Context, record storage.SpamRecord) error
}

type Clock interface {
	Now() time.Time
}

type Random interface {
	Intn(n int) int
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Service struct {
	store   Store
	cfg     config.LevelingConfig
	logger  *zap.Logger
	clock   Clock
	rng     Random
	locks   *utils.KeyedMutex
	windows *utils.WindowSet
}

// NewService builds the service. windows holds the recent-message timestamps
// used by CheckSpam and is shared with whoever sweeps it.
func NewService(store Store, cfg config.LevelingConfig, windows *utils.WindowSet, logger *zap.Logger) *Service {
	if windows == nil {
		windows = utils.NewWindowSet(time.Duration(cfg.SpamWindowSeconds) * time.Second)
	}
	return &Service{
		store:   store,
		cfg:     cfg,
		logger:  logger,
		clock:   realClock{},
		rng:     utils.NewRandom(),
		locks:   utils.NewKeyedMutex(),
		windows: windows,
	}
}

func (s *Service) WithClock(clock Clock) {
	s.clock = clock
}

func (s *Service) WithRandom(rng Random) {
	s.rng = rng
}

type XPResult struct {
	OK            bool
	Reason        Reason
	Awarded       int64
	XP            int64
	OldLevel      int64
	NewLevel      int64
	LeveledUp     bool
	TotalMessages int64
}

type LeaderboardResult struct {
	OK      bool
	Reason  Reason
	Entries []ranking.Entry
}

func accountKey(guildID, userID uint64) string {
	return storage.FormatID(guildID) + ":" + storage.FormatID(userID)
}

func (s *Service) GetAccount(ctx context.Context, guildID, userID uint64) (storage.LevelAccount, error) {
	unlock := s.locks.Lock(accountKey(guildID, userID))
	defer unlock()
	return s.load(ctx, guildID, userID)
}

func (s *Service) load(ctx context.Context, guildID, userID uint64) (storage.LevelAccount, error) {
	acct, ok, err := s.store.GetLevelAccount(ctx, guildID, userID)
	if err != nil {
		return storage.LevelAccount{}, fmt.Errorf("load level account: %w", err)
	}
	if ok {
		acct.Level = CalculateLevel(acct.XP)
		return acct, nil
	}

	acct = storage.LevelAccount{GuildID: guildID, UserID: userID, Level: 1}
	if err := s.store.SaveLevelAccount(ctx, acct); err != nil {
		return storage.LevelAccount{}, fmt.Errorf("create level account: %w", err)
	}
	return acct, nil
}

// AddXP grants XP. With explicit nil this is the message path: it honours the
// cooldown, draws the amount and counts a message. An explicit amount skips
// the cooldown and does not count as a message; one that would overflow the
// stored XP is rejected.
func (s *Service) AddXP(ctx context.Context, guildID, userID uint64, explicit *int64) (XPResult, error) {
	if explicit != nil && *explicit < 0 {
		return XPResult{Reason: ReasonInvalidArgument}, nil
	}
	unlock := s.locks.Lock(accountKey(guildID, userID))
	defer unlock()

	acct, err := s.load(ctx, guildID, userID)
	if err != nil {
		return XPResult{}, err
	}
	now := s.clock.Now()
	current := XPResult{
		XP:            acct.XP,
		OldLevel:      acct.Level,
		NewLevel:      acct.Level,
		TotalMessages: acct.TotalMessages,
	}

	var amount int64
	if explicit == nil {
		cooldown := time.Duration(s.cfg.CooldownSeconds) * time.Second
		if !acct.LastMessage.IsZero() && now.Sub(acct.LastMessage) < cooldown {
			current.Reason = ReasonCooldown
			return current, nil
		}
		amount = s.cfg.XPBase + s.randomBonus()
		acct.TotalMessages++
		acct.LastMessage = now
	} else {
		amount = *explicit
		if acct.XP > math.MaxInt64-amount {
			current.Reason = ReasonInvalidArgument
			return current, nil
		}
	}

	oldLevel := acct.Level
	acct.XP += amount
	acct.Level = CalculateLevel(acct.XP)

	if err := s.store.SaveLevelAccount(ctx, acct); err != nil {
		return XPResult{}, fmt.Errorf("save level account: %w", err)
	}
	if acct.Level > oldLevel {
		s.logger.Debug("level up",
			zap.Uint64("guild_id", guildID),
			zap.Uint64("user_id", userID),
			zap.Int64("level", acct.Level),
		)
	}
	return XPResult{
		OK:            true,
		Awarded:       amount,
		XP:            acct.XP,
		OldLevel:      oldLevel,
		NewLevel:      acct.Level,
		LeveledUp:     acct.Level > oldLevel,
		TotalMessages: acct.TotalMessages,
	}, nil
}

func (s *Service) randomBonus() int64 {
	lo, hi := s.cfg.XPBonusMin, s.cfg.XPBonusMax
	if hi <= lo {
		return lo
	}
	return lo + int64(s.rng.Intn(int(hi-lo+1)))
}

// Leaderboard ranks the guild by XP. A limit of zero returns everyone.
func (s *Service) Leaderboard(ctx context.Context, guildID uint64, limit int) (LeaderboardResult, error) {
	if limit < 0 {
		return LeaderboardResult{Reason: ReasonInvalidArgument}, nil
	}
	entries, err := s.entries(ctx, guildID)
	if err != nil {
		return LeaderboardResult{}, err
	}
	return LeaderboardResult{OK: true, Entries: ranking.Rank(entries, limit)}, nil
}

// Rank is the member's 1-based leaderboard position, or 0 if they have no account.
func (s *Service) Rank(ctx context.Context, guildID, userID uint64) (int, error) {
	entries, err := s.entries(ctx, guildID)
	if err != nil {
		return 0, err
	}
	return ranking.Position(entries, userID), nil
}

func (s *Service) entries(ctx context.Context, guildID uint64) ([]ranking.Entry, error) {
	accounts, err := s.store.ListLevelAccounts(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("list level accounts: %w", err)
	}
	entries := make([]ranking.Entry, 0, len(accounts))
	for _, acct := range accounts {
		entries = append(entries, ranking.Entry{UserID: acct.UserID, Value: acct.XP})
	}
	return entries, nil
}
