package leveling

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type WarningResult struct {
	Warnings      int64
	ShouldTimeout bool
}

// CheckSpam records a message at the current time and reports whether the
// member has sent more than the allowed number inside the window.
func (s *Service) CheckSpam(guildID, userID uint64) bool {
	count := s.windows.Add(accountKey(guildID, userID), s.clock.Now())
	return count > s.cfg.SpamMessages
}

// AddWarning bumps the warning counter and clears the message window.
// Warnings never decay; only ResetWarnings clears them.
func (s *Service) AddWarning(ctx context.Context, guildID, userID uint64) (WarningResult, error) {
	key := accountKey(guildID, userID)
	unlock := s.locks.Lock("spam:" + key)
	defer unlock()

	record, _, err := s.store.GetSpamRecord(ctx, guildID, userID)
	if err != nil {
		return WarningResult{}, fmt.Errorf("load spam record: %w", err)
	}
	record.GuildID = guildID
	record.UserID = userID
	record.Warnings++
	record.LastWarning = s.clock.Now()
	if err := s.store.SaveSpamRecord(ctx, record); err != nil {
		return WarningResult{}, fmt.Errorf("save spam record: %w", err)
	}
	s.windows.Reset(key)

	result := WarningResult{
		Warnings:      record.Warnings,
		ShouldTimeout: record.Warnings >= s.cfg.MaxWarnings,
	}
	s.logger.Info("spam warning",
		zap.Uint64("guild_id", guildID),
		zap.Uint64("user_id", userID),
		zap.Int64("warnings", result.Warnings),
		zap.Bool("timeout", result.ShouldTimeout),
	)
	return result, nil
}

func (s *Service) Warnings(ctx context.Context, guildID, userID uint64) (int64, error) {
	record, _, err := s.store.GetSpamRecord(ctx, guildID, userID)
	if err != nil {
		return 0, fmt.Errorf("load spam record: %w", err)
	}
	return record.Warnings, nil
}

func (s *Service) ResetWarnings(ctx context.Context, guildID, userID uint64) error {
	key := accountKey(guildID, userID)
	unlock := s.locks.Lock("spam:" + key)
	defer unlock()

	record, ok, err := s.store.GetSpamRecord(ctx, guildID, userID)
	if err != nil {
		return fmt.Errorf("load spam record: %w", err)
	}
	s.windows.Reset(key)
	if !ok {
		return nil
	}
	record.Warnings = 0
	if err := s.store.SaveSpamRecord(ctx, record); err != nil {
		return fmt.Errorf("save spam record: %w", err)
	}
	return nil
}

// SweepWindows drops idle message windows and returns how many were removed.
func (s *Service) SweepWindows() int {
	return s.windows.Sweep(s.clock.Now())
}
