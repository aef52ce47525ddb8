package leveling

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"guild-ledger/internal/storage"
)

// SettingsUpdate changes only the fields that are set.
type SettingsUpdate struct {
	XPEnabled        *bool
	SpamProtection   *bool
	LevelUpChannelID *string
	LevelUpMessage   *string
}

type SettingsResult struct {
	OK       bool
	Reason   Reason
	Settings storage.LevelSettings
}

type LevelRole struct {
	Level  int64
	RoleID string
}

func settingsKey(guildID uint64) string {
	return "settings:" + storage.FormatID(guildID)
}

func (s *Service) defaultSettings(guildID uint64) storage.LevelSettings {
	return storage.LevelSettings{
		GuildID:        guildID,
		XPEnabled:      true,
		SpamProtection: true,
		LevelRoles:     make(map[int64]string),
		LevelUpMessage: s.cfg.LevelUpMessage,
	}
}

// Settings returns the guild's settings, persisting the defaults on first read.
func (s *Service) Settings(ctx context.Context, guildID uint64) (storage.LevelSettings, error) {
	unlock := s.locks.Lock(settingsKey(guildID))
	defer unlock()
	return s.loadSettings(ctx, guildID)
}

func (s *Service) loadSettings(ctx context.Context, guildID uint64) (storage.LevelSettings, error) {
	settings, ok, err := s.store.GetLevelSettings(ctx, guildID)
	if err != nil {
		return storage.LevelSettings{}, fmt.Errorf("load settings: %w", err)
	}
	if ok {
		if settings.LevelRoles == nil {
			settings.LevelRoles = make(map[int64]string)
		}
		if settings.LevelUpMessage == "" {
			settings.LevelUpMessage = s.cfg.LevelUpMessage
		}
		return settings, nil
	}

	settings = s.defaultSettings(guildID)
	if err := s.store.SaveLevelSettings(ctx, settings); err != nil {
		return storage.LevelSettings{}, fmt.Errorf("create settings: %w", err)
	}
	return settings, nil
}

func (s *Service) mutateSettings(ctx context.Context, guildID uint64, fn func(*storage.LevelSettings) Reason) (SettingsResult, error) {
	unlock := s.locks.Lock(settingsKey(guildID))
	defer unlock()

	settings, err := s.loadSettings(ctx, guildID)
	if err != nil {
		return SettingsResult{}, err
	}
	if reason := fn(&settings); reason != ReasonNone {
		return SettingsResult{Reason: reason, Settings: settings}, nil
	}
	if err := s.store.SaveLevelSettings(ctx, settings); err != nil {
		return SettingsResult{}, fmt.Errorf("save settings: %w", err)
	}
	return SettingsResult{OK: true, Settings: settings}, nil
}

func (s *Service) UpdateSettings(ctx context.Context, guildID uint64, update SettingsUpdate) (SettingsResult, error) {
	return s.mutateSettings(ctx, guildID, func(settings *storage.LevelSettings) Reason {
		if update.LevelUpMessage != nil && strings.TrimSpace(*update.LevelUpMessage) == "" {
			return ReasonInvalidArgument
		}
		if update.XPEnabled != nil {
			settings.XPEnabled = *update.XPEnabled
		}
		if update.SpamProtection != nil {
			settings.SpamProtection = *update.SpamProtection
		}
		if update.LevelUpChannelID != nil {
			settings.LevelUpChannelID = *update.LevelUpChannelID
		}
		if update.LevelUpMessage != nil {
			settings.LevelUpMessage = *update.LevelUpMessage
		}
		return ReasonNone
	})
}

// ResetSettings restores the defaults. Settings are never deleted.
func (s *Service) ResetSettings(ctx context.Context, guildID uint64) (storage.LevelSettings, error) {
	result, err := s.mutateSettings(ctx, guildID, func(settings *storage.LevelSettings) Reason {
		*settings = s.defaultSettings(guildID)
		return ReasonNone
	})
	return result.Settings, err
}

func (s *Service) SetLevelRole(ctx context.Context, guildID uint64, level int64, roleID string) (SettingsResult, error) {
	return s.mutateSettings(ctx, guildID, func(settings *storage.LevelSettings) Reason {
		if level < 1 || roleID == "" {
			return ReasonInvalidArgument
		}
		settings.LevelRoles[level] = roleID
		return ReasonNone
	})
}

func (s *Service) RemoveLevelRole(ctx context.Context, guildID uint64, level int64) (SettingsResult, error) {
	return s.mutateSettings(ctx, guildID, func(settings *storage.LevelSettings) Reason {
		if _, ok := settings.LevelRoles[level]; !ok {
			return ReasonInvalidArgument
		}
		delete(settings.LevelRoles, level)
		return ReasonNone
	})
}

// LevelRoles lists the configured rewards ordered by level.
func (s *Service) LevelRoles(ctx context.Context, guildID uint64) ([]LevelRole, error) {
	settings, err := s.Settings(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return sortedRoles(settings.LevelRoles, 0), nil
}

// RolesForLevel lists every role reward at or below level.
func (s *Service) RolesForLevel(ctx context.Context, guildID uint64, level int64) ([]LevelRole, error) {
	settings, err := s.Settings(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return sortedRoles(settings.LevelRoles, level), nil
}

func sortedRoles(roles map[int64]string, upTo int64) []LevelRole {
	out := make([]LevelRole, 0, len(roles))
	for level, roleID := range roles {
		if upTo > 0 && level > upTo {
			continue
		}
		out = append(out, LevelRole{Level: level, RoleID: roleID})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}

// RenderLevelUp fills the {user_mention}, {user_name} and {level} placeholders.
func RenderLevelUp(template, mention, name string, level int64) string {
	return strings.NewReplacer(
		"{user_mention}", mention,
		"{user_name}", name,
		"{level}", strconv.FormatInt(level, 10),
	).Replace(template)
}
