// Package prefix keeps the per-guild text command prefix.
package prefix

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const MaxLength = 5

type Reason string

const (
	ReasonNone         Reason = ""
	ReasonEmpty        Reason = "empty"
	ReasonTooLong      Reason = "too_long"
	ReasonInvalidChars Reason = "invalid_characters"
	ReasonSlash        Reason = "slash_prefix"
)

type Store interface {
	ListPrefixes(ctx context.Context) (map[uint64]string, error)
	SetPrefix(ctx context.Context, guildID uint64, prefix string) error
	DeletePrefix(ctx context.Context, guildID uint64) error
}

// Manager serves prefixes from memory and writes changes through to the store.
type Manager struct {
	mu       sync.RWMutex
	store    Store
	logger   *zap.Logger
	fallback string
	prefixes map[uint64]string
}

func NewManager(store Store, fallback string, logger *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		logger:   logger,
		fallback: fallback,
		prefixes: make(map[uint64]string),
	}
}

// Load replaces the cache with the stored prefixes.
func (m *Manager) Load(ctx context.Context) error {
	stored, err := m.store.ListPrefixes(ctx)
	if err != nil {
		return fmt.Errorf("load prefixes: %w", err)
	}
	m.mu.Lock()
	m.prefixes = stored
	m.mu.Unlock()
	m.logger.Info("prefixes loaded", zap.Int("guilds", len(stored)))
	return nil
}

func (m *Manager) Get(guildID uint64) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.prefixes[guildID]; ok {
		return p
	}
	return m.fallback
}

func (m *Manager) Default() string {
	return m.fallback
}

// Validate checks a candidate prefix.
func Validate(prefix string) Reason {
	switch {
	case prefix == "":
		return ReasonEmpty
	case len([]rune(prefix)) > MaxLength:
		return ReasonTooLong
	case strings.ContainsAny(prefix, " \n\t@#"):
		return ReasonInvalidChars
	case strings.HasPrefix(prefix, "/"):
		return ReasonSlash
	}
	return ReasonNone
}

// Set stores a new prefix for the guild. Invalid prefixes are rejected
// with a reason and nothing is written.
func (m *Manager) Set(ctx context.Context, guildID uint64, prefix string) (Reason, error) {
	if reason := Validate(prefix); reason != ReasonNone {
		return reason, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.SetPrefix(ctx, guildID, prefix); err != nil {
		return ReasonNone, fmt.Errorf("save prefix: %w", err)
	}
	m.prefixes[guildID] = prefix
	m.logger.Info("prefix changed", zap.Uint64("guild_id", guildID), zap.String("prefix", prefix))
	return ReasonNone, nil
}

// Reset returns the guild to the default prefix.
func (m *Manager) Reset(ctx context.Context, guildID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.DeletePrefix(ctx, guildID); err != nil {
		return fmt.Errorf("delete prefix: %w", err)
	}
	delete(m.prefixes, guildID)
	return nil
}

// Strip returns the command text after the guild's prefix, or false when
// content does not start with it.
func (m *Manager) Strip(guildID uint64, content string) (string, bool) {
	p := m.Get(guildID)
	if !strings.HasPrefix(content, p) {
		return "", false
	}
	rest := strings.TrimSpace(content[len(p):])
	if rest == "" {
		return "", false
	}
	return rest, true
}
