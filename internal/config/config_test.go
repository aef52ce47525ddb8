package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, "log_level: debug\n"))
	unsetEnv(t, "DISCORD_TOKEN")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "DISCORD_TOKEN") {
		t.Fatalf("expected missing token error, got %v", err)
	}
}

func TestLoadLayersYAMLThenEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, `
discord_token: from-yaml
economy:
  starting_balance: 250
  work_cooldown_seconds: 60
leveling:
  spam_messages: 7
`))
	unsetEnv(t, "DISCORD_TOKEN")
	t.Setenv("ECONOMY_STARTING_BALANCE", "400")
	t.Setenv("LEVELING_XP_BASE", "20")
	t.Setenv("STORAGE_DRIVER", "SQLite")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DiscordToken != "from-yaml" {
		t.Fatalf("expected yaml token, got %q", cfg.DiscordToken)
	}
	if cfg.Economy.StartingBalance != 400 {
		t.Fatalf("expected env override 400, got %d", cfg.Economy.StartingBalance)
	}
	if cfg.Economy.WorkCooldownSeconds != 60 {
		t.Fatalf("expected yaml work cooldown 60, got %d", cfg.Economy.WorkCooldownSeconds)
	}
	if cfg.Leveling.SpamMessages != 7 || cfg.Leveling.XPBase != 20 {
		t.Fatalf("unexpected leveling config: %+v", cfg.Leveling)
	}
	if cfg.Economy.DailyMax != 500 {
		t.Fatalf("expected default daily max, got %d", cfg.Economy.DailyMax)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Fatalf("expected normalized driver, got %q", cfg.Storage.Driver)
	}
	if len(cfg.Economy.Jobs) != 6 || len(cfg.Economy.ShopItems) != 6 {
		t.Fatalf("expected default catalogs, got %d jobs %d items", len(cfg.Economy.Jobs), len(cfg.Economy.ShopItems))
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	cfg.Storage.Driver = "postgres"
	cfg.Leveling.XPBonusMin = 30
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "storage.url") || !strings.Contains(err.Error(), "xp_bonus_max") {
		t.Fatalf("expected both problems reported, got %v", err)
	}
}

func TestBuildLoggerUnknownLevelFallsBackToInfo(t *testing.T) {
	logger, err := BuildLogger("verbose")
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	if logger.Core().Enabled(parseLevel("debug")) {
		t.Fatalf("debug should be disabled at info level")
	}
}
