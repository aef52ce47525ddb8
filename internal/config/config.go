package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken  string              `yaml:"discord_token" envconfig:"DISCORD_TOKEN"`
	LogLevel      string              `yaml:"log_level" envconfig:"LOG_LEVEL"`
	Storage       StorageConfig       `yaml:"storage"`
	Economy       EconomyConfig       `yaml:"economy"`
	Leveling      LevelingConfig      `yaml:"leveling"`
	Prefix        PrefixConfig        `yaml:"prefix"`
	HTTP          HTTPConfig          `yaml:"http"`
	Announcements AnnouncementsConfig `yaml:"announcements"`
	Jobs          JobsConfig          `yaml:"jobs"`
	EmbedColors   EmbedColors         `yaml:"embed_colors" envconfig:"EMBED_COLOR"`
}

type StorageConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns" split_words:"true"`
	MinConns int32  `yaml:"min_conns" split_words:"true"`
}

type EconomyConfig struct {
	StartingBalance       int64 `yaml:"starting_balance" split_words:"true"`
	DailyBase             int64 `yaml:"daily_base" split_words:"true"`
	DailyStreakStep       int64 `yaml:"daily_streak_step" split_words:"true"`
	DailyStreakCap        int64 `yaml:"daily_streak_cap" split_words:"true"`
	DailyRandomMax        int64 `yaml:"daily_random_max" split_words:"true"`
	DailyMax              int64 `yaml:"daily_max" split_words:"true"`
	DailyCooldownSeconds  int   `yaml:"daily_cooldown_seconds" split_words:"true"`
	StreakBreakSeconds    int   `yaml:"streak_break_seconds" split_words:"true"`
	WorkCooldownSeconds   int   `yaml:"work_cooldown_seconds" split_words:"true"`
	JobLevelEvery         int64 `yaml:"job_level_every" split_words:"true"`
	LevelUpBonus          int64 `yaml:"level_up_bonus" split_words:"true"`
	TransactionRetention  int   `yaml:"transaction_retention" split_words:"true"`
	LeaderboardDefaultTop int   `yaml:"leaderboard_default_top" split_words:"true"`

	Jobs      []JobConfig      `yaml:"jobs" ignored:"true"`
	ShopItems []ShopItemConfig `yaml:"shop_items" ignored:"true"`
}

type JobConfig struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	MinPay      int64   `yaml:"min_pay"`
	MaxPay      int64   `yaml:"max_pay"`
	SuccessRate float64 `yaml:"success_rate"`
}

type ShopItemConfig struct {
	ID          string `yaml:"id"`
	Emoji       string `yaml:"emoji"`
	Name        string `yaml:"name"`
	Price       int64  `yaml:"price"`
	Kind        string `yaml:"kind"`
	Description string `yaml:"description"`
}

type LevelingConfig struct {
	XPBase            int64  `yaml:"xp_base" split_words:"true"`
	XPBonusMin        int64  `yaml:"xp_bonus_min" split_words:"true"`
	XPBonusMax        int64  `yaml:"xp_bonus_max" split_words:"true"`
	CooldownSeconds   int    `yaml:"cooldown_seconds" split_words:"true"`
	SpamMessages      int    `yaml:"spam_messages" split_words:"true"`
	SpamWindowSeconds int    `yaml:"spam_window_seconds" split_words:"true"`
	MaxWarnings       int64  `yaml:"max_warnings" split_words:"true"`
	TimeoutMinutes    int    `yaml:"timeout_minutes" split_words:"true"`
	MinMessageLength  int    `yaml:"min_message_length" split_words:"true"`
	LevelUpMessage    string `yaml:"levelup_message" envconfig:"LEVELUP_MESSAGE"`
}

type PrefixConfig struct {
	Default string `yaml:"default"`
}

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type AnnouncementsConfig struct {
	DebounceMillis int `yaml:"debounce_millis" split_words:"true"`
}

type JobsConfig struct {
	PruneSchedule string `yaml:"prune_schedule" split_words:"true"`
	SweepSchedule string `yaml:"sweep_schedule" split_words:"true"`
}

type EmbedColors struct {
	Success int `yaml:"success"`
	Info    int `yaml:"info"`
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Storage: StorageConfig{
			Driver:   DriverSQLite,
			Path:     "/data/guildledger.db",
			MaxConns: 10,
			MinConns: 1,
		},
		Economy: EconomyConfig{
			StartingBalance:       1000,
			DailyBase:             100,
			DailyStreakStep:       10,
			DailyStreakCap:        200,
			DailyRandomMax:        50,
			DailyMax:              500,
			DailyCooldownSeconds:  86400,
			StreakBreakSeconds:    172800,
			WorkCooldownSeconds:   3600,
			JobLevelEvery:         10,
			LevelUpBonus:          50,
			TransactionRetention:  1000,
			LeaderboardDefaultTop: 10,
			Jobs:                  DefaultJobs(),
			ShopItems:             DefaultShopItems(),
		},
		Leveling: LevelingConfig{
			XPBase:            15,
			XPBonusMin:        5,
			XPBonusMax:        25,
			CooldownSeconds:   60,
			SpamMessages:      5,
			SpamWindowSeconds: 10,
			MaxWarnings:       3,
			TimeoutMinutes:    10,
			MinMessageLength:  3,
			LevelUpMessage:    "🎉 {user_mention} leveled up to **Level {level}**! 🚀",
		},
		Prefix:        PrefixConfig{Default: "!"},
		HTTP:          HTTPConfig{Enabled: false, Addr: ":8080"},
		Announcements: AnnouncementsConfig{DebounceMillis: 1000},
		Jobs:          JobsConfig{PruneSchedule: "@hourly", SweepSchedule: "@every 1m"},
		EmbedColors: EmbedColors{
			Success: 0x22C55E,
			Info:    0x3B82F6,
			Warning: 0xF59E0B,
			Error:   0xEF4444,
		},
	}
}

func DefaultJobs() []JobConfig {
	return []JobConfig{
		{ID: "programmer", Name: "💻 Programmer", MinPay: 200, MaxPay: 400, SuccessRate: 0.8},
		{ID: "designer", Name: "🎨 Designer", MinPay: 150, MaxPay: 350, SuccessRate: 0.85},
		{ID: "streamer", Name: "📺 Streamer", MinPay: 100, MaxPay: 500, SuccessRate: 0.7},
		{ID: "chef", Name: "👨‍🍳 Chef", MinPay: 120, MaxPay: 280, SuccessRate: 0.9},
		{ID: "gamer", Name: "🎮 Pro Gamer", MinPay: 50, MaxPay: 600, SuccessRate: 0.6},
		{ID: "teacher", Name: "📚 Teacher", MinPay: 180, MaxPay: 320, SuccessRate: 0.95},
	}
}

func DefaultShopItems() []ShopItemConfig {
	return []ShopItemConfig{
		{ID: "role_color", Emoji: "🎭", Name: "Custom Role Color", Price: 5000, Kind: "role_color", Description: "Change your role color"},
		{ID: "vip", Emoji: "👑", Name: "VIP Status", Price: 10000, Kind: "vip", Description: "Get VIP perks for 30 days"},
		{ID: "title", Emoji: "🎪", Name: "Custom Title", Price: 2500, Kind: "title", Description: "Set a custom title that shows in rank"},
		{ID: "gift_box", Emoji: "🎁", Name: "Gift Box", Price: 500, Kind: "lootbox", Description: "Random reward between 100-1000 coins"},
		{ID: "xp_boost", Emoji: "🛡️", Name: "XP Boost", Price: 1500, Kind: "xp_boost", Description: "2x XP for 24 hours"},
		{ID: "streak_shield", Emoji: "🎯", Name: "Daily Streak Protection", Price: 800, Kind: "streak_shield", Description: "Protect your daily streak once"},
	}
}

// Load layers config.yaml (or CONFIG_PATH), a .env file and the process
// environment over DefaultConfig, in that order.
func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("environment: %w", err)
	}

	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	cfg.Storage.Driver = normalizeDriver(cfg.Storage.Driver)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the services cannot run with.
func (c Config) Validate() error {
	var problems []string
	if c.Storage.Driver == DriverPostgres && c.Storage.URL == "" {
		problems = append(problems, "storage.url is required for the postgres driver")
	}
	if c.Economy.StartingBalance < 0 {
		problems = append(problems, "economy.starting_balance must not be negative")
	}
	if c.Economy.DailyMax < c.Economy.DailyBase {
		problems = append(problems, "economy.daily_max must be at least daily_base")
	}
	if c.Economy.JobLevelEvery <= 0 {
		problems = append(problems, "economy.job_level_every must be positive")
	}
	if len(c.Economy.Jobs) == 0 {
		problems = append(problems, "economy.jobs must not be empty")
	}
	for _, job := range c.Economy.Jobs {
		if job.MinPay < 0 || job.MaxPay < job.MinPay {
			problems = append(problems, fmt.Sprintf("job %q has an invalid pay range", job.ID))
		}
	}
	for _, item := range c.Economy.ShopItems {
		if item.Price < 0 {
			problems = append(problems, fmt.Sprintf("shop item %q has a negative price", item.ID))
		}
	}
	if c.Leveling.XPBonusMax < c.Leveling.XPBonusMin {
		problems = append(problems, "leveling.xp_bonus_max must be at least xp_bonus_min")
	}
	if c.Leveling.SpamMessages <= 0 || c.Leveling.SpamWindowSeconds <= 0 {
		problems = append(problems, "leveling spam thresholds must be positive")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func normalizeDriver(value string) string {
	switch strings.ToLower(value) {
	case "postgres", "postgresql", "pgx":
		return DriverPostgres
	default:
		return DriverSQLite
	}
}
