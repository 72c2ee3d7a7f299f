package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	DatabasePath string
	RecipeDir    string
	PlanID       string

	LogLevel  string
	LogFormat string

	HTTPAddr    string
	ClipTimeout time.Duration

	RedisAddr    string
	RedisChannel string

	MetricsRetentionDays int

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
}

var envKeys = map[string]string{
	"database_path":          "DATABASE_PATH",
	"recipe_dir":             "RECIPE_DIR",
	"plan_id":                "PLAN_ID",
	"log_level":              "LOG_LEVEL",
	"log_format":             "LOG_FORMAT",
	"http_addr":              "HTTP_ADDR",
	"clip_timeout":           "CLIP_TIMEOUT",
	"redis_addr":             "REDIS_ADDR",
	"redis_channel":          "REDIS_CHANNEL",
	"metrics_retention_days": "METRICS_RETENTION_DAYS",
	"telegram_bot_token":     "TELEGRAM_BOT_TOKEN",
	"telegram_webhook_url":   "TELEGRAM_WEBHOOK_URL",
	"telegram_allowed_users": "TELEGRAM_ALLOWED_USER_IDS",
	"telegram_allow_user":    "TELEGRAM_ALLOW_USER_ID",
}

// NewFromEnv creates a new Config object from environment variables. A .env
// file in the working directory is loaded first when present; variables
// already set in the environment win.
func NewFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetDefault("database_path", "data/recipe-box.db")
	v.SetDefault("recipe_dir", "recipes")
	v.SetDefault("plan_id", "default")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("clip_timeout", "15s")
	v.SetDefault("redis_channel", "recipe-box.events")
	v.SetDefault("metrics_retention_days", 30)
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	cfg := &Config{
		DatabasePath:         v.GetString("database_path"),
		RecipeDir:            v.GetString("recipe_dir"),
		PlanID:               v.GetString("plan_id"),
		LogLevel:             strings.ToLower(v.GetString("log_level")),
		LogFormat:            strings.ToLower(v.GetString("log_format")),
		HTTPAddr:             v.GetString("http_addr"),
		ClipTimeout:          v.GetDuration("clip_timeout"),
		RedisAddr:            v.GetString("redis_addr"),
		RedisChannel:         v.GetString("redis_channel"),
		MetricsRetentionDays: v.GetInt("metrics_retention_days"),
		TelegramBotToken:     v.GetString("telegram_bot_token"),
		TelegramWebhookURL:   v.GetString("telegram_webhook_url"),
	}

	ids := v.GetString("telegram_allowed_users")
	if ids == "" {
		// Single-user variable kept for existing deployments.
		ids = v.GetString("telegram_allow_user")
	}
	allowed, err := parseUserIDs(ids)
	if err != nil {
		return nil, err
	}
	cfg.TelegramAllowedUserIDs = allowed

	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("DATABASE_PATH environment variable not set")
	}
	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be console or json, got %q", cfg.LogFormat)
	}
	if cfg.MetricsRetentionDays < 1 {
		return nil, fmt.Errorf("METRICS_RETENTION_DAYS must be at least 1, got %d", cfg.MetricsRetentionDays)
	}
	if cfg.ClipTimeout <= 0 {
		return nil, fmt.Errorf("CLIP_TIMEOUT must be positive")
	}
	return cfg, nil
}

// RequireTelegram checks the settings the bot cannot run without.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if len(c.TelegramAllowedUserIDs) == 0 {
		return fmt.Errorf("TELEGRAM_ALLOWED_USER_IDS environment variable not set")
	}
	return nil
}

func parseUserIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram user id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
