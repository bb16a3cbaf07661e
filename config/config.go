package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds all configuration for the media bot
type Config struct {
	Telegram  TelegramConfig
	MTProto   MTProtoConfig
	Downloads DownloadsConfig
	Logging   LoggingConfig
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken string
}

// MTProtoConfig holds credentials for the MTProto fallback transport.
// APIID and APIHash are optional; without them the fallback is disabled
// and oversized files are simply rejected.
type MTProtoConfig struct {
	APIID      int
	APIHash    string
	SessionDir string
}

// DownloadsConfig holds download policy configuration
type DownloadsConfig struct {
	Dir                string
	MaxDurationSeconds int
	CookiesFile        string
	YTDLPPath          string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// Result provides config parts for fx dependency injection using fx.Out pattern
type Result struct {
	fx.Out

	Config    *Config
	Telegram  *TelegramConfig
	MTProto   *MTProtoConfig
	Downloads *DownloadsConfig
	Logging   *LoggingConfig
}

// Out loads configuration and returns Result for fx injection
func Out() (Result, error) {
	cfg, err := Load()
	if err != nil {
		return Result{}, err
	}

	return Result{
		Config:    cfg,
		Telegram:  &cfg.Telegram,
		MTProto:   &cfg.MTProto,
		Downloads: &cfg.Downloads,
		Logging:   &cfg.Logging,
	}, nil
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	apiID, err := getEnvInt("TELEGRAM_API_ID", 0)
	if err != nil {
		return nil, err
	}

	maxDuration, err := getEnvInt("MAX_DURATION_SECONDS", 3600)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Telegram: TelegramConfig{
			BotToken: getEnv("BOT_TOKEN", ""),
		},
		MTProto: MTProtoConfig{
			APIID:      apiID,
			APIHash:    getEnv("TELEGRAM_API_HASH", ""),
			SessionDir: getEnv("SESSION_DIR", "data/mtproto"),
		},
		Downloads: DownloadsConfig{
			Dir:                getEnv("DOWNLOADS_DIR", "data/downloads"),
			MaxDurationSeconds: maxDuration,
			CookiesFile:        getEnv("COOKIES_FILE", ""),
			YTDLPPath:          getEnv("YTDLP_PATH", "yt-dlp"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}

	if c.Downloads.MaxDurationSeconds <= 0 {
		return fmt.Errorf("MAX_DURATION_SECONDS must be positive")
	}

	// The fallback needs both halves of the credential or none
	if (c.MTProto.APIID == 0) != (c.MTProto.APIHash == "") {
		return fmt.Errorf("TELEGRAM_API_ID and TELEGRAM_API_HASH must be set together")
	}

	return nil
}

// FallbackEnabled reports whether the MTProto fallback transport is configured
func (c *MTProtoConfig) FallbackEnabled() bool {
	return c.APIID != 0 && c.APIHash != ""
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable with default value
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
