package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Score feed API
	HTTPAddr string

	// Odds fanout websocket
	FanoutAddr string

	// History store
	HistoryPath  string
	HistoryMaxMB int

	// Race format atlas
	FormatsPath   string
	DefaultFormat string

	// Odds endpoint throttle, requests per second
	OddsRateLimit int

	// Race-final announcements, empty disables
	DiscordWebhook string

	// Telemetry
	LogLevel string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:   envStr("HTTP_ADDR", ":8090"),
		FanoutAddr: envStr("FANOUT_ADDR", ":8091"),

		HistoryPath:  envStr("HISTORY_PATH", "raceodds_history.db"),
		HistoryMaxMB: envInt("HISTORY_MAX_MB", 256),

		FormatsPath:   envStr("FORMATS_PATH", "internal/config/formats.yaml"),
		DefaultFormat: envStr("DEFAULT_FORMAT", "race30"),

		OddsRateLimit: envInt("ODDS_RATE_LIMIT", 50),

		DiscordWebhook: envStr("DISCORD_WEBHOOK", ""),

		LogLevel: envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
