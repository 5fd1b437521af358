// Package config loads and validates environment variables at startup.
// Fail-fast: a malformed value is an error, a missing one takes its default.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"pilotjobs/internal/model"
)

// Config holds all runtime configuration for pilotjobs.
type Config struct {
	OutputDir     string
	SitesFile     string
	HistoryDays   int
	HTTPTimeout   time.Duration
	SourceDelay   time.Duration
	UserAgent     string
	ScraperAPIKey string // routes fetches through the rendering proxy when set
	Schedule      string // cron spec for the schedule command
	Port          string

	DatabaseURL    string // optional Postgres archive
	RedisURL       string // optional Redis cache + event
	TelegramToken  string // optional new-job alerts
	TelegramChatID int64

	Sites    []model.Site
	RedFlags []string
}

// Load reads .env (if present) and the environment, then the site table.
func Load() (*Config, error) {
	_ = godotenv.Load()

	historyDays, err := envInt("PILOTJOBS_HISTORY_DAYS", 30)
	if err != nil {
		return nil, err
	}
	timeoutSec, err := envInt("PILOTJOBS_HTTP_TIMEOUT_SECONDS", 20)
	if err != nil {
		return nil, err
	}
	delayMs, err := envInt("PILOTJOBS_SOURCE_DELAY_MS", 1000)
	if err != nil {
		return nil, err
	}

	if historyDays < 1 {
		return nil, fmt.Errorf("PILOTJOBS_HISTORY_DAYS must be at least 1, got %d", historyDays)
	}
	if timeoutSec < 1 {
		return nil, fmt.Errorf("PILOTJOBS_HTTP_TIMEOUT_SECONDS must be at least 1, got %d", timeoutSec)
	}

	var chatID int64
	if s := os.Getenv("TELEGRAM_CHAT_ID"); s != "" {
		chatID, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID must be an integer, got %q", s)
		}
	}

	cfg := &Config{
		OutputDir:      envOr("PILOTJOBS_OUTPUT_DIR", "."),
		SitesFile:      os.Getenv("PILOTJOBS_SITES_FILE"),
		HistoryDays:    historyDays,
		HTTPTimeout:    time.Duration(timeoutSec) * time.Second,
		SourceDelay:    time.Duration(delayMs) * time.Millisecond,
		UserAgent:      os.Getenv("PILOTJOBS_USER_AGENT"),
		ScraperAPIKey:  os.Getenv("SCRAPER_API_KEY"),
		Schedule:       envOr("PILOTJOBS_SCHEDULE", "@daily"),
		Port:           envOr("PILOTJOBS_PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID: chatID,
		Sites:          DefaultSites(),
		RedFlags:       DefaultRedFlags(),
	}

	if cfg.SitesFile != "" {
		sf, err := LoadSitesFile(cfg.SitesFile)
		if err != nil {
			return nil, err
		}
		cfg.Sites = sf.Sites
		if sf.RedFlags != nil {
			cfg.RedFlags = sf.RedFlags
		}
	}

	if cfg.TelegramToken != "" && cfg.TelegramChatID == 0 {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	return cfg, nil
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// envInt parses a non-negative integer variable, falling back to def when unset.
func envInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, s)
	}
	return v, nil
}
