package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken   string
	DatabaseURL     string
	AdminTelegramID int64
	LogLevel        string
	Environment     string

	Daily    DailyBroadcastConfig
	Interval IntervalBroadcastConfig

	FriendDelay      time.Duration // pause after every friend within a run
	MessageTemplate  string        // text/template, {{.Now}} is the run start time
	TelegramSendRate int           // adapter-wide ceiling, messages per second
}

// DailyBroadcastConfig configures the broadcast that fires once a day at Time.
type DailyBroadcastConfig struct {
	Enabled      bool
	Time         string // HH:MM
	Location     *time.Location
	PollInterval time.Duration
	Cooldown     time.Duration
}

// IntervalBroadcastConfig configures the broadcast that fires every Every.
type IntervalBroadcastConfig struct {
	Enabled bool
	Every   time.Duration
}

const (
	defaultDailyTime        = "09:00"
	defaultDailyTimezone    = "Asia/Shanghai"
	defaultPollInterval     = 30 * time.Second
	defaultCooldown         = 61 * time.Second
	defaultIntervalEvery    = time.Hour
	defaultFriendDelay      = 3 * time.Second
	defaultTelegramSendRate = 20
)

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// Daily broadcast
	if cfg.Daily.Enabled, err = boolEnv("DAILY_BROADCAST_ENABLED", true); err != nil {
		return nil, err
	}
	cfg.Daily.Time = stringEnv("DAILY_BROADCAST_TIME", defaultDailyTime)
	tz := stringEnv("DAILY_BROADCAST_TIMEZONE", defaultDailyTimezone)
	cfg.Daily.Location, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid DAILY_BROADCAST_TIMEZONE %q: %w", tz, err)
	}
	if cfg.Daily.PollInterval, err = durationEnv("DAILY_POLL_INTERVAL", defaultPollInterval); err != nil {
		return nil, err
	}
	if cfg.Daily.Cooldown, err = durationEnv("DAILY_COOLDOWN", defaultCooldown); err != nil {
		return nil, err
	}
	if cfg.Daily.Cooldown <= time.Minute {
		return nil, fmt.Errorf("DAILY_COOLDOWN must be longer than 1m, got %s", cfg.Daily.Cooldown)
	}

	// Interval broadcast
	if cfg.Interval.Enabled, err = boolEnv("INTERVAL_BROADCAST_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.Interval.Every, err = durationEnv("INTERVAL_BROADCAST_EVERY", defaultIntervalEvery); err != nil {
		return nil, err
	}
	if cfg.Interval.Every < time.Second || cfg.Interval.Every%time.Second != 0 {
		return nil, fmt.Errorf("INTERVAL_BROADCAST_EVERY must be a whole number of seconds, got %s", cfg.Interval.Every)
	}

	if cfg.FriendDelay, err = durationEnv("FRIEND_DELAY", defaultFriendDelay); err != nil {
		return nil, err
	}

	cfg.MessageTemplate = os.Getenv("BROADCAST_MESSAGE") // empty means the built-in reminder

	cfg.TelegramSendRate = defaultTelegramSendRate
	if raw := os.Getenv("TELEGRAM_SEND_RATE"); raw != "" {
		cfg.TelegramSendRate, err = strconv.Atoi(raw)
		if err != nil || cfg.TelegramSendRate <= 0 {
			return nil, fmt.Errorf("invalid TELEGRAM_SEND_RATE %q: must be a positive integer", raw)
		}
	}

	return cfg, nil
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func boolEnv(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}
