package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings the bot reads from its environment.
type Config struct {
	DiscordToken string
	SQLiteDSN    string
	LogLevel     string
	ReminderLead time.Duration
}

// Load reads configuration from the process environment. A .env file is
// picked up when present, which is convenient for local runs; a missing
// file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		SQLiteDSN:    "raidbot.db",
		LogLevel:     "info",
		ReminderLead: 5 * time.Minute,
	}

	var missing, invalid []string

	if token := strings.TrimSpace(os.Getenv("RAIDBOT_DISCORD_TOKEN")); token == "" {
		missing = append(missing, "RAIDBOT_DISCORD_TOKEN")
	} else {
		cfg.DiscordToken = token
	}

	if dsn := strings.TrimSpace(os.Getenv("RAIDBOT_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if level := strings.TrimSpace(os.Getenv("RAIDBOT_LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if lead := strings.TrimSpace(os.Getenv("RAIDBOT_REMINDER_LEAD")); lead != "" {
		parsed, err := time.ParseDuration(lead)
		if err != nil || parsed <= 0 {
			invalid = append(invalid, "RAIDBOT_REMINDER_LEAD")
		} else {
			cfg.ReminderLead = parsed
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}
