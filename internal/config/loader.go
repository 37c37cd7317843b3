package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store drivers understood by the CLI.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

const defaultEnvFile = ".env"

// Config captures environment driven configuration values for the ledger CLI.
type Config struct {
	StoreDriver  string
	StoreDSN     string
	LogLevel     string
	ReminderLead int
}

// Load parses configuration values from the current process environment.
//
// An optional dotenv file named by SHIKKHAJAR_ENV_FILE (default .env) is read
// first; variables already set in the environment win. Every invalid value is
// reported in a single error.
func Load() (Config, error) {
	envFile := strings.TrimSpace(os.Getenv("SHIKKHAJAR_ENV_FILE"))
	if envFile == "" {
		envFile = defaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read env file %s: %w", envFile, err)
	}

	cfg := Config{
		StoreDriver:  DriverSQLite,
		StoreDSN:     "file:shikkhajar.db",
		LogLevel:     "info",
		ReminderLead: 30,
	}

	invalid := make([]string, 0, 3)

	if driver := strings.ToLower(strings.TrimSpace(os.Getenv("SHIKKHAJAR_STORE_DRIVER"))); driver != "" {
		switch driver {
		case DriverSQLite, DriverMemory:
			cfg.StoreDriver = driver
		default:
			invalid = append(invalid, "SHIKKHAJAR_STORE_DRIVER")
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("SHIKKHAJAR_STORE_DSN")); dsn != "" {
		cfg.StoreDSN = dsn
	}

	if level := strings.ToLower(strings.TrimSpace(os.Getenv("SHIKKHAJAR_LOG_LEVEL"))); level != "" {
		switch level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			invalid = append(invalid, "SHIKKHAJAR_LOG_LEVEL")
		}
	}

	if leadValue := strings.TrimSpace(os.Getenv("SHIKKHAJAR_REMINDER_LEAD")); leadValue != "" {
		lead, err := strconv.Atoi(leadValue)
		if err != nil || lead < 0 {
			invalid = append(invalid, "SHIKKHAJAR_REMINDER_LEAD")
		} else {
			cfg.ReminderLead = lead
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
