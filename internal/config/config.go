// Package config reads the terminal agent settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"go-pos-terminal/pkg/validator"
)

type Config struct {
	AppEnv   string `validate:"required"`
	Port     string `validate:"required,numeric"`
	LogLevel string

	DBDriver    string `validate:"oneof=sqlite postgres"`
	DataDir     string `validate:"required_if=DBDriver sqlite"`
	DatabaseURL string `validate:"required_if=DBDriver postgres"`

	RemoteBaseURL  string        `validate:"required,url"`
	RemoteAPIToken string        `json:"-"`
	RemoteTimeout  time.Duration `validate:"gt=0"`

	SyncInterval     time.Duration `validate:"gt=0"`
	SyncCycleTimeout time.Duration `validate:"gt=0"`
	SyncBackoffMax   time.Duration `validate:"gt=0"`
	Tenants          []string

	JWTSecret string `json:"-" validate:"required"`
}

// SQLitePath is the database file used when DBDriver is sqlite.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "pos.db")
}

// Load reads .env when present and builds a validated Config.
func Load() (*Config, error) {
	// Missing .env is fine; production sets variables directly
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "3000"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DBDriver:       strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DataDir:        getEnv("POS_DATA_DIR", "./data"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RemoteBaseURL:  strings.TrimRight(getEnv("REMOTE_BASE_URL", "http://localhost:8080/api"), "/"),
		RemoteAPIToken: os.Getenv("REMOTE_API_TOKEN"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		Tenants:        splitList(os.Getenv("POS_TENANTS")),
	}

	var err error
	if cfg.RemoteTimeout, err = getDuration("REMOTE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SyncInterval, err = getDuration("SYNC_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SyncCycleTimeout, err = getDuration("SYNC_CYCLE_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SyncBackoffMax, err = getDuration("SYNC_BACKOFF_MAX", 5*time.Minute); err != nil {
		return nil, err
	}

	if err := validator.Check(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getDuration accepts Go durations ("45s") or plain seconds ("45").
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
