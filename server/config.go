package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the server settings, read from the environment.
type Config struct {
	Addr        string
	Store       string // memory, sqlite, redis or postgres
	SQLitePath  string
	DatabaseURL string
	RedisAddr   string
	ImportDir   string // watched for dropped workflow files; empty disables
	LogLevel    slog.Level
}

// LoadConfig reads configuration from the environment, after loading a
// .env file from the working directory if there is one.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:        getEnvWithDefault("FLOW_ADDR", ":3000"),
		Store:       strings.ToLower(getEnvWithDefault("FLOW_STORE", "sqlite")),
		SQLitePath:  getEnvWithDefault("FLOW_SQLITE_PATH", "data/flow.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   getEnvWithDefault("REDIS_ADDR", "localhost:6379"),
		ImportDir:   os.Getenv("FLOW_IMPORT_DIR"),
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnvWithDefault("FLOW_LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("FLOW_LOG_LEVEL: %w", err)
	}

	switch cfg.Store {
	case "memory", "sqlite", "redis":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
	default:
		return nil, fmt.Errorf("FLOW_STORE: unknown store %q", cfg.Store)
	}
	return cfg, nil
}

func getEnvWithDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
