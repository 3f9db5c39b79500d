package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process settings read from .env and the environment.
type Config struct {
	Environment    string
	Port           string
	DatasetPath    string
	Variant        string
	Strategy       string
	RulesPath      string
	SourceTimeout  time.Duration
	RowLimit       int
	CurrencySymbol string
}

// Load reads .env (if present) and then the environment.
func Load() (Config, error) {
	_ = godotenv.Load() // loads .env
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Environment:    envOr("ENVIRONMENT", "local"),
		Port:           envOr("PORT", "8080"),
		DatasetPath:    envOr("DATASET_PATH", "Ecommerce_Sales.csv"),
		Variant:        envOr("DATASET_VARIANT", "auto"),
		Strategy:       envOr("RESOLVE_STRATEGY", "heuristic"),
		RulesPath:      os.Getenv("RESOLVE_RULES"),
		CurrencySymbol: os.Getenv("CURRENCY_SYMBOL"),
	}

	timeout, err := time.ParseDuration(envOr("SOURCE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("SOURCE_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return Config{}, fmt.Errorf("SOURCE_TIMEOUT must be positive, got %s", timeout)
	}
	cfg.SourceTimeout = timeout

	limit, err := strconv.Atoi(envOr("ROW_LIMIT", "500"))
	if err != nil {
		return Config{}, fmt.Errorf("ROW_LIMIT: %w", err)
	}
	if limit < 0 {
		return Config{}, fmt.Errorf("ROW_LIMIT must not be negative, got %d", limit)
	}
	cfg.RowLimit = limit

	return cfg, nil
}

// Addr is the listen address for the HTTP host.
func (c Config) Addr() string {
	return ":" + c.Port
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
