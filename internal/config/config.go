package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr               string
	DBPath             string
	LogLevel           string
	LogJSON            bool
	PolicyFile         string
	DefaultReviewLimit int
	NewCardLimit       int
	NewCardSpacing     int
	CORSOrigins        []string
}

// Load reads configuration from the given .env files (or ./.env when none are
// named) and environment variables, applying defaults when values are missing
// or invalid.
func Load(envFiles ...string) Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load(envFiles...)

	return Config{
		Addr:               envOr("ADDR", ":8080"),
		DBPath:             envOr("DB_PATH", "file:studydeck.db"),
		LogLevel:           strings.ToUpper(envOr("LOG_LEVEL", "INFO")),
		LogJSON:            envBoolOr("LOG_JSON", false),
		PolicyFile:         os.Getenv("POLICY_FILE"),
		DefaultReviewLimit: envIntOr("DEFAULT_REVIEW_LIMIT", 0),
		NewCardLimit:       envIntOr("NEW_CARD_LIMIT", 0),
		NewCardSpacing:     envIntOr("NEW_CARD_SPACING", 0),
		CORSOrigins:        envListOr("CORS_ORIGINS", []string{"*"}),
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("ADDR cannot be empty"))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("DB_PATH cannot be empty"))
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR, got %q", c.LogLevel))
	}
	if c.DefaultReviewLimit < 0 {
		errs = append(errs, fmt.Errorf("DEFAULT_REVIEW_LIMIT must be 0 (no limit) or positive, got %d", c.DefaultReviewLimit))
	}
	if c.NewCardLimit < 0 {
		errs = append(errs, fmt.Errorf("NEW_CARD_LIMIT must be 0 (no limit) or positive, got %d", c.NewCardLimit))
	}
	if c.NewCardSpacing < 0 {
		errs = append(errs, fmt.Errorf("NEW_CARD_SPACING must not be negative, got %d", c.NewCardSpacing))
	}
	if c.PolicyFile != "" {
		if _, err := os.Stat(c.PolicyFile); err != nil {
			errs = append(errs, fmt.Errorf("POLICY_FILE %q: %w", c.PolicyFile, err))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envBoolOr(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("invalid value for %s=%q, using default %t", key, v, def)
	}
	return def
}

func envListOr(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
