// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration. Every field maps to one env var.
type Config struct {
	// Port is the HTTP listen port (PORT).
	Port string

	// GeminiModel is the oracle model name (GEMINI_MODEL). The API key
	// itself (GEMINI_API_KEY) is read by the genai client directly.
	GeminiModel string

	// SpreadsheetID is the ledger spreadsheet (SHEETS_SPREADSHEET_ID).
	// When empty the server falls back to the in-memory backend.
	SpreadsheetID string

	// CredentialsFile is an optional service-account key file for the
	// Sheets API (GOOGLE_APPLICATION_CREDENTIALS is honored implicitly;
	// SHEETS_CREDENTIALS_FILE overrides it).
	CredentialsFile string

	// CacheTTL bounds how long ledger reads are served from cache
	// (LEDGER_CACHE_TTL, Go duration syntax).
	CacheTTL time.Duration

	// ToleratePartialFailure makes the dashboard degrade to zero metrics
	// when the backend is unreachable instead of failing the request
	// (DASHBOARD_TOLERATE_PARTIAL_FAILURE=true).
	ToleratePartialFailure bool
}

// Load reads configuration from the environment. A missing .env file is
// not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                   envOr("PORT", "8080"),
		GeminiModel:            os.Getenv("GEMINI_MODEL"),
		SpreadsheetID:          os.Getenv("SHEETS_SPREADSHEET_ID"),
		CredentialsFile:        os.Getenv("SHEETS_CREDENTIALS_FILE"),
		CacheTTL:               5 * time.Minute,
		ToleratePartialFailure: os.Getenv("DASHBOARD_TOLERATE_PARTIAL_FAILURE") == "true",
	}

	if ttl := os.Getenv("LEDGER_CACHE_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("config.Load: invalid LEDGER_CACHE_TTL %q: %w", ttl, err)
		}
		cfg.CacheTTL = d
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
