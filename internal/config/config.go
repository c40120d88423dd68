package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendFirestore = "firestore"
	BackendSQLite    = "sqlite"
)

type Config struct {
	StoreBackend      string
	ProjectID         string
	SQLitePath        string
	Port              string
	DiscordWebhookURL string

	// RepriceInterval is the period of the scheduled batch; zero disables it.
	RepriceInterval time.Duration
	// RepriceDaysThreshold limits scheduled batches to listings expiring
	// within that many days; nil means every active sell listing.
	RepriceDaysThreshold *int
	ItemTimeout          time.Duration
	BatchConcurrency     int
	TaxRate              float64
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	backend := os.Getenv("STORE_BACKEND")
	if backend == "" {
		backend = BackendFirestore
	}
	if backend != BackendFirestore && backend != BackendSQLite {
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: must be %q or %q", backend, BackendFirestore, BackendSQLite)
	}

	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if backend == BackendFirestore && projectID == "" {
		return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT environment variable is required but not set")
	}

	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		sqlitePath = "greenshelf.db"
	}

	discordWebhookURL := os.Getenv("DISCORD_WEBHOOK_URL")
	if discordWebhookURL == "" {
		slog.Warn("DISCORD_WEBHOOK_URL not set, Discord notifications will be skipped")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		slog.Info("Defaulting to port", "port", port)
	}

	repriceInterval, err := durationEnv("REPRICE_INTERVAL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	var daysThreshold *int
	if v := os.Getenv("REPRICE_DAYS_THRESHOLD"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REPRICE_DAYS_THRESHOLD %q: %w", v, err)
		}
		if parsed < 0 {
			return nil, fmt.Errorf("invalid REPRICE_DAYS_THRESHOLD %q: must not be negative", v)
		}
		daysThreshold = &parsed
	}

	itemTimeout, err := durationEnv("ITEM_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	if itemTimeout <= 0 {
		return nil, fmt.Errorf("invalid ITEM_TIMEOUT %s: must be positive", itemTimeout)
	}

	concurrency := 8
	if v := os.Getenv("BATCH_CONCURRENCY"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid BATCH_CONCURRENCY %q: %w", v, err)
		}
		if parsed < 1 {
			return nil, fmt.Errorf("invalid BATCH_CONCURRENCY %q: must be at least 1", v)
		}
		concurrency = parsed
	}

	taxRate := 0.10
	if v := os.Getenv("TAX_RATE"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TAX_RATE %q: %w", v, err)
		}
		if parsed < 0 || parsed > 1 {
			return nil, fmt.Errorf("invalid TAX_RATE %q: must be between 0 and 1", v)
		}
		taxRate = parsed
	}

	return &Config{
		StoreBackend:         backend,
		ProjectID:            projectID,
		SQLitePath:           sqlitePath,
		Port:                 port,
		DiscordWebhookURL:    discordWebhookURL,
		RepriceInterval:      repriceInterval,
		RepriceDaysThreshold: daysThreshold,
		ItemTimeout:          itemTimeout,
		BatchConcurrency:     concurrency,
		TaxRate:              taxRate,
	}, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if v == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, v)
	}
	return d, nil
}
