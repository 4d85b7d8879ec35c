// Package config reads process configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/ledgerplan/internal/logger"
)

// Store backends accepted by STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendBigQuery = "bigquery"
)

// Config holds every setting used by the commands.
//
// Environment variables:
//   - PORT: HTTP port (default "8080")
//   - STORE_BACKEND: "memory" or "bigquery" (default "memory")
//   - GCP_PROJECT: Google Cloud project, required for bigquery
//   - BQ_DATASET: BigQuery dataset (default "finance")
//   - GCS_BUCKET: bucket for uploads and exports, optional
//   - IMPORT_CONCURRENCY: parallel saves per import (default 4)
//   - JOB_WORKERS: job queue workers (default 2)
//   - JOB_BUFFER: job queue capacity (default 100)
//   - POLL_INTERVAL: BigQuery feed polling interval (default 30s)
//   - LOG_LEVEL: debug, info, warn or error (default info)
//   - LOG_FORMAT: console or json (default console)
//   - CURRENCY_SYMBOL: symbol used when formatting amounts (default £)
//   - DATA_FILE: JSON snapshot for the memory backend, optional
type Config struct {
	Port              string
	StoreBackend      string
	GCPProject        string
	BQDataset         string
	GCSBucket         string
	ImportConcurrency int
	JobWorkers        int
	JobBuffer         int
	PollInterval      time.Duration
	LogLevel          string
	LogFormat         string
	CurrencySymbol    string
	DataFile          string
}

// Load reads the process environment.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads configuration through getenv and validates it.
func LoadFrom(getenv func(string) string) (Config, error) {
	env := func(key, def string) string {
		return getEnvOrDefault(getenv, key, def)
	}

	cfg := Config{
		Port:           env("PORT", "8080"),
		StoreBackend:   strings.ToLower(env("STORE_BACKEND", BackendMemory)),
		GCPProject:     env("GCP_PROJECT", ""),
		BQDataset:      env("BQ_DATASET", "finance"),
		GCSBucket:      env("GCS_BUCKET", ""),
		LogLevel:       strings.ToLower(env("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(env("LOG_FORMAT", logger.FormatConsole)),
		CurrencySymbol: env("CURRENCY_SYMBOL", "£"),
		DataFile:       env("DATA_FILE", ""),
	}

	var err error
	if cfg.ImportConcurrency, err = positiveInt(env("IMPORT_CONCURRENCY", "4")); err != nil {
		return Config{}, fmt.Errorf("Load: IMPORT_CONCURRENCY: %w", err)
	}
	if cfg.JobWorkers, err = positiveInt(env("JOB_WORKERS", "2")); err != nil {
		return Config{}, fmt.Errorf("Load: JOB_WORKERS: %w", err)
	}
	if cfg.JobBuffer, err = positiveInt(env("JOB_BUFFER", "100")); err != nil {
		return Config{}, fmt.Errorf("Load: JOB_BUFFER: %w", err)
	}
	if cfg.PollInterval, err = time.ParseDuration(env("POLL_INTERVAL", "30s")); err != nil {
		return Config{}, fmt.Errorf("Load: POLL_INTERVAL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("Load: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendBigQuery:
		if c.GCPProject == "" {
			return fmt.Errorf("GCP_PROJECT is required for the bigquery backend")
		}
		if c.BQDataset == "" {
			return fmt.Errorf("BQ_DATASET is required for the bigquery backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown LOG_LEVEL %q", c.LogLevel)
	}
	switch c.LogFormat {
	case logger.FormatConsole, logger.FormatJSON:
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	return nil
}

// LoggerOptions maps the log settings for logger.NewWithOptions.
func (c Config) LoggerOptions() logger.Options {
	return logger.Options{Level: c.LogLevel, Format: c.LogFormat}
}

func getEnvOrDefault(getenv func(string) string, key, defaultValue string) string {
	if value := strings.TrimSpace(getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}
