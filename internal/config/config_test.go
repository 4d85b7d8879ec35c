package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "finance", cfg.BQDataset)
	assert.Equal(t, 4, cfg.ImportConcurrency)
	assert.Equal(t, 2, cfg.JobWorkers)
	assert.Equal(t, 100, cfg.JobBuffer)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, "£", cfg.CurrencySymbol)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{
		"STORE_BACKEND":      "BigQuery",
		"GCP_PROJECT":        "proj",
		"IMPORT_CONCURRENCY": "8",
		"POLL_INTERVAL":      "5s",
		"LOG_LEVEL":          "DEBUG",
		"LOG_FORMAT":         "json",
		"CURRENCY_SYMBOL":    "$",
	}))
	require.NoError(t, err)

	assert.Equal(t, BackendBigQuery, cfg.StoreBackend)
	assert.Equal(t, 8, cfg.ImportConcurrency)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, "debug", cfg.LoggerOptions().Level)
	assert.Equal(t, "json", cfg.LoggerOptions().Format)
	assert.Equal(t, "$", cfg.CurrencySymbol)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bigquery without project", map[string]string{"STORE_BACKEND": "bigquery"}, "GCP_PROJECT"},
		{"unknown backend", map[string]string{"STORE_BACKEND": "sqlite"}, "STORE_BACKEND"},
		{"zero workers", map[string]string{"JOB_WORKERS": "0"}, "JOB_WORKERS"},
		{"bad concurrency", map[string]string{"IMPORT_CONCURRENCY": "many"}, "IMPORT_CONCURRENCY"},
		{"bad interval", map[string]string{"POLL_INTERVAL": "soon"}, "POLL_INTERVAL"},
		{"bad level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"bad format", map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(envMap(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
}
