package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"ADDR", "TLS_CERT", "TLS_KEY", "DATABASE_URL", "STORE_EVALUATIONS", "TOKEN_KEY",
	"REFDATA_DIR", "REFDATA_NAME", "REFDATA_VERSION", "BATCH_WORKERS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "MAX_UPLOAD_MB", "LOG_LEVEL", "LOG_FORMAT",
}

func cleanEnv(t *testing.T, set map[string]string) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	for k, v := range set {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cleanEnv(t, nil)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "bs7671", cfg.RefdataName)
	assert.Empty(t, cfg.RefdataVersion)
	assert.Equal(t, 0, cfg.BatchWorkers)
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
	assert.Equal(t, 10, cfg.RateLimitBurst)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
	assert.False(t, cfg.StoreEvaluations)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	cleanEnv(t, map[string]string{
		"ADDR":              ":9443",
		"TLS_CERT":          "server.crt",
		"TLS_KEY":           "server.key",
		"REFDATA_VERSION":   "~18.2",
		"STORE_EVALUATIONS": "true",
		"BATCH_WORKERS":     "4",
		"RATE_LIMIT_RPS":    "0.5",
		"LOG_FORMAT":        "json",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9443", cfg.Addr)
	assert.Equal(t, "~18.2", cfg.RefdataVersion)
	assert.True(t, cfg.StoreEvaluations)
	assert.Equal(t, 4, cfg.BatchWorkers)
	assert.Equal(t, 0.5, cfg.RateLimitRPS)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_DotEnv(t *testing.T) {
	cleanEnv(t, nil)
	require.NoError(t, os.WriteFile(".env", []byte("REFDATA_NAME=iec60364\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "iec60364", cfg.RefdataName)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"cert without key": {"TLS_CERT": "server.crt"},
		"negative workers": {"BATCH_WORKERS": "-1"},
		"zero burst":       {"RATE_LIMIT_BURST": "0"},
		"huge upload":      {"MAX_UPLOAD_MB": "4096"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			cleanEnv(t, env)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestRequireServer(t *testing.T) {
	cfg := &Config{}
	assert.EqualError(t, cfg.RequireServer(), "TOKEN_KEY is required")

	cfg.TokenKey = "k"
	assert.NoError(t, cfg.RequireServer())
}
