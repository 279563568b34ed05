package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Addr    string
	TLSCert string
	TLSKey  string

	DatabaseURL      string
	StoreEvaluations bool // persist evaluations for GET /api/user/evaluations/{id}
	TokenKey         string

	// Reference data
	RefdataDir     string // extra datasets loaded next to the embedded one
	RefdataName    string
	RefdataVersion string // semver constraint, empty for latest

	BatchWorkers   int
	RateLimitRPS   float64
	RateLimitBurst int
	MaxUploadMB    int

	LogLevel  string
	LogFormat string
}

// Load reads settings from the environment, after loading .env when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Addr:    getEnv("ADDR", ":8080"),
		TLSCert: os.Getenv("TLS_CERT"),
		TLSKey:  os.Getenv("TLS_KEY"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		StoreEvaluations: getEnvBool("STORE_EVALUATIONS", false),
		TokenKey:         os.Getenv("TOKEN_KEY"),

		RefdataDir:     os.Getenv("REFDATA_DIR"),
		RefdataName:    getEnv("REFDATA_NAME", "bs7671"),
		RefdataVersion: os.Getenv("REFDATA_VERSION"),

		BatchWorkers:   getEnvInt("BATCH_WORKERS", 0),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
		MaxUploadMB:    getEnvInt("MAX_UPLOAD_MB", 10),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("TLS_CERT and TLS_KEY must be set together")
	}
	if cfg.BatchWorkers < 0 {
		return nil, fmt.Errorf("BATCH_WORKERS must not be negative, got %d", cfg.BatchWorkers)
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if cfg.MaxUploadMB < 1 || cfg.MaxUploadMB > 512 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be between 1 and 512, got %d", cfg.MaxUploadMB)
	}
	return cfg, nil
}

// RequireServer checks the settings only the HTTP server needs.
func (c *Config) RequireServer() error {
	if c.TokenKey == "" {
		return fmt.Errorf("TOKEN_KEY is required")
	}
	return nil
}

func (c *Config) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) << 20 }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
