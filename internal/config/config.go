package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port string
	Env  string

	DB       DatabaseConfig
	Redis    RedisConfig
	Importer ImporterConfig
	Enrich   EnrichConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// ImporterConfig controls the periodic catalog import pass.
type ImporterConfig struct {
	// SourcePath is the path to the semicolon-delimited catalog feed.
	SourcePath string
	// Interval between scheduled import passes.
	Interval time.Duration
	// DeleteMissing enables soft-deletion of persisted products absent from
	// the current feed snapshot.
	DeleteMissing bool
	// UpsertConcurrency bounds the reconciliation worker pool. 1 keeps the
	// upsert phase strictly sequential.
	UpsertConcurrency int
	// LockTTL caps how long a crashed pass can hold the pass lock.
	LockTTL time.Duration
}

// EnrichConfig controls the optional description-enrichment step.
type EnrichConfig struct {
	Enabled bool
	// Limit is the maximum number of products enriched per pass.
	Limit int
	// Concurrency bounds the enrichment task set.
	Concurrency int
	APIKey      string
	Model       string
	BaseURL     string
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// Importer
	cfg.Importer = ImporterConfig{
		SourcePath:        getEnv("CSV_SOURCE_PATH", "csvfile.csv"),
		DeleteMissing:     getEnvBool("DELETE_MISSING_PRODUCTS", false),
		UpsertConcurrency: getEnvInt("IMPORT_UPSERT_CONCURRENCY", 1),
	}

	// Enrichment (OpenAI-compatible chat completions)
	cfg.Enrich = EnrichConfig{
		Enabled:     getEnvBool("ENRICH_ENABLED", false),
		Limit:       getEnvInt("ENRICH_LIMIT", 10),
		Concurrency: getEnvInt("ENRICH_CONCURRENCY", 2),
		APIKey:      getEnv("OPENAI_API_KEY", ""),
		Model:       getEnv("ENRICH_MODEL", "llama-3.1-8b-instant"),
		BaseURL:     getEnv("ENRICH_BASE_URL", "https://api.groq.com/openai/v1"),
	}

	var err error
	if cfg.Importer.Interval, err = parseDurationEnv("IMPORT_INTERVAL", "15m"); err != nil {
		return nil, fmt.Errorf("invalid IMPORT_INTERVAL: %w", err)
	}
	if cfg.Importer.LockTTL, err = parseDurationEnv("IMPORT_LOCK_TTL", "30m"); err != nil {
		return nil, fmt.Errorf("invalid IMPORT_LOCK_TTL: %w", err)
	}

	// Basic validation for DB parameters — keeps messages concise and helpful.
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	if cfg.Importer.UpsertConcurrency < 1 {
		cfg.Importer.UpsertConcurrency = 1
	}
	if cfg.Enrich.Concurrency < 1 {
		cfg.Enrich.Concurrency = 1
	}
	if cfg.Enrich.Enabled && cfg.Enrich.APIKey == "" {
		return nil, errors.New("ENRICH_ENABLED is set but OPENAI_API_KEY is empty")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getEnvBool returns the value of an environment variable as a boolean or a default if empty/invalid.
func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
