package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Postgres; empty means the in-memory store.
	DatabaseURL string

	// Auth
	APIKey string

	// Parser presets
	ParserPreset      string
	ParserPresetsFile string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool

	// HTTP edge
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// Store
	MaxSlugAttempts int
	StoreMaxRetries int
	StoreRetryBase  time.Duration
	StoreRetryMax   time.Duration
}

// Load reads .env from the working directory when present, then the
// environment. Variables already set in the environment win over .env.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not read .env", "error", err)
	}

	cfg := Config{
		Port: envOr("PORT", "8090"),

		DatabaseURL: envOr("DATABASE_URL", postgresDSNFromParts()),

		APIKey: os.Getenv("TOURGEST_API_KEY"),

		ParserPreset:      envOr("PARSER_PRESET", "default"),
		ParserPresetsFile: os.Getenv("PARSER_PRESETS_FILE"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 20971520), // 20MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		CORSAllowedOrigins: envList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       envFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     envInt("RATE_LIMIT_BURST", 10),

		MaxSlugAttempts: envInt("STORE_MAX_SLUG_ATTEMPTS", 100),
		StoreMaxRetries: envInt("STORE_MAX_RETRIES", 3),
		StoreRetryBase:  envDuration("STORE_RETRY_BASE", 1*time.Second),
		StoreRetryMax:   envDuration("STORE_RETRY_MAX", 30*time.Second),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20971520
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 10
	}
	if cfg.MaxSlugAttempts <= 0 {
		cfg.MaxSlugAttempts = 100
	}
	if cfg.StoreMaxRetries <= 0 {
		cfg.StoreMaxRetries = 3
	}
	if cfg.StoreRetryBase <= 0 {
		cfg.StoreRetryBase = 1 * time.Second
	}
	if cfg.StoreRetryMax <= 0 {
		cfg.StoreRetryMax = 30 * time.Second
	}
	if cfg.StoreRetryMax < cfg.StoreRetryBase {
		cfg.StoreRetryMax = cfg.StoreRetryBase
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("TOURGEST_API_KEY is required")
	}
	if c.ParserPreset == "" {
		return fmt.Errorf("PARSER_PRESET must not be empty")
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}
	if c.ParserPresetsFile != "" {
		if _, err := os.Stat(c.ParserPresetsFile); err != nil {
			return fmt.Errorf("PARSER_PRESETS_FILE: %w", err)
		}
	}
	return nil
}

// postgresDSNFromParts builds a key/value DSN from POSTGRES_* variables, as
// docker-compose setups usually provide. It returns "" when POSTGRES_HOST is unset.
func postgresDSNFromParts() string {
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return ""
	}
	return "host=" + host +
		" port=" + envOr("POSTGRES_PORT", "5432") +
		" user=" + envOr("POSTGRES_USER", "tourgest") +
		" password=" + os.Getenv("POSTGRES_PASSWORD") +
		" dbname=" + envOr("POSTGRES_DB", "tourgest") +
		" sslmode=" + envOr("POSTGRES_SSLMODE", "disable")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList splits a comma-separated variable, dropping empty entries.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
