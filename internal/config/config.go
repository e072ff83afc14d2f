package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	FrontendURL string

	// Groq capability
	GroqAPIKey     string
	GroqBaseURL    string
	GroqModel      string
	GroqEmbedModel string

	// Auth
	JWTSecret     string
	JWTExpireDays int
	CookieName    string

	// Storage
	DBPath string

	// Analysis worker pool
	WorkerCount          int
	MaxQueueSize         int
	MaxConcurrentExtract int

	// Upload limits
	MaxUploadBytes int64

	// Chunking defaults
	DefaultChunkSize    int
	DefaultChunkOverlap int

	// Job state
	JobTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port:        envOr("PORT", "8000"),
		FrontendURL: envOr("FRONTEND_URL", "http://localhost:3000"),

		GroqAPIKey:     os.Getenv("GROQ_API_KEY"),
		GroqBaseURL:    envOr("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GroqModel:      envOr("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GroqEmbedModel: envOr("GROQ_EMBED_MODEL", "text-embedding-3-small"),

		JWTSecret:     envOr("JWT_SECRET", "dev_secret_change_me"),
		JWTExpireDays: envInt("JWT_EXPIRE_DAYS", 7),
		CookieName:    envOr("COOKIE_NAME", "unbind_token"),

		DBPath: envOr("DB_PATH", "unbind.db"),

		WorkerCount:          envInt("WORKER_COUNT", 4),
		MaxQueueSize:         envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrentExtract: envInt("MAX_CONCURRENT_EXTRACT", 5),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		DefaultChunkSize:    envInt("DEFAULT_CHUNK_SIZE", 4000),
		DefaultChunkOverlap: envInt("DEFAULT_CHUNK_OVERLAP", 300),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),
	}

	if cfg.JWTExpireDays <= 0 {
		cfg.JWTExpireDays = 7
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentExtract <= 0 {
		cfg.MaxConcurrentExtract = 5
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.DefaultChunkSize <= 0 {
		cfg.DefaultChunkSize = 4000
	}
	if cfg.DefaultChunkOverlap <= 0 {
		cfg.DefaultChunkOverlap = 300
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.GroqAPIKey == "" {
		return fmt.Errorf("GROQ_API_KEY is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
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

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
