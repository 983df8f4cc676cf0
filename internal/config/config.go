package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// CORS origin allowed to call the API with credentials (the SPA dev server).
	CORSOrigin string

	// Storage
	StoreBackend      string // memory, mongo, sqlite
	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool
	SQLiteDBPath      string
	StoreTimeout      time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration

	// Cache
	CacheTTL time.Duration

	// Uploads
	MaxUploadBytes       int64
	MaxConcurrentIngests int

	// Observability
	OTLPEndpoint string

	// JWT / Auth
	JWTSecret    string
	JWTAccessTTL time.Duration

	// Admin account created at startup when AdminUsername is set.
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 5000),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:5173"),

		StoreBackend:      strings.ToLower(getEnv("STORE_BACKEND", "memory")),
		MongoURI:          getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnv("MONGODB_DATABASE", "insightedge"),
		MongoTransactions: getEnv("MONGO_TRANSACTIONS", "false") == "true",
		SQLiteDBPath:      getEnv("SQLITE_DB_PATH", "./data/insightedge.db"),
		StoreTimeout:      getEnvDuration("STORE_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		MaxUploadBytes:       int64(getEnvInt("MAX_UPLOAD_BYTES", 10*1024*1024)),
		MaxConcurrentIngests: getEnvInt("MAX_CONCURRENT_INGESTS", 8),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		JWTSecret:    getEnv("JWT_SECRET", "insightedge-dev-secret-change-me"),
		JWTAccessTTL: getEnvDuration("JWT_ACCESS_TTL", 7*24*time.Hour),

		AdminUsername: getEnv("ADMIN_USERNAME", ""),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Port))
	}

	switch c.StoreBackend {
	case "memory":
	case "mongo":
		if c.MongoURI == "" {
			problems = append(problems, "MONGODB_URI is required when STORE_BACKEND=mongo")
		}
		if c.MongoDatabase == "" {
			problems = append(problems, "MONGODB_DATABASE is required when STORE_BACKEND=mongo")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLITE_DB_PATH is required when STORE_BACKEND=sqlite")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid store backend '%s': must be one of memory, mongo, sqlite", c.StoreBackend))
	}

	if c.MaxUploadBytes <= 0 {
		problems = append(problems, "MAX_UPLOAD_BYTES must be positive")
	}
	if c.MaxConcurrentIngests < 1 {
		problems = append(problems, "MAX_CONCURRENT_INGESTS must be at least 1")
	}
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET must not be empty")
	}
	if c.JWTAccessTTL <= 0 {
		problems = append(problems, "JWT_ACCESS_TTL must be positive")
	}
	if c.AdminUsername != "" && len(c.AdminPassword) < 6 {
		problems = append(problems, "ADMIN_PASSWORD must be at least 6 characters when ADMIN_USERNAME is set")
	}
	if c.MaxRetries < 0 {
		problems = append(problems, "MAX_RETRIES must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
