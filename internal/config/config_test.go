package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/insightedge-bfa-go/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_BACKEND", "MAX_UPLOAD_BYTES", "JWT_ACCESS_TTL", "ADMIN_USERNAME", "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		t.Setenv(k, "")
	}

	cfg := config.Load()

	if cfg.Port != 5000 {
		t.Errorf("expected port 5000, got %d", cfg.Port)
	}
	if cfg.StoreBackend != "memory" {
		t.Errorf("expected memory backend, got %s", cfg.StoreBackend)
	}
	if cfg.MaxUploadBytes != 10*1024*1024 {
		t.Errorf("expected 10 MiB upload limit, got %d", cfg.MaxUploadBytes)
	}
	if cfg.JWTAccessTTL != 7*24*time.Hour {
		t.Errorf("expected 7d access TTL, got %s", cfg.JWTAccessTTL)
	}
	if cfg.OTLPEndpoint != "" {
		t.Errorf("expected trace export off by default, got %q", cfg.OTLPEndpoint)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("STORE_TIMEOUT", "3s")
	t.Setenv("MONGO_TRANSACTIONS", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	cfg := config.Load()

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.StoreBackend != "sqlite" {
		t.Errorf("expected backend to be lowercased, got %s", cfg.StoreBackend)
	}
	if cfg.StoreTimeout != 3*time.Second {
		t.Errorf("expected 3s store timeout, got %s", cfg.StoreTimeout)
	}
	if !cfg.MongoTransactions {
		t.Error("expected mongo transactions enabled")
	}
	if cfg.OTLPEndpoint != "collector:4317" {
		t.Errorf("expected collector endpoint, got %q", cfg.OTLPEndpoint)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *config.Config) {}},
		{name: "bad port", mutate: func(c *config.Config) { c.Port = 70000 }, wantErr: "invalid port"},
		{name: "unknown backend", mutate: func(c *config.Config) { c.StoreBackend = "redis" }, wantErr: "invalid store backend"},
		{name: "mongo without uri", mutate: func(c *config.Config) {
			c.StoreBackend = "mongo"
			c.MongoURI = ""
		}, wantErr: "MONGODB_URI"},
		{name: "sqlite without path", mutate: func(c *config.Config) {
			c.StoreBackend = "sqlite"
			c.SQLiteDBPath = ""
		}, wantErr: "SQLITE_DB_PATH"},
		{name: "zero upload limit", mutate: func(c *config.Config) { c.MaxUploadBytes = 0 }, wantErr: "MAX_UPLOAD_BYTES"},
		{name: "no ingest slots", mutate: func(c *config.Config) { c.MaxConcurrentIngests = 0 }, wantErr: "MAX_CONCURRENT_INGESTS"},
		{name: "empty secret", mutate: func(c *config.Config) { c.JWTSecret = "" }, wantErr: "JWT_SECRET"},
		{name: "admin without password", mutate: func(c *config.Config) { c.AdminUsername = "root" }, wantErr: "ADMIN_PASSWORD"},
		{name: "admin with password", mutate: func(c *config.Config) {
			c.AdminUsername = "root"
			c.AdminPassword = "changeme"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Port:                 5000,
				StoreBackend:         "memory",
				MongoURI:             "mongodb://localhost:27017",
				MongoDatabase:        "insightedge",
				SQLiteDBPath:         "./data/test.db",
				MaxUploadBytes:       1024,
				MaxConcurrentIngests: 2,
				JWTSecret:            "secret",
				JWTAccessTTL:         time.Hour,
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "INSIGHTEDGE_TEST_A=from-file\nINSIGHTEDGE_TEST_B=\"quoted\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("INSIGHTEDGE_TEST_A", "from-env")
	t.Setenv("INSIGHTEDGE_TEST_B", "")
	os.Unsetenv("INSIGHTEDGE_TEST_B")

	if err := config.LoadDotEnv(path); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer os.Unsetenv("INSIGHTEDGE_TEST_B")

	if got := os.Getenv("INSIGHTEDGE_TEST_A"); got != "from-env" {
		t.Errorf("expected env to win, got %q", got)
	}
	if got := os.Getenv("INSIGHTEDGE_TEST_B"); got != "quoted" {
		t.Errorf("expected quoted value unwrapped, got %q", got)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := config.LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
