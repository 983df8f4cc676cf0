package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/insightedge-bfa-go/internal/config"
	"github.com/boddenberg/insightedge-bfa-go/internal/domain"
	"github.com/boddenberg/insightedge-bfa-go/internal/handler"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/cache"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/memory"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/mongostore"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/observability"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/sqlite"
	"github.com/boddenberg/insightedge-bfa-go/internal/port"
	"github.com/boddenberg/insightedge-bfa-go/internal/service"

	"go.uber.org/zap"
)

// backend is what every storage adapter provides.
type backend interface {
	port.RecordStore
	port.UserStore
	port.ContactStore
}

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Duration("store_timeout", cfg.StoreTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int64("max_upload_bytes", cfg.MaxUploadBytes),
		zap.Int("max_concurrent_ingests", cfg.MaxConcurrentIngests),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "insightedge-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Storage ---
	store, closeStore, err := openBackend(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeStore()

	// --- Cache ---
	profileCache := cache.New[*domain.User](cfg.CacheTTL, cache.WithRecorder("profile", metrics))
	defer profileCache.Close()
	// Revocations must outlive the tokens they block.
	revokedTokens := cache.New[bool](cfg.JWTAccessTTL, cache.WithRecorder("revoked_tokens", metrics))
	defer revokedTokens.Close()

	// --- Services ---
	authSvc := service.NewAuthService(store, profileCache, revokedTokens, cfg.JWTSecret, cfg.JWTAccessTTL, logger)
	if cfg.AdminUsername != "" {
		if err := authSvc.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.Fatal("failed to bootstrap admin user", zap.Error(err))
		}
	}

	svcs := handler.Services{
		Ingestion: service.NewIngestionService(store, resilience.NewBulkhead(cfg.MaxConcurrentIngests), metrics, logger),
		Dashboard: service.NewDashboardService(store, metrics, logger),
		Auth:      authSvc,
		Contact:   service.NewContactService(store, logger),
	}

	// --- Router ---
	router := handler.NewRouter(svcs, store, metrics, handler.Options{
		CORSOrigin:     cfg.CORSOrigin,
		MaxUploadBytes: cfg.MaxUploadBytes,
		StoreName:      cfg.StoreBackend,
	}, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// openBackend builds the configured store and returns a function that
// releases it.
func openBackend(cfg *config.Config, logger *zap.Logger) (backend, func(), error) {
	switch cfg.StoreBackend {
	case "sqlite":
		store, err := sqlite.Open(cfg.SQLiteDBPath, cfg.StoreTimeout, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using SQLite store", zap.String("path", cfg.SQLiteDBPath))
		return store, func() { store.Close() }, nil

	case "mongo":
		resilienceCfg := resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		client, err := mongostore.Connect(ctx, cfg.MongoURI, resilienceCfg, logger)
		if err != nil {
			return nil, nil, err
		}

		store := mongostore.NewStore(
			mongostore.NewMongoProvider(client, cfg.MongoDatabase),
			resilience.NewCircuitBreaker("mongodb"),
			mongostore.Options{
				Resilience:   resilienceCfg,
				Transactions: cfg.MongoTransactions,
				Timeout:      cfg.StoreTimeout,
			},
			logger,
		)
		if err := store.EnsureIndexes(ctx); err != nil {
			client.Disconnect(context.Background())
			return nil, nil, err
		}

		logger.Info("using MongoDB store",
			zap.String("database", cfg.MongoDatabase),
			zap.Bool("transactions", cfg.MongoTransactions),
		)
		return store, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				logger.Warn("mongo disconnect failed", zap.Error(err))
			}
		}, nil

	default:
		logger.Warn("using in-memory store: data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}
}
