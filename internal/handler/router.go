package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/observability"
	"github.com/boddenberg/insightedge-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services are the use cases the router exposes.
type Services struct {
	Ingestion *service.IngestionService
	Dashboard *service.DashboardService
	Auth      *service.AuthService
	Contact   *service.ContactService
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options holds the HTTP-level settings.
type Options struct {
	CORSOrigin     string
	MaxUploadBytes int64
	// StoreName labels the store in /healthz.
	StoreName string
}

// NewRouter creates the HTTP router with all routes and middleware.
// store may be nil, in which case /healthz only reports the API itself.
func NewRouter(svcs Services, store Pinger, metrics *observability.Metrics, opts Options, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{opts.CORSOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(store, opts.StoreName))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Auth
		// =============================================
		r.Post("/auth/register", authRegisterHandler(svcs.Auth, logger))
		r.Post("/auth/login", authLoginHandler(svcs.Auth, logger))

		// =============================================
		// Contact (public, token optional)
		// =============================================
		r.With(OptionalAuth(svcs.Auth)).Post("/contact", contactSubmitHandler(svcs.Contact, logger))

		// =============================================
		// Protected routes
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svcs.Auth, logger))

			r.Post("/auth/logout", authLogoutHandler(svcs.Auth, logger))
			r.Get("/auth/me", authMeHandler(svcs.Auth, logger))

			r.Post("/data/upload", uploadHandler(svcs.Ingestion, opts.MaxUploadBytes, logger))
			r.Post("/data/manual", manualEntryHandler(svcs.Ingestion, logger))
			r.Get("/data", listRecordsHandler(svcs.Ingestion, logger))
			r.Get("/data/dashboard", dashboardHandler(svcs.Dashboard, logger))

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireRole(domain.RoleAdmin, logger))
				r.Get("/stats", adminStatsHandler(metrics))
				r.Get("/contact", adminContactListHandler(svcs.Contact, logger))
			})
		})
	})

	return r
}

// ============================================================
// Health checks
// ============================================================

func healthzHandler(store Pinger, storeName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "insightedge-api", Status: "healthy", LastChecked: now},
		}

		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			start := time.Now()
			err := store.Ping(ctx)
			status := "healthy"
			if err != nil {
				status = "unhealthy"
			}
			services = append(services, domain.ServiceHealth{
				Name:        storeName,
				Status:      status,
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
		}

		code := http.StatusOK
		if overallStatus == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// ============================================================
// Admin
// ============================================================

func adminStatsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.IngestionSnapshot())
	}
}
