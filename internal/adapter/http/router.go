package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pw/paywallet/internal/adapter/http/handler"
	"github.com/pw/paywallet/internal/adapter/http/middleware"
	"github.com/pw/paywallet/internal/usecase"
)

// WalletRouterConfig holds dependencies for the wallet service router.
type WalletRouterConfig struct {
	WalletHandler    *handler.WalletHandler
	HealthHandler    *handler.HealthHandler
	IdempotencyStore usecase.IdempotencyStore
	Logger           zerolog.Logger
}

// NewWalletRouter creates the wallet service HTTP router.
func NewWalletRouter(cfg WalletRouterConfig) http.Handler {
	r := newBaseRouter(cfg.Logger)

	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
			r.Use(idempotencyMiddleware.Wrap)
		}

		r.Route("/wallets", func(r chi.Router) {
			r.Post("/", cfg.WalletHandler.Create)
			r.Post("/transfer", cfg.WalletHandler.Transfer)
			r.Get("/{userId}", cfg.WalletHandler.Get)
			r.Post("/{userId}/credit", cfg.WalletHandler.Credit)
			r.Post("/{userId}/debit", cfg.WalletHandler.Debit)
		})
	})

	return r
}

// TransactionRouterConfig holds dependencies for the transaction
// service router.
type TransactionRouterConfig struct {
	TransactionHandler *handler.TransactionHandler
	HealthHandler      *handler.HealthHandler
	IdempotencyStore   usecase.IdempotencyStore
	Logger             zerolog.Logger
}

// NewTransactionRouter creates the transaction service HTTP router.
func NewTransactionRouter(cfg TransactionRouterConfig) http.Handler {
	r := newBaseRouter(cfg.Logger)

	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
			r.Use(idempotencyMiddleware.Wrap)
		}

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/transfer", cfg.TransactionHandler.Transfer)
			r.Post("/credit", cfg.TransactionHandler.Credit)
			r.Post("/debit", cfg.TransactionHandler.Debit)
			r.Get("/", cfg.TransactionHandler.List)
			r.Get("/{id}", cfg.TransactionHandler.Get)
		})

		r.Get("/users/{userId}/transactions", cfg.TransactionHandler.ListByUser)
		r.Post("/admin/reconcile", cfg.TransactionHandler.Reconcile)
	})

	return r
}

// AnalyticsRouterConfig holds dependencies for the analytics router.
type AnalyticsRouterConfig struct {
	AnalyticsHandler *handler.AnalyticsHandler
	HealthHandler    *handler.HealthHandler
	Logger           zerolog.Logger
}

// NewAnalyticsRouter creates the analytics service HTTP router.
func NewAnalyticsRouter(cfg AnalyticsRouterConfig) http.Handler {
	r := newBaseRouter(cfg.Logger)

	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/analytics", func(r chi.Router) {
		r.Get("/users/{userId}/daily", cfg.AnalyticsHandler.UserDaily)
		r.Get("/users/{userId}/auth", cfg.AnalyticsHandler.AuthDaily)
		r.Get("/system/daily", cfg.AnalyticsHandler.SystemDaily)
	})

	return r
}

// newBaseRouter assembles the middleware stack shared by all services.
func newBaseRouter(logger zerolog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger).Wrap)
	r.Use(middleware.Metrics)
	r.Use(middleware.NewRateLimiter(100, 200).Limit)
	r.Use(middleware.Recovery)

	return r
}
