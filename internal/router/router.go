package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	_ "sidequest/docs" // registers the OpenAPI document

	"sidequest/internal/middleware"
	"sidequest/internal/response"
	"sidequest/internal/services"
)

const healthCheckTimeout = 5 * time.Second

// SetupRouter configures all HTTP routes and returns the main handler
func SetupRouter(
	serviceCollection *services.ServiceCollection,
	authMiddleware *middleware.AuthMiddleware,
	responseBuilder *response.Builder,
	logger *zap.Logger,
) http.Handler {
	cfg := serviceCollection.Config
	r := chi.NewRouter()

	// ===============================
	// GLOBAL MIDDLEWARE
	// ===============================

	r.Use(middleware.RequestID(logger))
	r.Use(middleware.RecoverPanic(responseBuilder, logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.SecureHeaders(cfg.IsProduction()))
	r.Use(middleware.CORS(cfg.CORS, cfg.IsDevelopment() && cfg.Logging.Level == "debug"))
	r.Use(middleware.MaxBodySize(cfg.Server.MaxBodyBytes))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responseBuilder.WriteNotFound(w, r, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		responseBuilder.WriteMethodNotAllowed(w, r)
	})

	// ===============================
	// OPERATIONAL ENDPOINTS
	// ===============================

	r.Get("/health", healthHandler(serviceCollection, responseBuilder))
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		responseBuilder.WriteSuccess(w, r, map[string]string{"status": "alive"})
	})

	if cfg.Server.SwaggerEnabled {
		r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
		})
		r.With(middleware.SwaggerAuth(cfg.Server)).
			Handle("/swagger/*", middleware.SwaggerHandler(middleware.DefaultSwaggerConfig()))
	}

	// ===============================
	// API
	// ===============================

	rateLimiter := middleware.NewRateLimiter(serviceCollection.Cache, cfg.RateLimit, responseBuilder, logger)
	r.Route("/api", func(api chi.Router) {
		AddAPIRoutes(api, serviceCollection, authMiddleware, rateLimiter, responseBuilder, logger)
	})

	logger.Info("Router configured",
		zap.Bool("swagger_enabled", cfg.Server.SwaggerEnabled),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
	)
	return r
}

func healthHandler(sc *services.ServiceCollection, builder *response.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		builder.WriteHealthCheck(w, r, sc.HealthCheck(ctx))
	}
}
