package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zapponejosh/ganzhi-api/internal/config"
)

// requestTimeout bounds a single request; a 366-day range is the slowest.
const requestTimeout = 30 * time.Second

// SetupRoutes configures all HTTP routes and returns the router.
//
// Route structure:
//
//	GET    /health
//	GET    /api/v1/ganzhi/today
//	GET    /api/v1/ganzhi/date/{date}
//	GET    /api/v1/ganzhi/date/{date}/hours
//	GET    /api/v1/ganzhi/range
//	GET    /api/v1/lunar/{date}
//	GET    /api/v1/solarterms/{year}
//	POST   /api/v1/validate
//	GET    /api/v1/references
//	POST   /api/v1/references              (API key)
//	DELETE /api/v1/references/{id}         (API key)
//	POST   /api/v1/references/check        (API key)
//	GET    /api/v1/references/runs/latest
func SetupRoutes(handlers *Handlers, cfg *config.Config, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		RecoveryMiddleware(log),
		middleware.RealIP,
		RequestIDMiddleware(),
		LoggingMiddleware(log),
		CORSMiddleware(),
		middleware.Timeout(requestTimeout),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", CodeMethodNotAllowed)
	})

	// ==========================================================================
	// Public routes
	// ==========================================================================
	r.Get("/health", handlers.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ganzhi/today", handlers.GetToday)
		r.Get("/ganzhi/date/{date}", handlers.GetDate)
		r.Get("/ganzhi/date/{date}/hours", handlers.GetDayHours)
		r.Get("/ganzhi/range", handlers.GetRange)
		r.Get("/lunar/{date}", handlers.GetLunar)
		r.Get("/solarterms/{year}", handlers.GetSolarTerms)
		r.Post("/validate", handlers.Validate)

		r.Route("/references", func(r chi.Router) {
			r.Get("/", handlers.ListReferences)
			r.Get("/runs/latest", handlers.GetLatestRun)

			// ==================================================================
			// Write routes (API key)
			// ==================================================================
			r.Group(func(r chi.Router) {
				r.Use(AuthMiddleware(cfg, log))
				r.Post("/", handlers.CreateReference)
				r.Delete("/{id}", handlers.DeleteReference)
				r.Post("/check", handlers.CheckReferences)
			})
		})
	})

	return r
}
