package router

import (
	"net/http"

	"labstock-api/internal/handler"
	"labstock-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler            *handler.Handler
	AuthHandler        *handler.AuthHandler
	ItemHandler        *handler.ItemHandler
	TransactionHandler *handler.TransactionHandler
	ReportHandler      *handler.ReportHandler
	AdminHandler       *handler.AdminHandler
	AuthMiddleware     func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Token", "X-Admin-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Health check endpoints
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		// Public auth endpoints
		if cfg.AuthHandler != nil {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
		}

		// Admin stats (guarded by X-Admin-Key inside the handler)
		if cfg.AdminHandler != nil {
			r.Get("/admin/stats", cfg.AdminHandler.GetStats)
		}

		// AUTHENTICATED routes
		r.Group(func(r chi.Router) {
			if cfg.AuthMiddleware != nil {
				r.Use(cfg.AuthMiddleware)
			}

			if cfg.AuthHandler != nil {
				r.Post("/auth/logout", cfg.AuthHandler.Logout)
				r.Get("/auth/me", cfg.AuthHandler.Me)
			}

			if cfg.ItemHandler != nil {
				r.Route("/items", func(r chi.Router) {
					r.Get("/", cfg.ItemHandler.List)
					r.Post("/", cfg.ItemHandler.Create)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", cfg.ItemHandler.Get)
						r.Patch("/", cfg.ItemHandler.Update)
						r.Delete("/", cfg.ItemHandler.Delete)
						r.Put("/quantity", cfg.ItemHandler.SetQuantity)
					})
				})
			}

			if cfg.TransactionHandler != nil {
				r.Get("/transactions", cfg.TransactionHandler.List)
			}

			if cfg.ReportHandler != nil {
				r.Route("/reports", func(r chi.Router) {
					r.Get("/low-stock", cfg.ReportHandler.LowStock)
					r.Get("/expiring", cfg.ReportHandler.Expiring)
					r.Get("/summary", cfg.ReportHandler.Summary)
				})
			}
		})
	})

	return r
}
