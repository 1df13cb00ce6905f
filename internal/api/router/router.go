package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mmmarc2025/sparkling-service/internal/auth"
	"github.com/mmmarc2025/sparkling-service/internal/http/handlers"
	httpmiddleware "github.com/mmmarc2025/sparkling-service/internal/http/middleware"
	"github.com/mmmarc2025/sparkling-service/internal/linechannel"
	"github.com/mmmarc2025/sparkling-service/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger         *logging.Logger
	WebhookHandler *linechannel.WebhookHandler

	// LINE Login surface (optional)
	AuthHandler *auth.Handler
	AuthService *auth.Service
	MyBookings  *handlers.MyBookingsHandler

	// Admin surface (enabled when AdminAuthSecret is set)
	AdminAuthSecret string
	AdminCatalog    *handlers.AdminCatalogHandler
	AdminBookings   *handlers.AdminBookingsHandler
	AdminSettings   *handlers.AdminSettingsHandler

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints: messaging webhook, health, metrics, login flow.
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.WebhookHandler.HandleHealth)
		public.Post("/webhooks/line", cfg.WebhookHandler.HandleInbound)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.AuthHandler != nil {
			public.Mount("/auth/line", cfg.AuthHandler.Routes())
		}
	})

	// Customer endpoints behind a login session.
	if cfg.AuthService != nil && cfg.MyBookings != nil {
		r.Route("/api/my", func(my chi.Router) {
			my.Use(auth.RequireSession(cfg.AuthService))
			my.Get("/bookings", cfg.MyBookings.ListMine)
		})
	}

	// Admin endpoints behind the management JWT.
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.AdminCatalog != nil {
				admin.Get("/services", cfg.AdminCatalog.ListServices)
				admin.Post("/services", cfg.AdminCatalog.CreateService)
				admin.Put("/services/{id}", cfg.AdminCatalog.UpdateService)
				admin.Delete("/services/{id}", cfg.AdminCatalog.DeleteService)
				admin.Get("/stores", cfg.AdminCatalog.ListStores)
				admin.Post("/stores", cfg.AdminCatalog.CreateStore)
				admin.Put("/stores/{id}", cfg.AdminCatalog.UpdateStore)
				admin.Delete("/stores/{id}", cfg.AdminCatalog.DeleteStore)
			}
			if cfg.AdminBookings != nil {
				admin.Get("/bookings", cfg.AdminBookings.ListBookings)
				admin.Patch("/bookings/{id}/status", cfg.AdminBookings.UpdateBookingStatus)
			}
			if cfg.AdminSettings != nil {
				admin.Get("/settings/{key}", cfg.AdminSettings.GetSetting)
				admin.Put("/settings/{key}", cfg.AdminSettings.PutSetting)
			}
		})
	}

	return r
}
