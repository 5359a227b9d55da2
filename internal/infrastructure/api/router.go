package api

import (
	"encoding/json"
	"net/http"

	"gaint-shopify-connector/internal/application"
	"gaint-shopify-connector/internal/infrastructure/pubsub"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterConfig holds everything the HTTP surface is built from
type RouterConfig struct {
	Sessions       *application.SessionManager
	Channels       *application.ChannelService
	Notifications  *pubsub.NotificationPubSub
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	SwaggerFile    string
	Logger         zerolog.Logger
}

// NewRouter builds the chi router
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":   "ok",
			"sessions": cfg.Sessions.Count(),
		})
	})

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	if cfg.SwaggerFile != "" {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
		r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			http.ServeFile(w, r, cfg.SwaggerFile)
		})
	}

	settings := NewSettingsHandler(cfg.Sessions, cfg.Channels, cfg.Logger)

	// Routes requiring an admin session
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AdminSessionMiddleware(cfg.Logger))

		r.Get("/settings", settings.GetSettings)
		r.Post("/settings/validate", settings.ValidateChannel)
		r.Put("/settings/toggles/{field}", settings.SetToggle)
		r.Post("/settings/sync-orders", settings.TriggerOrderSync)
		r.Post("/settings/modal/close", settings.CloseModal)
		r.Delete("/session", settings.EndSession)
		r.Get("/orders", settings.ListOrders)
		r.Get("/validations", settings.ListValidations)

		if cfg.Notifications != nil {
			r.Method(http.MethodGet, "/notifications/stream", NewNotificationStream(cfg.Sessions, cfg.Notifications, cfg.Logger))
		}
	})

	return r
}
