package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/indarelin/backoffice/internal/admins"
	"github.com/indarelin/backoffice/internal/blocklist"
	"github.com/indarelin/backoffice/internal/conversation"
	"github.com/indarelin/backoffice/internal/customreplies"
	httpmiddleware "github.com/indarelin/backoffice/internal/http/middleware"
	"github.com/indarelin/backoffice/internal/messagelog"
	"github.com/indarelin/backoffice/internal/settings"
	"github.com/indarelin/backoffice/internal/videos"
	"github.com/indarelin/backoffice/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger *logging.Logger

	ChatHandler   *conversation.Handler
	BlockedIPs    blocklist.Repository
	ChatRateLimit float64
	ChatRateBurst int

	AdminsHandler        *admins.Handler
	CustomRepliesHandler *customreplies.Handler
	BlocklistHandler     *blocklist.Handler
	VideosHandler        *videos.Handler
	MessagesHandler      *messagelog.Handler
	SettingsHandler      *settings.Handler

	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	HealthChecks       map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.ChatHandler != nil {
			chat := public
			if cfg.BlockedIPs != nil {
				chat = chat.With(blocklist.Middleware(cfg.BlockedIPs, cfg.Logger))
			}
			chat = chat.With(httpmiddleware.RateLimit(cfg.ChatRateLimit, cfg.ChatRateBurst))
			chat.Post("/chat", cfg.ChatHandler.Chat)
		}
		if cfg.AdminsHandler != nil {
			public.Post("/admin/login", cfg.AdminsHandler.Login)
		}
	})

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		if cfg.AdminsHandler != nil {
			cfg.AdminsHandler.Routes(admin)
		}
		if cfg.CustomRepliesHandler != nil {
			cfg.CustomRepliesHandler.Routes(admin)
		}
		if cfg.BlocklistHandler != nil {
			cfg.BlocklistHandler.Routes(admin)
		}
		if cfg.VideosHandler != nil {
			cfg.VideosHandler.Routes(admin)
		}
		if cfg.MessagesHandler != nil {
			cfg.MessagesHandler.Routes(admin)
		}
		if cfg.SettingsHandler != nil {
			cfg.SettingsHandler.Routes(admin)
		}
	})

	return r
}
