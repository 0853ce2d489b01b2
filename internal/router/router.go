package router

import (
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/guitarbuddy/backend/internal/broker"
	"github.com/guitarbuddy/backend/internal/config"
	"github.com/guitarbuddy/backend/internal/db"
	"github.com/guitarbuddy/backend/internal/handlers"
	"github.com/guitarbuddy/backend/internal/live"
	"github.com/guitarbuddy/backend/internal/middleware"
	"github.com/guitarbuddy/backend/internal/services"
)

// Deps are the long-lived components the router wires handlers to.
type Deps struct {
	Config      *config.Config
	Queries     *db.Queries
	AuthService *services.AuthService
	Coordinator *live.Coordinator
	Broker      *broker.Broker
}

// TokenVerifier adapts the JWT service to the live transport.
func TokenVerifier(authService *services.AuthService) live.TokenVerifier {
	return live.VerifierFunc(func(token string) (live.Identity, error) {
		claims, err := authService.ValidateToken(token)
		if err != nil {
			return live.Identity{}, err
		}
		return live.Identity{
			UserID:      claims.UserID(),
			Email:       claims.Email,
			DisplayName: claims.DisplayName,
		}, nil
	})
}

func New(deps Deps) http.Handler {
	cfg := deps.Config
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewRealIPMiddleware(cfg.TrustedProxies).Handler)
	r.Use(middleware.RequestContextMiddleware)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))
	if cfg.SentryDSN != "" {
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}

	// Services
	names := services.NewNameService()

	// Handlers
	authHandler := handlers.NewAuthHandler(deps.Queries, deps.AuthService, names, cfg)
	songHandler := handlers.NewSongHandler(deps.Queries)
	libraryHandler := handlers.NewLibraryHandler(deps.Queries)
	liveHandler := handlers.NewLiveHandler(deps.Coordinator, deps.Broker)
	sentryTunnelHandler := handlers.NewSentryTunnelHandler(cfg)
	configHandler := handlers.NewConfigHandler(cfg)
	wsHandler := live.NewHandler(deps.Coordinator, TokenVerifier(deps.AuthService), cfg.CORSAllowedOrigins)

	// Rate limiter for credential endpoints
	authRateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)

	// Root doubles as the WebSocket endpoint for existing clients.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			wsHandler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"service":"GuitarBuddy API"}`))
	})
	r.Get("/ws", wsHandler.ServeHTTP)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Accounts
	r.Route("/auth", func(r chi.Router) {
		r.With(authRateLimiter.Middleware).Post("/register", authHandler.Register)
		r.Post("/verify", authHandler.Verify)
		r.With(authRateLimiter.Middleware).Post("/request-reset", authHandler.RequestReset)
		r.Post("/reset", authHandler.Reset)
		r.With(authRateLimiter.Middleware).Post("/login", authHandler.Login)
	})

	r.Route("/api", func(r chi.Router) {
		// Public
		r.Get("/sessions/active", libraryHandler.ActiveSessions)
		r.Get("/config", configHandler.PublicConfig)
		r.Post("/sentry-tunnel", sentryTunnelHandler.Tunnel)
		r.With(middleware.OptionalAuthMiddleware(deps.AuthService)).Get("/versions/{id}", songHandler.GetVersion)

		// Authenticated
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(deps.AuthService))
			r.Use(middleware.UpdateRequestContextMiddleware)

			r.Get("/me", authHandler.Me)

			r.Route("/songs", func(r chi.Router) {
				r.Get("/", songHandler.List)
				r.Post("/", songHandler.Create)
				r.Get("/search", songHandler.Search)
				r.Get("/{id}", songHandler.Get)
				r.Post("/{id}/versions", songHandler.CreateVersion)
			})

			r.Put("/versions/{id}", songHandler.UpdateVersion)
			r.Delete("/versions/{id}", songHandler.DeleteVersion)
			r.Get("/versions/{id}/access", songHandler.Access)
			r.Get("/versions/{id}/full", songHandler.Full)

			r.Post("/purchase/{versionId}", songHandler.Purchase)
			r.Get("/my-purchases", songHandler.MyPurchases)

			r.Get("/setlists", libraryHandler.ListSetlists)
			r.Post("/setlists", libraryHandler.CreateSetlist)

			r.Get("/sessions", libraryHandler.ListPracticeSessions)
			r.Post("/sessions", libraryHandler.CreatePracticeSession)

			// Live performance lobby
			r.Get("/live", liveHandler.List)
			r.Get("/live/stream", liveHandler.Stream)
		})
	})

	return r
}
