// Package web provides the HTTP API for imports, prospects and teams.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/prospector/internal/config"
	"github.com/JonMunkholm/prospector/internal/importer"
	"github.com/JonMunkholm/prospector/internal/metrics"
	"github.com/JonMunkholm/prospector/internal/prospect"
	mw "github.com/JonMunkholm/prospector/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server.
type Server struct {
	imports    *importer.Service
	prospects  *prospect.Service
	dispatcher *prospect.Dispatcher
	db         Pinger
	cfg        *config.Config

	limiters []*rateLimiter
	router   *chi.Mux
	server   *http.Server
}

// NewServer wires the router. db may be nil, in which case /healthz skips
// the database check.
func NewServer(cfg *config.Config, imports *importer.Service, prospects *prospect.Service, db Pinger) *Server {
	s := &Server{
		imports:    imports,
		prospects:  prospects,
		dispatcher: prospect.NewDispatcher(prospects),
		db:         db,
		cfg:        cfg,
		router:     chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)

	if origins := s.cfg.Security.CORSAllowedOrigins; len(origins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{
				"Accept", "Content-Type", "X-API-Key", "HX-Request",
				mw.HeaderUserID, mw.HeaderUserEmail, mw.HeaderWorkMode, mw.HeaderTeamID,
			},
			ExposedHeaders: []string{"Retry-After"},
			MaxAge:         300,
		}))
	}

	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).middleware)
	}
}

// requestTimeout bounds every route except the upload, whose pass is
// bounded by the import service's own timeout.
func (s *Server) requestTimeout(next http.Handler) http.Handler {
	if s.cfg.Server.RequestTimeout <= 0 {
		return next
	}
	return middleware.Timeout(s.cfg.Server.RequestTimeout)(next)
}

func (s *Server) setupRoutes() {
	s.router.With(s.requestTimeout).Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(s.cfg.Security.RequireAPIKey, s.cfg.Security.APIKeys))
		r.Use(mw.Session)

		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled && s.cfg.Rate.ImportLimit > 0 {
				r.Use(s.newRateLimiter(s.cfg.Rate.ImportLimit, time.Minute).middleware)
			}
			r.Post("/imports", s.handleImport)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requestTimeout)
			s.apiRoutes(r)
		})
	})
}

func (s *Server) apiRoutes(r chi.Router) {
	r.Get("/imports/aliases", s.handleAliases)
	r.Get("/imports/status", s.handleImportStatus)

	r.Route("/prospects", func(r chi.Router) {
		r.Post("/", s.handleCreateProspect)
		r.Get("/actions", s.handleListActions)
		r.Get("/{id}", s.handleGetProspect)
		r.Get("/{id}/activities", s.handleListActivities)
		r.Post("/{id}/commands", s.handleCommand)
		r.Delete("/{id}", s.handleDeleteProspect)
	})

	r.Route("/teams", func(r chi.Router) {
		r.Post("/", s.handleCreateTeam)
		r.Get("/{id}/members", s.handleListMembers)
		r.Post("/{id}/invitations", s.handleInvite)
	})

	r.Post("/invitations/{id}/accept", s.handleAcceptInvitation)
	r.Post("/invitations/{id}/reject", s.handleRejectInvitation)
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	sc := s.cfg.Server
	s.server = &http.Server{
		Addr:         sc.Addr(),
		Handler:      s.router,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		IdleTimeout:  sc.IdleTimeout,
	}

	slog.Info("starting server", "addr", sc.Addr())
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, waits for in-flight ones and stops
// the rate limiter cleanup loops.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the chi router for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v with status. Encoding errors are only logged since
// the header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode", "error", err)
	}
}
