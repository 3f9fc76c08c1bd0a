// Package gateway is the HTTP + WebSocket surface of the mockmate
// server: the interview API, the auth endpoints, and the identity event
// feed consumed by the browser UI.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/mockmate/mockmate/internal/auth"
	"github.com/mockmate/mockmate/internal/config"
	"github.com/mockmate/mockmate/internal/interview"
	"github.com/mockmate/mockmate/internal/logging"
	"github.com/mockmate/mockmate/internal/store"
)

// Server serves the interview API over HTTP and WebSocket.
type Server struct {
	cfg        config.Config
	log        *logging.Logger
	auth       *auth.Service
	notifier   *auth.Notifier
	interviews *interview.Registry
	sessions   store.SessionStore
	modelName  string

	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// New creates a gateway server. Identity changes are published to the
// notifier scoped by UI instance; the event feed subscribes with the
// same scope.
func New(cfg config.Config, log *logging.Logger, authSvc *auth.Service, notifier *auth.Notifier, interviews *interview.Registry, sessions store.SessionStore, modelName string) *Server {
	return &Server{
		cfg:        cfg,
		log:        log.Sub("gateway"),
		auth:       authSvc,
		notifier:   notifier,
		interviews: interviews,
		sessions:   sessions,
		modelName:  modelName,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWebSocketOrigin(cfg.Server.AllowedOrigins),
		},
	}
}

// checkWebSocketOrigin validates WebSocket Origin headers. Requests
// without an Origin (same-origin or non-browser clients) are allowed;
// cross-origin requests must match the configured list.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return isOriginAllowed(origin, allowed)
	}
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.ServerConfig) string {
	switch cfg.Bind {
	case "loopback":
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Handler builds the full route tree with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(func(next http.Handler) http.Handler {
		return corsMiddleware(next, s.cfg.Server.AllowedOrigins)
	})
	r.Use(func(next http.Handler) http.Handler {
		return loggingMiddleware(next, s.log)
	})

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Use(s.uiInstanceMiddleware)
		api.Use(s.identityMiddleware)

		api.Get("/me", s.handleMe)
		api.Get("/auth/signin", s.handleSignIn)
		api.Get("/auth/callback", s.handleCallback)
		api.Post("/auth/signout", s.handleSignOut)

		api.Post("/interview/start", s.handleStart)
		api.Post("/interview/send", s.handleSend)
		api.Post("/interview/new", s.handleNewChat)
		api.Post("/interview/select", s.handleSelect)
		api.Get("/interview/state", s.handleState)

		api.Get("/sessions", s.handleListSessions)
		api.Get("/events", s.handleEvents)
	})

	return r
}

// Run listens and serves until the context is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg.Server)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // long-lived websocket responses
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.startedAt = time.Now()
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Server.Bind).
		Str("model", s.modelName).
		Msg("gateway server ready")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the server's listen address, or empty string if not
// started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}
