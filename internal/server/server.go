package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
)

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
	// RequestTimeout bounds each request. It must cover three stage calls.
	RequestTimeout time.Duration
}

// TicketCounter reports how many tickets are registered.
type TicketCounter interface {
	Count(ctx context.Context) (int, error)
}

// ChunkCounter reports how many knowledge chunks are indexed.
type ChunkCounter interface {
	Count() int
}

const defaultRequestTimeout = 5 * time.Minute

// Server is the supportdesk HTTP server.
type Server struct {
	cfg        Config
	tickets    TicketCounter
	chunks     ChunkCounter
	router     chi.Router
	httpServer *http.Server
}

// New creates a server reporting health from the given counters. Feature
// packages register their routes on Router().
func New(cfg Config, tickets TicketCounter, chunks ChunkCounter) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	s := &Server{
		cfg:     cfg,
		tickets: tickets,
		chunks:  chunks,
	}

	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(timeoutUnlessUpgrade(s.cfg.RequestTimeout))

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
		corsOpts.AllowCredentials = false
	}
	r.Use(cors.Handler(corsOpts))

	// Liveness
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health", s.handleHealth)

	return r
}

// timeoutUnlessUpgrade bounds ordinary requests by d. Websocket upgrades are
// long-lived and bound their own work per message instead.
func timeoutUnlessUpgrade(d time.Duration) func(http.Handler) http.Handler {
	timeout := middleware.Timeout(d)
	return func(next http.Handler) http.Handler {
		bounded := timeout(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if websocket.IsWebSocketUpgrade(r) {
				next.ServeHTTP(w, r)
				return
			}
			bounded.ServeHTTP(w, r)
		})
	}
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status   string `json:"status"`
	Tickets  int    `json:"tickets"`
	KBChunks int    `json:"kb_chunks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.tickets != nil {
		n, err := s.tickets.Count(r.Context())
		if err != nil {
			slog.Warn("health: counting tickets", "error", err)
			resp.Status = "degraded"
		}
		resp.Tickets = n
	}
	if s.chunks != nil {
		resp.KBChunks = s.chunks.Count()
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("supportdesk server listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
