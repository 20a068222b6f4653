// Package api provides the HTTP surface of the relay: the WebSocket
// endpoint agents connect to, health probes, and a small secret-protected
// ops API for inspecting who is online.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/a2a-net/relay/internal/config"
	"github.com/a2a-net/relay/internal/registry"
	"github.com/a2a-net/relay/internal/router"
)

// Server is the HTTP server wrapping the router and the ops API.
type Server struct {
	registry  *registry.Registry
	router    *router.Router
	logger    *slog.Logger
	mux       *chi.Mux
	secret    []byte
	startTime time.Time
	rl        *rateLimiter
}

// NewServer creates the HTTP server and wires up every route.
func NewServer(reg *registry.Registry, rt *router.Router, cfg *config.Config, logger *slog.Logger) *Server {
	srv := &Server{
		registry:  reg,
		router:    rt,
		logger:    logger.With("component", "api"),
		secret:    []byte(cfg.Auth.SecretKey),
		startTime: time.Now(),
	}

	mux := chi.NewRouter()
	mux.Use(chimw.Recoverer)
	mux.Use(chimw.RealIP)
	mux.Use(securityHeadersMiddleware)
	mux.Use(makeCORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check routes (unauthenticated)
	mux.Get("/healthz", srv.handleHealthz)
	mux.Get("/readyz", srv.handleReadyz)

	// WebSocket route (auth handled inside the frame protocol)
	mux.Get("/ws", rt.HandleAgentWS)

	// Ops API: bearer secret, rate-limited by IP.
	srv.rl = newRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	mux.Group(func(r chi.Router) {
		r.Use(srv.authMiddleware)
		r.Use(ipRateLimitMiddleware(srv.rl))

		r.Get("/api/agents", srv.handleListAgents)
		r.Get("/api/rooms", srv.handleListRooms)
		r.Get("/api/status", srv.handleStatus)
	})

	srv.mux = mux
	return srv
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// StartBackgroundTasks starts periodic cleanup for the rate limiter.
func (s *Server) StartBackgroundTasks(ctx context.Context) {
	if s.rl != nil {
		s.rl.StartCleanup(ctx, 5*time.Minute, 10*time.Minute)
	}
}

// --- Ops handlers ---

type agentEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	roster := s.registry.Agents()
	out := make([]agentEntry, len(roster))
	for i, a := range roster {
		out[i] = agentEntry{ID: a.ID, Name: a.Name}
	}
	writeJSON(w, http.StatusOK, out)
}

type roomEntry struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := s.registry.Rooms()
	out := make([]roomEntry, len(rooms))
	for i, name := range rooms {
		out[i] = roomEntry{Name: name, Members: len(s.registry.RoomMembersExcept(name, ""))}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agents_online": s.registry.Count(),
		"rooms":         len(s.registry.Rooms()),
		"uptime":        time.Since(s.startTime).Truncate(time.Second).String(),
	})
}

// --- Health handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.startTime).Truncate(time.Second).String(),
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	// All state is in memory; once the mux is serving we are ready.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
