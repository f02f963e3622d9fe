package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/rickgao/peerlink/internal/auth"
	"github.com/rickgao/peerlink/internal/pairing"
	"github.com/rickgao/peerlink/internal/session"
	"github.com/rickgao/peerlink/internal/store"
)

// Config holds routing and transport settings.
type Config struct {
	WSPath           string
	APIPrefix        string
	RequireKnownTask bool // Reject upgrades for tasks missing from the store
	CheckOrigin      bool // Require Origin to match Host on upgrade
	Session          session.Config
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		WSPath:    "/ws",
		APIPrefix: "/api",
		Session:   session.DefaultConfig(),
	}
}

// PairingStats reports pairing engine sizes.
type PairingStats interface {
	Stats() pairing.Stats
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Store   store.Store
	Tokens  *auth.Tokens
	Binder  *session.Binder
	Pairing PairingStats
}

// Server holds the HTTP handlers.
type Server struct {
	cfg      Config
	deps     Deps
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// New creates a Server.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}
	if !cfg.CheckOrigin {
		// gorilla's nil CheckOrigin enforces same-origin.
		s.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	p := strings.TrimSuffix(s.cfg.APIPrefix, "/")
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+s.cfg.WSPath, s.handleWebsocket)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST "+p+"/user", s.handleCreateUser)
	mux.HandleFunc("GET "+p+"/user/points", s.handleLeaderboard)
	mux.HandleFunc("GET "+p+"/user/points/{uuid}", s.handlePoints)
	mux.HandleFunc("POST "+p+"/user/points/{uuid}", s.handleAddPoints)

	mux.HandleFunc("POST "+p+"/auth", s.handleLogin)
	mux.HandleFunc("GET "+p+"/auth/user", s.requireUser(s.handleMe))
	mux.HandleFunc("PUT "+p+"/auth/user", s.requireUser(s.handleUpdateMe))
	mux.HandleFunc("GET "+p+"/auth/user/{connId}", s.requireUser(s.handleUserByConn))

	mux.HandleFunc("GET "+p+"/tasks", s.requireUser(s.handleTasks))
	mux.HandleFunc("GET "+p+"/tasks/{uuid}", s.requireUser(s.handleTask))
	mux.HandleFunc("POST "+p+"/tasks", s.requireUser(s.handleCreateTask))

	return mux
}

// userHandler is a handler for an authenticated user.
type userHandler func(w http.ResponseWriter, r *http.Request, userUUID string)

// requireUser verifies the bearer token and passes its subject on.
func (s *Server) requireUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userUUID, err := s.deps.Tokens.Verify(token)
		if err != nil {
			s.logger.Debug("token rejected", "error", err)
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r, userUUID)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode reads a JSON body into v, answering 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
