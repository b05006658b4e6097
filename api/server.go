package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/heroduel/game/catalog"
	"github.com/wricardo/heroduel/game/service"
	"github.com/wricardo/heroduel/game/session"
	"github.com/wricardo/heroduel/game/team"
	"github.com/wricardo/heroduel/transport/wire"
)

const noActiveSession = "No active session found"

// Options configures the HTTP server
type Options struct {
	Logger *zap.Logger
	// StaticDir, when set, is served for every path no route claims
	StaticDir string
}

// Server represents the HTTP API server
type Server struct {
	service service.GameService
	ws      http.HandlerFunc
	router  *mux.Router
	logger  *zap.Logger
}

// NewServer creates a new API server. ws handles the /ws upgrade and may be nil.
func NewServer(gameService service.GameService, ws http.HandlerFunc, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{
		service: gameService,
		ws:      ws,
		router:  mux.NewRouter(),
		logger:  opts.Logger,
	}

	s.setupRoutes(opts.StaticDir)
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes(staticDir string) {
	s.router.HandleFunc("/worlds/{id}", s.handleGetWorld).Methods("GET")
	s.router.HandleFunc("/moveset", s.handleGetMoveset).Methods("GET")
	s.router.HandleFunc("/team", s.handleSubmitTeam).Methods("POST")
	s.router.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	if s.ws != nil {
		s.router.HandleFunc("/ws", s.ws)
	}

	if staticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	}
}

// ServeHTTP implements http.Handler. Every response allows any origin and
// preflight requests are answered here.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleGetWorld(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	world, err := s.service.GetWorld(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrNotActive) {
			http.Error(w, noActiveSession, http.StatusNotFound)
			return
		}
		s.logger.Error("failed to read world", zap.String("room", roomID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, wire.NewWorld(world.Snapshot))
}

func (s *Server) handleGetMoveset(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	moveset, err := s.service.GetMoveset(r.Context(), name)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, catalog.ErrHeroNotFound) {
			status = http.StatusBadRequest
		}
		respondError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, moveset)
}

// handleSubmitTeam stores the roster in the body for the participant named
// by the Authorization header
func (s *Server) handleSubmitTeam(w http.ResponseWriter, r *http.Request) {
	participant := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if participant == "" {
		respondError(w, http.StatusUnauthorized, "Authorization header required")
		return
	}

	var roster team.Roster
	if err := json.NewDecoder(r.Body).Decode(&roster); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := s.service.SubmitTeam(r.Context(), participant, roster)
	if err != nil {
		var rejected *team.RejectedError
		if errors.As(err, &rejected) {
			respondJSON(w, http.StatusBadRequest, map[string]interface{}{
				"validationErrors": rejected.Errors,
			})
			return
		}
		s.logger.Error("failed to store team", zap.String("participant", participant), zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rooms),
		"rooms": rooms,
	})
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
