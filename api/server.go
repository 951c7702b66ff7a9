package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/wricardo/tictactoe-arena/game/room"
	"github.com/wricardo/tictactoe-arena/game/service"
	"github.com/wricardo/tictactoe-arena/store"
)

// Lobby is the read-only view of live rooms
type Lobby interface {
	ListRooms(ctx context.Context) ([]service.RoomSummary, error)
	RoomSnapshot(ctx context.Context, id string) (*service.RoomSnapshot, error)
	Stats(ctx context.Context) (service.Stats, error)
}

// AccountService issues tokens and serves profiles and the ranking
type AccountService interface {
	Register(ctx context.Context, nick, email, password string) (string, error)
	Login(ctx context.Context, identifier, password string) (string, error)
	Guest(ctx context.Context, nick string) (string, error)
	ProfileByNick(ctx context.Context, nick string) (service.Profile, error)
	Ranking(ctx context.Context, limit int) ([]store.RankEntry, error)
}

// Options mounts the handlers served beside the REST API. Nil handlers
// are not routed.
type Options struct {
	WebSocket http.Handler
	Metrics   http.Handler
	MCP       http.Handler
	StaticDir string
}

// Server represents the REST API server
type Server struct {
	lobby    Lobby
	accounts AccountService
	opts     Options
	router   *mux.Router
}

// NewServer creates a new API server
func NewServer(lobby Lobby, accounts AccountService, opts Options) *Server {
	s := &Server{
		lobby:    lobby,
		accounts: accounts,
		opts:     opts,
		router:   mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Lobby
	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms/{id}", s.handleGetRoom).Methods("GET")

	// Accounts
	api.HandleFunc("/ranking", s.handleRanking).Methods("GET")
	api.HandleFunc("/profile/{nick}", s.handleProfile).Methods("GET")
	api.HandleFunc("/auth/guest", s.handleGuest).Methods("POST")
	api.HandleFunc("/auth/register", s.handleRegister).Methods("POST")
	api.HandleFunc("/auth/login", s.handleLogin).Methods("POST")

	if s.opts.WebSocket != nil {
		s.router.Handle("/ws", s.opts.WebSocket)
	}
	if s.opts.Metrics != nil {
		s.router.Handle("/metrics", s.opts.Metrics).Methods("GET")
	}
	if s.opts.MCP != nil {
		s.router.Handle("/mcp", s.opts.MCP).Methods("POST")
	}
	if s.opts.StaticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.opts.StaticDir)))
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

// respondFailure logs err and answers with status without exposing err.
// Client errors below 500 keep their message.
func respondFailure(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status < http.StatusInternalServerError {
		respondError(w, status, err.Error())
		return
	}
	log.Printf("[API] %s %s failed: %v", r.Method, r.URL.Path, err)
	respondError(w, status, http.StatusText(status))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.lobby.Stats(r.Context())
	if err != nil {
		respondFailure(w, r, http.StatusServiceUnavailable, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"connections": stats.Connections,
		"rooms":       stats.Rooms,
	})
}

// Lobby Handlers

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.lobby.ListRooms(r.Context())
	if err != nil {
		respondFailure(w, r, http.StatusServiceUnavailable, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rooms),
		"rooms": rooms,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	roomID := vars["id"]

	snap, err := s.lobby.RoomSnapshot(r.Context(), roomID)
	if errors.Is(err, room.ErrRoomNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		respondFailure(w, r, http.StatusServiceUnavailable, err)
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

// Account Handlers

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	limit := service.DefaultRankingLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = l
	}

	entries, err := s.accounts.Ranking(r.Context(), limit)
	if err != nil {
		respondFailure(w, r, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"ranking": entries,
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	nick := vars["nick"]

	profile, err := s.accounts.ProfileByNick(r.Context(), nick)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		respondFailure(w, r, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handleGuest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Nick string `json:"nick"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := s.accounts.Guest(r.Context(), req.Nick)
	if err != nil {
		respondFailure(w, r, accountStatus(err), err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"token": token})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Nick     string `json:"nick"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := s.accounts.Register(r.Context(), req.Nick, req.Email, req.Password)
	if err != nil {
		respondFailure(w, r, accountStatus(err), err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"token": token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := s.accounts.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		respondFailure(w, r, accountStatus(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// accountStatus maps account errors to HTTP status codes
func accountStatus(err error) int {
	var guestErr *service.GuestNickError
	switch {
	case errors.Is(err, service.ErrInvalidNick),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidPassword):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrNickTaken),
		errors.As(err, &guestErr):
		return http.StatusConflict
	case errors.Is(err, service.ErrBadCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}
