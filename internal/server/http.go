package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/darknet-duel/duel-server-go/internal/config"
	"github.com/darknet-duel/duel-server-go/internal/game/rules"
	"github.com/darknet-duel/duel-server-go/internal/match"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type seatRequest struct {
	Role     string `json:"role"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

// NewRouter routes the HTTP side of the server:
//
//	GET  /healthz
//	GET  /matches
//	POST /matches
//	POST /matches/{matchID}/join
//	GET  /ws/{matchID}?token=...
func NewRouter(matches *match.Manager, hub *Hub, logger *zap.Logger) *mux.Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &httpHandlers{matches: matches, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.HandleFunc("/matches", h.listMatches).Methods(http.MethodGet)
	r.HandleFunc("/matches", h.createMatch).Methods(http.MethodPost)
	r.HandleFunc("/matches/{matchID}/join", h.joinMatch).Methods(http.MethodPost)
	r.HandleFunc("/ws/{matchID}", hub.ServeWS).Methods(http.MethodGet)
	return r
}

// NewHTTPServer wraps handler in a server listening on cfg.Address.
func NewHTTPServer(cfg config.WebSocketConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

type httpHandlers struct {
	matches *match.Manager
	logger  *zap.Logger
}

func (h *httpHandlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *httpHandlers) listMatches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.matches.List())
}

func (h *httpHandlers) createMatch(w http.ResponseWriter, r *http.Request) {
	var req seatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	role, err := rules.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}

	ticket, err := h.matches.Create(role, req.PlayerID, req.Name)
	if err != nil {
		h.logger.Warn("create match failed", zap.String("player_id", req.PlayerID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

func (h *httpHandlers) joinMatch(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchID"]
	var req seatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}

	ticket, err := h.matches.Join(matchID, req.PlayerID, req.Name)
	switch {
	case errors.Is(err, match.ErrMatchNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, match.ErrSeatTaken):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		h.logger.Warn("join match failed", zap.String("match_id", matchID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, ticket)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
