package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/petitbac/go/internal/game"
)

// WebSocketHandler handles WebSocket upgrade requests for sessions.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
	}
}

// HandleSessionConnection handles GET /ws/{slug}.
func (h *WebSocketHandler) HandleSessionConnection(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	if err := game.ValidateSlug(slug); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// The upgrader has already replied when upgrading fails.
	if err := h.connectionManager.UpgradeConnection(w, r, slug); err != nil {
		log.Debug().
			Err(err).
			Str("slug", slug).
			Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats handles GET /api/stats.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.connectionManager.Stats())
}

func (h *WebSocketHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/stats", h.HandleConnectionStats).Methods(http.MethodGet)
	r.HandleFunc("/ws/{slug}", h.HandleSessionConnection).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
