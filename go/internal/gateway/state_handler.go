package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/mcdev12/petitbac/go/internal/game"
	"github.com/mcdev12/petitbac/go/internal/results"
)

const (
	defaultResultsLimit = 10
	maxResultsLimit     = 50
	qrSize              = 320
)

// ResultsProvider reads archived results of finished games.
type ResultsProvider interface {
	Recent(ctx context.Context, slug string, limit int) ([]results.GameRecord, error)
}

// StateHandler serves read-only session state over HTTP.
type StateHandler struct {
	sessions  SessionProvider
	results   ResultsProvider
	publicURL string
}

// NewStateHandler creates a state handler. results may be nil when the
// archive is disabled; publicURL may be empty to derive links from requests.
func NewStateHandler(sessions SessionProvider, results ResultsProvider, publicURL string) *StateHandler {
	return &StateHandler{
		sessions:  sessions,
		results:   results,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

// HandleListSessions handles GET /api/sessions.
func (h *StateHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.List())
}

// HandleGetSession handles GET /api/sessions/{slug}.
func (h *StateHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	session, err := h.sessions.Get(slug)
	if err != nil {
		if errors.Is(err, game.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("slug", slug).Msg("failed to get session")
		http.Error(w, "failed to get session", http.StatusInternalServerError)
		return
	}

	summary, err := session.Summary()
	if err != nil {
		// Closed between lookup and call.
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleGetResults handles GET /api/sessions/{slug}/results.
func (h *StateHandler) HandleGetResults(w http.ResponseWriter, r *http.Request) {
	if h.results == nil {
		http.Error(w, "results archive disabled", http.StatusNotFound)
		return
	}

	slug := mux.Vars(r)["slug"]
	limit := defaultResultsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxResultsLimit)
	}

	records, err := h.results.Recent(r.Context(), slug, limit)
	if err != nil {
		if errors.Is(err, results.ErrResultsNotFound) {
			http.Error(w, "no results for session", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("slug", slug).Msg("failed to read results")
		http.Error(w, "failed to read results", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// HandleQRCode handles GET /api/sessions/{slug}/qr with a PNG QR code of the
// session's join link.
func (h *StateHandler) HandleQRCode(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	if err := game.ValidateSlug(slug); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	png, err := qrcode.Encode(h.sessionURL(r, slug), qrcode.Medium, qrSize)
	if err != nil {
		log.Error().Err(err).Str("slug", slug).Msg("qr generation failed")
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// sessionURL returns the public join link of slug. Without a configured
// public URL it is derived from the request, honoring X-Forwarded-Proto.
func (h *StateHandler) sessionURL(r *http.Request, slug string) string {
	base := h.publicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/" + url.PathEscape(slug)
}

func (h *StateHandler) RegisterStateRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/sessions").Subrouter()
	api.HandleFunc("", h.HandleListSessions).Methods(http.MethodGet)
	api.HandleFunc("/{slug}", h.HandleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/{slug}/results", h.HandleGetResults).Methods(http.MethodGet)
	api.HandleFunc("/{slug}/qr", h.HandleQRCode).Methods(http.MethodGet)
}
