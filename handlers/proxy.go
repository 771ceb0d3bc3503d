package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	tmdbsvc "github.com/Om-Prakash-Verma/new-flix/services/tmdb"
)

type metadataProxy interface {
	Proxy(ctx context.Context, apiPath string, query url.Values) (json.RawMessage, error)
}

var _ metadataProxy = (*tmdbsvc.Client)(nil)

// TMDBProxyHandler forwards whitelisted read-only TMDB paths so the frontend
// never handles the API key. Responses come from the shared metadata cache.
type TMDBProxyHandler struct {
	Client metadataProxy
}

func NewTMDBProxyHandler(client metadataProxy) *TMDBProxyHandler {
	return &TMDBProxyHandler{Client: client}
}

// Forward handles GET /api/tmdb/{path:.*}.
func (h *TMDBProxyHandler) Forward(w http.ResponseWriter, r *http.Request) {
	apiPath := mux.Vars(r)["path"]
	payload, err := h.Client.Proxy(r.Context(), apiPath, r.URL.Query())
	if err != nil {
		if errors.Is(err, tmdbsvc.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "tmdb api key not configured")
			return
		}
		log.Printf("[handlers] tmdb proxy %s failed: %v", apiPath, err)
		writeError(w, http.StatusBadGateway, "upstream request failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(payload)
}
