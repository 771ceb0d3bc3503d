package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/Om-Prakash-Verma/new-flix/config"
)

type cacheClearer interface {
	ClearCache() error
}

type SettingsHandler struct {
	Manager *config.Manager
	// Metadata is notified when the API key changes so stale responses
	// fetched with the old key are dropped.
	Metadata cacheClearer
}

func NewSettingsHandler(m *config.Manager, metadata cacheClearer) *SettingsHandler {
	return &SettingsHandler{Manager: m, Metadata: metadata}
}

// Get serves the current settings. The TMDB API key is masked.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Manager.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	settings.TMDB.APIKey = maskSecret(settings.TMDB.APIKey)
	writeJSON(w, http.StatusOK, settings)
}

// Update persists new settings. Changing the API key clears the metadata
// cache; a masked key in the payload means "keep the stored one".
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	current, err := h.Manager.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	incoming := current
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if incoming.TMDB.APIKey == maskSecret(current.TMDB.APIKey) {
		incoming.TMDB.APIKey = current.TMDB.APIKey
	}

	if err := h.Manager.Save(incoming); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if incoming.TMDB.APIKey != current.TMDB.APIKey && h.Metadata != nil {
		if err := h.Metadata.ClearCache(); err != nil {
			log.Printf("[handlers] cache clear after key change failed: %v", err)
		}
	}

	incoming.TMDB.APIKey = maskSecret(incoming.TMDB.APIKey)
	writeJSON(w, http.StatusOK, incoming)
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		if s == "" {
			return ""
		}
		return "****"
	}
	return "****" + s[len(s)-4:]
}
