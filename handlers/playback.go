package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Om-Prakash-Verma/new-flix/models"
	"github.com/Om-Prakash-Verma/new-flix/services/embed"
)

// playbackResolver is the session state machine the handler drives.
type playbackResolver interface {
	StartPlayback(ctx context.Context, target models.PlaybackTarget) (models.PlaybackSession, error)
	Session(sessionID string) (models.PlaybackSession, error)
	ReportFailure(ctx context.Context, sessionID string) (models.PlaybackSession, error)
	SelectProvider(ctx context.Context, sessionID, providerName string) (models.PlaybackSession, error)
	CloseSession(sessionID string) error
	Providers() []string
}

var _ playbackResolver = (*embed.Service)(nil)

type PlaybackHandler struct {
	Resolver playbackResolver
}

func NewPlaybackHandler(resolver playbackResolver) *PlaybackHandler {
	return &PlaybackHandler{Resolver: resolver}
}

// Create starts a playback session.
// POST /api/playback/session
func (h *PlaybackHandler) Create(w http.ResponseWriter, r *http.Request) {
	var target models.PlaybackTarget
	if err := json.NewDecoder(r.Body).Decode(&target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.Resolver.StartPlayback(r.Context(), target)
	if err != nil {
		if errors.Is(err, embed.ErrInvalidTarget) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[handlers] playback start failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to start playback")
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// Get returns the current state of a session.
// GET /api/playback/session/{id}
func (h *PlaybackHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.Resolver.Session(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// ReportFailure advances a session to the next provider after the client saw
// the current embed fail.
// POST /api/playback/session/{id}/failure
func (h *PlaybackHandler) ReportFailure(w http.ResponseWriter, r *http.Request) {
	session, err := h.Resolver.ReportFailure(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type selectProviderRequest struct {
	Provider string `json:"provider"`
}

// SelectProvider switches a session to a named provider.
// POST /api/playback/session/{id}/server
func (h *PlaybackHandler) SelectProvider(w http.ResponseWriter, r *http.Request) {
	var body selectProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Provider == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}

	session, err := h.Resolver.SelectProvider(r.Context(), mux.Vars(r)["id"], body.Provider)
	if err != nil {
		switch {
		case errors.Is(err, embed.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, embed.ErrUnknownProvider):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("[handlers] provider select failed: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to switch provider")
		}
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Close tears down a session.
// DELETE /api/playback/session/{id}
func (h *PlaybackHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.Resolver.CloseSession(mux.Vars(r)["id"]); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Providers lists the embed provider names in fallback order.
// GET /api/playback/providers
func (h *PlaybackHandler) Providers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"providers": h.Resolver.Providers()})
}
