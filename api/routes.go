package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Om-Prakash-Verma/new-flix/handlers"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Register mounts API endpoints onto the provided router.
func Register(
	r *mux.Router,
	discoverHandler *handlers.DiscoverHandler,
	playbackHandler *handlers.PlaybackHandler,
	proxyHandler *handlers.TMDBProxyHandler,
	settingsHandler *handlers.SettingsHandler,
	sessionLimiter *IPRateLimiter,
) {
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)

	// Discovery
	api.HandleFunc("/discover/combined", discoverHandler.Combined).Methods(http.MethodGet)
	api.HandleFunc("/discover/genres", discoverHandler.GenreList).Methods(http.MethodGet)
	api.HandleFunc("/trending", discoverHandler.Trending).Methods(http.MethodGet)

	// Playback sessions. Creation is rate limited per client IP so a
	// misbehaving frontend cannot flood the external ID lookups.
	create := http.HandlerFunc(playbackHandler.Create)
	api.Handle("/playback/session", sessionLimiter.Middleware(create)).Methods(http.MethodPost)
	api.HandleFunc("/playback/session/{id}", playbackHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/playback/session/{id}", playbackHandler.Close).Methods(http.MethodDelete)
	api.HandleFunc("/playback/session/{id}/failure", playbackHandler.ReportFailure).Methods(http.MethodPost)
	api.HandleFunc("/playback/session/{id}/server", playbackHandler.SelectProvider).Methods(http.MethodPost)
	api.HandleFunc("/playback/providers", playbackHandler.Providers).Methods(http.MethodGet)

	// Settings
	api.HandleFunc("/settings", settingsHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/settings", settingsHandler.Update).Methods(http.MethodPut)

	// Metadata pass-through
	api.HandleFunc("/tmdb/{path:.*}", proxyHandler.Forward).Methods(http.MethodGet)

	// CORS preflight for every API route
	api.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodOptions)
}
