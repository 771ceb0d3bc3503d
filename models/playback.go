package models

import "time"

// PlaybackTarget identifies what the user pressed Play on. Immutable for the
// lifetime of a playback session. Season/Episode are required iff Kind is tv.
type PlaybackTarget struct {
	TMDBID  string    `json:"tmdbId"`
	Title   string    `json:"title"`
	Kind    MediaKind `json:"type"`
	Season  int       `json:"season,omitempty"`
	Episode int       `json:"episode,omitempty"`
}

// PlaybackStatus is the lifecycle state of a playback session.
type PlaybackStatus string

const (
	// PlaybackStatusResolving means a provider is being resolved into an
	// embed URL (possibly waiting on an external ID lookup).
	PlaybackStatusResolving PlaybackStatus = "resolving"
	// PlaybackStatusReady means EmbedURL is set and being rendered.
	PlaybackStatusReady PlaybackStatus = "ready"
	// PlaybackStatusFailed means every provider has been tried. Terminal;
	// only a fresh session can restart playback.
	PlaybackStatusFailed PlaybackStatus = "failed"
)

// PlaybackSession is the snapshot of a session returned to clients. The
// resolver owns the mutable state; handlers only ever see copies.
type PlaybackSession struct {
	ID            string         `json:"id"`
	Target        PlaybackTarget `json:"target"`
	Provider      string         `json:"provider"`
	ProviderIndex int            `json:"providerIndex"`
	ProviderCount int            `json:"providerCount"`
	EmbedURL      string         `json:"embedUrl,omitempty"`
	Status        PlaybackStatus `json:"status"`
	Message       string         `json:"message,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}
