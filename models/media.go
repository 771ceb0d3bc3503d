package models

import "strconv"

// MediaKind discriminates the two TMDB content types handled by the server.
// It is set once at fetch time so downstream code never has to guess the
// shape of an item.
type MediaKind string

const (
	MediaKindMovie MediaKind = "movie"
	MediaKindTV    MediaKind = "tv"
)

// Valid reports whether k is one of the two supported kinds.
func (k MediaKind) Valid() bool {
	return k == MediaKindMovie || k == MediaKindTV
}

// MediaRef is the minimal identity of a piece of content as it appears in a
// merged discovery feed.
type MediaRef struct {
	ID           int64     `json:"id"`
	Kind         MediaKind `json:"mediaType"`
	Name         string    `json:"name"`
	Overview     string    `json:"overview,omitempty"`
	PosterPath   string    `json:"posterPath,omitempty"`
	BackdropPath string    `json:"backdropPath,omitempty"`
	ReleaseDate  string    `json:"releaseDate,omitempty"`
	Popularity   float64   `json:"popularity"`
	VoteAverage  float64   `json:"voteAverage,omitempty"`
}

// Key returns the dedup key for a ref. Movie and TV IDs come from separate
// TMDB sequences, so the kind has to be part of the key.
func (m MediaRef) Key() string {
	return string(m.Kind) + ":" + strconv.FormatInt(m.ID, 10)
}

// PagedResult is one page of a paginated result set.
type PagedResult struct {
	Items       []MediaRef `json:"items"`
	CurrentPage int        `json:"currentPage"`
	TotalPages  int        `json:"totalPages"`
}

// EmptyPage is the sentinel contribution of a source that was skipped or
// failed. Callers treat it as "nothing to add" rather than an error.
func EmptyPage() PagedResult {
	return PagedResult{Items: []MediaRef{}, CurrentPage: 1, TotalPages: 0}
}

// DiscoveryDimension names the filter axis of a discovery query.
type DiscoveryDimension string

const (
	DiscoverByGenre   DiscoveryDimension = "genre"
	DiscoverByYear    DiscoveryDimension = "year"
	DiscoverByCountry DiscoveryDimension = "country"
	DiscoverByCompany DiscoveryDimension = "company"
)

// Valid reports whether d is a known discovery dimension.
func (d DiscoveryDimension) Valid() bool {
	switch d {
	case DiscoverByGenre, DiscoverByYear, DiscoverByCountry, DiscoverByCompany:
		return true
	}
	return false
}

// DiscoveryQuery drives one merged-feed page request. Immutable per request.
type DiscoveryQuery struct {
	Dimension DiscoveryDimension `json:"dimension"`
	Value     string             `json:"value"`
	Page      int                `json:"page"`
}
