package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"

	"github.com/Om-Prakash-Verma/new-flix/models"
	"github.com/Om-Prakash-Verma/new-flix/services/discover"
	tmdbsvc "github.com/Om-Prakash-Verma/new-flix/services/tmdb"
)

// combinedPager is the merged-feed operation the handler needs.
type combinedPager interface {
	CombinedPage(ctx context.Context, query models.DiscoveryQuery) (models.PagedResult, error)
}

var _ combinedPager = (*discover.Service)(nil)

// genreSource lists genres and trending feeds per media kind.
type genreSource interface {
	GenreCatalog(ctx context.Context, kind models.MediaKind) (map[int64]string, error)
	Trending(ctx context.Context, kind models.MediaKind) ([]models.MediaRef, error)
}

var _ genreSource = (*tmdbsvc.Client)(nil)

type DiscoverHandler struct {
	Pager  combinedPager
	Genres genreSource
}

func NewDiscoverHandler(pager combinedPager, genres genreSource) *DiscoverHandler {
	return &DiscoverHandler{Pager: pager, Genres: genres}
}

// Combined serves one virtual page of the merged movie+tv discovery feed.
// GET /api/discover/combined?dimension=genre&value=28&page=3
func (h *DiscoverHandler) Combined(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	dimension := models.DiscoveryDimension(q.Get("dimension"))
	if dimension == "" {
		dimension = models.DiscoverByGenre
	}
	if !dimension.Valid() {
		writeError(w, http.StatusBadRequest, "dimension must be genre, year, country, or company")
		return
	}
	value := q.Get("value")
	if value == "" {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}

	page := 1
	if raw := q.Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = parsed
	}

	result, err := h.Pager.CombinedPage(r.Context(), models.DiscoveryQuery{
		Dimension: dimension,
		Value:     value,
		Page:      page,
	})
	if err != nil {
		if errors.Is(err, tmdbsvc.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "tmdb api key not configured")
			return
		}
		log.Printf("[handlers] combined discover failed: %v", err)
		writeError(w, http.StatusBadGateway, "failed to load results")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type genreEntry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GenreList serves the genre catalog for one media kind.
// GET /api/discover/genres?type=movie
func (h *DiscoverHandler) GenreList(w http.ResponseWriter, r *http.Request) {
	kind := models.MediaKind(r.URL.Query().Get("type"))
	if kind == "" {
		kind = models.MediaKindMovie
	}
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "type must be movie or tv")
		return
	}

	catalog, err := h.Genres.GenreCatalog(r.Context(), kind)
	if err != nil {
		if errors.Is(err, tmdbsvc.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "tmdb api key not configured")
			return
		}
		log.Printf("[handlers] genre catalog failed: %v", err)
		writeError(w, http.StatusBadGateway, "failed to load genres")
		return
	}

	entries := make([]genreEntry, 0, len(catalog))
	for id, name := range catalog {
		entries = append(entries, genreEntry{ID: id, Name: name})
	}
	sortGenres(entries)
	writeJSON(w, http.StatusOK, map[string]any{"genres": entries})
}

// Trending serves the weekly trending feed for one media kind.
// GET /api/trending?type=tv
func (h *DiscoverHandler) Trending(w http.ResponseWriter, r *http.Request) {
	kind := models.MediaKind(r.URL.Query().Get("type"))
	if kind == "" {
		kind = models.MediaKindMovie
	}
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "type must be movie or tv")
		return
	}

	items, err := h.Genres.Trending(r.Context(), kind)
	if err != nil {
		if errors.Is(err, tmdbsvc.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "tmdb api key not configured")
			return
		}
		log.Printf("[handlers] trending fetch failed: %v", err)
		writeError(w, http.StatusBadGateway, "failed to load trending")
		return
	}
	if items == nil {
		items = []models.MediaRef{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func sortGenres(entries []genreEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
}
