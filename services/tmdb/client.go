package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/Om-Prakash-Verma/new-flix/models"
)

const (
	tmdbBaseURL = "https://api.themoviedb.org/3"

	// ID mappings (TMDB -> IMDB) rarely change, so they live in a separate
	// cache with a 7x longer TTL than regular metadata.
	stableIDCacheTTLMultiplier = 7
)

var ErrNotConfigured = errors.New("tmdb api key not configured")

// Client talks to the TMDB v3 API with rate limiting, retries, and an
// explicit on-disk response cache.
type Client struct {
	apiKey   string
	language string
	httpc    *http.Client

	cache   *FileCache
	idCache *FileCache

	// Rate limiting
	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

// NewClient builds a client. cacheDir may be empty to disable caching
// (tests). A nil httpc gets a default with a 15s timeout.
func NewClient(apiKey, language, cacheDir string, ttlHours int, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	c := &Client{
		apiKey:      strings.TrimSpace(apiKey),
		language:    language,
		httpc:       httpc,
		minInterval: 20 * time.Millisecond, // TMDB has generous rate limits
	}
	if cacheDir != "" {
		c.cache = NewFileCache(filepath.Join(cacheDir, "tmdb"), ttlHours)
		c.idCache = NewFileCache(filepath.Join(cacheDir, "tmdb", "ids"), ttlHours*stableIDCacheTTLMultiplier)
	}
	return c
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.apiKey != ""
}

// doGET performs a rate-limited GET with retry and exponential backoff.
// 4xx responses other than 429 are not retried.
func (c *Client) doGET(ctx context.Context, endpoint string, v any) error {
	return retry.Do(
		func() error {
			c.throttleMu.Lock()
			since := time.Since(c.lastRequest)
			if since < c.minInterval {
				time.Sleep(c.minInterval - since)
			}
			c.lastRequest = time.Now()
			c.throttleMu.Unlock()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return fmt.Errorf("tmdb request failed: %s", resp.Status)
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("tmdb request failed: %s", resp.Status))
			}
			if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
				return retry.Unrecoverable(err)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(300*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("[tmdb] request error (attempt %d/3): %v", n+1, err)
		}),
	)
}

// endpoint builds a full URL with api_key and language applied.
func (c *Client) endpoint(p string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	if lang := strings.TrimSpace(c.language); lang != "" {
		params.Set("language", normalizeLanguage(lang))
	} else {
		params.Set("language", "en-US")
	}
	return tmdbBaseURL + "/" + strings.TrimPrefix(p, "/") + "?" + params.Encode()
}

type tmdbPagedResponse struct {
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
	Results    []tmdbResultItem `json:"results"`
}

type tmdbResultItem struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
}

// DiscoverPaged fetches one page of discover/movie or discover/tv, filtered
// along the given dimension. Items come back tagged with the kind so callers
// never have to sniff the payload shape.
func (c *Client) DiscoverPaged(ctx context.Context, kind models.MediaKind, dimension models.DiscoveryDimension, value string, page int) (models.PagedResult, error) {
	if !c.IsConfigured() {
		return models.EmptyPage(), ErrNotConfigured
	}
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("sort_by", "popularity.desc")

	switch dimension {
	case models.DiscoverByGenre:
		params.Set("with_genres", value)
	case models.DiscoverByYear:
		if kind == models.MediaKindMovie {
			params.Set("primary_release_year", value)
		} else {
			params.Set("first_air_date_year", value)
		}
	case models.DiscoverByCountry:
		params.Set("with_origin_country", value)
	case models.DiscoverByCompany:
		params.Set("with_companies", value)
	default:
		return models.EmptyPage(), fmt.Errorf("unknown discovery dimension %q", dimension)
	}

	resource := "discover/movie"
	if kind == models.MediaKindTV {
		resource = "discover/tv"
	}

	cacheID := CacheKey("discover", string(kind), string(dimension), value, strconv.Itoa(page), c.language)
	var payload tmdbPagedResponse
	if hit := c.cacheGet(cacheID, &payload); !hit {
		if err := c.doGET(ctx, c.endpoint(resource, params), &payload); err != nil {
			return models.EmptyPage(), err
		}
		c.cacheSet(cacheID, payload)
	}

	return pagedResultFrom(payload, kind, page), nil
}

// Trending fetches the weekly trending feed for one kind.
func (c *Client) Trending(ctx context.Context, kind models.MediaKind) ([]models.MediaRef, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	cacheID := CacheKey("trending", string(kind), c.language)
	var payload tmdbPagedResponse
	if hit := c.cacheGet(cacheID, &payload); !hit {
		if err := c.doGET(ctx, c.endpoint("trending/"+string(kind)+"/week", nil), &payload); err != nil {
			return nil, err
		}
		c.cacheSet(cacheID, payload)
	}

	return pagedResultFrom(payload, kind, 1).Items, nil
}

type tmdbExternalIDsResponse struct {
	IMDBID string `json:"imdb_id"`
}

// ExternalIDs looks up the IMDB ID for a TMDB title. The empty result is
// cached too, so a title known to have no IMDB mapping is not re-queried.
func (c *Client) ExternalIDs(ctx context.Context, kind models.MediaKind, tmdbID string) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}
	id := strings.TrimSpace(tmdbID)
	if id == "" {
		return "", errors.New("tmdb id required")
	}

	cacheID := CacheKey("external-ids", string(kind), id)
	var cached string
	if c.idCache != nil {
		if ok, _ := c.idCache.Get(cacheID, &cached); ok {
			return cached, nil
		}
	}

	var payload tmdbExternalIDsResponse
	if err := c.doGET(ctx, c.endpoint(string(kind)+"/"+id+"/external_ids", nil), &payload); err != nil {
		return "", err
	}

	imdbID := strings.TrimSpace(payload.IMDBID)
	if c.idCache != nil {
		if err := c.idCache.Set(cacheID, imdbID); err != nil {
			log.Printf("[tmdb] failed to cache IMDB ID mapping: %v", err)
		}
	}
	return imdbID, nil
}

type tmdbGenreListResponse struct {
	Genres []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
}

// GenreCatalog returns the genre-id -> name mapping for one kind.
func (c *Client) GenreCatalog(ctx context.Context, kind models.MediaKind) (map[int64]string, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	cacheID := CacheKey("genres", string(kind), c.language)
	var payload tmdbGenreListResponse
	if hit := c.cacheGet(cacheID, &payload); !hit {
		if err := c.doGET(ctx, c.endpoint("genre/"+string(kind)+"/list", nil), &payload); err != nil {
			return nil, err
		}
		c.cacheSet(cacheID, payload)
	}

	catalog := make(map[int64]string, len(payload.Genres))
	for _, g := range payload.Genres {
		catalog[g.ID] = g.Name
	}
	return catalog, nil
}

// allowedProxyPrefixes limits the pass-through endpoint to read-only
// metadata resources. Anything else is rejected before reaching TMDB.
var allowedProxyPrefixes = []string{
	"movie/", "tv/", "search/", "discover/", "trending/", "genre/",
	"person/", "collection/", "configuration",
}

// Proxy forwards a read-only TMDB API path with the client's credentials
// applied, caching the raw JSON response. The frontend uses it for detail
// pages and search without ever seeing the API key.
func (c *Client) Proxy(ctx context.Context, apiPath string, query url.Values) (json.RawMessage, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	apiPath = strings.Trim(apiPath, "/")
	allowed := false
	for _, prefix := range allowedProxyPrefixes {
		if strings.HasPrefix(apiPath, prefix) {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("tmdb path not allowed: %s", apiPath)
	}

	params := url.Values{}
	for k, vs := range query {
		if k == "api_key" {
			continue
		}
		for _, v := range vs {
			params.Add(k, v)
		}
	}

	cacheID := CacheKey("proxy", apiPath, params.Encode(), c.language)
	var payload json.RawMessage
	if hit := c.cacheGet(cacheID, &payload); !hit {
		if err := c.doGET(ctx, c.endpoint(apiPath, params), &payload); err != nil {
			return nil, err
		}
		c.cacheSet(cacheID, payload)
	}
	return payload, nil
}

// ClearCache drops both metadata and ID caches. Called on API key changes.
func (c *Client) ClearCache() error {
	if c.cache != nil {
		if err := c.cache.Clear(); err != nil {
			return err
		}
	}
	if c.idCache != nil {
		return c.idCache.Clear()
	}
	return nil
}

func (c *Client) cacheGet(key string, v any) bool {
	if c.cache == nil {
		return false
	}
	ok, _ := c.cache.Get(key, v)
	return ok
}

func (c *Client) cacheSet(key string, v any) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(key, v); err != nil {
		log.Printf("[tmdb] failed to cache response: %v", err)
	}
}

func pagedResultFrom(payload tmdbPagedResponse, kind models.MediaKind, page int) models.PagedResult {
	items := make([]models.MediaRef, 0, len(payload.Results))
	for _, r := range payload.Results {
		items = append(items, models.MediaRef{
			ID:           r.ID,
			Kind:         kind,
			Name:         pickName(kind, r.Name, r.Title),
			Overview:     r.Overview,
			PosterPath:   r.PosterPath,
			BackdropPath: r.BackdropPath,
			ReleaseDate:  pickDate(kind, r.ReleaseDate, r.FirstAirDate),
			Popularity:   r.Popularity,
			VoteAverage:  r.VoteAverage,
		})
	}
	currentPage := payload.Page
	if currentPage == 0 {
		currentPage = page
	}
	return models.PagedResult{Items: items, CurrentPage: currentPage, TotalPages: payload.TotalPages}
}

func pickName(kind models.MediaKind, seriesName, movieTitle string) string {
	if kind == models.MediaKindMovie && movieTitle != "" {
		return movieTitle
	}
	if seriesName != "" {
		return seriesName
	}
	return movieTitle
}

func pickDate(kind models.MediaKind, movieDate, seriesDate string) string {
	if kind == models.MediaKindMovie && movieDate != "" {
		return movieDate
	}
	if seriesDate != "" {
		return seriesDate
	}
	return movieDate
}

func normalizeLanguage(lang string) string {
	lang = strings.ReplaceAll(lang, "_", "-")
	if len(lang) == 2 {
		return strings.ToLower(lang) + "-US"
	}
	if len(lang) >= 5 {
		return strings.ToLower(lang[:2]) + "-" + strings.ToUpper(lang[3:])
	}
	return "en-US"
}
