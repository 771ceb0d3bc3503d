// Package discover merges TMDB's independently paginated movie and TV
// discovery feeds into a single virtual page sequence.
package discover

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/Om-Prakash-Verma/new-flix/models"
	tmdbsvc "github.com/Om-Prakash-Verma/new-flix/services/tmdb"
)

// pagedSource is the one fetch primitive the pager needs from the metadata
// provider.
type pagedSource interface {
	DiscoverPaged(ctx context.Context, kind models.MediaKind, dimension models.DiscoveryDimension, value string, page int) (models.PagedResult, error)
}

var _ pagedSource = (*tmdbsvc.Client)(nil)

// Service presents the two backends as one merged, popularity-ordered feed.
type Service struct {
	source pagedSource
}

func NewService(source pagedSource) *Service {
	return &Service{source: source}
}

// SplitPage maps a virtual page number to the backend page each source should
// fetch, and whether that source should be fetched at all for this virtual
// page. Page 1 fetches both backends at page 1. Past that the feed
// alternates: odd virtual pages advance the movie backend, even virtual pages
// advance the TV backend, and the other source sits the page out (its
// contribution is an empty sentinel rather than a redundant re-fetch). The
// one overlap is virtual page 2, which fetches tv page 1 again; the caller's
// dedup absorbs the repeated items.
func SplitPage(p int) (moviePage, tvPage int, fetchMovie, fetchTV bool) {
	if p <= 1 {
		return 1, 1, true, true
	}
	moviePage = (p + 1) / 2 // ceil(p/2)
	tvPage = p / 2          // floor(p/2)
	fetchMovie = p%2 != 0
	fetchTV = p%2 == 0
	return moviePage, tvPage, fetchMovie, fetchTV
}

// CombinedTotalPages is the virtual page count of the merged feed: every
// backend page is spread across two virtual pages by the alternation.
func CombinedTotalPages(movieTotal, tvTotal int) int {
	if tvTotal > movieTotal {
		return tvTotal * 2
	}
	return movieTotal * 2
}

// CombinedPage fetches one virtual page of the merged feed. The two backend
// fetches run concurrently; a failing backend degrades to an empty
// contribution instead of failing the page, so the caller always gets
// whatever results are available. Only when every fetch attempted for the
// page fails is the error returned, so callers can tell "nothing matched"
// from "the upstream is down or unconfigured".
func (s *Service) CombinedPage(ctx context.Context, query models.DiscoveryQuery) (models.PagedResult, error) {
	if !query.Dimension.Valid() {
		return models.EmptyPage(), fmt.Errorf("unknown discovery dimension %q", query.Dimension)
	}
	page := query.Page
	if page < 1 {
		page = 1
	}

	moviePage, tvPage, fetchMovie, fetchTV := SplitPage(page)

	movieResult := models.EmptyPage()
	tvResult := models.EmptyPage()
	var movieErr, tvErr error

	p := pool.New().WithMaxGoroutines(2)
	if fetchMovie {
		p.Go(func() {
			result, err := s.source.DiscoverPaged(ctx, models.MediaKindMovie, query.Dimension, query.Value, moviePage)
			if err != nil {
				log.Printf("[discover] movie fetch failed (%s=%s page=%d): %v", query.Dimension, query.Value, moviePage, err)
				movieErr = err
				return
			}
			movieResult = result
		})
	}
	if fetchTV {
		p.Go(func() {
			result, err := s.source.DiscoverPaged(ctx, models.MediaKindTV, query.Dimension, query.Value, tvPage)
			if err != nil {
				log.Printf("[discover] tv fetch failed (%s=%s page=%d): %v", query.Dimension, query.Value, tvPage, err)
				tvErr = err
				return
			}
			tvResult = result
		})
	}
	p.Wait()

	if (!fetchMovie || movieErr != nil) && (!fetchTV || tvErr != nil) {
		return models.EmptyPage(), errors.Join(movieErr, tvErr)
	}

	feed := NewFeed()
	feed.Append(tagged(movieResult.Items, models.MediaKindMovie))
	feed.Append(tagged(tvResult.Items, models.MediaKindTV))

	return models.PagedResult{
		Items:       feed.Items(),
		CurrentPage: page,
		TotalPages:  CombinedTotalPages(movieResult.TotalPages, tvResult.TotalPages),
	}, nil
}

// tagged stamps the media kind on every item. Fetch layers already tag their
// results; this keeps the invariant even for sources that do not.
func tagged(items []models.MediaRef, kind models.MediaKind) []models.MediaRef {
	for i := range items {
		if items[i].Kind == "" {
			items[i].Kind = kind
		}
	}
	return items
}

// Feed accumulates merged pages for infinite-scroll style consumption.
// Items already present (same id and kind) are dropped on append, and the
// accumulated list is kept sorted by popularity, highest first. The sort is
// stable, so equal-popularity items keep their append order (movies before
// tv within a page).
type Feed struct {
	seen  map[string]struct{}
	items []models.MediaRef
}

func NewFeed() *Feed {
	return &Feed{seen: make(map[string]struct{})}
}

// Append adds the new items from page, skipping duplicates, and restores the
// popularity ordering. Appending a fully overlapping page is a no-op.
func (f *Feed) Append(page []models.MediaRef) {
	added := false
	for _, item := range page {
		key := item.Key()
		if _, dup := f.seen[key]; dup {
			continue
		}
		f.seen[key] = struct{}{}
		f.items = append(f.items, item)
		added = true
	}
	if !added {
		return
	}
	sort.SliceStable(f.items, func(i, j int) bool {
		return f.items[i].Popularity > f.items[j].Popularity
	})
}

// Items returns the accumulated, ordered list. The returned slice is the
// feed's backing array; callers must not mutate it.
func (f *Feed) Items() []models.MediaRef {
	if f.items == nil {
		return []models.MediaRef{}
	}
	return f.items
}

// Len returns the number of accumulated items.
func (f *Feed) Len() int {
	return len(f.items)
}
