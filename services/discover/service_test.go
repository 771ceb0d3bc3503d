package discover

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Om-Prakash-Verma/new-flix/models"
)

type fakeSource struct {
	pages map[string]models.PagedResult
	errs  map[string]error

	mu    sync.Mutex
	calls []string
}

func sourceKey(kind models.MediaKind, page int) string {
	return fmt.Sprintf("%s:%d", kind, page)
}

func (f *fakeSource) DiscoverPaged(_ context.Context, kind models.MediaKind, _ models.DiscoveryDimension, _ string, page int) (models.PagedResult, error) {
	key := sourceKey(kind, page)
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()
	if err, ok := f.errs[key]; ok {
		return models.EmptyPage(), err
	}
	if result, ok := f.pages[key]; ok {
		return result, nil
	}
	return models.EmptyPage(), nil
}

func ref(kind models.MediaKind, id int64, popularity float64) models.MediaRef {
	return models.MediaRef{
		ID:         id,
		Kind:       kind,
		Name:       fmt.Sprintf("%s-%d", kind, id),
		Popularity: popularity,
	}
}

func page(total int, items ...models.MediaRef) models.PagedResult {
	return models.PagedResult{Items: items, CurrentPage: 1, TotalPages: total}
}

func TestSplitPage(t *testing.T) {
	cases := []struct {
		virtual             int
		moviePage, tvPage   int
		fetchMovie, fetchTV bool
	}{
		{1, 1, 1, true, true},
		{2, 1, 1, false, true},
		{3, 2, 1, true, false},
		{4, 2, 2, false, true},
		{5, 3, 2, true, false},
		{6, 3, 3, false, true},
		{7, 4, 3, true, false},
	}
	for _, tc := range cases {
		moviePage, tvPage, fetchMovie, fetchTV := SplitPage(tc.virtual)
		assert.Equal(t, tc.moviePage, moviePage, "virtual page %d movie page", tc.virtual)
		assert.Equal(t, tc.tvPage, tvPage, "virtual page %d tv page", tc.virtual)
		assert.Equal(t, tc.fetchMovie, fetchMovie, "virtual page %d fetch movie", tc.virtual)
		assert.Equal(t, tc.fetchTV, fetchTV, "virtual page %d fetch tv", tc.virtual)
	}
}

func TestSplitPageBackendCoverage(t *testing.T) {
	movieSeen := map[int]int{}
	tvSeen := map[int]int{}
	for p := 1; p <= 40; p++ {
		moviePage, tvPage, fetchMovie, fetchTV := SplitPage(p)
		if fetchMovie {
			movieSeen[moviePage]++
		}
		if fetchTV {
			tvSeen[tvPage]++
		}
	}
	for p := 1; p <= 20; p++ {
		assert.Equal(t, 1, movieSeen[p], "movie page %d fetch count", p)
	}
	// TV page 1 is fetched at virtual pages 1 and 2 under the ceil/floor
	// split; dedup absorbs the overlap. Every later tv page is fetched once.
	assert.Equal(t, 2, tvSeen[1], "tv page 1 fetch count")
	for p := 2; p <= 20; p++ {
		assert.Equal(t, 1, tvSeen[p], "tv page %d fetch count", p)
	}
}

func TestCombinedTotalPages(t *testing.T) {
	assert.Equal(t, 10, CombinedTotalPages(3, 5))
	assert.Equal(t, 10, CombinedTotalPages(5, 3))
	assert.Equal(t, 2, CombinedTotalPages(1, 1))
	assert.Equal(t, 0, CombinedTotalPages(0, 0))
}

func TestCombinedPageFirstPageFetchesBothSources(t *testing.T) {
	src := &fakeSource{pages: map[string]models.PagedResult{
		sourceKey(models.MediaKindMovie, 1): page(3, ref(models.MediaKindMovie, 10, 50)),
		sourceKey(models.MediaKindTV, 1):    page(5, ref(models.MediaKindTV, 20, 80)),
	}}
	svc := NewService(src)

	result, err := svc.CombinedPage(context.Background(), models.DiscoveryQuery{
		Dimension: models.DiscoverByGenre,
		Value:     "28",
		Page:      1,
	})
	require.NoError(t, err)

	assert.Len(t, src.calls, 2)
	assert.Equal(t, 1, result.CurrentPage)
	assert.Equal(t, 10, result.TotalPages)
	require.Len(t, result.Items, 2)
	// Higher popularity first regardless of source
	assert.Equal(t, int64(20), result.Items[0].ID)
	assert.Equal(t, int64(10), result.Items[1].ID)
}

func TestCombinedPageLaterPagesFetchOneSource(t *testing.T) {
	src := &fakeSource{pages: map[string]models.PagedResult{
		sourceKey(models.MediaKindTV, 1): page(5, ref(models.MediaKindTV, 21, 40)),
	}}
	svc := NewService(src)

	result, err := svc.CombinedPage(context.Background(), models.DiscoveryQuery{
		Dimension: models.DiscoverByGenre,
		Value:     "28",
		Page:      2,
	})
	require.NoError(t, err)

	// Virtual page 2 only advances the tv backend; the movie source sits out.
	require.Len(t, src.calls, 1)
	assert.Equal(t, sourceKey(models.MediaKindTV, 1), src.calls[0])
	require.Len(t, result.Items, 1)
	assert.Equal(t, models.MediaKindTV, result.Items[0].Kind)
	assert.Equal(t, 10, result.TotalPages)
}

func TestCombinedPageSurvivesOneFailingSource(t *testing.T) {
	src := &fakeSource{
		pages: map[string]models.PagedResult{
			sourceKey(models.MediaKindMovie, 1): page(3, ref(models.MediaKindMovie, 10, 50)),
		},
		errs: map[string]error{
			sourceKey(models.MediaKindTV, 1): errors.New("upstream down"),
		},
	}
	svc := NewService(src)

	result, err := svc.CombinedPage(context.Background(), models.DiscoveryQuery{
		Dimension: models.DiscoverByGenre,
		Value:     "28",
		Page:      1,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, int64(10), result.Items[0].ID)
	// Failed source contributes zero total pages
	assert.Equal(t, 6, result.TotalPages)
}

func TestCombinedPageAllSourcesFailedReturnsError(t *testing.T) {
	upstream := errors.New("api key not configured")
	src := &fakeSource{errs: map[string]error{
		sourceKey(models.MediaKindMovie, 1): upstream,
		sourceKey(models.MediaKindTV, 1):    upstream,
	}}
	svc := NewService(src)

	_, err := svc.CombinedPage(context.Background(), models.DiscoveryQuery{
		Dimension: models.DiscoverByGenre,
		Value:     "28",
		Page:      1,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, upstream)

	// A single-source page whose only fetch fails also surfaces the error
	_, err = svc.CombinedPage(context.Background(), models.DiscoveryQuery{
		Dimension: models.DiscoverByGenre,
		Value:     "28",
		Page:      2,
	})
	require.Error(t, err)
}

func TestCombinedPageRejectsUnknownDimension(t *testing.T) {
	svc := NewService(&fakeSource{})
	_, err := svc.CombinedPage(context.Background(), models.DiscoveryQuery{
		Dimension: "color",
		Value:     "blue",
		Page:      1,
	})
	require.Error(t, err)
}

func TestFeedDedupAndOrdering(t *testing.T) {
	feed := NewFeed()
	feed.Append([]models.MediaRef{
		ref(models.MediaKindMovie, 1, 30),
		ref(models.MediaKindTV, 1, 90), // same id, different kind: kept
		ref(models.MediaKindMovie, 2, 60),
	})
	require.Equal(t, 3, feed.Len())

	items := feed.Items()
	assert.Equal(t, models.MediaKindTV, items[0].Kind)
	assert.Equal(t, int64(2), items[1].ID)
	assert.Equal(t, int64(1), items[2].ID)

	// Re-appending an overlapping page changes nothing
	feed.Append([]models.MediaRef{
		ref(models.MediaKindMovie, 1, 30),
		ref(models.MediaKindMovie, 2, 60),
	})
	assert.Equal(t, 3, feed.Len())

	// New items slot in by popularity
	feed.Append([]models.MediaRef{ref(models.MediaKindTV, 5, 75)})
	items = feed.Items()
	require.Equal(t, 4, feed.Len())
	assert.Equal(t, int64(5), items[1].ID)
}

func TestFeedItemsNeverNil(t *testing.T) {
	feed := NewFeed()
	assert.NotNil(t, feed.Items())
	assert.Empty(t, feed.Items())
}
