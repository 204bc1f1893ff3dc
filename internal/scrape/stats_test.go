package scrape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStatsFragment(t *testing.T) {
	counts, err := ParseStatsFragment(loadFixture(t, "stats_fragment.html"))
	require.NoError(t, err)

	require.NotNil(t, counts.WatchCount)
	require.Equal(t, 1234567, *counts.WatchCount)
	require.NotNil(t, counts.ListAppearanceCount)
	require.Equal(t, 45678, *counts.ListAppearanceCount)
	require.NotNil(t, counts.LikeCount)
	require.Equal(t, 321098, *counts.LikeCount)
}

func TestParseStatsFragmentPartial(t *testing.T) {
	body := []byte(`<ul class="film-stats">
		<li class="stat filmstat-watches"><a title="Watched by 42 members">42</a></li>
		<li class="stat filmstat-likes"><a>no title here</a></li>
	</ul>`)
	counts, err := ParseStatsFragment(body)
	require.NoError(t, err)

	require.NotNil(t, counts.WatchCount)
	require.Equal(t, 42, *counts.WatchCount)
	require.Nil(t, counts.ListAppearanceCount)
	require.Nil(t, counts.LikeCount)
}

func TestClassicRatingWeightedMean(t *testing.T) {
	// One 4-star rating and three 5-star ratings: (4 + 15) / 4.
	value, ok := ClassicRating(loadFixture(t, "rating_histogram.html"))
	require.True(t, ok)
	require.InDelta(t, 4.75, value, 1e-9)
}

func TestClassicRatingEmptyHistogram(t *testing.T) {
	body := []byte(`<ul>
		<li class="rating-histogram-bar"><a title="No ★ ratings"></a></li>
		<li class="rating-histogram-bar"><a title="No ★★ ratings"></a></li>
	</ul>`)
	_, ok := ClassicRating(body)
	require.False(t, ok)
}

func TestClassicRatingNoBars(t *testing.T) {
	_, ok := ClassicRating([]byte(`<html><body><p>not found</p></body></html>`))
	require.False(t, ok)
}

func TestLeadingCount(t *testing.T) {
	count, ok := leadingCount("1,234 ★★ ratings (4%)")
	require.True(t, ok)
	require.Equal(t, 1234, count)

	_, ok = leadingCount("No ★ ratings")
	require.False(t, ok)
}
