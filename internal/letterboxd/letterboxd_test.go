package letterboxd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilmValidate(t *testing.T) {
	valid := Film{ID: "51822", Slug: "norte-the-end-of-history", Title: "Norte", Year: 2013}
	require.NoError(t, valid.Validate())

	var verr *ValidationError
	err := Film{Slug: "x", Title: "X"}.Validate()
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []string{"film_id", "year"}, verr.Missing)
}

func TestURLHelpers(t *testing.T) {
	require.Equal(t, "https://letterboxd.com/film/himala/", FilmPageURL("", "himala"))
	require.Equal(t, "https://letterboxd.com/csi/film/himala/stats/", StatsURL("https://letterboxd.com/", "himala"))
	require.Equal(t, "https://letterboxd.com/csi/film/himala/rating-histogram/", RatingHistogramURL("", "himala"))
}

func TestResolveTarget(t *testing.T) {
	require.Equal(t, "https://letterboxd.com/film/himala/", ResolveTarget("", "/film/himala/"))
	require.Equal(t, "https://example.com/x", ResolveTarget("https://example.com", "x"))
	require.Equal(t, "https://cdn.example.com/a.jpg", ResolveTarget("https://letterboxd.com", "https://cdn.example.com/a.jpg"))
}
