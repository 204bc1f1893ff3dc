package headless

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmcruz14/top250-scraper/internal/letterboxd"
)

func TestNoopAlwaysFails(t *testing.T) {
	noop := NewNoop()

	_, err := noop.Fetch(context.Background(), letterboxd.FetchRequest{
		URL:    "https://letterboxd.com/film/himala/",
		Render: true,
	})
	var fetchErr *letterboxd.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, "https://letterboxd.com/film/himala/", fetchErr.URL)
}
