package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	memblob "github.com/jmcruz14/top250-scraper/internal/archive/memory"
	"github.com/jmcruz14/top250-scraper/internal/letterboxd"
)

type stubFetcher struct {
	body []byte
	err  error
	url  string
}

func (f *stubFetcher) Fetch(_ context.Context, req letterboxd.FetchRequest) (letterboxd.FetchResponse, error) {
	f.url = req.URL
	if f.err != nil {
		return letterboxd.FetchResponse{}, f.err
	}
	return letterboxd.FetchResponse{URL: req.URL, StatusCode: 200, Body: f.body}, nil
}

func TestArchivePoster(t *testing.T) {
	blobs := memblob.New()
	fetcher := &stubFetcher{body: []byte("jpeg bytes")}
	archiver := New(fetcher, blobs, "posters", zap.NewNop())

	uri, err := archiver.ArchivePoster(context.Background(), letterboxd.Film{
		Slug:      "norte-the-end-of-history",
		PosterURL: "https://a.ltrbxd.com/resized/norte.jpg",
	})
	require.NoError(t, err)
	require.Equal(t, "mem://posters/norte-the-end-of-history.jpg", uri)

	data, ok := blobs.Object("posters/norte-the-end-of-history.jpg")
	require.True(t, ok)
	require.Equal(t, []byte("jpeg bytes"), data)
	require.Equal(t, "https://a.ltrbxd.com/resized/norte.jpg", fetcher.url)
}

func TestArchivePosterNoURL(t *testing.T) {
	archiver := New(&stubFetcher{}, memblob.New(), "posters", zap.NewNop())

	uri, err := archiver.ArchivePoster(context.Background(), letterboxd.Film{Slug: "himala"})
	require.NoError(t, err)
	require.Empty(t, uri)
}

func TestArchivePosterFetchFailure(t *testing.T) {
	fetcher := &stubFetcher{err: &letterboxd.FetchError{URL: "u", StatusCode: 500}}
	archiver := New(fetcher, memblob.New(), "", zap.NewNop())

	_, err := archiver.ArchivePoster(context.Background(), letterboxd.Film{
		Slug:      "himala",
		PosterURL: "https://a.ltrbxd.com/himala.png",
	})
	require.Error(t, err)
}

func TestBlobPathExtensionFallback(t *testing.T) {
	archiver := New(&stubFetcher{body: []byte("x")}, memblob.New(), "", zap.NewNop())

	uri, err := archiver.ArchivePoster(context.Background(), letterboxd.Film{
		Slug:      "himala",
		PosterURL: "https://a.ltrbxd.com/poster-without-extension",
	})
	require.NoError(t, err)
	require.Equal(t, "mem://himala.jpg", uri)
}
