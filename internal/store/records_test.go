package store_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jmcruz14/top250-scraper/internal/letterboxd"
	"github.com/jmcruz14/top250-scraper/internal/store"
	"github.com/jmcruz14/top250-scraper/internal/store/memory"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func newRecords() (*store.Records, *memory.Gateway) {
	gw := memory.New()
	return store.NewRecords(gw), gw
}

func TestFilmRoundTrip(t *testing.T) {
	records, _ := newRecords()
	ctx := context.Background()

	film := letterboxd.Film{
		ID:        "51822",
		Slug:      "norte-the-end-of-history",
		Title:     "Norte, the End of History",
		Year:      2013,
		Genres:    []string{"Drama", "Crime"},
		Runtime:   250,
		CreatedAt: ts("2024-11-02T10:00:00Z"),
	}
	require.NoError(t, records.InsertFilm(ctx, film))

	got, err := records.GetFilm(ctx, "51822")
	require.NoError(t, err)
	require.Equal(t, film, got)

	_, err = records.GetFilm(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

// Canonical film documents never carry stats fields; those live only on
// history records. The split is visible in the raw stored documents.
func TestCanonicalHistorySplit(t *testing.T) {
	records, gw := newRecords()
	ctx := context.Background()

	require.NoError(t, records.InsertFilm(ctx, letterboxd.Film{
		ID: "51822", Slug: "norte-the-end-of-history", Title: "Norte", Year: 2013,
	}))
	require.NoError(t, records.InsertHistory(ctx, letterboxd.HistoryRecord{
		ID:         "h1",
		FilmID:     "51822",
		SnapshotID: "s1",
		Stats:      letterboxd.FilmStats{Rating: floatPtr(4.18), WatchCount: intPtr(100)},
		CreatedAt:  ts("2024-11-02T10:00:00Z"),
	}))

	filmDocs, err := gw.Find(ctx, store.CollectionFilms, store.Filter{"film_id": "51822"}, store.FindOptions{})
	require.NoError(t, err)
	require.Len(t, filmDocs, 1)
	var filmDoc map[string]any
	require.NoError(t, json.Unmarshal(filmDocs[0], &filmDoc))
	require.NotContains(t, filmDoc, "stats")
	require.NotContains(t, filmDoc, "rating")
	require.NotContains(t, filmDoc, "watch_count")

	histDocs, err := gw.Find(ctx, store.CollectionHistory, store.Filter{"film_id": "51822"}, store.FindOptions{})
	require.NoError(t, err)
	require.Len(t, histDocs, 1)
	var histDoc map[string]any
	require.NoError(t, json.Unmarshal(histDocs[0], &histDoc))
	require.Contains(t, histDoc, "stats")
	require.NotContains(t, histDoc, "film_title")
}

func TestLatestHistoryOrdering(t *testing.T) {
	records, _ := newRecords()
	ctx := context.Background()

	for i, stamp := range []string{"2024-01-01T00:00:00Z", "2024-03-01T00:00:00Z", "2024-02-01T00:00:00Z"} {
		require.NoError(t, records.InsertHistory(ctx, letterboxd.HistoryRecord{
			ID:        string(rune('a' + i)),
			FilmID:    "51822",
			Stats:     letterboxd.FilmStats{WatchCount: intPtr(i)},
			CreatedAt: ts(stamp),
		}))
	}

	latest, err := records.LatestHistory(ctx, "51822")
	require.NoError(t, err)
	require.Equal(t, "b", latest.ID)
	require.Equal(t, 1, *latest.Stats.WatchCount)

	history, err := records.FilmHistory(ctx, "51822", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "b", history[0].ID)
	require.Equal(t, "c", history[1].ID)
}

func TestLatestSnapshotPerCatalog(t *testing.T) {
	records, _ := newRecords()
	ctx := context.Background()

	require.NoError(t, records.InsertSnapshot(ctx, letterboxd.CatalogSnapshot{
		ID: "s1", CatalogID: "top-250-filipino", CreatedAt: ts("2024-01-01T00:00:00Z"),
	}))
	require.NoError(t, records.InsertSnapshot(ctx, letterboxd.CatalogSnapshot{
		ID: "s2", CatalogID: "top-250-filipino", CreatedAt: ts("2024-02-01T00:00:00Z"),
	}))
	require.NoError(t, records.InsertSnapshot(ctx, letterboxd.CatalogSnapshot{
		ID: "s3", CatalogID: "other-list", CreatedAt: ts("2024-03-01T00:00:00Z"),
	}))

	latest, err := records.LatestSnapshot(ctx, "top-250-filipino")
	require.NoError(t, err)
	require.Equal(t, "s2", latest.ID)

	_, err = records.LatestSnapshot(ctx, "unknown")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestInsertFilmDuplicate(t *testing.T) {
	records, _ := newRecords()
	ctx := context.Background()

	film := letterboxd.Film{ID: "51822", Slug: "norte", Title: "Norte", Year: 2013}
	require.NoError(t, records.InsertFilm(ctx, film))
	err := records.InsertFilm(ctx, film)
	require.ErrorIs(t, err, store.ErrDuplicate)
}
