package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmcruz14/top250-scraper/internal/store"
)

func TestInsertAndFind(t *testing.T) {
	gw := New()
	ctx := context.Background()

	require.NoError(t, gw.InsertOne(ctx, store.CollectionFilms, map[string]any{"film_id": "1", "film_title": "Himala"}))
	require.NoError(t, gw.InsertOne(ctx, store.CollectionFilms, map[string]any{"film_id": "2", "film_title": "Norte"}))

	docs, err := gw.Find(ctx, store.CollectionFilms, store.Filter{"film_id": "2"}, store.FindOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(docs[0], &doc))
	require.Equal(t, "Norte", doc["film_title"])
}

func TestUniqueKeyRejected(t *testing.T) {
	gw := New()
	ctx := context.Background()

	require.NoError(t, gw.InsertOne(ctx, store.CollectionFilms, map[string]any{"film_id": "1"}))
	err := gw.InsertOne(ctx, store.CollectionFilms, map[string]any{"film_id": "1", "film_title": "other"})
	require.ErrorIs(t, err, store.ErrDuplicate)
	require.Equal(t, 1, gw.Count(store.CollectionFilms))
}

// Concurrent inserts of the same key admit exactly one winner, matching
// the unique index behavior of the Postgres gateway.
func TestConcurrentInsertExclusive(t *testing.T) {
	gw := New()
	ctx := context.Background()

	const attempts = 32
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		duplicates int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := gw.InsertOne(ctx, store.CollectionFilms, map[string]any{"film_id": "51822"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, store.ErrDuplicate):
				duplicates++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Equal(t, attempts-1, duplicates)
	require.Equal(t, 1, gw.Count(store.CollectionFilms))
}

func TestFindSortDescAndLimit(t *testing.T) {
	gw := New()
	ctx := context.Background()

	for _, ts := range []string{"2024-01-01T00:00:00Z", "2024-03-01T00:00:00Z", "2024-02-01T00:00:00Z"} {
		require.NoError(t, gw.InsertOne(ctx, "film_history", map[string]any{
			"history_id": ts, "film_id": "1", "created_at": ts,
		}))
	}

	docs, err := gw.Find(ctx, "film_history", store.Filter{"film_id": "1"},
		store.FindOptions{SortDesc: "created_at", Limit: 2})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal(docs[0], &first))
	require.Equal(t, "2024-03-01T00:00:00Z", first["created_at"])
}

// Mixed sub-second precision must order chronologically; as text,
// "00:00:00Z" sorts after "00:00:00.5Z".
func TestFindSortDescMixedPrecision(t *testing.T) {
	gw := New()
	ctx := context.Background()

	for id, ts := range map[string]string{
		"a": "2024-03-01T00:00:00Z",
		"b": "2024-03-01T00:00:00.5Z",
	} {
		require.NoError(t, gw.InsertOne(ctx, "film_history", map[string]any{
			"history_id": id, "film_id": "1", "created_at": ts,
		}))
	}

	docs, err := gw.Find(ctx, "film_history", store.Filter{"film_id": "1"},
		store.FindOptions{SortDesc: "created_at", Limit: 1})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	var latest map[string]any
	require.NoError(t, json.Unmarshal(docs[0], &latest))
	require.Equal(t, "b", latest["history_id"])
}

func TestDeleteOneAndMany(t *testing.T) {
	gw := New()
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, gw.InsertOne(ctx, "film_history", map[string]any{
			"history_id": id, "film_id": "1", "n": i,
		}))
	}

	removed, err := gw.DeleteOne(ctx, "film_history", store.Filter{"history_id": "b"})
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	removed, err = gw.DeleteMany(ctx, "film_history", store.Filter{"film_id": "1"})
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)
	require.Equal(t, 0, gw.Count("film_history"))
}
