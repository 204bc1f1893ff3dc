package scrape

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCatalogMeta(t *testing.T) {
	page, err := NewCatalogPage(loadFixture(t, "catalog_page1.html"))
	require.NoError(t, err)

	meta := page.Meta()
	require.Equal(t, "Top 250 Narrative Feature-Length Filipino Films", meta.Name)
	require.Equal(t, 3, meta.TotalPages)
	require.NotNil(t, meta.PublishedAt)
	require.Equal(t, time.Date(2020, 1, 15, 8, 30, 0, 0, time.UTC), *meta.PublishedAt)
	require.NotNil(t, meta.LastUpdate)
	require.Equal(t, time.Date(2024, 11, 2, 10, 0, 0, 0, time.UTC), *meta.LastUpdate)
}

func TestCatalogMetaFailSoft(t *testing.T) {
	page, err := NewCatalogPage([]byte(`<html><body><p>nothing here</p></body></html>`))
	require.NoError(t, err)

	meta := page.Meta()
	require.Empty(t, meta.Name)
	require.Nil(t, meta.PublishedAt)
	require.Nil(t, meta.LastUpdate)
	require.Equal(t, 1, meta.TotalPages)
}

func TestCatalogEntries(t *testing.T) {
	page, err := NewCatalogPage(loadFixture(t, "catalog_page1.html"))
	require.NoError(t, err)

	entries := page.Entries(1)
	require.Len(t, entries, 3)

	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, "51822", entries[0].FilmID)
	require.Equal(t, "norte-the-end-of-history", entries[0].Slug)
	require.Equal(t, "/film/norte-the-end-of-history/", entries[0].TargetPath)

	require.Equal(t, 2, entries[1].Rank)
	require.Equal(t, "28379", entries[1].FilmID)

	// Third item has no rank marker, no film id and no target link; all
	// three fall back rather than dropping the entry.
	require.Equal(t, 3, entries[2].Rank)
	require.Equal(t, "manila-in-the-claws-of-light", entries[2].FilmID)
	require.Equal(t, "/film/manila-in-the-claws-of-light/", entries[2].TargetPath)
}

func TestCatalogEntriesStartRank(t *testing.T) {
	body := []byte(`<ul>
		<li class="poster-container"><div class="film-poster" data-film-slug="a"></div></li>
		<li class="poster-container"><div class="film-poster" data-film-slug="b"></div></li>
	</ul>`)
	page, err := NewCatalogPage(body)
	require.NoError(t, err)

	entries := page.Entries(101)
	require.Len(t, entries, 2)
	require.Equal(t, 101, entries[0].Rank)
	require.Equal(t, 102, entries[1].Rank)
}

// A three-page list yields exactly two extra page paths: the current page
// renders as a bare span and is excluded.
func TestCatalogExtraPages(t *testing.T) {
	page, err := NewCatalogPage(loadFixture(t, "catalog_page1.html"))
	require.NoError(t, err)

	extra := page.ExtraPages()
	require.Equal(t, []string{
		"/tuesjays/list/top-250-narrative-feature-length-filipino/page/2/",
		"/tuesjays/list/top-250-narrative-feature-length-filipino/page/3/",
	}, extra)
}

func TestCatalogExtraPagesSinglePage(t *testing.T) {
	page, err := NewCatalogPage([]byte(`<html><body><ul></ul></body></html>`))
	require.NoError(t, err)
	require.Empty(t, page.ExtraPages())
}
