// Package letterboxd defines core types shared across subsystems.
package letterboxd

import (
	"time"
)

// Film holds the descriptive attributes of one film. It is created once on
// first successful extraction and never carries time-varying popularity
// stats; those live in HistoryRecord.
type Film struct {
	ID                  string     `json:"film_id"`
	Slug                string     `json:"film_slug"`
	Title               string     `json:"film_title"`
	Year                int        `json:"year"`
	Genres              []string   `json:"genre,omitempty"`
	Runtime             int        `json:"runtime,omitempty"`
	Cast                []string   `json:"cast,omitempty"`
	ProductionCompanies []string   `json:"production_company,omitempty"`
	Crew                []CrewRole `json:"crew,omitempty"`
	PosterURL           string     `json:"poster,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// CrewRole maps one role heading to its contributors, in page order.
// Names is nil when the role heading was present but its contributor block
// was not; the role is still recorded.
type CrewRole struct {
	Role  string   `json:"role"`
	Names []string `json:"names"`
}

// FilmStats carries the seven time-varying stat fields. Pointers encode
// per-field absence from extraction.
type FilmStats struct {
	Rating              *float64 `json:"rating"`
	ClassicRating       *float64 `json:"classic_rating"`
	ReviewCount         *int     `json:"review_count"`
	RatingCount         *int     `json:"rating_count"`
	WatchCount          *int     `json:"watch_count"`
	ListAppearanceCount *int     `json:"list_appearance_count"`
	LikeCount           *int     `json:"like_count"`
}

// HistoryRecord is one immutable stats snapshot for one film. Append-only.
type HistoryRecord struct {
	ID         string    `json:"history_id"`
	FilmID     string    `json:"film_id"`
	SnapshotID string    `json:"snapshot_id"`
	Stats      FilmStats `json:"stats"`
	CreatedAt  time.Time `json:"created_at"`
}

// SnapshotEntry is one ranked row inside a catalog snapshot. Stats are
// copied from the history record active at snapshot-build time.
type SnapshotEntry struct {
	Rank   int       `json:"rank"`
	FilmID string    `json:"film_id"`
	Stats  FilmStats `json:"stats"`
}

// CatalogSnapshot is one versioned capture of the tracked list.
type CatalogSnapshot struct {
	ID          string          `json:"snapshot_id"`
	CatalogID   string          `json:"catalog_id"`
	Name        string          `json:"list_name"`
	TotalPages  int             `json:"total_pages"`
	Entries     []SnapshotEntry `json:"entries"`
	PublishedAt *time.Time      `json:"published_at"`
	LastUpdate  *time.Time      `json:"last_update"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CatalogMeta holds list-level fields parsed from the catalog page. Every
// field is independently optional; a missing marker element leaves it nil
// or zero rather than failing the parse.
type CatalogMeta struct {
	Name        string
	PublishedAt *time.Time
	LastUpdate  *time.Time
	TotalPages  int
}

// CatalogEntryRef identifies one ranked item on a catalog page. It lives
// only for the duration of a sync pass.
type CatalogEntryRef struct {
	Rank       int
	FilmID     string
	Slug       string
	TargetPath string
}

// ScrapeResult pairs a film with the stats extracted alongside it.
type ScrapeResult struct {
	Film  Film      `json:"film"`
	Stats FilmStats `json:"stats"`
}

// FetchRequest captures everything needed to fetch one page.
type FetchRequest struct {
	URL    string
	Render bool
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
	Rendered   bool
}
