// Package sync implements the catalog synchronization pipeline: existence
// checks, conditional detail-page scrapes, history writes, and snapshot
// assembly.
package sync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jmcruz14/top250-scraper/internal/archive"
	"github.com/jmcruz14/top250-scraper/internal/letterboxd"
	"github.com/jmcruz14/top250-scraper/internal/metrics"
	"github.com/jmcruz14/top250-scraper/internal/scrape"
	"github.com/jmcruz14/top250-scraper/internal/store"
)

// Waiter gates upstream requests for politeness.
type Waiter interface {
	Wait(ctx context.Context, url string) error
}

// Config controls Engine behavior.
type Config struct {
	BaseURL string
	Workers int
	Topic   string
}

// Engine orchestrates sync passes over ranked catalogs.
type Engine struct {
	records   *store.Records
	fetcher   letterboxd.Fetcher
	renderer  letterboxd.Fetcher
	detector  letterboxd.RenderDetector
	limiter   Waiter
	publisher letterboxd.Publisher
	archiver  *archive.Archiver
	clock     letterboxd.Clock
	idGen     letterboxd.IDGenerator
	cfg       Config
	logger    *zap.Logger
}

// New constructs an Engine. Renderer, detector, limiter, publisher and
// archiver are optional; nil disables the corresponding behavior.
func New(
	records *store.Records,
	fetcher letterboxd.Fetcher,
	renderer letterboxd.Fetcher,
	detector letterboxd.RenderDetector,
	limiter Waiter,
	publisher letterboxd.Publisher,
	archiver *archive.Archiver,
	clock letterboxd.Clock,
	idGen letterboxd.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = letterboxd.DefaultBaseURL
	}
	return &Engine{
		records:   records,
		fetcher:   fetcher,
		renderer:  renderer,
		detector:  detector,
		limiter:   limiter,
		publisher: publisher,
		archiver:  archiver,
		clock:     clock,
		idGen:     idGen,
		cfg:       cfg,
		logger:    logger,
	}
}

// processEntry resolves one catalog entry to its stats tuple.
//
// A film id already present in the store is never re-fetched within a
// pass: its latest history record is reused as-is. Unknown ids are
// scraped, validated and persisted as a film + history pair.
func (e *Engine) processEntry(ctx context.Context, snapshotID string, entry letterboxd.CatalogEntryRef) (letterboxd.SnapshotEntry, error) {
	_, err := e.records.GetFilm(ctx, entry.FilmID)
	switch {
	case err == nil:
		stats, herr := e.reuseLatestStats(ctx, entry.FilmID)
		if herr != nil {
			return letterboxd.SnapshotEntry{}, herr
		}
		metrics.FilmScraped("known")
		return letterboxd.SnapshotEntry{Rank: entry.Rank, FilmID: entry.FilmID, Stats: stats}, nil
	case errors.Is(err, store.ErrNotFound):
		return e.scrapeAndPersist(ctx, snapshotID, entry)
	default:
		return letterboxd.SnapshotEntry{}, fmt.Errorf("film lookup for %s: %w", entry.FilmID, err)
	}
}

func (e *Engine) reuseLatestStats(ctx context.Context, filmID string) (letterboxd.FilmStats, error) {
	hist, err := e.records.LatestHistory(ctx, filmID)
	if err == nil {
		return hist.Stats, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		// A film without history should not happen (the pair is written
		// together), but an empty tuple is still a valid snapshot row.
		return letterboxd.FilmStats{}, nil
	}
	return letterboxd.FilmStats{}, fmt.Errorf("history lookup for %s: %w", filmID, err)
}

func (e *Engine) scrapeAndPersist(ctx context.Context, snapshotID string, entry letterboxd.CatalogEntryRef) (letterboxd.SnapshotEntry, error) {
	result, err := e.scrapeDetail(ctx, letterboxd.ResolveTarget(e.cfg.BaseURL, entry.TargetPath), entry.FilmID)
	if err != nil {
		metrics.FilmScraped("failed")
		return letterboxd.SnapshotEntry{}, err
	}

	film, stats := result.Film, result.Stats
	film.CreatedAt = e.clock.Now()
	if err := film.Validate(); err != nil {
		metrics.FilmScraped("invalid")
		return letterboxd.SnapshotEntry{}, err
	}

	// Persist under a detached context: once an entry is in flight a
	// canceled pass must not leave a film row without its history row.
	persistCtx := context.WithoutCancel(ctx)
	if err := e.records.InsertFilm(persistCtx, film); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// A concurrent pass inserted this film between our lookup
			// and insert; fall back to its stats.
			stats, herr := e.reuseLatestStats(persistCtx, entry.FilmID)
			if herr != nil {
				return letterboxd.SnapshotEntry{}, herr
			}
			metrics.FilmScraped("known")
			return letterboxd.SnapshotEntry{Rank: entry.Rank, FilmID: entry.FilmID, Stats: stats}, nil
		}
		return letterboxd.SnapshotEntry{}, err
	}
	metrics.StoreWrite(store.CollectionFilms)

	historyID, err := e.idGen.NewID()
	if err != nil {
		return letterboxd.SnapshotEntry{}, fmt.Errorf("generate history id: %w", err)
	}
	record := letterboxd.HistoryRecord{
		ID:         historyID,
		FilmID:     film.ID,
		SnapshotID: snapshotID,
		Stats:      stats,
		CreatedAt:  e.clock.Now(),
	}
	if err := e.records.InsertHistory(persistCtx, record); err != nil {
		return letterboxd.SnapshotEntry{}, err
	}
	metrics.StoreWrite(store.CollectionHistory)
	metrics.FilmScraped("persisted")

	if e.archiver != nil {
		if _, err := e.archiver.ArchivePoster(persistCtx, film); err != nil {
			e.logger.Warn("poster archival failed", zap.String("film_slug", film.Slug), zap.Error(err))
		}
	}

	return letterboxd.SnapshotEntry{Rank: entry.Rank, FilmID: film.ID, Stats: stats}, nil
}

// scrapeDetail fetches and extracts one detail page plus its csi
// supplements, without touching sync state.
func (e *Engine) scrapeDetail(ctx context.Context, url, filmID string) (letterboxd.ScrapeResult, error) {
	page, err := e.fetchFilmPage(ctx, url)
	if err != nil {
		return letterboxd.ScrapeResult{}, err
	}

	film, stats, missing := scrape.ExtractFilm(page, filmID)
	for _, field := range missing {
		metrics.FieldMiss(field)
		e.logger.Debug("field absent", zap.String("film", url), zap.String("field", field))
	}

	slug := film.Slug
	if slug != "" {
		e.fillSupplementaryStats(ctx, slug, &stats)
	}
	return letterboxd.ScrapeResult{Film: film, Stats: stats}, nil
}

// fetchFilmPage fetches the lazy DOM and, when it comes back without the
// required regions, retries once through the rendered fetcher.
func (e *Engine) fetchFilmPage(ctx context.Context, url string) (*scrape.FilmPage, error) {
	resp, err := e.fetch(ctx, url, "film")
	if err != nil {
		return nil, err
	}
	page, perr := scrape.NewFilmPage(url, resp.Body)
	if perr == nil {
		return page, nil
	}

	var structErr *letterboxd.PageStructureError
	if e.renderer == nil || e.detector == nil || !errors.As(perr, &structErr) || !e.detector.ShouldRender(resp) {
		return nil, perr
	}

	e.logger.Info("retrying hollow page with rendered fetch", zap.String("url", url))
	rendered, err := e.renderer.Fetch(ctx, letterboxd.FetchRequest{URL: url, Render: true})
	if err != nil {
		return nil, perr
	}
	return scrape.NewFilmPage(url, rendered.Body)
}

// fillSupplementaryStats populates the counts and the classic rating from
// the csi endpoints. Both fragments are fail-soft: a failed fetch leaves
// the fields absent.
func (e *Engine) fillSupplementaryStats(ctx context.Context, slug string, stats *letterboxd.FilmStats) {
	statsURL := letterboxd.StatsURL(e.cfg.BaseURL, slug)
	if resp, err := e.fetch(ctx, statsURL, "stats"); err != nil {
		e.logger.Debug("stats fragment fetch failed", zap.String("film_slug", slug), zap.Error(err))
	} else if counts, err := scrape.ParseStatsFragment(resp.Body); err != nil {
		e.logger.Debug("stats fragment parse failed", zap.String("film_slug", slug), zap.Error(err))
	} else {
		stats.WatchCount = counts.WatchCount
		stats.ListAppearanceCount = counts.ListAppearanceCount
		stats.LikeCount = counts.LikeCount
	}

	histURL := letterboxd.RatingHistogramURL(e.cfg.BaseURL, slug)
	if resp, err := e.fetch(ctx, histURL, "histogram"); err != nil {
		e.logger.Debug("histogram fetch failed", zap.String("film_slug", slug), zap.Error(err))
	} else if classic, ok := scrape.ClassicRating(resp.Body); ok {
		stats.ClassicRating = &classic
	}
}

// fetch applies the politeness limit, runs the fetcher and records the
// observed latency.
func (e *Engine) fetch(ctx context.Context, url, kind string) (letterboxd.FetchResponse, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, url); err != nil {
			return letterboxd.FetchResponse{}, &letterboxd.FetchError{URL: url, Err: err}
		}
	}
	resp, err := e.fetcher.Fetch(ctx, letterboxd.FetchRequest{URL: url})
	if err != nil {
		return letterboxd.FetchResponse{}, err
	}
	metrics.ObserveFetch(kind, resp.Duration)
	return resp, nil
}

// ScrapeFilm scrapes one film page on demand without consulting or
// mutating sync state.
func (e *Engine) ScrapeFilm(ctx context.Context, slug, filmID string) (letterboxd.ScrapeResult, error) {
	return e.scrapeDetail(ctx, letterboxd.FilmPageURL(e.cfg.BaseURL, slug), filmID)
}

// LatestHistory returns the most recent history record for a film.
func (e *Engine) LatestHistory(ctx context.Context, filmID string) (letterboxd.HistoryRecord, error) {
	return e.records.LatestHistory(ctx, filmID)
}

// FilmHistory returns up to limit history records for a film, newest first.
func (e *Engine) FilmHistory(ctx context.Context, filmID string, limit int64) ([]letterboxd.HistoryRecord, error) {
	return e.records.FilmHistory(ctx, filmID, limit)
}

// entryScoped reports whether an error is confined to a single catalog
// entry (skip and continue) as opposed to a store failure (abort pass).
func entryScoped(err error) bool {
	var (
		fetchErr      *letterboxd.FetchError
		structureErr  *letterboxd.PageStructureError
		validationErr *letterboxd.ValidationError
	)
	return errors.As(err, &fetchErr) || errors.As(err, &structureErr) || errors.As(err, &validationErr)
}
