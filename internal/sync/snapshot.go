package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jmcruz14/top250-scraper/internal/letterboxd"
	"github.com/jmcruz14/top250-scraper/internal/metrics"
	"github.com/jmcruz14/top250-scraper/internal/scrape"
	"github.com/jmcruz14/top250-scraper/internal/store"
)

// SyncCatalog runs one sync pass over a ranked catalog.
//
// When the upstream last-update timestamp matches the latest stored
// snapshot the pass short-circuits: the stored snapshot is returned and
// nothing is written. Otherwise every entry is resolved (page by page,
// via a bounded worker pool), a new snapshot is persisted and a
// snapshot-created event is published.
func (e *Engine) SyncCatalog(ctx context.Context, catalogID, catalogURL string, parseExtraPages bool, entryLimit int) (letterboxd.CatalogSnapshot, error) {
	resp, err := e.fetch(ctx, catalogURL, "catalog")
	if err != nil {
		metrics.SyncRun("catalog_fetch_failed")
		return letterboxd.CatalogSnapshot{}, fmt.Errorf("fetch catalog %s: %w", catalogID, err)
	}
	page, err := scrape.NewCatalogPage(resp.Body)
	if err != nil {
		metrics.SyncRun("catalog_parse_failed")
		return letterboxd.CatalogSnapshot{}, fmt.Errorf("parse catalog %s: %w", catalogID, err)
	}
	meta := page.Meta()

	stored, err := e.records.LatestSnapshot(ctx, catalogID)
	switch {
	case err == nil:
		if timestampsEqual(stored.LastUpdate, meta.LastUpdate) {
			e.logger.Info("catalog unchanged, returning stored snapshot",
				zap.String("catalog_id", catalogID),
				zap.String("snapshot_id", stored.ID),
			)
			metrics.SyncRun("unchanged")
			return stored, nil
		}
	case errors.Is(err, store.ErrNotFound):
		// First pass for this catalog.
	default:
		metrics.SyncRun("store_failed")
		return letterboxd.CatalogSnapshot{}, fmt.Errorf("load snapshot for %s: %w", catalogID, err)
	}

	snapshotID, err := e.idGen.NewID()
	if err != nil {
		return letterboxd.CatalogSnapshot{}, fmt.Errorf("generate snapshot id: %w", err)
	}

	entries, err := e.collectEntries(ctx, page, parseExtraPages, entryLimit)
	if err != nil {
		metrics.SyncRun("catalog_fetch_failed")
		return letterboxd.CatalogSnapshot{}, err
	}

	rows, err := e.processEntries(ctx, snapshotID, entries)
	if err != nil {
		metrics.SyncRun("store_failed")
		return letterboxd.CatalogSnapshot{}, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Rank < rows[j].Rank })

	snapshot := letterboxd.CatalogSnapshot{
		ID:          snapshotID,
		CatalogID:   catalogID,
		Name:        meta.Name,
		TotalPages:  meta.TotalPages,
		Entries:     rows,
		PublishedAt: meta.PublishedAt,
		LastUpdate:  meta.LastUpdate,
		CreatedAt:   e.clock.Now(),
	}
	if err := e.records.InsertSnapshot(context.WithoutCancel(ctx), snapshot); err != nil {
		metrics.SyncRun("store_failed")
		return letterboxd.CatalogSnapshot{}, err
	}
	metrics.StoreWrite(store.CollectionSnapshots)
	metrics.SyncRun("synced")
	e.logger.Info("catalog snapshot persisted",
		zap.String("catalog_id", catalogID),
		zap.String("snapshot_id", snapshotID),
		zap.Int("entries", len(rows)),
	)

	if e.publisher != nil {
		if _, err := e.publisher.Publish(ctx, e.cfg.Topic, snapshot); err != nil {
			e.logger.Warn("snapshot event publish failed",
				zap.String("snapshot_id", snapshotID), zap.Error(err))
		}
	}
	return snapshot, nil
}

// collectEntries enumerates the catalog's ranked entries across the
// primary page and, when requested, every page the pagination control
// resolves to. Page order is preserved; entryLimit > 0 caps the total.
func (e *Engine) collectEntries(ctx context.Context, first *scrape.CatalogPage, parseExtraPages bool, entryLimit int) ([][]letterboxd.CatalogEntryRef, error) {
	var pages [][]letterboxd.CatalogEntryRef
	entries := first.Entries(1)
	total := len(entries)
	pages = append(pages, entries)

	if parseExtraPages && !limitReached(entryLimit, total) {
		for _, path := range first.ExtraPages() {
			if ctx.Err() != nil {
				break
			}
			url := letterboxd.ResolveTarget(e.cfg.BaseURL, path)
			resp, err := e.fetch(ctx, url, "catalog")
			if err != nil {
				return nil, fmt.Errorf("fetch catalog page %s: %w", path, err)
			}
			page, err := scrape.NewCatalogPage(resp.Body)
			if err != nil {
				return nil, fmt.Errorf("parse catalog page %s: %w", path, err)
			}
			extra := page.Entries(total + 1)
			total += len(extra)
			pages = append(pages, extra)
			if limitReached(entryLimit, total) {
				break
			}
		}
	}

	if entryLimit > 0 {
		remaining := entryLimit
		for i := range pages {
			if len(pages[i]) > remaining {
				pages[i] = pages[i][:remaining]
			}
			remaining -= len(pages[i])
		}
	}
	return pages, nil
}

// processEntries runs the worker pool one catalog page at a time: workers
// for the current page drain before the next page starts, so fetch
// pressure tracks catalog order even though results are re-sorted by rank
// at the end.
func (e *Engine) processEntries(ctx context.Context, snapshotID string, pages [][]letterboxd.CatalogEntryRef) ([]letterboxd.SnapshotEntry, error) {
	var rows []letterboxd.SnapshotEntry
	for _, entries := range pages {
		pageRows, err := e.processPage(ctx, snapshotID, entries)
		if err != nil {
			return nil, err
		}
		rows = append(rows, pageRows...)
	}
	return rows, nil
}

func (e *Engine) processPage(ctx context.Context, snapshotID string, entries []letterboxd.CatalogEntryRef) ([]letterboxd.SnapshotEntry, error) {
	var (
		mu       sync.Mutex
		rows     []letterboxd.SnapshotEntry
		fatalErr error
	)
	jobs := make(chan letterboxd.CatalogEntryRef)
	var wg sync.WaitGroup
	for i := 0; i < e.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				row, err := e.processEntry(ctx, snapshotID, entry)
				if err != nil {
					if entryScoped(err) {
						e.logger.Warn("catalog entry skipped",
							zap.Int("rank", entry.Rank),
							zap.String("film_id", entry.FilmID),
							zap.Error(err),
						)
						metrics.EntrySkipped(skipReason(err))
						continue
					}
					mu.Lock()
					if fatalErr == nil {
						fatalErr = err
					}
					mu.Unlock()
					continue
				}
				mu.Lock()
				rows = append(rows, row)
				mu.Unlock()
			}
		}()
	}

	// Stop handing out work on cancellation or a fatal store error, but
	// let in-flight entries run to completion.
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		mu.Lock()
		stop := fatalErr != nil
		mu.Unlock()
		if stop {
			break
		}
		jobs <- entry
	}
	close(jobs)
	wg.Wait()

	if fatalErr != nil {
		return nil, fatalErr
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sync pass canceled: %w", err)
	}
	return rows, nil
}

func skipReason(err error) string {
	var (
		fetchErr      *letterboxd.FetchError
		structureErr  *letterboxd.PageStructureError
		validationErr *letterboxd.ValidationError
	)
	switch {
	case errors.As(err, &validationErr):
		return "validation"
	case errors.As(err, &structureErr):
		return "page_structure"
	case errors.As(err, &fetchErr):
		return "fetch"
	default:
		return "other"
	}
}

func limitReached(limit, total int) bool {
	return limit > 0 && total >= limit
}

// timestampsEqual treats two last-update markers as equal only when both
// are present and identical; a catalog page missing its update marker is
// always re-synced rather than wrongly short-circuited.
func timestampsEqual(stored, parsed *time.Time) bool {
	return stored != nil && parsed != nil && stored.Equal(*parsed)
}
