package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmcruz14/top250-scraper/internal/letterboxd"
)

// Records is the typed repository the sync engine talks to. It keeps the
// canonical/history split explicit: films never carry stats, history rows
// never carry descriptive fields.
type Records struct {
	gw Gateway
}

// NewRecords wraps a gateway.
func NewRecords(gw Gateway) *Records {
	return &Records{gw: gw}
}

// GetFilm looks up a canonical record by film id.
func (r *Records) GetFilm(ctx context.Context, filmID string) (letterboxd.Film, error) {
	var film letterboxd.Film
	err := r.findOne(ctx, CollectionFilms, Filter{"film_id": filmID}, FindOptions{Limit: 1}, &film)
	return film, err
}

// InsertFilm persists a new canonical record. A concurrent insert of the
// same film id surfaces ErrDuplicate from the gateway's unique key.
func (r *Records) InsertFilm(ctx context.Context, film letterboxd.Film) error {
	if err := r.gw.InsertOne(ctx, CollectionFilms, film); err != nil {
		return fmt.Errorf("insert film %s: %w", film.ID, err)
	}
	return nil
}

// InsertHistory appends one stats snapshot for a film.
func (r *Records) InsertHistory(ctx context.Context, rec letterboxd.HistoryRecord) error {
	if err := r.gw.InsertOne(ctx, CollectionHistory, rec); err != nil {
		return fmt.Errorf("insert history for %s: %w", rec.FilmID, err)
	}
	return nil
}

// LatestHistory returns the most recent history record for a film.
func (r *Records) LatestHistory(ctx context.Context, filmID string) (letterboxd.HistoryRecord, error) {
	var rec letterboxd.HistoryRecord
	err := r.findOne(ctx, CollectionHistory, Filter{"film_id": filmID},
		FindOptions{SortDesc: "created_at", Limit: 1}, &rec)
	return rec, err
}

// FilmHistory returns up to limit history records for a film, newest first.
func (r *Records) FilmHistory(ctx context.Context, filmID string, limit int64) ([]letterboxd.HistoryRecord, error) {
	docs, err := r.gw.Find(ctx, CollectionHistory, Filter{"film_id": filmID},
		FindOptions{SortDesc: "created_at", Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("find history for %s: %w", filmID, err)
	}
	records := make([]letterboxd.HistoryRecord, 0, len(docs))
	for _, doc := range docs {
		var rec letterboxd.HistoryRecord
		if err := json.Unmarshal(doc, &rec); err != nil {
			return nil, fmt.Errorf("decode history for %s: %w", filmID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// LatestSnapshot returns the most recently created snapshot of a catalog.
func (r *Records) LatestSnapshot(ctx context.Context, catalogID string) (letterboxd.CatalogSnapshot, error) {
	var snap letterboxd.CatalogSnapshot
	err := r.findOne(ctx, CollectionSnapshots, Filter{"catalog_id": catalogID},
		FindOptions{SortDesc: "created_at", Limit: 1}, &snap)
	return snap, err
}

// InsertSnapshot persists one catalog snapshot.
func (r *Records) InsertSnapshot(ctx context.Context, snap letterboxd.CatalogSnapshot) error {
	if err := r.gw.InsertOne(ctx, CollectionSnapshots, snap); err != nil {
		return fmt.Errorf("insert snapshot %s: %w", snap.ID, err)
	}
	return nil
}

func (r *Records) findOne(ctx context.Context, collection string, filter Filter, opts FindOptions, out any) error {
	docs, err := r.gw.Find(ctx, collection, filter, opts)
	if err != nil {
		return fmt.Errorf("find in %s: %w", collection, err)
	}
	if len(docs) == 0 {
		return ErrNotFound
	}
	if err := json.Unmarshal(docs[0], out); err != nil {
		return fmt.Errorf("decode %s document: %w", collection, err)
	}
	return nil
}
