// Package store defines the document persistence contract used by the
// sync engine, plus a typed repository layered on top of it.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// Logical collections.
const (
	CollectionFilms     = "films"
	CollectionHistory   = "film_history"
	CollectionSnapshots = "list_snapshots"
)

// UniqueKeys maps each collection to the document field enforced unique by
// every gateway implementation. The films key is what makes concurrent
// check-then-insert exclusive without process-level locking.
var UniqueKeys = map[string]string{
	CollectionFilms:     "film_id",
	CollectionHistory:   "history_id",
	CollectionSnapshots: "snapshot_id",
}

// Sentinel errors shared by gateway implementations.
var (
	ErrNotFound  = errors.New("store: document not found")
	ErrDuplicate = errors.New("store: duplicate key")
)

// Filter matches documents whose fields equal the given values.
type Filter map[string]any

// FindOptions bounds and orders a Find call.
type FindOptions struct {
	// SortDesc names a timestamp document field to order by, newest
	// first. Gateways order it as a parsed timestamp, not as text.
	SortDesc string
	// Limit caps the result set; zero means no cap.
	Limit int64
}

// Gateway is the CRUD contract against the document store. Documents move
// across it as raw JSON so implementations stay schema-agnostic.
type Gateway interface {
	Find(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]json.RawMessage, error)
	InsertOne(ctx context.Context, collection string, doc any) error
	DeleteOne(ctx context.Context, collection string, filter Filter) (int64, error)
	DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error)
	Close()
}
