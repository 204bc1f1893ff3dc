// Package memory provides an in-memory gateway for development/testing.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jmcruz14/top250-scraper/internal/store"
)

// Gateway implements store.Gateway over in-process maps. It enforces the
// same per-collection unique keys as the Postgres gateway so sync engine
// tests exercise the real check-then-insert behavior.
type Gateway struct {
	mu   sync.RWMutex
	docs map[string][]map[string]any
}

// New constructs a Gateway with empty collections.
func New() *Gateway {
	return &Gateway{docs: make(map[string][]map[string]any)}
}

// Find returns documents matching the equality filter.
func (g *Gateway) Find(_ context.Context, collection string, filter store.Filter, opts store.FindOptions) ([]json.RawMessage, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var matched []map[string]any
	for _, doc := range g.docs[collection] {
		if matches(doc, filter) {
			matched = append(matched, doc)
		}
	}
	if opts.SortDesc != "" {
		field := opts.SortDesc
		sort.SliceStable(matched, func(i, j int) bool {
			return sortsAfter(matched[i][field], matched[j][field])
		})
	}
	if opts.Limit > 0 && int64(len(matched)) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	out := make([]json.RawMessage, 0, len(matched))
	for _, doc := range matched {
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode document: %w", err)
		}
		out = append(out, raw)
	}
	return out, nil
}

// InsertOne appends a document, rejecting unique-key collisions.
func (g *Gateway) InsertOne(_ context.Context, collection string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("document must be an object: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if key := store.UniqueKeys[collection]; key != "" {
		val := scalarString(m[key])
		for _, existing := range g.docs[collection] {
			if scalarString(existing[key]) == val {
				return store.ErrDuplicate
			}
		}
	}
	g.docs[collection] = append(g.docs[collection], m)
	return nil
}

// DeleteOne removes the first matching document.
func (g *Gateway) DeleteOne(_ context.Context, collection string, filter store.Filter) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	docs := g.docs[collection]
	for i, doc := range docs {
		if matches(doc, filter) {
			g.docs[collection] = append(docs[:i], docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

// DeleteMany removes every matching document.
func (g *Gateway) DeleteMany(_ context.Context, collection string, filter store.Filter) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var kept []map[string]any
	var removed int64
	for _, doc := range g.docs[collection] {
		if matches(doc, filter) {
			removed++
			continue
		}
		kept = append(kept, doc)
	}
	g.docs[collection] = kept
	return removed, nil
}

// Close is a no-op for the memory gateway.
func (g *Gateway) Close() {}

// Count reports the number of documents in a collection (test helper).
func (g *Gateway) Count(collection string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.docs[collection])
}

func matches(doc map[string]any, filter store.Filter) bool {
	for field, want := range filter {
		if scalarString(doc[field]) != scalarString(want) {
			return false
		}
	}
	return true
}

// sortsAfter reports whether a orders before b when sorting newest first.
// Timestamp strings compare as parsed times: text comparison mis-orders
// RFC3339 values that mix whole-second and sub-second precision.
func sortsAfter(a, b any) bool {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			at, aerr := time.Parse(time.RFC3339Nano, as)
			bt, berr := time.Parse(time.RFC3339Nano, bs)
			if aerr == nil && berr == nil {
				return at.After(bt)
			}
		}
	}
	return scalarString(a) > scalarString(b)
}

// scalarString renders a value through JSON so filter values and decoded
// document values compare equal regardless of numeric type.
func scalarString(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}
