// Package postgres provides a Postgres-backed document gateway.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmcruz14/top250-scraper/internal/store"
)

var validIdent = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pool is the subset of pgxpool.Pool the gateway needs; pgxmock satisfies
// it in tests.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// Gateway implements store.Gateway over one JSONB document column per
// collection. The unique index on each collection's key field is what
// turns concurrent check-then-insert races into ErrDuplicate instead of
// double inserts.
type Gateway struct {
	pool pool
}

// New connects a Gateway using the provided config.
func New(ctx context.Context, cfg Config) (*Gateway, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Gateway{pool: p}, nil
}

// NewWithPool constructs a Gateway from an existing pool (primarily for
// testing).
func NewWithPool(p pool) (*Gateway, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Gateway{pool: p}, nil
}

// EnsureSchema creates the collection tables and unique key indexes.
func (g *Gateway) EnsureSchema(ctx context.Context) error {
	for collection, key := range store.UniqueKeys {
		if err := validateIdent(collection); err != nil {
			return err
		}
		ddl := fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (doc JSONB NOT NULL);
			CREATE UNIQUE INDEX IF NOT EXISTS %s_%s_key ON %s ((doc->>'%s'))`,
			collection, collection, key, collection, key,
		)
		if _, err := g.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema for %s: %w", collection, err)
		}
	}
	return nil
}

// Find returns matching documents via JSONB containment.
func (g *Gateway) Find(ctx context.Context, collection string, filter store.Filter, opts store.FindOptions) ([]json.RawMessage, error) {
	if err := validateIdent(collection); err != nil {
		return nil, err
	}
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}
	query := fmt.Sprintf("SELECT doc FROM %s WHERE doc @> $1::jsonb", collection)
	if opts.SortDesc != "" {
		if err := validateIdent(opts.SortDesc); err != nil {
			return nil, err
		}
		// Sort fields hold RFC3339 timestamps; the cast keeps values with
		// mixed sub-second precision from falling back to text ordering.
		query += fmt.Sprintf(" ORDER BY (doc->>'%s')::timestamptz DESC", opts.SortDesc)
	}
	args := []any{string(filterJSON)}
	if opts.Limit > 0 {
		query += " LIMIT $2"
		args = append(args, opts.Limit)
	}

	rows, err := g.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", collection, err)
		}
		docs = append(docs, json.RawMessage(doc))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", collection, err)
	}
	return docs, nil
}

// InsertOne writes one document. Unique key violations map to
// store.ErrDuplicate.
func (g *Gateway) InsertOne(ctx context.Context, collection string, doc any) error {
	if err := validateIdent(collection); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	query := fmt.Sprintf("INSERT INTO %s (doc) VALUES ($1::jsonb)", collection)
	if _, err := g.pool.Exec(ctx, query, string(raw)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert into %s: %w", collection, err)
	}
	return nil
}

// DeleteOne removes at most one matching document.
func (g *Gateway) DeleteOne(ctx context.Context, collection string, filter store.Filter) (int64, error) {
	return g.delete(ctx, collection, filter, true)
}

// DeleteMany removes every matching document.
func (g *Gateway) DeleteMany(ctx context.Context, collection string, filter store.Filter) (int64, error) {
	return g.delete(ctx, collection, filter, false)
}

func (g *Gateway) delete(ctx context.Context, collection string, filter store.Filter, single bool) (int64, error) {
	if err := validateIdent(collection); err != nil {
		return 0, err
	}
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return 0, fmt.Errorf("encode filter: %w", err)
	}
	var query string
	if single {
		query = fmt.Sprintf(
			"DELETE FROM %s WHERE ctid IN (SELECT ctid FROM %s WHERE doc @> $1::jsonb LIMIT 1)",
			collection, collection,
		)
	} else {
		query = fmt.Sprintf("DELETE FROM %s WHERE doc @> $1::jsonb", collection)
	}
	tag, err := g.pool.Exec(ctx, query, string(filterJSON))
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", collection, err)
	}
	return tag.RowsAffected(), nil
}

// Close releases the underlying pool resources.
func (g *Gateway) Close() {
	if g == nil || g.pool == nil {
		return
	}
	g.pool.Close()
}

func validateIdent(name string) error {
	if !validIdent.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}
