// Package store persists opaque payloads in Postgres, keyed by COMB
// identifiers. It exists to put the identifier scheme to work: because keys
// are generated at insert time and trend upward, consecutive inserts land
// on neighboring index pages, and listing by key approximates listing by
// creation time.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deep-rent/comb/comb"
	"github.com/deep-rent/comb/guid"
	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"
)

// Default configuration values for a new store.
const (
	DefaultTable       = "records"
	DefaultConcurrency = 8
)

// ErrNotFound is returned by Get when no record exists for the given key.
var ErrNotFound = errors.New("store: record not found")

// Record is a stored payload together with its key and insertion time.
type Record struct {
	ID        guid.GUID
	Payload   []byte
	CreatedAt time.Time
}

// Store reads and writes records in a single Postgres table. It is safe
// for concurrent use; all state lives in the database.
type Store struct {
	db          *sql.DB
	table       string
	gen         *comb.Generator
	log         *slog.Logger
	concurrency int
}

// New creates a Store on top of db. By default, it writes to the "records"
// table, generates keys with a default comb.Generator, and logs through
// slog.Default(). These defaults can be overridden by passing in one or
// more Option functions.
//
// The table is not created implicitly; call Migrate once before use.
func New(db *sql.DB, opts ...Option) *Store {
	c := config{
		table:       DefaultTable,
		gen:         comb.NewGenerator(),
		log:         slog.Default(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return &Store{
		db:          db,
		table:       pq.QuoteIdentifier(c.table),
		gen:         c.gen,
		log:         c.log,
		concurrency: c.concurrency,
	}
}

// Migrate creates the backing table if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	q := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id         uuid PRIMARY KEY,
			payload    bytea NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, s.table)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("store: create table %s: %w", s.table, err)
	}
	s.log.Debug("Ensured record table exists", "table", s.table)
	return nil
}

// Put inserts payload under a freshly generated COMB key and returns that
// key.
func (s *Store) Put(ctx context.Context, payload []byte) (guid.GUID, error) {
	id := s.gen.New()
	q := fmt.Sprintf("INSERT INTO %s (id, payload) VALUES ($1, $2)", s.table)
	if _, err := s.db.ExecContext(ctx, q, id, payload); err != nil {
		return guid.Nil, fmt.Errorf("store: insert record: %w", err)
	}
	s.log.Debug("Inserted record", "id", id)
	return id, nil
}

// PutAll inserts all payloads concurrently and returns their keys in
// matching order. It stops on the first failed insert; records inserted
// before the failure remain in the table.
func (s *Store) PutAll(ctx context.Context, payloads [][]byte) ([]guid.GUID, error) {
	ids := make([]guid.GUID, len(payloads))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, payload := range payloads {
		g.Go(func() error {
			id, err := s.Put(ctx, payload)
			if err != nil {
				return err
			}
			ids[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Get returns the record stored under id. It returns ErrNotFound if no
// such record exists.
func (s *Store) Get(ctx context.Context, id guid.GUID) (Record, error) {
	q := fmt.Sprintf(
		"SELECT id, payload, created_at FROM %s WHERE id = $1", s.table)

	var r Record
	err := s.db.QueryRowContext(ctx, q, id).
		Scan(&r.ID, &r.Payload, &r.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Record{}, ErrNotFound
	case err != nil:
		return Record{}, fmt.Errorf("store: select record: %w", err)
	}
	return r, nil
}

// List returns up to limit records in ascending key order. With COMB keys,
// this order approximates insertion-time order.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	q := fmt.Sprintf(
		"SELECT id, payload, created_at FROM %s ORDER BY id LIMIT $1", s.table)

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Payload, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list records: %w", err)
	}
	return records, nil
}

// config holds the configuration settings for a Store.
type config struct {
	table       string
	gen         *comb.Generator
	log         *slog.Logger
	concurrency int
}

// Option defines a function that modifies the store configuration.
type Option func(*config)

// WithTable returns an Option that sets the name of the backing table.
// If the provided name is empty, it is ignored.
func WithTable(table string) Option {
	return func(c *config) {
		if table != "" {
			c.table = table
		}
	}
}

// WithGenerator returns an Option that sets the key generator.
// If the provided Generator is nil, it is ignored.
func WithGenerator(gen *comb.Generator) Option {
	return func(c *config) {
		if gen != nil {
			c.gen = gen
		}
	}
}

// WithLogger returns an Option that sets the logger.
// If the provided logger is nil, it is ignored.
func WithLogger(log *slog.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// WithConcurrency returns an Option that caps the number of concurrent
// inserts performed by PutAll. Values below one are ignored.
func WithConcurrency(n int) Option {
	return func(c *config) {
		if n >= 1 {
			c.concurrency = n
		}
	}
}
