package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
)

// ErrNotFound is returned by Get when no row exists for the ID.
var ErrNotFound = errors.New("bookmark not found")

// querier is the subset of *pgxpool.Pool the store uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Store persists bookmarks as rows of a single table keyed by id.
type Store struct {
	db      querier
	queries queries
	close   func()
}

// New connects to databaseURL and ensures the bookmark table exists.
func New(ctx context.Context, databaseURL, table string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	s := newStore(pool, table)
	s.close = pool.Close

	if err := s.EnsureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func newStore(db querier, table string) *Store {
	return &Store{
		db:      db,
		queries: buildQueries(table),
		close:   func() {},
	}
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("pinging postgres: %w", err)
	}
	return nil
}

// EnsureTable creates the bookmark table when missing.
func (s *Store) EnsureTable(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, s.queries.create); err != nil {
		return fmt.Errorf("creating bookmark table: %w", err)
	}
	return nil
}

// Put upserts bookmark. Every column is overwritten.
func (s *Store) Put(ctx context.Context, bookmark *domain.Bookmark) error {
	_, err := s.db.Exec(ctx, s.queries.upsert,
		bookmark.ID, bookmark.Name, bookmark.Description, bookmark.URL)
	if err != nil {
		return fmt.Errorf("upserting bookmark %s: %w", bookmark.ID, err)
	}
	return nil
}

// Delete removes the row for id. Zero affected rows is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, s.queries.remove, id); err != nil {
		return fmt.Errorf("deleting bookmark %s: %w", id, err)
	}
	return nil
}

// Get retrieves a bookmark by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.Bookmark, error) {
	var b domain.Bookmark
	err := s.db.QueryRow(ctx, s.queries.get, id).Scan(&b.ID, &b.Name, &b.Description, &b.URL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("querying bookmark: %w", err)
	}
	return &b, nil
}
