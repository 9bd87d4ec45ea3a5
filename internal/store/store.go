package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the journal table if it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ticket_runs (
			id          uuid PRIMARY KEY,
			path        text NOT NULL,
			status      text NOT NULL,
			output_file text NOT NULL DEFAULT '',
			error       text NOT NULL DEFAULT '',
			started_at  timestamptz NOT NULL,
			finished_at timestamptz NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create ticket_runs: %w", err)
	}
	return nil
}
