package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned by GetRun for an unknown ID.
var ErrNotFound = errors.New("run not found")

// TicketRun is one journal row: the outcome of processing one path. The
// event contents and the ticket image are not stored.
type TicketRun struct {
	ID         uuid.UUID `json:"id"`
	Path       string    `json:"path"`
	Status     string    `json:"status"` // written | render_failed | query_failed | write_failed
	OutputFile string    `json:"output_file,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// RecordRun inserts a journal row, replacing a row with the same ID.
func (s *Store) RecordRun(ctx context.Context, r TicketRun) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ticket_runs (id, path, status, output_file, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id)
		DO UPDATE SET
			status = $3,
			output_file = $4,
			error = $5,
			finished_at = $7`,
		r.ID, r.Path, r.Status, r.OutputFile, r.Error, r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// GetRun fetches a journal row by ID.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*TicketRun, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, path, status, output_file, error, started_at, finished_at
		FROM ticket_runs WHERE id = $1`, id)

	var r TicketRun
	err := row.Scan(&r.ID, &r.Path, &r.Status, &r.OutputFile, &r.Error, &r.StartedAt, &r.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &r, nil
}

// RecentRuns returns the latest journal rows, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]TicketRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, path, status, output_file, error, started_at, finished_at
		FROM ticket_runs ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []TicketRun
	for rows.Next() {
		var r TicketRun
		if err := rows.Scan(&r.ID, &r.Path, &r.Status, &r.OutputFile, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
