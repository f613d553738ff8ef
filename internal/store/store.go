package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres-backed persistence layer. It implements
// session.Repository and golden.Store over two JSONB payload tables, so the
// stored format stays byte-compatible with the JSON the core emits.
type Store struct {
	pool        *pgxpool.Pool
	maxSessions int
	logger      *slog.Logger
}

func New(ctx context.Context, databaseURL string, maxSessions int, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// The database may still be coming up when we are; give it a few tries.
	ping := func() error { return pool.Ping(ctx) }
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(ping, policy); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool, maxSessions: maxSessions, logger: logger}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the payload tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS voice_sessions (
			conversation_id text PRIMARY KEY,
			payload jsonb NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("create voice_sessions: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS golden_samples (
			agent_id text NOT NULL,
			prompt_hash text NOT NULL,
			niche text NOT NULL,
			payload jsonb NOT NULL,
			pinned_at timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (agent_id, prompt_hash, niche)
		)`)
	if err != nil {
		return fmt.Errorf("create golden_samples: %w", err)
	}
	return nil
}
