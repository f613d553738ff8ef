package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MikeSquared-Agency/cadence/internal/golden"
)

// Pin upserts a golden sample by its (agent id, prompt hash, niche) key.
func (s *Store) Pin(ctx context.Context, sample golden.Sample) error {
	payload, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal golden sample: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO golden_samples (agent_id, prompt_hash, niche, payload, pinned_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (agent_id, prompt_hash, niche)
		DO UPDATE SET payload = EXCLUDED.payload, pinned_at = now()`,
		sample.AgentID, sample.PromptHash, sample.Niche, payload,
	)
	if err != nil {
		return fmt.Errorf("upsert golden sample: %w", err)
	}
	return nil
}

// List returns pinned samples matching the query; empty query fields match
// everything. Corrupt rows are skipped with a warning.
func (s *Store) List(ctx context.Context, q golden.Query) ([]golden.Sample, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payload FROM golden_samples
		WHERE ($1 = '' OR agent_id = $1)
		AND ($2 = '' OR prompt_hash = $2)
		AND ($3 = '' OR niche = $3)
		ORDER BY pinned_at`,
		q.AgentID, q.PromptHash, q.Niche)
	if err != nil {
		return nil, fmt.Errorf("list golden samples: %w", err)
	}
	defer rows.Close()

	var out []golden.Sample
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan golden row: %w", err)
		}
		var sample golden.Sample
		if err := json.Unmarshal(payload, &sample); err != nil {
			s.logger.Warn("corrupt golden payload, skipping", "error", err)
			continue
		}
		out = append(out, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate golden rows: %w", err)
	}
	return out, nil
}
