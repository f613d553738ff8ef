package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/cadence/internal/rubric"
)

// Get loads one session evaluation. Missing ids return (nil, nil). A
// corrupt payload is logged and treated as absent; the store fails open to
// empty rather than surfacing unparseable state.
func (s *Store) Get(ctx context.Context, conversationID string) (*rubric.SessionEvaluation, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM voice_sessions WHERE conversation_id = $1`,
		conversationID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", conversationID, err)
	}

	var eval rubric.SessionEvaluation
	if err := json.Unmarshal(payload, &eval); err != nil {
		s.logger.Warn("corrupt session payload, treating as absent",
			"conversation_id", conversationID, "error", err)
		return nil, nil
	}
	rubric.NormalizeLegacy(&eval)
	return &eval, nil
}

// Upsert writes a session evaluation by conversation id and trims retained
// sessions down to the configured cap, oldest first.
func (s *Store) Upsert(ctx context.Context, eval *rubric.SessionEvaluation) error {
	payload, err := json.Marshal(eval)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO voice_sessions (conversation_id, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (conversation_id)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		eval.ConversationID, payload,
	)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", eval.ConversationID, err)
	}

	if s.maxSessions > 0 {
		_, err = s.pool.Exec(ctx, `
			DELETE FROM voice_sessions WHERE conversation_id NOT IN (
				SELECT conversation_id FROM voice_sessions
				ORDER BY updated_at DESC LIMIT $1
			)`, s.maxSessions)
		if err != nil {
			return fmt.Errorf("trim sessions: %w", err)
		}
	}
	return nil
}

// ListSessions returns stored evaluations, newest first. Corrupt rows are skipped
// with a warning.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]rubric.SessionEvaluation, error) {
	if limit <= 0 {
		limit = s.maxSessions
	}
	rows, err := s.pool.Query(ctx, `
		SELECT conversation_id, payload FROM voice_sessions
		ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []rubric.SessionEvaluation
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		var eval rubric.SessionEvaluation
		if err := json.Unmarshal(payload, &eval); err != nil {
			s.logger.Warn("corrupt session payload, skipping", "conversation_id", id, "error", err)
			continue
		}
		rubric.NormalizeLegacy(&eval)
		out = append(out, eval)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return out, nil
}

// Clear drops all stored sessions.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM voice_sessions`); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	return nil
}
