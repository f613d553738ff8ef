package session

import (
	"context"

	"github.com/MikeSquared-Agency/cadence/internal/rubric"
)

// Repository persists session evaluations keyed by conversation id. A
// missing id is not an error: Get returns (nil, nil) and callers treat it
// as "nothing to update". Implementations bound total retained sessions,
// evicting the oldest first.
type Repository interface {
	Get(ctx context.Context, conversationID string) (*rubric.SessionEvaluation, error)
	Upsert(ctx context.Context, eval *rubric.SessionEvaluation) error
	ListSessions(ctx context.Context, limit int) ([]rubric.SessionEvaluation, error)
	Clear(ctx context.Context) error
}
