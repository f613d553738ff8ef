package session

import (
	"context"
	"sync"

	"github.com/MikeSquared-Agency/cadence/internal/rubric"
)

// DefaultMaxSessions bounds retained sessions when no cap is configured.
const DefaultMaxSessions = 50

// MemoryRepository is the map-backed Repository used for tests and DB-less
// runs. All access goes through one mutex so concurrent corrections and
// saves cannot lose updates.
type MemoryRepository struct {
	mu       sync.Mutex
	max      int
	order    []string // conversation ids, oldest first
	sessions map[string]*rubric.SessionEvaluation
}

func NewMemoryRepository(maxSessions int) *MemoryRepository {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &MemoryRepository{
		max:      maxSessions,
		sessions: make(map[string]*rubric.SessionEvaluation),
	}
}

func (r *MemoryRepository) Get(ctx context.Context, conversationID string) (*rubric.SessionEvaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	eval, ok := r.sessions[conversationID]
	if !ok {
		return nil, nil
	}
	return eval.Clone(), nil
}

func (r *MemoryRepository) Upsert(ctx context.Context, eval *rubric.SessionEvaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := eval.ConversationID
	if _, exists := r.sessions[id]; !exists {
		r.order = append(r.order, id)
		if len(r.order) > r.max {
			oldest := r.order[0]
			r.order = r.order[1:]
			delete(r.sessions, oldest)
		}
	}
	r.sessions[id] = eval.Clone()
	return nil
}

func (r *MemoryRepository) ListSessions(ctx context.Context, limit int) ([]rubric.SessionEvaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []rubric.SessionEvaluation
	// Newest first.
	for i := len(r.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if eval, ok := r.sessions[r.order[i]]; ok {
			out = append(out, *eval.Clone())
		}
	}
	return out, nil
}

func (r *MemoryRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.sessions = make(map[string]*rubric.SessionEvaluation)
	return nil
}
