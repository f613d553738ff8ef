package golden

import (
	"context"
	"sync"

	"github.com/MikeSquared-Agency/cadence/internal/rubric"
	"github.com/MikeSquared-Agency/cadence/internal/transcript"
)

// Expected is the frozen evaluation output a sample is held against.
type Expected struct {
	CollectedFields []transcript.FieldCapture `json:"collected_fields"`
	Rubric          []rubric.Score            `json:"rubric"`
	Confidence      int                       `json:"confidence"`
}

// Sample is a pinned known-good transcript plus its expected evaluation,
// keyed by (agent id, prompt hash, niche). Samples are created only by an
// operator pinning a result, never automatically.
type Sample struct {
	AgentID    string            `json:"agent_id"`
	PromptHash string            `json:"prompt_hash"`
	Niche      string            `json:"niche"`
	Transcript []transcript.Turn `json:"transcript"`
	Expected   Expected          `json:"expected"`
	PinnedAt   int64             `json:"pinned_at"` // epoch millis
}

// Query filters stored samples; empty fields match everything.
type Query struct {
	AgentID    string `json:"agent_id,omitempty"`
	PromptHash string `json:"prompt_hash,omitempty"`
	Niche      string `json:"niche,omitempty"`
}

func (q Query) matches(s Sample) bool {
	if q.AgentID != "" && q.AgentID != s.AgentID {
		return false
	}
	if q.PromptHash != "" && q.PromptHash != s.PromptHash {
		return false
	}
	if q.Niche != "" && q.Niche != s.Niche {
		return false
	}
	return true
}

// Store persists golden samples. Pin upserts by key.
type Store interface {
	Pin(ctx context.Context, sample Sample) error
	List(ctx context.Context, q Query) ([]Sample, error)
}

type sampleKey struct {
	agentID, promptHash, niche string
}

// MemoryStore is the map-backed Store for tests and DB-less runs.
type MemoryStore struct {
	mu      sync.Mutex
	order   []sampleKey
	samples map[sampleKey]Sample
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{samples: make(map[sampleKey]Sample)}
}

func (s *MemoryStore) Pin(ctx context.Context, sample Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sampleKey{sample.AgentID, sample.PromptHash, sample.Niche}
	if _, exists := s.samples[key]; !exists {
		s.order = append(s.order, key)
	}
	s.samples[key] = sample
	return nil
}

func (s *MemoryStore) List(ctx context.Context, q Query) ([]Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Sample
	for _, key := range s.order {
		if sample, ok := s.samples[key]; ok && q.matches(sample) {
			out = append(out, sample)
		}
	}
	return out, nil
}
