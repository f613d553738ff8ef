package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/cadence/internal/outbox"
	"github.com/MikeSquared-Agency/cadence/internal/rubric"
	"github.com/MikeSquared-Agency/cadence/internal/transcript"
)

// Manager ties evaluation to persistence and the best-effort event stream.
// The outbox may be nil; everything still works, just without remote sync.
// All writes funnel through one mutex held across the full load-modify-save
// sequence, so concurrent corrections against the same session cannot lose
// updates even though the repository only serializes individual calls.
type Manager struct {
	mu      sync.Mutex
	repo    Repository
	outbox  *outbox.Client
	version string
	logger  *slog.Logger
}

func NewManager(repo Repository, ob *outbox.Client, version string, logger *slog.Logger) *Manager {
	return &Manager{repo: repo, outbox: ob, version: version, logger: logger}
}

// EvaluateAndStore scores the transcript, upserts the result by conversation
// id, and emits an evaluated event. Persistence failure is the only error;
// a failed event publish is logged and swallowed.
func (m *Manager) EvaluateAndStore(ctx context.Context, conversationID string, turns []transcript.Turn, opts rubric.Options) (*rubric.SessionEvaluation, error) {
	eval := rubric.Evaluate(conversationID, turns, m.version, opts)

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-evaluating an already-corrected session must not reset its
	// correction history.
	prior, err := m.repo.Get(ctx, conversationID)
	if err != nil {
		m.logger.Warn("prior session load failed, correction history may reset",
			"conversation_id", conversationID, "error", err)
	}
	if prior != nil {
		eval.CorrectionsApplied = prior.CorrectionsApplied
		eval.Corrections = prior.Corrections
	}

	if err := m.repo.Upsert(ctx, &eval); err != nil {
		return nil, fmt.Errorf("persist evaluation: %w", err)
	}

	m.emit(outbox.SubjectEvaluated, &eval)
	return &eval, nil
}

// CorrectionPatch is a manual override against a stored session. All parts
// are optional; an empty patch still counts as one applied correction.
type CorrectionPatch struct {
	Fields            map[transcript.ContactFieldKey]string `json:"fields,omitempty"`
	TurnID            string                                `json:"turn_id,omitempty"`
	CorrectedResponse string                                `json:"corrected_response,omitempty"`
}

// ApplyManualCorrections merges field overrides, appends a correction
// record, bumps the counter, and persists. Unknown ids return (nil, nil)
// with a warning; that is the caller's cue that nothing was updated.
func (m *Manager) ApplyManualCorrections(ctx context.Context, conversationID string, patch CorrectionPatch) (*rubric.SessionEvaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	eval, err := m.repo.Get(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if eval == nil {
		m.logger.Warn("correction for unknown conversation", "conversation_id", conversationID)
		return nil, nil
	}

	for key, value := range patch.Fields {
		canonical, _ := transcript.CanonicalKey(string(key))
		eval.CollectedFields = append(eval.CollectedFields, transcript.FieldCapture{
			Key:    canonical,
			Value:  value,
			TurnID: patch.TurnID,
			Valid:  true,
			Source: transcript.SourceManual,
		})
	}

	if patch.TurnID != "" && patch.CorrectedResponse != "" {
		eval.Corrections = append(eval.Corrections, rubric.Correction{
			TurnID:            patch.TurnID,
			CorrectedResponse: patch.CorrectedResponse,
			AppliedAt:         time.Now().UnixMilli(),
		})
	}

	eval.CorrectionsApplied++

	if err := m.repo.Upsert(ctx, eval); err != nil {
		return nil, fmt.Errorf("persist correction: %w", err)
	}

	m.emit(outbox.SubjectCorrected, eval)
	return eval, nil
}

// Get returns the stored evaluation for a conversation, or (nil, nil).
func (m *Manager) Get(ctx context.Context, conversationID string) (*rubric.SessionEvaluation, error) {
	return m.repo.Get(ctx, conversationID)
}

// CorrectedTranscript is the display projection: the stored transcript with
// the latest correction per turn overlaid. The stored turns are untouched,
// so replay and regression checks always see the original text.
func CorrectedTranscript(eval *rubric.SessionEvaluation) []transcript.Turn {
	if eval == nil {
		return nil
	}
	latest := make(map[string]string, len(eval.Corrections))
	for _, c := range eval.Corrections {
		latest[c.TurnID] = c.CorrectedResponse
	}
	out := make([]transcript.Turn, len(eval.Transcript))
	copy(out, eval.Transcript)
	for i := range out {
		if text, ok := latest[out[i].ID]; ok {
			out[i].Text = text
		}
	}
	return out
}

func (m *Manager) emit(subject string, eval *rubric.SessionEvaluation) {
	if m.outbox == nil {
		return
	}
	if err := m.outbox.Publish(subject, eval); err != nil {
		m.logger.Warn("outbox publish failed", "subject", subject,
			"conversation_id", eval.ConversationID, "error", err)
	}
}
