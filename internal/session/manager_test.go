package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/MikeSquared-Agency/cadence/internal/rubric"
	"github.com/MikeSquared-Agency/cadence/internal/transcript"
)

func newTestManager() *Manager {
	return NewManager(NewMemoryRepository(0), nil, "v1", slog.Default())
}

func sampleTurns() []transcript.Turn {
	return []transcript.Turn{
		{ID: "t1", Role: transcript.RoleAgent, Text: "What's your first name?", TS: 1000},
		{ID: "t2", Role: transcript.RoleCaller, Text: "Tony", TS: 2000},
	}
}

func TestEvaluateAndStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	eval, err := m.EvaluateAndStore(ctx, "c1", sampleTurns(), rubric.Options{AgentID: "a1", Niche: "fitness"})
	if err != nil {
		t.Fatalf("EvaluateAndStore: %v", err)
	}
	if eval.ConversationID != "c1" || eval.Version != "v1" {
		t.Errorf("stored eval = %s/%s, want c1/v1", eval.ConversationID, eval.Version)
	}

	loaded, err := m.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded == nil {
		t.Fatal("Get returned nil for a stored session")
	}
	if loaded.Confidence != eval.Confidence {
		t.Errorf("loaded confidence = %d, want %d", loaded.Confidence, eval.Confidence)
	}
}

func TestGet_UnknownConversation(t *testing.T) {
	loaded, err := newTestManager().Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil for unknown id, got %+v", loaded)
	}
}

func TestApplyManualCorrections_IncrementsCounter(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	if _, err := m.EvaluateAndStore(ctx, "c1", sampleTurns(), rubric.Options{}); err != nil {
		t.Fatalf("EvaluateAndStore: %v", err)
	}

	for i := 1; i <= 3; i++ {
		eval, err := m.ApplyManualCorrections(ctx, "c1", CorrectionPatch{})
		if err != nil {
			t.Fatalf("ApplyManualCorrections #%d: %v", i, err)
		}
		if eval.CorrectionsApplied != i {
			t.Errorf("CorrectionsApplied = %d after %d patches", eval.CorrectionsApplied, i)
		}
	}
}

func TestApplyManualCorrections_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	if _, err := m.EvaluateAndStore(ctx, "c1", sampleTurns(), rubric.Options{}); err != nil {
		t.Fatalf("EvaluateAndStore: %v", err)
	}

	const workers = 50
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.ApplyManualCorrections(ctx, "c1", CorrectionPatch{}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("ApplyManualCorrections: %v", err)
	}

	eval, err := m.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// Every call must land: no racing correction may overwrite another.
	if eval.CorrectionsApplied != workers {
		t.Errorf("CorrectionsApplied = %d after %d concurrent patches", eval.CorrectionsApplied, workers)
	}
}

func TestApplyManualCorrections_ConcurrentWithReEvaluation(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	if _, err := m.EvaluateAndStore(ctx, "c1", sampleTurns(), rubric.Options{}); err != nil {
		t.Fatalf("EvaluateAndStore: %v", err)
	}

	const rounds = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := m.ApplyManualCorrections(ctx, "c1", CorrectionPatch{}); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := m.EvaluateAndStore(ctx, "c1", sampleTurns(), rubric.Options{}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent round: %v", err)
	}

	eval, err := m.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// Re-evaluation preserves correction history, so interleaved saves must
	// not drop any of the counted corrections either.
	if eval.CorrectionsApplied != rounds {
		t.Errorf("CorrectionsApplied = %d after %d interleaved patches", eval.CorrectionsApplied, rounds)
	}
}

func TestApplyManualCorrections_UnknownConversation(t *testing.T) {
	eval, err := newTestManager().ApplyManualCorrections(context.Background(), "nope", CorrectionPatch{})
	if err != nil {
		t.Fatalf("ApplyManualCorrections: %v", err)
	}
	if eval != nil {
		t.Errorf("expected nil for unknown id, got %+v", eval)
	}
}

func TestApplyManualCorrections_FieldOverride(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	if _, err := m.EvaluateAndStore(ctx, "c1", sampleTurns(), rubric.Options{}); err != nil {
		t.Fatalf("EvaluateAndStore: %v", err)
	}

	// Legacy camelCase keys are accepted and stored canonically.
	eval, err := m.ApplyManualCorrections(ctx, "c1", CorrectionPatch{
		Fields: map[transcript.ContactFieldKey]string{"firstName": "Anthony"},
		TurnID: "t2",
	})
	if err != nil {
		t.Fatalf("ApplyManualCorrections: %v", err)
	}

	if v, ok := transcript.LatestValue(eval.CollectedFields, transcript.FieldFirstName); !ok || v != "Anthony" {
		t.Errorf("latest first name = %q, want Anthony", v)
	}
	// The detected capture is kept alongside the manual override.
	var sources []transcript.CaptureSource
	for _, c := range eval.CollectedFields {
		if c.Key == transcript.FieldFirstName {
			sources = append(sources, c.Source)
		}
	}
	if len(sources) != 2 || sources[0] != transcript.SourceDetected || sources[1] != transcript.SourceManual {
		t.Errorf("capture sources = %v, want [detected manual]", sources)
	}
}

func TestApplyManualCorrections_TranscriptOverlay(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	if _, err := m.EvaluateAndStore(ctx, "c1", sampleTurns(), rubric.Options{}); err != nil {
		t.Fatalf("EvaluateAndStore: %v", err)
	}

	eval, err := m.ApplyManualCorrections(ctx, "c1", CorrectionPatch{
		TurnID:            "t1",
		CorrectedResponse: "May I have your first name?",
	})
	if err != nil {
		t.Fatalf("ApplyManualCorrections: %v", err)
	}
	if len(eval.Corrections) != 1 {
		t.Fatalf("corrections = %d, want 1", len(eval.Corrections))
	}

	overlaid := CorrectedTranscript(eval)
	if overlaid[0].Text != "May I have your first name?" {
		t.Errorf("overlay text = %q", overlaid[0].Text)
	}
	// The stored transcript keeps the original wording.
	if eval.Transcript[0].Text != "What's your first name?" {
		t.Errorf("stored text mutated: %q", eval.Transcript[0].Text)
	}
	if overlaid[1].Text != "Tony" {
		t.Errorf("untouched turn changed: %q", overlaid[1].Text)
	}
}

func TestEvaluateAndStore_PreservesCorrectionsOnReEvaluation(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	if _, err := m.EvaluateAndStore(ctx, "c1", sampleTurns(), rubric.Options{}); err != nil {
		t.Fatalf("EvaluateAndStore: %v", err)
	}
	if _, err := m.ApplyManualCorrections(ctx, "c1", CorrectionPatch{
		TurnID:            "t1",
		CorrectedResponse: "corrected",
	}); err != nil {
		t.Fatalf("ApplyManualCorrections: %v", err)
	}

	eval, err := m.EvaluateAndStore(ctx, "c1", sampleTurns(), rubric.Options{})
	if err != nil {
		t.Fatalf("re-evaluate: %v", err)
	}
	if eval.CorrectionsApplied != 1 {
		t.Errorf("CorrectionsApplied = %d after re-evaluation, want 1", eval.CorrectionsApplied)
	}
	if len(eval.Corrections) != 1 {
		t.Errorf("corrections = %d after re-evaluation, want 1", len(eval.Corrections))
	}
}

// flakyGetRepo fails Get a set number of times, then delegates.
type flakyGetRepo struct {
	*MemoryRepository
	failures int
}

func (r *flakyGetRepo) Get(ctx context.Context, conversationID string) (*rubric.SessionEvaluation, error) {
	if r.failures > 0 {
		r.failures--
		return nil, fmt.Errorf("store unavailable")
	}
	return r.MemoryRepository.Get(ctx, conversationID)
}

func TestEvaluateAndStore_PriorLoadFailureStillPersists(t *testing.T) {
	ctx := context.Background()
	repo := &flakyGetRepo{MemoryRepository: NewMemoryRepository(0), failures: 1}
	m := NewManager(repo, nil, "v1", slog.Default())

	// The prior-state lookup fails transiently; the evaluation itself must
	// still be stored.
	eval, err := m.EvaluateAndStore(ctx, "c1", sampleTurns(), rubric.Options{})
	if err != nil {
		t.Fatalf("EvaluateAndStore: %v", err)
	}
	if eval == nil {
		t.Fatal("expected a stored evaluation")
	}

	loaded, err := m.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded == nil {
		t.Fatal("evaluation was not persisted after a failed prior load")
	}
}

func TestMemoryRepository_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(3)

	for i := 0; i < 5; i++ {
		eval := rubric.SessionEvaluation{ConversationID: fmt.Sprintf("c%d", i), Version: "v1"}
		if err := repo.Upsert(ctx, &eval); err != nil {
			t.Fatalf("Upsert c%d: %v", i, err)
		}
	}

	for _, id := range []string{"c0", "c1"} {
		if eval, _ := repo.Get(ctx, id); eval != nil {
			t.Errorf("%s should have been evicted", id)
		}
	}
	for _, id := range []string{"c2", "c3", "c4"} {
		if eval, _ := repo.Get(ctx, id); eval == nil {
			t.Errorf("%s should have been retained", id)
		}
	}
}

func TestMemoryRepository_UpsertDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(2)

	for _, id := range []string{"c0", "c1"} {
		if err := repo.Upsert(ctx, &rubric.SessionEvaluation{ConversationID: id}); err != nil {
			t.Fatalf("Upsert %s: %v", id, err)
		}
	}
	// Re-upserting an existing id is an update, not a new entry.
	if err := repo.Upsert(ctx, &rubric.SessionEvaluation{ConversationID: "c0", Confidence: 80}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	eval, _ := repo.Get(ctx, "c1")
	if eval == nil {
		t.Error("c1 was evicted by an update to c0")
	}
	eval, _ = repo.Get(ctx, "c0")
	if eval == nil || eval.Confidence != 80 {
		t.Errorf("c0 update lost: %+v", eval)
	}
}

func TestMemoryRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(10)
	for i := 0; i < 4; i++ {
		if err := repo.Upsert(ctx, &rubric.SessionEvaluation{ConversationID: fmt.Sprintf("c%d", i)}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	out, err := repo.ListSessions(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 2 || out[0].ConversationID != "c3" || out[1].ConversationID != "c2" {
		t.Errorf("List = %v, want [c3 c2]", out)
	}
}

func TestMemoryRepository_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(10)
	if err := repo.Upsert(ctx, &rubric.SessionEvaluation{ConversationID: "c1", Confidence: 50}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	first, _ := repo.Get(ctx, "c1")
	first.Confidence = 99

	second, _ := repo.Get(ctx, "c1")
	if second.Confidence != 50 {
		t.Errorf("stored session mutated through a returned copy: %d", second.Confidence)
	}
}
