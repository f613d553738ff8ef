package golden

import (
	"context"
	"testing"

	"github.com/MikeSquared-Agency/cadence/internal/rubric"
	"github.com/MikeSquared-Agency/cadence/internal/transcript"
)

func pinned(t *testing.T, store Store, sample Sample) {
	t.Helper()
	if err := store.Pin(context.Background(), sample); err != nil {
		t.Fatalf("Pin: %v", err)
	}
}

// pinFromEvaluation freezes the live evaluator's own output, which is how an
// operator pins a known-good call.
func pinFromEvaluation(t *testing.T, store Store, agentID, niche string, turns []transcript.Turn) Sample {
	t.Helper()
	eval := rubric.Evaluate("pin", turns, "v1", rubric.Options{AgentID: agentID, Niche: niche})
	sample := Sample{
		AgentID:    agentID,
		PromptHash: "abc123def456",
		Niche:      niche,
		Transcript: turns,
		Expected: Expected{
			CollectedFields: eval.CollectedFields,
			Rubric:          eval.Rubric,
			Confidence:      eval.Confidence,
		},
		PinnedAt: 1700000000000,
	}
	pinned(t, store, sample)
	return sample
}

func goodCall() []transcript.Turn {
	return []transcript.Turn{
		{ID: "t1", Role: transcript.RoleAgent, Text: "What's your first name?", TS: 1000},
		{ID: "t2", Role: transcript.RoleCaller, Text: "Tony", TS: 2000},
		{ID: "t3", Role: transcript.RoleAgent, Text: "Want to schedule a trial class?", TS: 3000},
		{ID: "t4", Role: transcript.RoleCaller, Text: "Yes, that works", TS: 4000},
	}
}

func TestReplay_SelfPinPasses(t *testing.T) {
	store := NewMemoryStore()
	pinFromEvaluation(t, store, "a1", "fitness", goodCall())

	summaries, err := Replay(context.Background(), store, Query{}, nil, "v1")
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("summaries = %d, want 1", len(summaries))
	}
	s := summaries[0]
	if s.Status != StatusPass {
		t.Errorf("status = %s, want pass (%+v)", s.Status, s)
	}
	if len(s.MissingFields) != 0 || len(s.RubricChanges) != 0 {
		t.Errorf("pass summary carries diffs: %+v", s)
	}
	if s.ConfidenceBefore != s.ConfidenceAfter {
		t.Errorf("confidence moved on self-replay: %d -> %d", s.ConfidenceBefore, s.ConfidenceAfter)
	}
}

func TestReplay_MissingFieldFails(t *testing.T) {
	store := NewMemoryStore()
	sample := pinFromEvaluation(t, store, "a1", "fitness", goodCall())

	// The expectation claims an email was captured; the transcript never
	// yields one, so the live evaluator comes up short.
	sample.Expected.CollectedFields = append(sample.Expected.CollectedFields, transcript.FieldCapture{
		Key: transcript.FieldEmail, Value: "tony@stark.io", TurnID: "t2", Valid: true,
		Source: transcript.SourceDetected,
	})
	pinned(t, store, sample)

	summaries, err := Replay(context.Background(), store, Query{}, nil, "v1")
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	s := summaries[0]
	if s.Status != StatusFail {
		t.Errorf("status = %s, want fail", s.Status)
	}
	if len(s.MissingFields) != 1 || s.MissingFields[0] != transcript.FieldEmail {
		t.Errorf("missing fields = %v, want [email]", s.MissingFields)
	}
}

func TestReplay_RubricRegressionWarns(t *testing.T) {
	store := NewMemoryStore()
	sample := pinFromEvaluation(t, store, "a1", "fitness", goodCall())

	// Inflate the pinned expectation for a check the live evaluator fails.
	pass := 5
	for i := range sample.Expected.Rubric {
		if sample.Expected.Rubric[i].Key == rubric.KeyVerification {
			sample.Expected.Rubric[i].Score = &pass
		}
	}
	pinned(t, store, sample)

	summaries, err := Replay(context.Background(), store, Query{}, nil, "v1")
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	s := summaries[0]
	if s.Status != StatusWarn {
		t.Errorf("status = %s, want warn (%+v)", s.Status, s)
	}
	if len(s.RubricChanges) != 1 || s.RubricChanges[0].Key != rubric.KeyVerification {
		t.Fatalf("rubric changes = %+v, want one verification entry", s.RubricChanges)
	}
	change := s.RubricChanges[0]
	if change.Before == nil || *change.Before != 5 || change.After == nil || *change.After != 2 {
		t.Errorf("change = %+v, want 5 -> 2", change)
	}
}

func TestReplay_ConfidenceDropWarns(t *testing.T) {
	store := NewMemoryStore()
	sample := pinFromEvaluation(t, store, "a1", "fitness", goodCall())

	sample.Expected.Confidence += confidenceDropTolerance + 1
	// Clear the rubric so only the confidence rule can trigger.
	sample.Expected.Rubric = nil
	pinned(t, store, sample)

	summaries, err := Replay(context.Background(), store, Query{}, nil, "v1")
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if summaries[0].Status != StatusWarn {
		t.Errorf("status = %s, want warn", summaries[0].Status)
	}
}

func TestReplay_ConfidenceDropWithinTolerance(t *testing.T) {
	store := NewMemoryStore()
	sample := pinFromEvaluation(t, store, "a1", "fitness", goodCall())

	sample.Expected.Confidence += confidenceDropTolerance
	sample.Expected.Rubric = nil
	pinned(t, store, sample)

	summaries, err := Replay(context.Background(), store, Query{}, nil, "v1")
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if summaries[0].Status != StatusPass {
		t.Errorf("status = %s, want pass", summaries[0].Status)
	}
}

func TestReplay_QueryFilters(t *testing.T) {
	store := NewMemoryStore()
	pinFromEvaluation(t, store, "a1", "fitness", goodCall())
	pinFromEvaluation(t, store, "a2", "dental", goodCall())

	summaries, err := Replay(context.Background(), store, Query{AgentID: "a2"}, nil, "v1")
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(summaries) != 1 || summaries[0].AgentID != "a2" {
		t.Errorf("summaries = %+v, want only a2", summaries)
	}
}

func TestMemoryStore_PinUpserts(t *testing.T) {
	store := NewMemoryStore()
	sample := Sample{AgentID: "a1", PromptHash: "h1", Niche: "fitness", PinnedAt: 1}
	pinned(t, store, sample)
	sample.PinnedAt = 2
	pinned(t, store, sample)

	out, err := store.List(context.Background(), Query{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 1 || out[0].PinnedAt != 2 {
		t.Errorf("List = %+v, want one sample pinned at 2", out)
	}
}
