package golden

import (
	"context"
	"fmt"
	"sort"

	"github.com/MikeSquared-Agency/cadence/internal/promptspec"
	"github.com/MikeSquared-Agency/cadence/internal/rubric"
	"github.com/MikeSquared-Agency/cadence/internal/transcript"
)

// ReplayStatus classifies one sample's regression outcome.
type ReplayStatus string

const (
	StatusPass ReplayStatus = "pass"
	StatusWarn ReplayStatus = "warn"
	StatusFail ReplayStatus = "fail"
)

// confidenceDropTolerance is how far confidence may fall before a replay
// is downgraded to warn.
const confidenceDropTolerance = 5

// RubricChange records a per-check score movement between the pinned
// expectation and the live evaluator. A nil value means unscored.
type RubricChange struct {
	Key    rubric.Key `json:"key"`
	Before *int       `json:"before"`
	After  *int       `json:"after"`
}

// ReplaySummary is the diff of one golden sample against the live evaluator.
type ReplaySummary struct {
	AgentID          string                        `json:"agent_id"`
	PromptHash       string                        `json:"prompt_hash"`
	Niche            string                        `json:"niche"`
	Status           ReplayStatus                  `json:"status"`
	MissingFields    []transcript.ContactFieldKey  `json:"missing_fields,omitempty"`
	NewFields        []transcript.ContactFieldKey  `json:"new_fields,omitempty"`
	RubricChanges    []RubricChange                `json:"rubric_changes,omitempty"`
	ConfidenceBefore int                           `json:"confidence_before"`
	ConfidenceAfter  int                           `json:"confidence_after"`
}

// Replay re-runs the evaluator over every stored sample matching the query
// and classifies each: fail when a previously captured field went missing,
// warn when a rubric check regressed or confidence dropped beyond tolerance,
// pass otherwise.
func Replay(ctx context.Context, store Store, q Query, spec *promptspec.Spec, version string) ([]ReplaySummary, error) {
	samples, err := store.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list golden samples: %w", err)
	}

	summaries := make([]ReplaySummary, 0, len(samples))
	for _, sample := range samples {
		eval := rubric.Evaluate("golden-replay", sample.Transcript, version, rubric.Options{
			AgentID: sample.AgentID,
			Niche:   sample.Niche,
			Spec:    spec,
		})
		summaries = append(summaries, diff(sample, &eval))
	}
	return summaries, nil
}

func diff(sample Sample, eval *rubric.SessionEvaluation) ReplaySummary {
	summary := ReplaySummary{
		AgentID:          sample.AgentID,
		PromptHash:       sample.PromptHash,
		Niche:            sample.Niche,
		ConfidenceBefore: sample.Expected.Confidence,
		ConfidenceAfter:  eval.Confidence,
	}

	expectedKeys := transcript.CapturedKeys(sample.Expected.CollectedFields)
	actualKeys := transcript.CapturedKeys(eval.CollectedFields)
	for key := range expectedKeys {
		if !actualKeys[key] {
			summary.MissingFields = append(summary.MissingFields, key)
		}
	}
	for key := range actualKeys {
		if !expectedKeys[key] {
			summary.NewFields = append(summary.NewFields, key)
		}
	}
	sortKeys(summary.MissingFields)
	sortKeys(summary.NewFields)

	regressed := false
	for _, expected := range sample.Expected.Rubric {
		if expected.Score == nil {
			continue
		}
		actual := eval.RubricScore(expected.Key)
		// Regression is a dropped score, or a check that lost its score
		// entirely.
		if actual == nil || *actual < *expected.Score {
			regressed = true
			summary.RubricChanges = append(summary.RubricChanges, RubricChange{
				Key:    expected.Key,
				Before: expected.Score,
				After:  actual,
			})
		}
	}

	sort.Slice(summary.RubricChanges, func(i, j int) bool {
		return summary.RubricChanges[i].Key < summary.RubricChanges[j].Key
	})

	switch {
	case len(summary.MissingFields) > 0:
		summary.Status = StatusFail
	case regressed || sample.Expected.Confidence-eval.Confidence > confidenceDropTolerance:
		summary.Status = StatusWarn
	default:
		summary.Status = StatusPass
	}
	return summary
}

func sortKeys(keys []transcript.ContactFieldKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
}
