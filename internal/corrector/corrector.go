package corrector

import (
	"sort"

	"github.com/MikeSquared-Agency/cadence/internal/detector"
	"github.com/MikeSquared-Agency/cadence/internal/promptspec"
	"github.com/MikeSquared-Agency/cadence/internal/transcript"
)

// Result is the outcome of an auto-correction pass over one agent utterance.
type Result struct {
	HasViolations        bool                 `json:"has_violations"`
	Violations           []detector.Violation `json:"violations"`
	CorrectedResponse    string               `json:"corrected_response,omitempty"`
	AppliedAutomatically bool                 `json:"applied_automatically"`
}

// AutoCorrect picks the replacement utterance for a set of detected
// violations. Violations are returned sorted most severe first, and the
// single highest-severity violation's precomputed fix wins. Fixes were
// generated at detection time; history and spec are only needed as a
// fallback when a violation arrives without one.
func AutoCorrect(violations []detector.Violation, history []transcript.Turn, spec *promptspec.Spec) Result {
	if len(violations) == 0 {
		return Result{HasViolations: false, Violations: []detector.Violation{}}
	}

	sorted := make([]detector.Violation, len(violations))
	copy(sorted, violations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return detector.SeverityRank(sorted[i].Severity) > detector.SeverityRank(sorted[j].Severity)
	})

	corrected := sorted[0].SuggestedFix
	if corrected == "" {
		corrected = detector.NextFieldQuestion(history, spec)
	}

	return Result{
		HasViolations:        true,
		Violations:           sorted,
		CorrectedResponse:    corrected,
		AppliedAutomatically: true,
	}
}
