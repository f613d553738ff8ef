package rubric

import "github.com/MikeSquared-Agency/cadence/internal/transcript"

// NormalizeLegacy rewrites the legacy camelCase field keys found in older
// stored payloads to the canonical vocabulary. Repositories call this after
// unmarshalling so core logic only ever sees canonical keys.
func NormalizeLegacy(e *SessionEvaluation) {
	if e == nil {
		return
	}
	e.CollectedFields = transcript.NormalizeCaptures(e.CollectedFields)
}
