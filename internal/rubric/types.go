package rubric

import (
	"github.com/MikeSquared-Agency/cadence/internal/transcript"
)

// Key names one of the six fixed quality checks.
type Key string

const (
	KeyFieldCollection   Key = "fieldCollection"
	KeyBookingRules      Key = "bookingRules"
	KeyTone              Key = "tone"
	KeyObjectionHandling Key = "objectionHandling"
	KeyQuestionCadence   Key = "questionCadence"
	KeyVerification      Key = "verification"
)

const (
	scorePass = 5
	scoreFail = 2
)

// Score is one rubric check result. A nil Score value means the check did
// not apply to this conversation and is excluded from confidence math.
type Score struct {
	Key             Key      `json:"key"`
	Score           *int     `json:"score"`
	Notes           string   `json:"notes,omitempty"`
	EvidenceTurnIDs []string `json:"evidence_turn_ids,omitempty"`
}

// Correction is a recorded replacement for a turn's text. The original turn
// is never rewritten; display code overlays corrections on the transcript.
type Correction struct {
	TurnID            string `json:"turn_id"`
	CorrectedResponse string `json:"corrected_response"`
	AppliedAt         int64  `json:"applied_at"` // epoch millis
}

// SessionEvaluation is the full scoring record for one conversation.
// Identity is ConversationID; re-evaluating the same id upserts.
type SessionEvaluation struct {
	ConversationID     string                    `json:"conversation_id"`
	AgentID            string                    `json:"agent_id,omitempty"`
	Niche              string                    `json:"niche,omitempty"`
	StartedAt          int64                     `json:"started_at,omitempty"`
	EndedAt            int64                     `json:"ended_at,omitempty"`
	CollectedFields    []transcript.FieldCapture `json:"collected_fields"`
	Rubric             []Score                   `json:"rubric"`
	Confidence         int                       `json:"confidence"`
	CorrectionsApplied int                       `json:"corrections_applied"`
	Version            string                    `json:"version"`
	Transcript         []transcript.Turn         `json:"transcript,omitempty"`
	Corrections        []Correction              `json:"corrections,omitempty"`
}

// Clone returns a deep copy, so stored evaluations cannot be mutated through
// shared slices.
func (e *SessionEvaluation) Clone() *SessionEvaluation {
	if e == nil {
		return nil
	}
	out := *e
	out.CollectedFields = append([]transcript.FieldCapture(nil), e.CollectedFields...)
	out.Transcript = append([]transcript.Turn(nil), e.Transcript...)
	out.Corrections = append([]Correction(nil), e.Corrections...)
	out.Rubric = make([]Score, len(e.Rubric))
	for i, s := range e.Rubric {
		out.Rubric[i] = s
		if s.Score != nil {
			v := *s.Score
			out.Rubric[i].Score = &v
		}
		out.Rubric[i].EvidenceTurnIDs = append([]string(nil), s.EvidenceTurnIDs...)
	}
	return &out
}

// RubricScore returns the score for a key, or nil if unscored or absent.
func (e *SessionEvaluation) RubricScore(key Key) *int {
	for _, s := range e.Rubric {
		if s.Key == key {
			return s.Score
		}
	}
	return nil
}

func scored(n int) *int {
	return &n
}
