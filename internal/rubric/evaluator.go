package rubric

import (
	"fmt"
	"math"
	"strings"

	"github.com/MikeSquared-Agency/cadence/internal/extractor"
	"github.com/MikeSquared-Agency/cadence/internal/promptspec"
	"github.com/MikeSquared-Agency/cadence/internal/transcript"
)

// Options carries the optional inputs to an evaluation. A nil Spec falls
// back to the baseline scoring rules.
type Options struct {
	AgentID string
	Niche   string
	Spec    *promptspec.Spec
}

var (
	bookingIntentWords = []string{"trial", "class", "schedule", "booking"}
	affirmativeWords   = []string{"yes", "works", "okay", "confirm"}
	fieldAskWords      = []string{"first name", "your name", "email", "phone"}
	verificationWords  = []string{"confirm", "verify", "spell", "email"}
	objectionWords     = []string{"price", "too expensive", "not interested", "busy"}
	objectionReplies   = []string{"understand", "no problem", "we can", "option"}
)

// Evaluate scores a full transcript against the six-check rubric. It is a
// pure function of its inputs: no randomness, no network, and the input
// transcript is never mutated. Evaluating the same transcript twice yields
// identical rubric scores and confidence.
func Evaluate(conversationID string, turns []transcript.Turn, version string, opts Options) SessionEvaluation {
	captures := extractor.Extract(turns)

	scores := []Score{
		scoreFieldCollection(captures, opts.Spec),
		scoreBookingRules(turns),
		toneScore(),
		scoreObjectionHandling(turns),
		scoreQuestionCadence(turns),
		scoreVerification(turns),
	}

	eval := SessionEvaluation{
		ConversationID:  conversationID,
		AgentID:         opts.AgentID,
		Niche:           opts.Niche,
		CollectedFields: captures,
		Rubric:          scores,
		Confidence:      confidence(scores),
		Version:         version,
		Transcript:      append([]transcript.Turn(nil), turns...),
	}

	// Empty transcripts get no timestamps rather than "now"; a fabricated
	// wall-clock time would break evaluation idempotence.
	if len(turns) > 0 {
		eval.StartedAt = turns[0].TS
		eval.EndedAt = turns[len(turns)-1].TS
	}

	return eval
}

// confidence is the percentage of available rubric points earned, counting
// only checks that applied. No applicable checks means confidence 0.
func confidence(scores []Score) int {
	sum, count := 0, 0
	for _, s := range scores {
		if s.Score == nil {
			continue
		}
		sum += *s.Score
		count++
	}
	if count == 0 {
		return 0
	}
	return int(math.Round(100 * float64(sum) / float64(5*count)))
}

// scoreFieldCollection passes when at least one identity field (first name,
// phone, email) was captured. With a spec present the identity set narrows
// to the fields the spec actually requires.
func scoreFieldCollection(captures []transcript.FieldCapture, spec *promptspec.Spec) Score {
	identity := map[transcript.ContactFieldKey]bool{
		transcript.FieldFirstName: true,
		transcript.FieldPhone:     true,
		transcript.FieldEmail:     true,
	}
	if spec != nil {
		narrowed := make(map[transcript.ContactFieldKey]bool)
		for _, k := range spec.RequiredFields {
			if identity[k] {
				narrowed[k] = true
			}
		}
		if len(narrowed) > 0 {
			identity = narrowed
		}
	}

	var evidence []string
	for _, c := range captures {
		if identity[c.Key] {
			evidence = append(evidence, c.TurnID)
		}
	}
	if len(evidence) > 0 {
		return Score{Key: KeyFieldCollection, Score: scored(scorePass),
			Notes:           fmt.Sprintf("captured %d identity value(s)", len(evidence)),
			EvidenceTurnIDs: evidence}
	}
	return Score{Key: KeyFieldCollection, Score: scored(scoreFail),
		Notes: "no identity field captured"}
}

// scoreBookingRules passes when an agent turn shows scheduling intent and a
// later caller turn affirms it.
func scoreBookingRules(turns []transcript.Turn) Score {
	for i, t := range turns {
		if t.Role != transcript.RoleAgent || !containsAny(t.Text, bookingIntentWords) {
			continue
		}
		for _, later := range turns[i+1:] {
			if later.Role == transcript.RoleCaller && containsAny(later.Text, affirmativeWords) {
				return Score{Key: KeyBookingRules, Score: scored(scorePass),
					Notes:           "scheduling offered and affirmed",
					EvidenceTurnIDs: []string{t.ID, later.ID}}
			}
		}
	}
	return Score{Key: KeyBookingRules, Score: scored(scoreFail),
		Notes: "no affirmed scheduling attempt found"}
}

func toneScore() Score {
	return Score{Key: KeyTone, Score: nil, Notes: "tone is manual-review only, not auto-scored"}
}

// scoreObjectionHandling is conditional: with no objection in the call it is
// unscored. With one, the agent must acknowledge or offer a way forward in a
// later turn.
func scoreObjectionHandling(turns []transcript.Turn) Score {
	objectionIdx := -1
	var objectionTurn string
	for i, t := range turns {
		if containsAny(t.Text, objectionWords) {
			objectionIdx = i
			objectionTurn = t.ID
			break
		}
	}
	if objectionIdx < 0 {
		return Score{Key: KeyObjectionHandling, Score: nil, Notes: "Not tested in this call"}
	}
	for _, t := range turns[objectionIdx+1:] {
		if t.Role == transcript.RoleAgent && containsAny(t.Text, objectionReplies) {
			return Score{Key: KeyObjectionHandling, Score: scored(scorePass),
				Notes:           "objection acknowledged",
				EvidenceTurnIDs: []string{objectionTurn, t.ID}}
		}
	}
	return Score{Key: KeyObjectionHandling, Score: scored(scoreFail),
		Notes:           "objection raised but never addressed",
		EvidenceTurnIDs: []string{objectionTurn}}
}

// scoreQuestionCadence is a presence check: did the agent ask for an
// identity field at all. One-at-a-time discipline is enforced per-utterance
// by the violation detector, not here.
func scoreQuestionCadence(turns []transcript.Turn) Score {
	for _, t := range turns {
		if t.Role == transcript.RoleAgent && containsAny(t.Text, fieldAskWords) {
			return Score{Key: KeyQuestionCadence, Score: scored(scorePass),
				Notes:           "agent asked for contact data",
				EvidenceTurnIDs: []string{t.ID}}
		}
	}
	return Score{Key: KeyQuestionCadence, Score: scored(scoreFail),
		Notes: "agent never asked for contact data"}
}

func scoreVerification(turns []transcript.Turn) Score {
	for _, t := range turns {
		if containsAny(t.Text, verificationWords) {
			return Score{Key: KeyVerification, Score: scored(scorePass),
				Notes:           "verification language present",
				EvidenceTurnIDs: []string{t.ID}}
		}
	}
	return Score{Key: KeyVerification, Score: scored(scoreFail),
		Notes: "no verification language found"}
}

func containsAny(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
