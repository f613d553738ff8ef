package detector

import (
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/cadence/internal/promptspec"
	"github.com/MikeSquared-Agency/cadence/internal/transcript"
)

// fieldKeywordGroups maps each contact field to the phrasings an agent uses
// when asking for it. Referencing more than one group in a single utterance
// is a multiple_fields violation.
var fieldKeywordGroups = map[transcript.ContactFieldKey][]string{
	transcript.FieldFirstName:     {"first name", "your name"},
	transcript.FieldLastName:      {"last name", "surname"},
	transcript.FieldPhone:         {"phone"},
	transcript.FieldEmail:         {"email", "e-mail"},
	transcript.FieldClassDateTime: {"what day", "what time", "when are you", "schedule a"},
}

// Validate checks a single agent utterance against the active spec and the
// conversation so far. A nil spec disables validation entirely. Each check
// appends independently; no ordering is guaranteed across types.
func Validate(response, turnID string, spec *promptspec.Spec, history []transcript.Turn) []Violation {
	if spec == nil {
		return nil
	}

	var violations []Violation

	if words := len(strings.Fields(response)); spec.MaxWordsPerTurn > 0 && words > spec.MaxWordsPerTurn {
		violations = append(violations, Violation{
			Type:         ViolationWordCount,
			Severity:     SeverityHigh,
			Message:      fmt.Sprintf("response is %d words, limit is %d", words, spec.MaxWordsPerTurn),
			OriginalText: response,
			SuggestedFix: truncateToBudget(response, spec.MaxWordsPerTurn),
			TurnID:       turnID,
		})
	}

	referenced := referencedFieldGroups(response)

	// One-at-a-time cadence breaks on a second question mark, and also on a
	// single question that bundles several fields: that is more than one ask
	// even when punctuated as one sentence.
	if spec.QuestionCadence == promptspec.CadenceOneAtATime &&
		(strings.Count(response, "?") > 1 || len(referenced) > 1) {
		violations = append(violations, Violation{
			Type:         ViolationCadence,
			Severity:     SeverityCritical,
			Message:      "asked more than one question; cadence policy is one at a time",
			OriginalText: response,
			SuggestedFix: NextFieldQuestion(history, spec),
			TurnID:       turnID,
		})
	}

	if len(referenced) > 1 {
		violations = append(violations, Violation{
			Type:         ViolationMultipleFields,
			Severity:     SeverityCritical,
			Message:      fmt.Sprintf("requested %d fields in one turn: %s", len(referenced), strings.Join(referenced, ", ")),
			OriginalText: response,
			SuggestedFix: NextFieldQuestion(history, spec),
			TurnID:       turnID,
		})
	}

	lower := strings.ToLower(response)
	for _, phrase := range spec.DisallowedPhrases {
		if phrase == "" || !strings.Contains(lower, strings.ToLower(phrase)) {
			continue
		}
		violations = append(violations, Violation{
			Type:         ViolationDisallowedPhrase,
			Severity:     SeverityMedium,
			Message:      fmt.Sprintf("contains disallowed phrase %q", phrase),
			OriginalText: response,
			SuggestedFix: excisePhrase(response, phrase, history, spec),
			TurnID:       turnID,
		})
	}

	return violations
}

// referencedFieldGroups returns the distinct field groups named in the
// response, in a stable order.
func referencedFieldGroups(response string) []string {
	lower := strings.ToLower(response)
	ordered := []transcript.ContactFieldKey{
		transcript.FieldFirstName,
		transcript.FieldLastName,
		transcript.FieldPhone,
		transcript.FieldEmail,
		transcript.FieldClassDateTime,
	}
	var referenced []string
	for _, key := range ordered {
		for _, kw := range fieldKeywordGroups[key] {
			if strings.Contains(lower, kw) {
				referenced = append(referenced, string(key))
				break
			}
		}
	}
	return referenced
}
