package detector

import (
	"regexp"
	"strings"

	"github.com/MikeSquared-Agency/cadence/internal/extractor"
	"github.com/MikeSquared-Agency/cadence/internal/promptspec"
	"github.com/MikeSquared-Agency/cadence/internal/transcript"
)

// fieldQuestions are the canned single-field replacement questions, one per
// collectable field, each well under any sane word budget.
var fieldQuestions = map[transcript.ContactFieldKey]string{
	transcript.FieldFirstName:     "What's your first name?",
	transcript.FieldLastName:      "And your last name?",
	transcript.FieldPhone:         "What's the best phone number to reach you?",
	transcript.FieldEmail:         "What's your email address?",
	transcript.FieldClassDateTime: "What day and time works best for you?",
}

const allCollectedReply = "Great, I have everything I need. Ready to confirm your booking?"

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// truncateToBudget keeps the first question sentence that fits the word
// budget. Without one, the response is hard-cut at the budget.
func truncateToBudget(response string, maxWords int) string {
	for _, sentence := range splitSentences(response) {
		if !strings.Contains(sentence, "?") {
			continue
		}
		trimmed := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(sentence), "?"))
		if len(strings.Fields(trimmed)) <= maxWords {
			return trimmed + "?"
		}
	}
	words := strings.Fields(response)
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ") + "..."
}

// NextFieldQuestion walks the spec's field order and returns the canned
// question for the first field the caller has not yet provided. With every
// field already collected it moves to booking confirmation instead.
func NextFieldQuestion(history []transcript.Turn, spec *promptspec.Spec) string {
	if spec == nil {
		return ""
	}
	collected := collectedFromHistory(history)
	for _, key := range spec.FieldOrder {
		if collected[key] {
			continue
		}
		if q, ok := fieldQuestions[key]; ok {
			return q
		}
	}
	return allCollectedReply
}

// collectedFromHistory builds a rough already-provided set from caller
// turns. This is a lighter heuristic than the full extractor on purpose: it
// only needs to decide which question to ask next, not to produce captures.
func collectedFromHistory(history []transcript.Turn) map[transcript.ContactFieldKey]bool {
	collected := make(map[transcript.ContactFieldKey]bool)
	for _, t := range history {
		if t.Role != transcript.RoleCaller {
			continue
		}
		if isBareCapitalizedToken(t.Text) {
			collected[transcript.FieldFirstName] = true
		}
		if strings.Contains(t.Text, "@") {
			collected[transcript.FieldEmail] = true
		}
		if extractor.FirstPhone(t.Text) != "" {
			collected[transcript.FieldPhone] = true
		}
		lower := strings.ToLower(t.Text)
		for _, day := range weekdays {
			if strings.Contains(lower, day) {
				collected[transcript.FieldClassDateTime] = true
				break
			}
		}
	}
	return collected
}

var bareTokenRe = regexp.MustCompile(`^[A-Z][a-z]+$`)

func isBareCapitalizedToken(text string) bool {
	trimmed := strings.TrimRight(strings.TrimSpace(text), ".!,")
	fields := strings.Fields(trimmed)
	return len(fields) == 1 && bareTokenRe.MatchString(fields[0])
}

// excisePhrase removes a disallowed phrase and tidies what remains. When the
// cut guts the sentence, fall back to the next-field question rather than
// surface a mangled fragment to the caller.
func excisePhrase(response, phrase string, history []transcript.Turn, spec *promptspec.Spec) string {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(phrase))
	if err != nil {
		return response
	}
	cleaned := re.ReplaceAllString(response, " ")
	cleaned = regexp.MustCompile(`\s+`).ReplaceAllString(cleaned, " ")
	cleaned = regexp.MustCompile(`\s+([,.!?])`).ReplaceAllString(cleaned, "$1")
	cleaned = strings.Trim(cleaned, " ,")
	if !hasLetters(cleaned) {
		return NextFieldQuestion(history, spec)
	}
	return cleaned
}

func hasLetters(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

// splitSentences breaks text on terminal punctuation, keeping the
// terminator with its sentence.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
