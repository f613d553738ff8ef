package promptspec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MikeSquared-Agency/cadence/internal/transcript"
)

// Severity orders lint issues for display: error > warning > info.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue categories group related lint rules.
const (
	CategoryFields     = "fields"
	CategoryFieldOrder = "field_order"
	CategoryConfig     = "config"
	CategoryPhrases    = "phrases"
	CategoryPrompt     = "prompt"
	CategoryValues     = "values"
)

// LintIssue is one finding from a spec lint pass.
type LintIssue struct {
	Severity Severity `json:"severity"`
	Category string   `json:"category"`
	Message  string   `json:"message"`
}

// fillerWords are verbose fillers worth disallowing for a voice agent.
var fillerWords = []string{"just", "basically", "actually", "you know", "kind of", "sort of"}

// Lint checks a spec for internal inconsistencies. Rules are independent and
// all may fire at once. If promptText is non-empty it is additionally checked
// for disallowed phrases the prompt itself still contains. Lint is pure.
func Lint(spec Spec, promptText string) []LintIssue {
	var issues []LintIssue

	if len(spec.RequiredFields) == 0 {
		issues = append(issues, LintIssue{SeverityError, CategoryFields,
			"required_fields is empty; the agent has nothing to collect"})
	}

	if len(spec.FieldOrder) != len(spec.RequiredFields) {
		issues = append(issues, LintIssue{SeverityWarning, CategoryFieldOrder,
			fmt.Sprintf("field_order has %d entries but required_fields has %d", len(spec.FieldOrder), len(spec.RequiredFields))})
	}

	if missing := missingFromOrder(spec.RequiredFields, spec.FieldOrder); len(missing) > 0 {
		issues = append(issues, LintIssue{SeverityError, CategoryFieldOrder,
			"required_fields missing from field_order: " + strings.Join(missing, ", ")})
	}

	if spec.MaxWordsPerTurn > 30 {
		issues = append(issues, LintIssue{SeverityWarning, CategoryConfig,
			fmt.Sprintf("max_words_per_turn %d is high for voice; responses over 30 words lose callers", spec.MaxWordsPerTurn)})
	}
	if spec.MaxWordsPerTurn < 10 {
		issues = append(issues, LintIssue{SeverityWarning, CategoryConfig,
			fmt.Sprintf("max_words_per_turn %d is too tight to phrase a full question", spec.MaxWordsPerTurn)})
	}

	if fillers := uncoveredFillers(spec.DisallowedPhrases); len(fillers) > 0 {
		issues = append(issues, LintIssue{SeverityInfo, CategoryPhrases,
			"consider disallowing common fillers: " + strings.Join(fillers, ", ")})
	}

	for _, dup := range duplicatePhrases(spec.DisallowedPhrases) {
		issues = append(issues, LintIssue{SeverityWarning, CategoryPhrases,
			fmt.Sprintf("disallowed_phrases contains %q more than once", dup)})
	}

	if promptText != "" {
		lowerPrompt := strings.ToLower(promptText)
		for _, phrase := range spec.DisallowedPhrases {
			if phrase != "" && strings.Contains(lowerPrompt, strings.ToLower(phrase)) {
				issues = append(issues, LintIssue{SeverityError, CategoryPrompt,
					fmt.Sprintf("prompt text still contains disallowed phrase %q", phrase)})
			}
		}
	}

	if spec.QuestionCadence != CadenceOneAtATime {
		issues = append(issues, LintIssue{SeverityWarning, CategoryConfig,
			fmt.Sprintf("question_cadence %q is not enforceable; only %q is supported", spec.QuestionCadence, CadenceOneAtATime)})
	}

	if !spec.BlockBookingUntilFields {
		issues = append(issues, LintIssue{SeverityInfo, CategoryConfig,
			"block_booking_until_fields is off; the agent may book before collecting contact data"})
	}

	if !spec.Confirmations.RepeatPhone && !spec.Confirmations.SpellEmail {
		issues = append(issues, LintIssue{SeverityWarning, CategoryConfig,
			"no confirmation is enabled; captured phone and email will go unverified"})
	}

	if len(spec.AgentValues) == 0 {
		issues = append(issues, LintIssue{SeverityInfo, CategoryValues,
			"agent_values is empty; tone review has nothing to anchor on"})
	}

	return issues
}

// SortIssues orders issues for display, most severe first. Order within a
// severity is preserved.
func SortIssues(issues []LintIssue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return severityRank(issues[i].Severity) > severityRank(issues[j].Severity)
	})
}

func severityRank(s Severity) int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

func missingFromOrder(required, order []transcript.ContactFieldKey) []string {
	inOrder := make(map[transcript.ContactFieldKey]bool, len(order))
	for _, k := range order {
		inOrder[k] = true
	}
	var missing []string
	for _, k := range required {
		if !inOrder[k] {
			missing = append(missing, string(k))
		}
	}
	return missing
}

// uncoveredFillers returns fillers not already covered by an existing
// disallowed phrase, by case-insensitive substring match in either direction.
func uncoveredFillers(disallowed []string) []string {
	var out []string
	for _, filler := range fillerWords {
		covered := false
		for _, phrase := range disallowed {
			lp := strings.ToLower(phrase)
			if lp != "" && (strings.Contains(lp, filler) || strings.Contains(filler, lp)) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, filler)
		}
	}
	return out
}

func duplicatePhrases(phrases []string) []string {
	seen := make(map[string]bool, len(phrases))
	reported := make(map[string]bool)
	var dups []string
	for _, p := range phrases {
		lower := strings.ToLower(p)
		if seen[lower] && !reported[lower] {
			dups = append(dups, p)
			reported[lower] = true
		}
		seen[lower] = true
	}
	return dups
}
