package detector

// ViolationType classifies a breach of the active spec.
type ViolationType string

const (
	ViolationCadence          ViolationType = "cadence"
	ViolationWordCount        ViolationType = "word_count"
	ViolationFieldOrder       ViolationType = "field_order"
	ViolationDisallowedPhrase ViolationType = "disallowed_phrase"
	ViolationMultipleFields   ViolationType = "multiple_fields"
)

// Severity grades a violation for correction priority.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// SeverityRank orders severities: critical > high > medium > low.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Violation is one detected breach in a single agent utterance. Violations
// are produced fresh per validation and are not persisted; only a derived
// correction is. SuggestedFix is computed at detection time.
type Violation struct {
	Type         ViolationType `json:"type"`
	Severity     Severity      `json:"severity"`
	Message      string        `json:"message"`
	OriginalText string        `json:"original_text"`
	SuggestedFix string        `json:"suggested_fix"`
	TurnID       string        `json:"turn_id"`
}
