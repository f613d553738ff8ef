package extractor

import (
	"regexp"
	"strings"

	"github.com/MikeSquared-Agency/cadence/internal/transcript"
)

var (
	emailRe    = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe    = regexp.MustCompile(`\+?[0-9][0-9\s\-().]{6,}[0-9]`)
	introRe    = regexp.MustCompile(`\b(?i:my name is|i am|i'm|it's)\s+([A-Z][a-z]+)(?:\s+([A-Z][a-z]+))?`)
	bareNameRe = regexp.MustCompile(`^[A-Z][a-z]{2,}$`)
	tzRe       = regexp.MustCompile(`\b(?:EST|CST|PST|MST|UTC|GMT)\b`)
)

// Extract scans caller turns for structured contact data. Agent turns are
// ignored. No deduplication happens here; repeated matches across turns all
// appear in the output, each tagged with its originating turn id. Output is
// deterministic for a given transcript.
func Extract(turns []transcript.Turn) []transcript.FieldCapture {
	var captures []transcript.FieldCapture
	for _, t := range turns {
		if t.Role != transcript.RoleCaller {
			continue
		}
		captures = append(captures, scanTurn(t)...)
	}
	return captures
}

func scanTurn(t transcript.Turn) []transcript.FieldCapture {
	var out []transcript.FieldCapture
	lower := strings.ToLower(t.Text)

	if email := FirstEmail(t.Text); email != "" {
		out = append(out, capture(transcript.FieldEmail, email, t.ID))
	}

	if phone := FirstPhone(t.Text); phone != "" {
		out = append(out, capture(transcript.FieldPhone, phone, t.ID))
	}

	if first, last, ok := nameFromText(t.Text); ok {
		out = append(out, capture(transcript.FieldFirstName, first, t.ID))
		if last != "" {
			out = append(out, capture(transcript.FieldLastName, last, t.ID))
		}
	}

	// A timezone mention flags the whole utterance as the scheduling hint.
	if tzRe.MatchString(t.Text) || strings.Contains(lower, "time zone") {
		out = append(out, capture(transcript.FieldTimezone, strings.TrimSpace(t.Text), t.ID))
	}

	if strings.Contains(lower, "confirm") || strings.Contains(lower, "booked") || strings.Contains(lower, "locked in") {
		out = append(out, capture(transcript.FieldBookingConfirmed, strings.TrimSpace(t.Text), t.ID))
	}

	return out
}

// nonNameWords are capitalized single-word utterances that are greetings or
// fillers, not answers to a name question.
var nonNameWords = map[string]bool{
	"hello": true, "thanks": true, "okay": true, "yes": true, "yeah": true,
	"sure": true, "bye": true, "good": true, "great": true, "perfect": true,
	"awesome": true, "please": true, "maybe": true, "today": true,
	"tomorrow": true, "morning": true, "afternoon": true, "evening": true,
}

// nameFromText prefers an explicit self-introduction. Failing that, a bare
// single capitalized word of three or more letters is treated as a first
// name, which covers one-word answers to "what's your first name?".
func nameFromText(text string) (first, last string, ok bool) {
	if m := introRe.FindStringSubmatch(text); m != nil {
		return m[1], m[2], true
	}
	trimmed := strings.TrimRight(strings.TrimSpace(text), ".!,")
	if len(strings.Fields(trimmed)) == 1 && bareNameRe.MatchString(trimmed) && !nonNameWords[strings.ToLower(trimmed)] {
		return trimmed, "", true
	}
	return "", "", false
}

// FirstEmail returns the first email-shaped substring of text, or "".
func FirstEmail(text string) string {
	return emailRe.FindString(text)
}

// FirstPhone returns the first phone-shaped substring of text, or "".
// The pattern is deliberately relaxed; a candidate must still carry at
// least 8 digits to count.
func FirstPhone(text string) string {
	for _, candidate := range phoneRe.FindAllString(text, -1) {
		if digitCount(candidate) >= 8 {
			return strings.TrimSpace(candidate)
		}
	}
	return ""
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func capture(key transcript.ContactFieldKey, value, turnID string) transcript.FieldCapture {
	return transcript.FieldCapture{
		Key:    key,
		Value:  value,
		TurnID: turnID,
		Valid:  true,
		Source: transcript.SourceDetected,
	}
}
