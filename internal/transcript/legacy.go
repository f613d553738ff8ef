package transcript

// legacyKeys maps the camelCase field vocabulary found in older stored
// payloads onto the canonical snake_case keys. The adapter is applied only
// at the persistence boundary; core logic speaks canonical keys.
var legacyKeys = map[string]ContactFieldKey{
	"firstName":        FieldFirstName,
	"lastName":         FieldLastName,
	"phone":            FieldPhone,
	"email":            FieldEmail,
	"timezone":         FieldTimezone,
	"bookingConfirmed": FieldBookingConfirmed,
	"classDateTime":    FieldClassDateTime,
}

// CanonicalKey resolves a possibly-legacy field key to its canonical form.
// Canonical keys pass through unchanged. The second return reports whether
// the input named a known field at all.
func CanonicalKey(key string) (ContactFieldKey, bool) {
	switch ContactFieldKey(key) {
	case FieldFirstName, FieldLastName, FieldPhone, FieldEmail,
		FieldClassDateTime, FieldTimezone, FieldBookingConfirmed:
		return ContactFieldKey(key), true
	}
	if canonical, ok := legacyKeys[key]; ok {
		return canonical, true
	}
	return ContactFieldKey(key), false
}

// NormalizeCaptures rewrites legacy keys in place-copied captures to the
// canonical vocabulary. Unknown keys are preserved as-is.
func NormalizeCaptures(captures []FieldCapture) []FieldCapture {
	if len(captures) == 0 {
		return captures
	}
	out := make([]FieldCapture, len(captures))
	copy(out, captures)
	for i := range out {
		if canonical, ok := CanonicalKey(string(out[i].Key)); ok {
			out[i].Key = canonical
		}
	}
	return out
}
