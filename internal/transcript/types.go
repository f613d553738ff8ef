package transcript

// Role identifies the speaker of a turn.
type Role string

const (
	RoleAgent  Role = "agent"
	RoleCaller Role = "caller"
)

// Turn is a single utterance in a conversation. Turns are immutable once
// appended; edits are recorded as corrections against the turn id, never as
// in-place rewrites of Text.
type Turn struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	Text string `json:"text"`
	TS   int64  `json:"ts"` // epoch millis
}

// ContactFieldKey is the canonical vocabulary for contact fields collected
// during a call.
type ContactFieldKey string

const (
	FieldFirstName        ContactFieldKey = "first_name"
	FieldLastName         ContactFieldKey = "last_name"
	FieldPhone            ContactFieldKey = "unique_phone_number"
	FieldEmail            ContactFieldKey = "email"
	FieldClassDateTime    ContactFieldKey = "class_date__time"
	FieldTimezone         ContactFieldKey = "timezone"
	FieldBookingConfirmed ContactFieldKey = "booking_confirmed"
)

// CaptureSource distinguishes extractor output from operator overrides.
type CaptureSource string

const (
	SourceDetected CaptureSource = "detected"
	SourceManual   CaptureSource = "manual"
)

// FieldCapture is one detected or manually asserted field value. Multiple
// captures may exist for the same key; LatestValue resolves the winner.
type FieldCapture struct {
	Key    ContactFieldKey `json:"key"`
	Value  string          `json:"value"`
	TurnID string          `json:"turn_id"`
	Valid  bool            `json:"valid"`
	Source CaptureSource   `json:"source"`
}

// LatestValue returns the winning value for a key. Policy is last-write-wins
// in capture order, which follows turn order for detected captures and puts
// manual overrides (appended later) ahead of them.
func LatestValue(captures []FieldCapture, key ContactFieldKey) (string, bool) {
	var value string
	var found bool
	for _, c := range captures {
		if c.Key == key && c.Valid {
			value = c.Value
			found = true
		}
	}
	return value, found
}

// CapturedKeys returns the distinct set of keys present in captures.
func CapturedKeys(captures []FieldCapture) map[ContactFieldKey]bool {
	keys := make(map[ContactFieldKey]bool, len(captures))
	for _, c := range captures {
		if c.Valid {
			keys[c.Key] = true
		}
	}
	return keys
}
