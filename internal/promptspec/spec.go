package promptspec

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/MikeSquared-Agency/cadence/internal/transcript"
)

// CadenceOneAtATime is the only cadence policy the corrector knows how to
// enforce: one question, one field, per agent turn.
const CadenceOneAtATime = "one_at_a_time"

// Confirmations toggles the read-back requirements for captured contact data.
type Confirmations struct {
	RepeatPhone bool `json:"repeat_phone"`
	SpellEmail  bool `json:"spell_email"`
}

// Spec is the declarative policy an agent's responses are validated against.
// It is derived externally from a system prompt (or defaulted) and treated
// as immutable for the duration of a conversation; a new prompt version
// yields a new spec with a new identifying hash.
type Spec struct {
	AgentType               string                        `json:"agent_type"`
	Niche                   string                        `json:"niche"`
	RequiredFields          []transcript.ContactFieldKey  `json:"required_fields"`
	FieldOrder              []transcript.ContactFieldKey  `json:"field_order"`
	BlockBookingUntilFields bool                          `json:"block_booking_until_fields"`
	DisallowedPhrases       []string                      `json:"disallowed_phrases"`
	QuestionCadence         string                        `json:"question_cadence"`
	MaxWordsPerTurn         int                           `json:"max_words_per_turn"`
	Confirmations           Confirmations                 `json:"confirmations"`
	AgentValues             []string                      `json:"agent_values"`
}

// Default returns the baseline policy used when no spec could be derived
// from the agent's prompt.
func Default(niche string) Spec {
	fields := []transcript.ContactFieldKey{
		transcript.FieldFirstName,
		transcript.FieldLastName,
		transcript.FieldPhone,
		transcript.FieldEmail,
		transcript.FieldClassDateTime,
	}
	order := make([]transcript.ContactFieldKey, len(fields))
	copy(order, fields)
	return Spec{
		AgentType:               "voice_ai",
		Niche:                   niche,
		RequiredFields:          fields,
		FieldOrder:              order,
		BlockBookingUntilFields: true,
		DisallowedPhrases:       []string{},
		QuestionCadence:         CadenceOneAtATime,
		MaxWordsPerTurn:         22,
		Confirmations:           Confirmations{RepeatPhone: true, SpellEmail: true},
		AgentValues:             []string{},
	}
}

// Hash identifies a prompt version. Two specs extracted from the same prompt
// text share a hash; any edit to the prompt produces a new one.
func Hash(promptText string) string {
	sum := sha256.Sum256([]byte(promptText))
	return hex.EncodeToString(sum[:])[:12]
}
