package domain

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidOutcome is returned when an outcome label is not one of again, hard, good, easy.
var ErrInvalidOutcome = errors.New("invalid review outcome")

// Outcome is the user's assessment of how well a card was recalled.
type Outcome int

const (
	Again Outcome = iota + 1 // Not recalled.
	Hard                     // Recalled with serious difficulty.
	Good                     // Recalled with some effort.
	Easy                     // Recalled effortlessly.
)

var outcomeNames = [...]string{Again: "again", Hard: "hard", Good: "good", Easy: "easy"}

var (
	_ fmt.Stringer             = Outcome(0)
	_ encoding.TextMarshaler   = Outcome(0)
	_ encoding.TextUnmarshaler = (*Outcome)(nil)
	_ json.Marshaler           = Outcome(0)
	_ json.Unmarshaler         = (*Outcome)(nil)
)

// IsValid reports whether o is one of the four outcomes.
func (o Outcome) IsValid() bool {
	return o >= Again && o <= Easy
}

func (o Outcome) String() string {
	if o.IsValid() {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// ParseOutcome converts a label such as "good" into an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	for o := Again; o <= Easy; o++ {
		if outcomeNames[o] == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	if !o.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOutcome, int(o))
	}
	return []byte(outcomeNames[o]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	v, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// MarshalJSON encodes a valid outcome as its label and the zero outcome as null,
// so cards that were never reviewed serialize cleanly.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o == 0 {
		return []byte("null"), nil
	}
	text, err := o.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler. Expects a JSON string or null.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = 0
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidOutcome, data)
	}
	return o.UnmarshalText([]byte(s))
}
