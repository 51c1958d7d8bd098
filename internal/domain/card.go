package domain

import (
	"time"

	"github.com/google/uuid"
)

// Initial scheduling values for a card that has never been reviewed.
const (
	InitialEaseFactor = 2.5
	MinEaseFactor     = 1.3
)

// Card is a single flashcard together with its spaced-repetition state.
type Card struct {
	ID      string `json:"id"`
	DeckID  string `json:"deck_id"`
	Front   string `json:"front"`
	Back    string `json:"back"`
	Context string `json:"context,omitempty"`
	// Hash fingerprints the content of cards imported from a source.
	// Cards created by hand have an empty hash.
	Hash string `json:"hash,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	LastReviewed *time.Time `json:"last_reviewed,omitempty"` // nil before the first review.
	NextReview   time.Time  `json:"next_review"`
	Interval     int        `json:"interval"` // days
	EaseFactor   float64    `json:"ease_factor"`
	Repetitions  int        `json:"repetitions"`
	Difficulty   Outcome    `json:"difficulty,omitempty"` // zero before the first review.
}

// NewCard returns a card in its initial state: due immediately and never reviewed.
func NewCard(deckID, front, back string, now time.Time) Card {
	return Card{
		ID:         uuid.NewString(),
		DeckID:     deckID,
		Front:      front,
		Back:       back,
		CreatedAt:  now,
		NextReview: now,
		EaseFactor: InitialEaseFactor,
	}
}

// Clone returns a copy of the card that shares no pointers with c.
func (c Card) Clone() Card {
	out := c
	if c.LastReviewed != nil {
		v := *c.LastReviewed
		out.LastReviewed = &v
	}
	return out
}

// Deck groups cards. A deck created by a source sync carries the source ID.
type Deck struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SourceID    *int64    `json:"source_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewDeck returns a deck with a fresh ID.
func NewDeck(name, description string, now time.Time) Deck {
	return Deck{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
	}
}

// ReviewLog records a single review event for a card.
type ReviewLog struct {
	ID             int64     `json:"id"`
	CardID         string    `json:"card_id"`
	DeckID         string    `json:"deck_id"`
	Outcome        Outcome   `json:"outcome"`
	ReviewedAt     time.Time `json:"reviewed_at"`
	IntervalBefore int       `json:"interval_before"`
	IntervalAfter  int       `json:"interval_after"`
	EaseBefore     float64   `json:"ease_before"`
	EaseAfter      float64   `json:"ease_after"`
}

// Source types.
const (
	SourceLocal = "local"
	SourceGit   = "git"
)

// Source is a local directory or git repository that cards are imported from.
type Source struct {
	ID          int64      `json:"id"`
	Path        string     `json:"path"`
	Type        string     `json:"type"`
	DeckID      string     `json:"deck_id,omitempty"`
	LastScanned *time.Time `json:"last_scanned,omitempty"`
}
