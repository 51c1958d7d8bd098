package api

import (
	"strings"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/storage"
	"github.com/conorfennell/recall/internal/study"
	"github.com/conorfennell/recall/internal/sync"
)

// DeckRequest is the request body for creating or updating a deck.
type DeckRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

func (r *DeckRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

// CardRequest is the request body for creating or updating a card.
type CardRequest struct {
	Front   string `json:"front" validate:"notblank,max=10000"`
	Back    string `json:"back" validate:"notblank,max=10000"`
	Context string `json:"context" validate:"max=10000"`
}

// ReviewRequest is the request body for answering a card.
type ReviewRequest struct {
	Outcome string `json:"outcome" validate:"required"`
}

// SourceRequest is the request body for registering a source.
type SourceRequest struct {
	Path string `json:"path" validate:"required,max=2048"`
}

// CardView is a card with its lifecycle stage.
type CardView struct {
	domain.Card
	Stage study.Stage `json:"stage"`
	// Preview holds the interval in days each outcome would give. Only set
	// when a single card is fetched.
	Preview map[domain.Outcome]int `json:"preview,omitempty"`
}

// DeckListResponse wraps deck listings.
type DeckListResponse struct {
	Decks []storage.DeckSummary `json:"decks"`
}

// CardListResponse wraps card listings.
type CardListResponse struct {
	Cards []CardView `json:"cards"`
}

// QueueResponse is the study queue of a deck.
type QueueResponse struct {
	DeckID string     `json:"deck_id"`
	Count  int        `json:"count"`
	Cards  []CardView `json:"cards"`
}

// SourceListResponse wraps source listings.
type SourceListResponse struct {
	Sources []domain.Source `json:"sources"`
}

// SyncResponse reports the result of a sync run.
type SyncResponse struct {
	Results []sync.Result `json:"results"`
	Error   string        `json:"error,omitempty"`
}
