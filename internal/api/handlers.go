package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/conorfennell/recall/internal/apperr"
	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/storage"
	"github.com/conorfennell/recall/internal/study"
	"github.com/conorfennell/recall/internal/sync"
)

// Store is the persistence used directly by the handlers.
type Store interface {
	CreateDeck(ctx context.Context, d domain.Deck) error
	GetDeck(ctx context.Context, id string) (domain.Deck, error)
	ListDecks(ctx context.Context) ([]storage.DeckSummary, error)
	UpdateDeck(ctx context.Context, d domain.Deck) error
	DeleteDeck(ctx context.Context, id string) error

	InsertCard(ctx context.Context, c domain.Card) error
	GetCard(ctx context.Context, id string) (domain.Card, error)
	ListCardsByDeck(ctx context.Context, deckID string) ([]domain.Card, error)
	UpdateCardContent(ctx context.Context, c domain.Card) error
	DeleteCard(ctx context.Context, id string) error

	GetSource(ctx context.Context, id int64) (domain.Source, error)
	ListSources(ctx context.Context) ([]domain.Source, error)
	DeleteSource(ctx context.Context, id int64) error
}

// Handler holds API route handlers.
type Handler struct {
	store  Store
	study  *study.Service
	syncer *sync.Syncer
	now    func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(store Store, studySvc *study.Service, syncer *sync.Syncer) *Handler {
	return &Handler{
		store:  store,
		study:  studySvc,
		syncer: syncer,
		now:    time.Now,
	}
}

func (h *Handler) view(c domain.Card) CardView {
	return CardView{Card: c, Stage: h.study.Stage(c)}
}

func (h *Handler) views(cards []domain.Card) []CardView {
	out := make([]CardView, 0, len(cards))
	for _, c := range cards {
		out = append(out, h.view(c))
	}
	return out
}

// ListDecks handles GET /api/decks.
func (h *Handler) ListDecks(w http.ResponseWriter, r *http.Request) {
	decks, err := h.store.ListDecks(r.Context())
	if err != nil {
		writeError(w, r, err, "list decks failed")
		return
	}
	writeJSON(w, http.StatusOK, DeckListResponse{Decks: decks})
}

// CreateDeck handles POST /api/decks.
func (h *Handler) CreateDeck(w http.ResponseWriter, r *http.Request) {
	var req DeckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "create deck failed")
		return
	}
	deck := domain.NewDeck(req.Name, req.Description, h.now().UTC())
	if err := h.store.CreateDeck(r.Context(), deck); err != nil {
		writeError(w, r, err, "create deck failed")
		return
	}
	writeJSON(w, http.StatusCreated, deck)
}

// GetDeck handles GET /api/decks/{deckID}.
func (h *Handler) GetDeck(w http.ResponseWriter, r *http.Request) {
	deck, err := h.store.GetDeck(r.Context(), chi.URLParam(r, "deckID"))
	if err != nil {
		writeError(w, r, err, "get deck failed")
		return
	}
	writeJSON(w, http.StatusOK, deck)
}

// UpdateDeck handles PUT /api/decks/{deckID}.
func (h *Handler) UpdateDeck(w http.ResponseWriter, r *http.Request) {
	var req DeckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "update deck failed")
		return
	}
	deck, err := h.store.GetDeck(r.Context(), chi.URLParam(r, "deckID"))
	if err != nil {
		writeError(w, r, err, "update deck failed")
		return
	}
	deck.Name = req.Name
	deck.Description = req.Description
	if err := h.store.UpdateDeck(r.Context(), deck); err != nil {
		writeError(w, r, err, "update deck failed")
		return
	}
	writeJSON(w, http.StatusOK, deck)
}

// DeleteDeck handles DELETE /api/decks/{deckID}.
func (h *Handler) DeleteDeck(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteDeck(r.Context(), chi.URLParam(r, "deckID")); err != nil {
		writeError(w, r, err, "delete deck failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCards handles GET /api/decks/{deckID}/cards.
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")
	if _, err := h.store.GetDeck(r.Context(), deckID); err != nil {
		writeError(w, r, err, "list cards failed")
		return
	}
	cards, err := h.store.ListCardsByDeck(r.Context(), deckID)
	if err != nil {
		writeError(w, r, err, "list cards failed")
		return
	}
	writeJSON(w, http.StatusOK, CardListResponse{Cards: h.views(cards)})
}

// CreateCard handles POST /api/decks/{deckID}/cards.
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req CardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "create card failed")
		return
	}
	deckID := chi.URLParam(r, "deckID")
	if _, err := h.store.GetDeck(r.Context(), deckID); err != nil {
		writeError(w, r, err, "create card failed")
		return
	}
	card := domain.NewCard(deckID, req.Front, req.Back, h.now().UTC())
	card.Context = req.Context
	if err := h.store.InsertCard(r.Context(), card); err != nil {
		writeError(w, r, err, "create card failed")
		return
	}
	writeJSON(w, http.StatusCreated, h.view(card))
}

// GetCard handles GET /api/cards/{cardID}.
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.store.GetCard(r.Context(), chi.URLParam(r, "cardID"))
	if err != nil {
		writeError(w, r, err, "get card failed")
		return
	}
	v := h.view(card)
	// A card that cannot be scheduled is still shown, just without a preview.
	if preview, err := h.study.Preview(card); err == nil {
		v.Preview = preview
	}
	writeJSON(w, http.StatusOK, v)
}

// UpdateCard handles PUT /api/cards/{cardID}. Scheduling state is kept.
func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	var req CardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "update card failed")
		return
	}
	card, err := h.store.GetCard(r.Context(), chi.URLParam(r, "cardID"))
	if err != nil {
		writeError(w, r, err, "update card failed")
		return
	}
	// The hash is left alone so a synced card stays matched to its source text.
	card.Front, card.Back, card.Context = req.Front, req.Back, req.Context
	if err := h.store.UpdateCardContent(r.Context(), card); err != nil {
		writeError(w, r, err, "update card failed")
		return
	}
	writeJSON(w, http.StatusOK, h.view(card))
}

// DeleteCard handles DELETE /api/cards/{cardID}.
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteCard(r.Context(), chi.URLParam(r, "cardID")); err != nil {
		writeError(w, r, err, "delete card failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StudyQueue handles GET /api/decks/{deckID}/study.
func (h *Handler) StudyQueue(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")
	cards, err := h.study.Queue(r.Context(), deckID)
	if err != nil {
		writeError(w, r, err, "study queue failed")
		return
	}
	writeJSON(w, http.StatusOK, QueueResponse{
		DeckID: deckID,
		Count:  len(cards),
		Cards:  h.views(cards),
	})
}

// ReviewCard handles POST /api/cards/{cardID}/review.
func (h *Handler) ReviewCard(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "review card failed")
		return
	}
	outcome, err := domain.ParseOutcome(strings.ToLower(strings.TrimSpace(req.Outcome)))
	if err != nil {
		writeError(w, r, err, "review card failed")
		return
	}
	card, err := h.study.Answer(r.Context(), chi.URLParam(r, "cardID"), outcome)
	if err != nil {
		writeError(w, r, err, "review card failed")
		return
	}
	writeJSON(w, http.StatusOK, h.view(card))
}

// DeckStats handles GET /api/decks/{deckID}/stats.
func (h *Handler) DeckStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.study.Stats(r.Context(), chi.URLParam(r, "deckID"))
	if err != nil {
		writeError(w, r, err, "deck stats failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListSources handles GET /api/sources.
func (h *Handler) ListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.store.ListSources(r.Context())
	if err != nil {
		writeError(w, r, err, "list sources failed")
		return
	}
	writeJSON(w, http.StatusOK, SourceListResponse{Sources: sources})
}

// CreateSource handles POST /api/sources. The source is synced on the next run.
func (h *Handler) CreateSource(w http.ResponseWriter, r *http.Request) {
	var req SourceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "create source failed")
		return
	}
	id, err := h.syncer.AddSource(r.Context(), req.Path)
	if err != nil {
		writeError(w, r, err, "create source failed")
		return
	}
	source, err := h.store.GetSource(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "create source failed")
		return
	}
	writeJSON(w, http.StatusCreated, source)
}

// DeleteSource handles DELETE /api/sources/{sourceID}.
func (h *Handler) DeleteSource(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "sourceID"), 10, 64)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: source id must be a number", apperr.ErrInvalidInput), "delete source failed")
		return
	}
	if err := h.store.DeleteSource(r.Context(), id); err != nil {
		writeError(w, r, err, "delete source failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sync handles POST /api/sync. Failures of single sources are reported in the
// body and do not fail the request.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	results, err := h.syncer.RunAll(r.Context())
	resp := SyncResponse{Results: results}
	if resp.Results == nil {
		resp.Results = []sync.Result{}
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			writeError(w, r, err, "sync failed")
			return
		}
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
