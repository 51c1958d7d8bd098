// Package study builds review sessions for a deck and records answers.
package study

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/srs"
)

// Store is the persistence the study service needs.
type Store interface {
	GetDeck(ctx context.Context, id string) (domain.Deck, error)
	GetCard(ctx context.Context, id string) (domain.Card, error)
	ListCardsByDeck(ctx context.Context, deckID string) ([]domain.Card, error)
	SaveReview(ctx context.Context, card domain.Card, log domain.ReviewLog) (domain.ReviewLog, error)
	ListReviewLogs(ctx context.Context, deckID string, since time.Time) ([]domain.ReviewLog, error)
}

// Config limits the size of a study session.
type Config struct {
	// NewCardsLimit caps how many never-reviewed cards join a session.
	NewCardsLimit int
	// ReviewLimit caps the whole session. Zero means unlimited.
	ReviewLimit int
	// GraduateAfter is the number of consecutive successful reviews after
	// which a card counts as being in review rather than learning.
	GraduateAfter int
}

// DefaultConfig returns the limits used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		NewCardsLimit: 10,
		GraduateAfter: 3,
	}
}

// Service answers cards and assembles study queues.
type Service struct {
	store     Store
	scheduler *srs.Scheduler
	cfg       Config
	locks     *keyedMutex
	logger    *slog.Logger
}

// NewService creates a study service. A nil logger uses slog.Default.
func NewService(store Store, scheduler *srs.Scheduler, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		scheduler: scheduler,
		cfg:       cfg,
		locks:     newKeyedMutex(),
		logger:    logger,
	}
}

// Queue returns the cards to study in a deck right now: due reviews ordered by
// next review, followed by up to NewCardsLimit due new cards ordered by
// creation.
func (s *Service) Queue(ctx context.Context, deckID string) ([]domain.Card, error) {
	if _, err := s.store.GetDeck(ctx, deckID); err != nil {
		return nil, err
	}
	cards, err := s.store.ListCardsByDeck(ctx, deckID)
	if err != nil {
		return nil, fmt.Errorf("list cards of deck %s: %w", deckID, err)
	}
	return buildQueue(cards, s.scheduler.Now(), s.cfg), nil
}

// buildQueue splits due cards into reviews and new cards. New cards, including
// ones reset by again, only enter through the capped new part.
func buildQueue(cards []domain.Card, now time.Time, cfg Config) []domain.Card {
	var due, fresh []domain.Card
	for _, c := range cards {
		if !srs.IsDue(c, now) {
			continue
		}
		if srs.IsNew(c) {
			fresh = append(fresh, c)
		} else {
			due = append(due, c)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].NextReview.Before(due[j].NextReview)
	})
	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].CreatedAt.Before(fresh[j].CreatedAt)
	})
	if len(fresh) > cfg.NewCardsLimit {
		fresh = fresh[:max(cfg.NewCardsLimit, 0)]
	}

	queue := make([]domain.Card, 0, len(due)+len(fresh))
	queue = append(queue, due...)
	queue = append(queue, fresh...)

	if cfg.ReviewLimit > 0 && len(queue) > cfg.ReviewLimit {
		queue = queue[:cfg.ReviewLimit]
	}
	return queue
}

// Answer records the outcome of reviewing a card and returns the card with
// its new schedule. Answers to the same card are applied one at a time. When
// the scheduler rejects the card or the outcome, nothing is stored.
func (s *Service) Answer(ctx context.Context, cardID string, outcome domain.Outcome) (domain.Card, error) {
	unlock := s.locks.Lock(cardID)
	defer unlock()

	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return domain.Card{}, err
	}

	next, err := s.scheduler.RecordReview(card, outcome)
	if err != nil {
		s.logger.Warn("review rejected", "card_id", cardID, "outcome", outcome, "error", err)
		return domain.Card{}, err
	}

	_, err = s.store.SaveReview(ctx, next, domain.ReviewLog{
		CardID:         next.ID,
		DeckID:         next.DeckID,
		Outcome:        outcome,
		ReviewedAt:     *next.LastReviewed,
		IntervalBefore: card.Interval,
		IntervalAfter:  next.Interval,
		EaseBefore:     card.EaseFactor,
		EaseAfter:      next.EaseFactor,
	})
	if err != nil {
		return domain.Card{}, fmt.Errorf("save review of card %s: %w", cardID, err)
	}

	s.logger.Debug("card reviewed",
		"card_id", cardID,
		"outcome", outcome,
		"interval", next.Interval,
		"ease", next.EaseFactor,
		"next_review", next.NextReview,
	)
	return next, nil
}

// Preview returns the interval each outcome would give an already loaded card.
func (s *Service) Preview(card domain.Card) (map[domain.Outcome]int, error) {
	return s.scheduler.Preview(card)
}
