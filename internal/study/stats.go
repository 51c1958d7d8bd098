package study

import (
	"context"
	"fmt"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/srs"
)

const dateKeyLayout = "2006-01-02"

// Stats summarises a deck.
type Stats struct {
	DeckID        string `json:"deck_id"`
	Total         int    `json:"total"`
	New           int    `json:"new"`
	Due           int    `json:"due"`
	Learning      int    `json:"learning"`
	Review        int    `json:"review"`
	ReviewedToday int    `json:"reviewed_today"`
	StreakDays    int    `json:"streak_days"`
	TotalReviews  int    `json:"total_reviews"`
	// Accuracy is the percentage of reviews not answered again.
	Accuracy int `json:"accuracy"`
}

// Stats counts the cards of a deck by stage and summarises its review history.
func (s *Service) Stats(ctx context.Context, deckID string) (Stats, error) {
	if _, err := s.store.GetDeck(ctx, deckID); err != nil {
		return Stats{}, err
	}
	cards, err := s.store.ListCardsByDeck(ctx, deckID)
	if err != nil {
		return Stats{}, fmt.Errorf("list cards of deck %s: %w", deckID, err)
	}
	logs, err := s.store.ListReviewLogs(ctx, deckID, time.Time{})
	if err != nil {
		return Stats{}, fmt.Errorf("list review logs of deck %s: %w", deckID, err)
	}

	now := s.scheduler.Now()
	stats := Stats{DeckID: deckID, Total: len(cards)}
	for _, c := range cards {
		if srs.IsDue(c, now) {
			stats.Due++
		}
		switch s.Stage(c) {
		case StageNew:
			stats.New++
		case StageLearning:
			stats.Learning++
		case StageReview:
			stats.Review++
		}
	}

	today := startOfDay(now)
	reviewDates := make(map[string]bool)
	correct := 0
	for _, l := range logs {
		at := l.ReviewedAt.In(now.Location())
		if !at.Before(today) {
			stats.ReviewedToday++
		}
		if l.Outcome != domain.Again {
			correct++
		}
		reviewDates[at.Format(dateKeyLayout)] = true
	}
	stats.TotalReviews = len(logs)
	if len(logs) > 0 {
		stats.Accuracy = correct * 100 / len(logs)
	}
	stats.StreakDays = calculateStreak(reviewDates, today)
	return stats, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// calculateStreak counts consecutive days with reviews ending today or yesterday.
func calculateStreak(reviewDates map[string]bool, today time.Time) int {
	check := today
	if !reviewDates[check.Format(dateKeyLayout)] {
		check = check.AddDate(0, 0, -1)
	}

	streak := 0
	for reviewDates[check.Format(dateKeyLayout)] {
		streak++
		check = check.AddDate(0, 0, -1)
	}
	return streak
}
