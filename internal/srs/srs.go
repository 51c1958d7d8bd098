// Package srs implements the SM-2 style review scheduler used for every card.
//
// The scheduler is a pure function of a card, an outcome and the current time.
// It never performs I/O and never mutates its input, so it is safe to call
// concurrently for different cards. Serializing reviews of the same card is the
// caller's responsibility.
package srs

import (
	"fmt"
	"math"
	"time"

	"github.com/conorfennell/recall/internal/domain"
)

const day = 24 * time.Hour

// Params holds the constants of the review update.
type Params struct {
	MinEaseFactor      float64 // floor applied after every ease adjustment
	AgainEasePenalty   float64 // subtracted from ease on again
	HardEasePenalty    float64 // subtracted from ease on hard
	EasyEaseBonus      float64 // added to ease on easy
	HardIntervalFactor float64 // interval multiplier on hard
	EasyIntervalBonus  float64 // extra multiplier on top of ease on easy
	AgainInterval      int     // days until a forgotten card is shown again
	FirstGoodInterval  int     // days after the first good review
	FirstEasyInterval  int     // days after the first easy review
	MaximumInterval    int     // upper bound on any interval, in days
}

// DefaultParams returns the reference constants.
func DefaultParams() *Params {
	return &Params{
		MinEaseFactor:      domain.MinEaseFactor,
		AgainEasePenalty:   0.2,
		HardEasePenalty:    0.15,
		EasyEaseBonus:      0.15,
		HardIntervalFactor: 1.2,
		EasyIntervalBonus:  1.3,
		AgainInterval:      1,
		FirstGoodInterval:  1,
		FirstEasyInterval:  4,
		MaximumInterval:    36500,
	}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithParams replaces the default constants.
func WithParams(p *Params) Option {
	return func(s *Scheduler) {
		s.params = p
	}
}

// WithClock sets the source of "now". Tests use it to pin time.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// Scheduler computes the next scheduling state of a card after a review.
type Scheduler struct {
	params *Params
	now    func() time.Time
}

// New creates a Scheduler with default parameters and the wall clock.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		params: DefaultParams(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the scheduler's current time.
func (s *Scheduler) Now() time.Time {
	return s.now()
}

// RecordReview returns the card as it should be after being reviewed with the
// given outcome. The input card is not modified. On error the returned card is
// the zero value.
func (s *Scheduler) RecordReview(card domain.Card, outcome domain.Outcome) (domain.Card, error) {
	return s.recordReviewAt(card, outcome, s.now())
}

func (s *Scheduler) recordReviewAt(card domain.Card, outcome domain.Outcome, now time.Time) (domain.Card, error) {
	if !outcome.IsValid() {
		return domain.Card{}, fmt.Errorf("%w: %s", ErrInvalidOutcome, outcome)
	}
	if err := s.Validate(card); err != nil {
		return domain.Card{}, err
	}

	p := s.params
	next := card.Clone()

	switch outcome {
	case domain.Again:
		next.Repetitions = 0
		next.Interval = p.AgainInterval
		next.EaseFactor = s.clampEase(card.EaseFactor - p.AgainEasePenalty)
	case domain.Hard:
		next.Repetitions++
		next.Interval = max(1, roundDays(float64(card.Interval)*p.HardIntervalFactor))
		next.EaseFactor = s.clampEase(card.EaseFactor - p.HardEasePenalty)
	case domain.Good:
		next.Repetitions++
		if next.Repetitions == 1 {
			next.Interval = p.FirstGoodInterval
		} else {
			next.Interval = grow(card.Interval, float64(card.Interval)*card.EaseFactor)
		}
	case domain.Easy:
		next.Repetitions++
		if next.Repetitions == 1 {
			next.Interval = p.FirstEasyInterval
		} else {
			next.Interval = grow(card.Interval, float64(card.Interval)*card.EaseFactor*p.EasyIntervalBonus)
		}
		next.EaseFactor = s.clampEase(card.EaseFactor + p.EasyEaseBonus)
	}

	if next.Interval > p.MaximumInterval {
		next.Interval = p.MaximumInterval
	}
	next.LastReviewed = &now
	next.NextReview = now.Add(time.Duration(next.Interval) * day)
	next.Difficulty = outcome
	return next, nil
}

// Validate checks the scheduling invariants a card must satisfy before review.
func (s *Scheduler) Validate(card domain.Card) error {
	// Written as a negated >= so that NaN is rejected too.
	if !(card.EaseFactor >= s.params.MinEaseFactor) {
		return fmt.Errorf("%w: ease factor %.2f below %.2f", ErrInvalidCardState, card.EaseFactor, s.params.MinEaseFactor)
	}
	if card.Interval < 0 {
		return fmt.Errorf("%w: negative interval %d", ErrInvalidCardState, card.Interval)
	}
	if card.Repetitions < 0 {
		return fmt.Errorf("%w: negative repetitions %d", ErrInvalidCardState, card.Repetitions)
	}
	return nil
}

// Preview returns the interval in days each outcome would produce, without
// changing the card.
func (s *Scheduler) Preview(card domain.Card) (map[domain.Outcome]int, error) {
	now := s.now()
	out := make(map[domain.Outcome]int, 4)
	for o := domain.Again; o <= domain.Easy; o++ {
		next, err := s.recordReviewAt(card, o, now)
		if err != nil {
			return nil, err
		}
		out[o] = next.Interval
	}
	return out, nil
}

// IsDue reports whether the card may be reviewed at now. A card whose next
// review is exactly now is due.
func IsDue(card domain.Card, now time.Time) bool {
	return !card.NextReview.After(now)
}

// IsNew reports whether the card has no successful reviews in a row.
func IsNew(card domain.Card) bool {
	return card.Repetitions == 0
}

// clampEase keeps ease at or above the floor. Ease is not rounded.
func (s *Scheduler) clampEase(ef float64) float64 {
	return math.Max(s.params.MinEaseFactor, ef)
}

// grow scales an interval and guarantees it moves forward by at least a day.
func grow(prev int, scaled float64) int {
	return max(prev+1, roundDays(scaled))
}

func roundDays(d float64) int {
	return int(math.Round(d))
}
