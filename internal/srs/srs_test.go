package srs

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/recall/internal/domain"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func cardWith(interval int, ease float64, reps int) domain.Card {
	c := domain.NewCard("deck", "front", "back", t0.Add(-30*day))
	c.Interval = interval
	c.EaseFactor = ease
	c.Repetitions = reps
	return c
}

func TestRecordReviewScenarios(t *testing.T) {
	s := New(WithClock(fixedClock(t0)))

	testCases := []struct {
		name         string
		card         domain.Card
		outcome      domain.Outcome
		wantReps     int
		wantInterval int
		wantEase     float64
	}{
		{
			name:         "new card rated good",
			card:         cardWith(0, 2.5, 0),
			outcome:      domain.Good,
			wantReps:     1,
			wantInterval: 1,
			wantEase:     2.5,
		},
		{
			name:         "second good multiplies by ease",
			card:         cardWith(1, 2.5, 1),
			outcome:      domain.Good,
			wantReps:     2,
			wantInterval: 3,
			wantEase:     2.5,
		},
		{
			name:         "again resets progress",
			card:         cardWith(10, 2.0, 5),
			outcome:      domain.Again,
			wantReps:     0,
			wantInterval: 1,
			wantEase:     1.8,
		},
		{
			name:         "hard clamps ease at floor",
			card:         cardWith(5, 1.35, 3),
			outcome:      domain.Hard,
			wantReps:     4,
			wantInterval: 6,
			wantEase:     1.3,
		},
		{
			name:         "hard on new card gives one day",
			card:         cardWith(0, 2.5, 0),
			outcome:      domain.Hard,
			wantReps:     1,
			wantInterval: 1,
			wantEase:     2.35,
		},
		{
			name:         "first easy jumps to four days",
			card:         cardWith(0, 2.5, 0),
			outcome:      domain.Easy,
			wantReps:     1,
			wantInterval: 4,
			wantEase:     2.65,
		},
		{
			name:         "later easy uses ease and bonus",
			card:         cardWith(4, 2.5, 2),
			outcome:      domain.Easy,
			wantReps:     3,
			wantInterval: 13,
			wantEase:     2.65,
		},
		{
			name:         "good at minimum ease still moves forward a day",
			card:         cardWith(1, 1.3, 1),
			outcome:      domain.Good,
			wantReps:     2,
			wantInterval: 2,
			wantEase:     1.3,
		},
		{
			name:         "ease keeps full precision",
			card:         cardWith(4, 2.537, 2),
			outcome:      domain.Easy,
			wantReps:     3,
			wantInterval: 13,
			wantEase:     2.687,
		},
		{
			name:         "hard keeps full precision",
			card:         cardWith(10, 2.537, 4),
			outcome:      domain.Hard,
			wantReps:     5,
			wantInterval: 12,
			wantEase:     2.387,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.RecordReview(tc.card, tc.outcome)
			require.NoError(t, err)

			assert.Equal(t, tc.wantReps, got.Repetitions)
			assert.Equal(t, tc.wantInterval, got.Interval)
			assert.InDelta(t, tc.wantEase, got.EaseFactor, 1e-9)
			assert.Equal(t, t0.Add(time.Duration(tc.wantInterval)*day), got.NextReview)
			require.NotNil(t, got.LastReviewed)
			assert.Equal(t, t0, *got.LastReviewed)
			assert.Equal(t, tc.outcome, got.Difficulty)
		})
	}
}

func TestRecordReviewDoesNotMutateInput(t *testing.T) {
	s := New(WithClock(fixedClock(t0)))
	reviewed := t0.Add(-day)
	card := cardWith(3, 2.5, 2)
	card.LastReviewed = &reviewed
	before := card.Clone()

	_, err := s.RecordReview(card, domain.Again)
	require.NoError(t, err)

	assert.Equal(t, before, card)
	assert.Equal(t, reviewed, *card.LastReviewed)
}

func TestRecordReviewErrors(t *testing.T) {
	s := New(WithClock(fixedClock(t0)))

	t.Run("ease below floor", func(t *testing.T) {
		got, err := s.RecordReview(cardWith(1, 1.2, 1), domain.Good)
		assert.True(t, errors.Is(err, ErrInvalidCardState))
		assert.Equal(t, domain.Card{}, got)
	})

	t.Run("ease is NaN", func(t *testing.T) {
		_, err := s.RecordReview(cardWith(1, math.NaN(), 1), domain.Good)
		assert.ErrorIs(t, err, ErrInvalidCardState)
	})

	t.Run("negative interval", func(t *testing.T) {
		_, err := s.RecordReview(cardWith(-1, 2.5, 1), domain.Good)
		assert.ErrorIs(t, err, ErrInvalidCardState)
	})

	t.Run("unknown outcome", func(t *testing.T) {
		_, err := s.RecordReview(cardWith(1, 2.5, 1), domain.Outcome(7))
		assert.ErrorIs(t, err, ErrInvalidOutcome)
	})

	t.Run("zero outcome", func(t *testing.T) {
		_, err := s.RecordReview(cardWith(1, 2.5, 1), 0)
		assert.ErrorIs(t, err, ErrInvalidOutcome)
	})
}

func TestRecordReviewInvariants(t *testing.T) {
	s := New(WithClock(fixedClock(t0)))
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		card := cardWith(rng.Intn(400), 1.3+rng.Float64()*2, rng.Intn(20))
		outcome := domain.Outcome(rng.Intn(4) + 1)

		got, err := s.RecordReview(card, outcome)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, got.EaseFactor, domain.MinEaseFactor)
		assert.GreaterOrEqual(t, got.Interval, 0)
		assert.GreaterOrEqual(t, got.Repetitions, 0)
		if got.Repetitions > 0 {
			assert.GreaterOrEqual(t, got.Interval, 1, "card %+v outcome %s", card, outcome)
		}
		assert.False(t, got.NextReview.Before(*got.LastReviewed))
		assert.Equal(t, outcome, got.Difficulty)
		if outcome == domain.Again {
			assert.Equal(t, 0, got.Repetitions)
			assert.Equal(t, 1, got.Interval)
		}
	}
}

func TestGoodSequenceGrowsInterval(t *testing.T) {
	for _, ease := range []float64{1.3, 1.7, 2.5} {
		now := t0
		s := New(WithClock(func() time.Time { return now }))
		card := cardWith(0, ease, 0)

		prev := 0
		for i := 1; i <= 8; i++ {
			next, err := s.RecordReview(card, domain.Good)
			require.NoError(t, err)
			if i >= 2 {
				assert.Greater(t, next.Interval, prev, "ease %.2f repetition %d", ease, i)
			}
			prev = next.Interval
			card = next
			now = card.NextReview
		}
	}
}

func TestIntervalIsCapped(t *testing.T) {
	p := DefaultParams()
	p.MaximumInterval = 100
	s := New(WithParams(p), WithClock(fixedClock(t0)))

	got, err := s.RecordReview(cardWith(90, 2.5, 6), domain.Easy)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Interval)
}

func TestPreview(t *testing.T) {
	s := New(WithClock(fixedClock(t0)))
	card := cardWith(1, 2.5, 1)

	got, err := s.Preview(card)
	require.NoError(t, err)
	assert.Equal(t, map[domain.Outcome]int{
		domain.Again: 1,
		domain.Hard:  1,
		domain.Good:  3,
		domain.Easy:  3,
	}, got)

	_, err = s.Preview(cardWith(1, 1.0, 1))
	assert.ErrorIs(t, err, ErrInvalidCardState)
}

func TestIsDue(t *testing.T) {
	card := cardWith(0, 2.5, 0)
	card.NextReview = t0

	assert.True(t, IsDue(card, t0), "equality counts as due")
	assert.True(t, IsDue(card, t0.Add(time.Second)))
	assert.False(t, IsDue(card, t0.Add(-time.Second)))
	assert.Equal(t, IsDue(card, t0), IsDue(card, t0))
}

func TestIsNew(t *testing.T) {
	s := New(WithClock(fixedClock(t0)))
	card := domain.NewCard("deck", "f", "b", t0)
	assert.True(t, IsNew(card))
	assert.True(t, IsDue(card, t0), "a fresh card is new and due")

	reviewed, err := s.RecordReview(card, domain.Good)
	require.NoError(t, err)
	assert.False(t, IsNew(reviewed))

	forgotten, err := s.RecordReview(reviewed, domain.Again)
	require.NoError(t, err)
	assert.True(t, IsNew(forgotten))
	assert.Less(t, forgotten.EaseFactor, reviewed.EaseFactor, "again keeps ease history but lowers it")
}
