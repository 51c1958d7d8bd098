package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/recall/internal/apperr"
	"github.com/conorfennell/recall/internal/domain"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "recall-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedDeck(t *testing.T, db *DB) domain.Deck {
	t.Helper()
	d := domain.NewDeck("Capitals", "European capitals", t0)
	require.NoError(t, db.CreateDeck(context.Background(), d))
	return d
}

func TestDeckCRUD(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	d := seedDeck(t, db)

	got, err := db.GetDeck(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Name, got.Name)
	assert.True(t, got.CreatedAt.Equal(t0))
	assert.Nil(t, got.SourceID)

	d.Name = "Capitals of Europe"
	require.NoError(t, db.UpdateDeck(ctx, d))

	decks, err := db.ListDecks(ctx)
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, "Capitals of Europe", decks[0].Name)
	assert.Equal(t, 0, decks[0].CardCount)

	require.NoError(t, db.DeleteDeck(ctx, d.ID))
	_, err = db.GetDeck(ctx, d.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, db.DeleteDeck(ctx, d.ID), apperr.ErrNotFound)
	assert.ErrorIs(t, db.UpdateDeck(ctx, d), apperr.ErrNotFound)
}

func TestCardRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	d := seedDeck(t, db)

	c := domain.NewCard(d.ID, "Capital of France?", "Paris", t0)
	require.NoError(t, db.InsertCard(ctx, c))

	got, err := db.GetCard(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Front, got.Front)
	assert.Equal(t, 0, got.Interval)
	assert.Equal(t, domain.InitialEaseFactor, got.EaseFactor)
	assert.Equal(t, 0, got.Repetitions)
	assert.Nil(t, got.LastReviewed)
	assert.Equal(t, domain.Outcome(0), got.Difficulty)
	assert.True(t, got.NextReview.Equal(t0))

	got.Front = "What is the capital of France?"
	require.NoError(t, db.UpdateCardContent(ctx, got))

	cards, err := db.ListCardsByDeck(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "What is the capital of France?", cards[0].Front)

	require.NoError(t, db.DeleteCard(ctx, c.ID))
	_, err = db.GetCard(ctx, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCardHashUniquePerDeck(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	d := seedDeck(t, db)

	a := domain.NewCard(d.ID, "Q", "A", t0)
	a.Hash = "abc"
	require.NoError(t, db.InsertCard(ctx, a))

	dup := domain.NewCard(d.ID, "Q", "A", t0)
	dup.Hash = "abc"
	assert.ErrorIs(t, db.InsertCard(ctx, dup), apperr.ErrConflict)

	// Hand-made cards have no hash and never collide.
	require.NoError(t, db.InsertCard(ctx, domain.NewCard(d.ID, "x", "y", t0)))
	require.NoError(t, db.InsertCard(ctx, domain.NewCard(d.ID, "x", "y", t0)))

	cards, err := db.ListCardsByDeck(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, cards, 3)
}

func TestSaveReview(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	d := seedDeck(t, db)

	c := domain.NewCard(d.ID, "Q", "A", t0)
	require.NoError(t, db.InsertCard(ctx, c))

	reviewedAt := t0.Add(time.Hour)
	updated := c.Clone()
	updated.LastReviewed = &reviewedAt
	updated.NextReview = reviewedAt.Add(24 * time.Hour)
	updated.Interval = 1
	updated.Repetitions = 1
	updated.Difficulty = domain.Good

	log, err := db.SaveReview(ctx, updated, domain.ReviewLog{
		CardID:        c.ID,
		DeckID:        d.ID,
		Outcome:       domain.Good,
		ReviewedAt:    reviewedAt,
		IntervalAfter: 1,
		EaseBefore:    2.5,
		EaseAfter:     2.5,
	})
	require.NoError(t, err)
	assert.NotZero(t, log.ID)

	got, err := db.GetCard(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastReviewed)
	assert.True(t, got.LastReviewed.Equal(reviewedAt))
	assert.True(t, got.NextReview.Equal(reviewedAt.Add(24*time.Hour)))
	assert.Equal(t, 1, got.Interval)
	assert.Equal(t, 1, got.Repetitions)
	assert.Equal(t, domain.Good, got.Difficulty)

	logs, err := db.ListReviewLogs(ctx, d.ID, t0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.Good, logs[0].Outcome)

	logs, err = db.ListReviewLogs(ctx, d.ID, reviewedAt.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestSaveReviewMissingCardWritesNothing(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	d := seedDeck(t, db)

	ghost := domain.NewCard(d.ID, "Q", "A", t0)
	_, err := db.SaveReview(ctx, ghost, domain.ReviewLog{
		CardID:     ghost.ID,
		DeckID:     d.ID,
		Outcome:    domain.Again,
		ReviewedAt: t0,
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	logs, err := db.ListReviewLogs(ctx, d.ID, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestDeleteDeckCascades(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	d := seedDeck(t, db)

	c := domain.NewCard(d.ID, "Q", "A", t0)
	require.NoError(t, db.InsertCard(ctx, c))
	_, err := db.SaveReview(ctx, c, domain.ReviewLog{CardID: c.ID, DeckID: d.ID, Outcome: domain.Hard, ReviewedAt: t0})
	require.NoError(t, err)

	require.NoError(t, db.DeleteDeck(ctx, d.ID))

	_, err = db.GetCard(ctx, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	logs, err := db.ListReviewLogs(ctx, d.ID, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestSources(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)

	id, err := db.InsertSource(ctx, "/notes", domain.SourceLocal)
	require.NoError(t, err)

	_, err = db.InsertSource(ctx, "/notes", domain.SourceLocal)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	deck := domain.NewDeck("notes", "", t0)
	deck.SourceID = &id
	require.NoError(t, db.CreateDeck(ctx, deck))
	require.NoError(t, db.InsertCard(ctx, domain.NewCard(deck.ID, "Q", "A", t0)))

	src, err := db.FindSourceByPath(ctx, "/notes")
	require.NoError(t, err)
	assert.Equal(t, id, src.ID)
	assert.Equal(t, deck.ID, src.DeckID)
	assert.Nil(t, src.LastScanned)

	_, err = db.FindSourceByPath(ctx, "/elsewhere")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, db.UpdateSourceLastScanned(ctx, id, t0))
	src, err = db.GetSource(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, src.LastScanned)
	assert.True(t, src.LastScanned.Equal(t0))

	owned, err := db.FindDeckBySource(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, deck.ID, owned.ID)

	sources, err := db.ListSources(ctx)
	require.NoError(t, err)
	assert.Len(t, sources, 1)

	require.NoError(t, db.DeleteSource(ctx, id))
	_, err = db.GetDeck(ctx, deck.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = db.GetSource(ctx, id)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
