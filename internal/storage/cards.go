package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/conorfennell/recall/internal/apperr"
	"github.com/conorfennell/recall/internal/domain"
)

const cardColumns = `id, deck_id, front, back, context, hash, created_at, last_reviewed,
	next_review, interval_days, ease_factor, repetitions, difficulty`

func scanCard(row rowScanner) (domain.Card, error) {
	var (
		c            domain.Card
		lastReviewed sql.NullTime
		difficulty   string
	)
	err := row.Scan(
		&c.ID,
		&c.DeckID,
		&c.Front,
		&c.Back,
		&c.Context,
		&c.Hash,
		&c.CreatedAt,
		&lastReviewed,
		&c.NextReview,
		&c.Interval,
		&c.EaseFactor,
		&c.Repetitions,
		&difficulty,
	)
	if err != nil {
		return c, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.NextReview = c.NextReview.UTC()
	c.LastReviewed = timePtr(lastReviewed)
	if c.Difficulty, err = parseOutcomeLabel(difficulty); err != nil {
		return c, fmt.Errorf("card %s: %w", c.ID, err)
	}
	return c, nil
}

func scanCards(rows *sql.Rows) ([]domain.Card, error) {
	defer rows.Close()

	cards := []domain.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// InsertCard stores a new card with its scheduling state.
// A card whose hash already exists in the deck is rejected with apperr.ErrConflict.
func (db *DB) InsertCard(ctx context.Context, c domain.Card) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO cards (`+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID,
		c.DeckID,
		c.Front,
		c.Back,
		c.Context,
		c.Hash,
		c.CreatedAt.UTC(),
		nullTime(c.LastReviewed),
		c.NextReview.UTC(),
		c.Interval,
		c.EaseFactor,
		c.Repetitions,
		outcomeLabel(c.Difficulty),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("card %s: %w", c.ID, apperr.ErrConflict)
		}
		return fmt.Errorf("failed to insert card %s: %w", c.ID, err)
	}
	return nil
}

// GetCard retrieves a card by ID.
func (db *DB) GetCard(ctx context.Context, id string) (domain.Card, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if err != nil {
		return c, fmt.Errorf("failed to get card %s: %w", id, notFound(err, "card"))
	}
	return c, nil
}

// ListCardsByDeck returns every card of a deck in creation order.
func (db *DB) ListCardsByDeck(ctx context.Context, deckID string) ([]domain.Card, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+cardColumns+` FROM cards WHERE deck_id = ? ORDER BY created_at, id
	`, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards for deck %s: %w", deckID, err)
	}
	return scanCards(rows)
}

// UpdateCardContent replaces the text of a card. Scheduling state is untouched.
func (db *DB) UpdateCardContent(ctx context.Context, c domain.Card) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE cards SET front = ?, back = ?, context = ?, hash = ? WHERE id = ?
	`, c.Front, c.Back, c.Context, c.Hash, c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("card %s: %w", c.ID, apperr.ErrConflict)
		}
		return fmt.Errorf("failed to update card %s: %w", c.ID, err)
	}
	return expectOne(res, "card")
}

// DeleteCard removes a card and its review logs.
func (db *DB) DeleteCard(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", id, err)
	}
	return expectOne(res, "card")
}
