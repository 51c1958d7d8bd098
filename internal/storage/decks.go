package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/conorfennell/recall/internal/apperr"
	"github.com/conorfennell/recall/internal/domain"
)

// DeckSummary is a deck together with the number of cards it holds.
type DeckSummary struct {
	domain.Deck
	CardCount int `json:"card_count"`
}

const deckColumns = `id, name, description, source_id, created_at`

func scanDeck(row rowScanner) (domain.Deck, error) {
	var (
		d        domain.Deck
		sourceID sql.NullInt64
	)
	if err := row.Scan(&d.ID, &d.Name, &d.Description, &sourceID, &d.CreatedAt); err != nil {
		return d, err
	}
	d.CreatedAt = d.CreatedAt.UTC()
	if sourceID.Valid {
		id := sourceID.Int64
		d.SourceID = &id
	}
	return d, nil
}

// CreateDeck inserts a new deck.
func (db *DB) CreateDeck(ctx context.Context, d domain.Deck) error {
	var sourceID sql.NullInt64
	if d.SourceID != nil {
		sourceID = sql.NullInt64{Int64: *d.SourceID, Valid: true}
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO decks (id, name, description, source_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, d.ID, d.Name, d.Description, sourceID, d.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("deck %s: %w", d.ID, apperr.ErrConflict)
		}
		return fmt.Errorf("failed to insert deck %s: %w", d.ID, err)
	}
	return nil
}

// GetDeck retrieves a deck by ID.
func (db *DB) GetDeck(ctx context.Context, id string) (domain.Deck, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+deckColumns+` FROM decks WHERE id = ?`, id)
	d, err := scanDeck(row)
	if err != nil {
		return d, fmt.Errorf("failed to get deck %s: %w", id, notFound(err, "deck"))
	}
	return d, nil
}

// FindDeckBySource retrieves the deck owned by a source.
func (db *DB) FindDeckBySource(ctx context.Context, sourceID int64) (domain.Deck, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+deckColumns+` FROM decks WHERE source_id = ?`, sourceID)
	d, err := scanDeck(row)
	if err != nil {
		return d, fmt.Errorf("failed to find deck for source %d: %w", sourceID, notFound(err, "deck"))
	}
	return d, nil
}

// ListDecks returns all decks ordered by name, with their card counts.
func (db *DB) ListDecks(ctx context.Context) ([]DeckSummary, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT d.id, d.name, d.description, d.source_id, d.created_at, COUNT(c.id)
		FROM decks d
		LEFT JOIN cards c ON c.deck_id = d.id
		GROUP BY d.id
		ORDER BY d.name, d.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	defer rows.Close()

	decks := []DeckSummary{}
	for rows.Next() {
		var (
			s        DeckSummary
			sourceID sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &sourceID, &s.CreatedAt, &s.CardCount); err != nil {
			return nil, fmt.Errorf("failed to scan deck row: %w", err)
		}
		s.CreatedAt = s.CreatedAt.UTC()
		if sourceID.Valid {
			id := sourceID.Int64
			s.SourceID = &id
		}
		decks = append(decks, s)
	}
	return decks, rows.Err()
}

// UpdateDeck changes a deck's name and description.
func (db *DB) UpdateDeck(ctx context.Context, d domain.Deck) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE decks SET name = ?, description = ? WHERE id = ?
	`, d.Name, d.Description, d.ID)
	if err != nil {
		return fmt.Errorf("failed to update deck %s: %w", d.ID, err)
	}
	return expectOne(res, "deck")
}

// DeleteDeck removes a deck with its cards and review logs.
func (db *DB) DeleteDeck(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM review_logs WHERE deck_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete review logs of deck %s: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete deck %s: %w", id, err)
		}
		return expectOne(res, "deck")
	})
}
