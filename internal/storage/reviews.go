package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/conorfennell/recall/internal/domain"
)

// SaveReview writes the card's new scheduling state and appends the review log
// in one transaction. It returns the log with its assigned ID.
func (db *DB) SaveReview(ctx context.Context, c domain.Card, log domain.ReviewLog) (domain.ReviewLog, error) {
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE cards
			SET last_reviewed = ?, next_review = ?, interval_days = ?, ease_factor = ?, repetitions = ?, difficulty = ?
			WHERE id = ?
		`,
			nullTime(c.LastReviewed),
			c.NextReview.UTC(),
			c.Interval,
			c.EaseFactor,
			c.Repetitions,
			outcomeLabel(c.Difficulty),
			c.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update card state for %s: %w", c.ID, err)
		}
		if err := expectOne(res, "card"); err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx, `
			INSERT INTO review_logs (card_id, deck_id, outcome, reviewed_at, interval_before, interval_after, ease_before, ease_after)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			log.CardID,
			log.DeckID,
			outcomeLabel(log.Outcome),
			log.ReviewedAt.UTC(),
			log.IntervalBefore,
			log.IntervalAfter,
			log.EaseBefore,
			log.EaseAfter,
		)
		if err != nil {
			return fmt.Errorf("failed to insert review log for card %s: %w", c.ID, err)
		}
		log.ID, err = res.LastInsertId()
		return err
	})
	return log, err
}

// ListReviewLogs returns the review logs of a deck recorded at or after since,
// oldest first.
func (db *DB) ListReviewLogs(ctx context.Context, deckID string, since time.Time) ([]domain.ReviewLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, card_id, deck_id, outcome, reviewed_at, interval_before, interval_after, ease_before, ease_after
		FROM review_logs
		WHERE deck_id = ? AND reviewed_at >= ?
		ORDER BY reviewed_at, id
	`, deckID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list review logs for deck %s: %w", deckID, err)
	}
	defer rows.Close()

	logs := []domain.ReviewLog{}
	for rows.Next() {
		var (
			l       domain.ReviewLog
			outcome string
		)
		if err := rows.Scan(
			&l.ID,
			&l.CardID,
			&l.DeckID,
			&outcome,
			&l.ReviewedAt,
			&l.IntervalBefore,
			&l.IntervalAfter,
			&l.EaseBefore,
			&l.EaseAfter,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review log row: %w", err)
		}
		l.ReviewedAt = l.ReviewedAt.UTC()
		if l.Outcome, err = domain.ParseOutcome(outcome); err != nil {
			return nil, fmt.Errorf("review log %d: %w", l.ID, err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
