package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/conorfennell/recall/internal/apperr"
	"github.com/conorfennell/recall/internal/domain"
)

const sourceQuery = `
	SELECT s.id, s.path, s.type, s.last_scanned, COALESCE(d.id, '')
	FROM sources s
	LEFT JOIN decks d ON d.source_id = s.id
`

func scanSource(row rowScanner) (domain.Source, error) {
	var (
		s           domain.Source
		lastScanned sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.Path, &s.Type, &lastScanned, &s.DeckID); err != nil {
		return s, err
	}
	s.LastScanned = timePtr(lastScanned)
	return s, nil
}

// InsertSource inserts a new source path into the database and returns its ID.
func (db *DB) InsertSource(ctx context.Context, path, sourceType string) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO sources (path, type) VALUES (?, ?)
	`, path, sourceType)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("source %s: %w", path, apperr.ErrConflict)
		}
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// GetSource retrieves a source by ID.
func (db *DB) GetSource(ctx context.Context, id int64) (domain.Source, error) {
	s, err := scanSource(db.conn.QueryRowContext(ctx, sourceQuery+` WHERE s.id = ?`, id))
	if err != nil {
		return s, fmt.Errorf("failed to get source %d: %w", id, notFound(err, "source"))
	}
	return s, nil
}

// FindSourceByPath retrieves a source from the database by its path.
func (db *DB) FindSourceByPath(ctx context.Context, path string) (domain.Source, error) {
	s, err := scanSource(db.conn.QueryRowContext(ctx, sourceQuery+` WHERE s.path = ?`, path))
	if err != nil {
		return s, fmt.Errorf("failed to find source by path %s: %w", path, notFound(err, "source"))
	}
	return s, nil
}

// ListSources retrieves all stored sources from the database.
func (db *DB) ListSources(ctx context.Context) ([]domain.Source, error) {
	rows, err := db.conn.QueryContext(ctx, sourceQuery+` ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	sources := []domain.Source{}
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(ctx context.Context, id int64, at time.Time) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE sources SET last_scanned = ? WHERE id = ?
	`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", id, err)
	}
	return expectOne(res, "source")
}

// DeleteSource removes a source together with the deck it owns.
func (db *DB) DeleteSource(ctx context.Context, id int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM review_logs WHERE deck_id IN (SELECT id FROM decks WHERE source_id = ?)
		`, id); err != nil {
			return fmt.Errorf("failed to delete review logs of source %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM decks WHERE source_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete deck of source %d: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete source %d: %w", id, err)
		}
		return expectOne(res, "source")
	})
}
