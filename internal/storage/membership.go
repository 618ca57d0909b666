package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/conorfennell/srsdb/internal/deck"
	"github.com/conorfennell/srsdb/internal/domain"
)

// AddTag tags every note. An existing association is ignored unless strict
// is set, in which case it fails with domain.ErrConstraintViolation.
func (db *DB) AddTag(ctx context.Context, noteIDs []int64, tag string, strict bool) error {
	return db.AddTags(ctx, noteIDs, []string{tag}, strict)
}

// AddTags applies AddTag for each tag in one transaction.
func (db *DB) AddTags(ctx context.Context, noteIDs []int64, tags []string, strict bool) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		for _, tag := range tags {
			for _, id := range noteIDs {
				if err := requireRow(ctx, tx, "notes", id); err != nil {
					return err
				}
				if err := addTag(ctx, tx, id, tag, strict); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func addTag(ctx context.Context, tx *sql.Tx, noteID int64, tag string, strict bool) error {
	tagID, err := getOrCreate(ctx, tx, "tags", tag)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO note_tags (note_id, tag_id) VALUES (?, ?)`, noteID, tagID)
	if err != nil {
		if isConstraint(err) && !strict {
			return nil
		}
		return wrapWrite(fmt.Sprintf("failed to tag note %d with %q", noteID, tag), err)
	}
	return nil
}

// RemoveTag removes a tag from every note. Missing associations are ignored.
func (db *DB) RemoveTag(ctx context.Context, noteIDs []int64, tag string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range noteIDs {
			if err := requireRow(ctx, tx, "notes", id); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `
				DELETE FROM note_tags
				WHERE note_id = ? AND tag_id IN (SELECT id FROM tags WHERE name = ?)
			`, id, tag)
			if err != nil {
				return fmt.Errorf("failed to untag note %d: %w", id, err)
			}
		}
		return nil
	})
}

// AddDeck files every card into a deck, creating the deck when needed. An
// existing membership is ignored unless strict is set.
func (db *DB) AddDeck(ctx context.Context, cardIDs []int64, name string, strict bool) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		deckID, err := getOrCreate(ctx, tx, "decks", name)
		if err != nil {
			return err
		}
		for _, id := range cardIDs {
			if err := requireRow(ctx, tx, "cards", id); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO card_decks (card_id, deck_id) VALUES (?, ?)`, id, deckID)
			if err != nil {
				if isConstraint(err) && !strict {
					continue
				}
				return wrapWrite(fmt.Sprintf("failed to add card %d to deck %q", id, name), err)
			}
		}
		return nil
	})
}

// RemoveDeck takes every card out of a deck. Missing memberships are ignored.
func (db *DB) RemoveDeck(ctx context.Context, cardIDs []int64, name string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range cardIDs {
			if err := requireRow(ctx, tx, "cards", id); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `
				DELETE FROM card_decks
				WHERE card_id = ? AND deck_id IN (SELECT id FROM decks WHERE name = ?)
			`, id, name)
			if err != nil {
				return fmt.Errorf("failed to remove card %d from deck %q: %w", id, name, err)
			}
		}
		return nil
	})
}

// Decks lists every deck ordered by name.
func (db *DB) Decks(ctx context.Context) ([]domain.Deck, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name FROM decks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	defer rows.Close()

	var decks []domain.Deck
	for rows.Next() {
		var d domain.Deck
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("failed to scan deck row: %w", err)
		}
		decks = append(decks, d)
	}
	return decks, rows.Err()
}

// getOrCreate returns the ID of the named tag or deck, inserting it first if
// needed. Names match case-insensitively.
func getOrCreate(ctx context.Context, tx *sql.Tx, table, name string) (int64, error) {
	if err := validName(table, name); err != nil {
		return 0, err
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO `+table+` (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s %q: %w", table, name, err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to look up %s %q: %w", table, name, err)
	}
	return id, nil
}

func validName(table, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty name in %s", ErrInvalidName, table)
	}
	if table == "decks" {
		for _, seg := range deck.Split(name) {
			if strings.TrimSpace(seg) == "" {
				return fmt.Errorf("%w: deck %q has an empty segment", ErrInvalidName, name)
			}
		}
	}
	return nil
}

func requireRow(ctx context.Context, q querier, table string, id int64) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", strings.TrimSuffix(table, "s"), id, domain.ErrNotFound)
	}
	return err
}
