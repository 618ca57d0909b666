package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/conorfennell/srsdb/internal/domain"
)

// Card loads a card together with its template, note data and decks.
func (db *DB) Card(ctx context.Context, cardID int64) (*domain.Card, error) {
	var c domain.Card
	var level sql.NullInt64
	var next, last sql.NullInt64
	var info string
	var backup, back sql.NullString
	var data string
	err := db.conn.QueryRowContext(ctx, `
		SELECT c.id, c.template_id, c.note_id, c.front, c.srs_level, c.next_review, c.last_review, c.info, c.backup,
		       t.id, t.model_id, t.name, t.front, t.back, n.data
		FROM cards c
		JOIN templates t ON t.id = c.template_id
		JOIN notes n ON n.id = c.note_id
		WHERE c.id = ?
	`, cardID).Scan(
		&c.ID, &c.TemplateID, &c.NoteID, &c.Front, &level, &next, &last, &info, &backup,
		&c.Template.ID, &c.Template.ModelID, &c.Template.Name, &c.Template.Front, &back, &data,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("card %d: %w", cardID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load card %d: %w", cardID, err)
	}

	if level.Valid {
		lv := int(level.Int64)
		c.SRSLevel = &lv
	}
	c.NextReview = fromMillis(next)
	c.LastReview = fromMillis(last)
	c.Template.Back = back.String
	if err := json.Unmarshal([]byte(info), &c.Info); err != nil {
		return nil, fmt.Errorf("failed to decode info of card %d: %w", cardID, err)
	}
	if backup.Valid && backup.String != "" {
		var snap domain.CardSnapshot
		if err := json.Unmarshal([]byte(backup.String), &snap); err != nil {
			return nil, fmt.Errorf("failed to decode backup of card %d: %w", cardID, err)
		}
		c.Backup = &snap
	}
	if err := c.Data.UnmarshalJSON([]byte(data)); err != nil {
		return nil, fmt.Errorf("failed to decode note data of card %d: %w", cardID, err)
	}

	c.Decks, err = queryStrings(ctx, db.conn, `
		SELECT d.name FROM decks d
		JOIN card_decks cd ON cd.deck_id = d.id
		WHERE cd.card_id = ? ORDER BY d.name
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to load decks of card %d: %w", cardID, err)
	}
	return &c, nil
}

// SaveCardState persists the schedule state, counters and pending backup of a card.
func (db *DB) SaveCardState(ctx context.Context, c *domain.Card) error {
	info, err := json.Marshal(c.Info)
	if err != nil {
		return err
	}
	var backup sql.NullString
	if c.Backup != nil {
		raw, err := json.Marshal(c.Backup)
		if err != nil {
			return err
		}
		backup = sql.NullString{String: string(raw), Valid: true}
	}
	var level sql.NullInt64
	if c.SRSLevel != nil {
		level = sql.NullInt64{Int64: int64(*c.SRSLevel), Valid: true}
	}

	res, err := db.conn.ExecContext(ctx, `
		UPDATE cards
		SET srs_level = ?, next_review = ?, last_review = ?, info = ?, backup = ?
		WHERE id = ?
	`, level, millis(c.NextReview), millis(c.LastReview), string(info), backup, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update card state for card %d: %w", c.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("card %d: %w", c.ID, domain.ErrNotFound)
	}
	return nil
}
