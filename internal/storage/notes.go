package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/conorfennell/srsdb/internal/domain"
)

// CreateNote validates data against the model, stores the note and generates
// one card per template that renders for it, all in one transaction. A
// duplicate note aborts; a duplicate card front only skips that card.
func (db *DB) CreateNote(ctx context.Context, modelID int64, data domain.Fields, tags []string) (int64, error) {
	var noteID int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		model, err := loadModel(ctx, tx, modelID)
		if err != nil {
			return err
		}
		constraint, err := domain.Constraint(model.KeyFields, data)
		if err != nil {
			return fmt.Errorf("note for model %q: %w", model.Name, err)
		}
		raw, err := data.MarshalJSON()
		if err != nil {
			return err
		}

		now := db.now().UnixMilli()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO notes (guid, model_id, data, key_constraint, created, modified)
			VALUES (?, ?, ?, ?, ?, ?)
		`, uuid.NewString(), modelID, string(raw), constraint, now, now)
		if err != nil {
			return wrapWrite("failed to insert note "+constraint, err)
		}
		if noteID, err = res.LastInsertId(); err != nil {
			return err
		}

		if err := db.generateCards(ctx, tx, noteID, model.Templates, data); err != nil {
			return err
		}
		for _, tag := range tags {
			if err := addTag(ctx, tx, noteID, tag, false); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return noteID, nil
}

// UpdateNote merges fields into a note's data, recomputes its constraint and
// brings its cards in line with the new data.
func (db *DB) UpdateNote(ctx context.Context, noteID int64, fields domain.Fields) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		note, err := loadNote(ctx, tx, noteID)
		if err != nil {
			return err
		}
		model, err := loadModel(ctx, tx, note.ModelID)
		if err != nil {
			return err
		}

		data := note.Data.Merge(fields)
		constraint, err := domain.Constraint(model.KeyFields, data)
		if err != nil {
			return fmt.Errorf("note %d: %w", noteID, err)
		}
		raw, err := data.MarshalJSON()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE notes SET data = ?, key_constraint = ?, modified = ?
			WHERE id = ?
		`, string(raw), constraint, db.now().UnixMilli(), noteID)
		if err != nil {
			return wrapWrite(fmt.Sprintf("failed to update note %d", noteID), err)
		}
		return db.generateCards(ctx, tx, noteID, model.Templates, data)
	})
}

// generateCards creates missing cards and refreshes the fronts of existing
// ones. Front collisions are logged and skipped.
func (db *DB) generateCards(ctx context.Context, tx *sql.Tx, noteID int64, templates []domain.Template, data domain.Fields) error {
	for _, t := range templates {
		front := domain.Render(t.Front, data)

		var cardID int64
		var current string
		err := tx.QueryRowContext(ctx, `
			SELECT id, front FROM cards WHERE note_id = ? AND template_id = ?
		`, noteID, t.ID).Scan(&cardID, &current)

		switch {
		case err == nil:
			if current == front {
				continue
			}
			_, err = tx.ExecContext(ctx, `UPDATE cards SET front = ? WHERE id = ?`, front, cardID)
		case errors.Is(err, sql.ErrNoRows):
			if !t.Produces(data) {
				continue
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO cards (template_id, note_id, front)
				VALUES (?, ?, ?)
			`, t.ID, noteID, front)
		default:
			return fmt.Errorf("failed to look up card for note %d: %w", noteID, err)
		}

		if err != nil {
			if isConstraint(err) {
				db.log.Warn().Err(err).
					Int64("note_id", noteID).
					Int64("template_id", t.ID).
					Str("front", front).
					Msg("card front already exists, skipping")
				continue
			}
			return fmt.Errorf("failed to write card for note %d: %w", noteID, err)
		}
	}
	return nil
}

// Note loads a note with its tags.
func (db *DB) Note(ctx context.Context, noteID int64) (*domain.Note, error) {
	return loadNote(ctx, db.conn, noteID)
}

func loadNote(ctx context.Context, q querier, noteID int64) (*domain.Note, error) {
	var n domain.Note
	var guid sql.NullString
	var raw string
	var created, modified sql.NullInt64
	err := q.QueryRowContext(ctx, `
		SELECT id, guid, model_id, data, key_constraint, created, modified
		FROM notes WHERE id = ?
	`, noteID).Scan(&n.ID, &guid, &n.ModelID, &raw, &n.Constraint, &created, &modified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("note %d: %w", noteID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load note %d: %w", noteID, err)
	}
	n.GUID = guid.String
	if err := n.Data.UnmarshalJSON([]byte(raw)); err != nil {
		return nil, fmt.Errorf("failed to decode data of note %d: %w", noteID, err)
	}
	if t := fromMillis(created); t != nil {
		n.Created = *t
	}
	if t := fromMillis(modified); t != nil {
		n.Modified = *t
	}

	n.Tags, err = queryStrings(ctx, q, `
		SELECT t.name FROM tags t
		JOIN note_tags nt ON nt.tag_id = t.id
		WHERE nt.note_id = ? ORDER BY t.name
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags of note %d: %w", noteID, err)
	}
	return &n, nil
}

// NoteByKey returns the ID of the note of the model whose key fields match
// data, or domain.ErrNotFound.
func (db *DB) NoteByKey(ctx context.Context, modelID int64, data domain.Fields) (int64, error) {
	model, err := loadModel(ctx, db.conn, modelID)
	if err != nil {
		return 0, err
	}
	constraint, err := domain.Constraint(model.KeyFields, data)
	if err != nil {
		return 0, fmt.Errorf("note for model %q: %w", model.Name, err)
	}
	var id int64
	err = db.conn.QueryRowContext(ctx,
		`SELECT id FROM notes WHERE model_id = ? AND key_constraint = ?`, modelID, constraint,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("note %s: %w", constraint, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find note %s: %w", constraint, err)
	}
	return id, nil
}

// FindNotes returns the IDs of notes whose data holds every given field value exactly.
func (db *DB) FindNotes(ctx context.Context, match domain.Fields) ([]int64, error) {
	var conditions []string
	var args []any
	for _, f := range match {
		conditions = append(conditions, "json_extract(data, ?) = ?")
		args = append(args, JSONPath(f.Name), SQLValue(f.Value))
	}
	query := `SELECT id FROM notes`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	ids, err := queryIDs(ctx, db.conn, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find notes: %w", err)
	}
	return ids, nil
}

// NoteFieldNames lists every field name used by any note.
func (db *DB) NoteFieldNames(ctx context.Context) ([]string, error) {
	names, err := queryStrings(ctx, db.conn, `
		SELECT DISTINCT j.key FROM notes n, json_each(n.data) AS j ORDER BY j.key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list note fields: %w", err)
	}
	return names, nil
}

// CardsForNote lists the IDs of the cards generated from a note.
func (db *DB) CardsForNote(ctx context.Context, noteID int64) ([]int64, error) {
	ids, err := queryIDs(ctx, db.conn, `SELECT id FROM cards WHERE note_id = ? ORDER BY id`, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards of note %d: %w", noteID, err)
	}
	return ids, nil
}

// JSONPath addresses a top-level note field in json_extract.
func JSONPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}

// SQLValue converts a field value to what json_extract yields for it.
func SQLValue(v domain.Value) any {
	switch v.Kind() {
	case domain.KindNumber:
		return v.Float()
	case domain.KindBool:
		if v.IsTrue() {
			return 1
		}
		return 0
	default:
		return v.String()
	}
}

func queryIDs(ctx context.Context, q querier, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func queryStrings(ctx context.Context, q querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
