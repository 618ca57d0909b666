package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/conorfennell/srsdb/internal/domain"
)

// TemplateSpec describes a template to create with its model.
type TemplateSpec struct {
	Name  string `yaml:"name" validate:"required"`
	Front string `yaml:"front" validate:"required"`
	Back  string `yaml:"back"`
}

// ModelSpec describes a model to create.
type ModelSpec struct {
	Name      string         `yaml:"name" validate:"required"`
	KeyFields []string       `yaml:"key_fields" validate:"required,min=1,dive,required"`
	CSS       string         `yaml:"css"`
	JS        string         `yaml:"js"`
	Templates []TemplateSpec `yaml:"templates" validate:"dive"`
}

// CreateModel inserts a model and its templates in one transaction and
// returns the model ID.
func (db *DB) CreateModel(ctx context.Context, spec ModelSpec) (int64, error) {
	if err := db.validate.Struct(spec); err != nil {
		return 0, fmt.Errorf("invalid model %q: %w", spec.Name, err)
	}
	keyFields, err := json.Marshal(spec.KeyFields)
	if err != nil {
		return 0, err
	}

	var modelID int64
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO models (name, key_fields, css, js)
			VALUES (?, ?, ?, ?)
		`, spec.Name, string(keyFields), nullString(spec.CSS), nullString(spec.JS))
		if err != nil {
			return wrapWrite(fmt.Sprintf("failed to insert model %q", spec.Name), err)
		}
		if modelID, err = res.LastInsertId(); err != nil {
			return err
		}

		for _, t := range spec.Templates {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO templates (model_id, name, front, back)
				VALUES (?, ?, ?, ?)
			`, modelID, t.Name, t.Front, nullString(t.Back))
			if err != nil {
				return wrapWrite(fmt.Sprintf("failed to insert template %q", t.Name), err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	db.log.Debug().Int64("model_id", modelID).Str("name", spec.Name).Int("templates", len(spec.Templates)).Msg("model created")
	return modelID, nil
}

// FindModel resolves a model by name, falling back to a numeric ID.
func (db *DB) FindModel(ctx context.Context, ref string) (int64, error) {
	m, err := db.ModelByName(ctx, ref)
	if err == nil {
		return m.ID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return 0, err
	}
	id, convErr := strconv.ParseInt(ref, 10, 64)
	if convErr != nil {
		return 0, err
	}
	m, err = db.Model(ctx, id)
	if err != nil {
		return 0, err
	}
	return m.ID, nil
}

// ModelByName loads a model and its templates by exact name.
func (db *DB) ModelByName(ctx context.Context, name string) (*domain.Model, error) {
	var id int64
	err := db.conn.QueryRowContext(ctx, `SELECT id FROM models WHERE name = ?`, name).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("model %q: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find model %q: %w", name, err)
	}
	return db.Model(ctx, id)
}

// Model loads a model and its templates by ID.
func (db *DB) Model(ctx context.Context, id int64) (*domain.Model, error) {
	return loadModel(ctx, db.conn, id)
}

func loadModel(ctx context.Context, q querier, id int64) (*domain.Model, error) {
	var m domain.Model
	var keyFields string
	var css, js sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT id, name, key_fields, css, js
		FROM models WHERE id = ?
	`, id).Scan(&m.ID, &m.Name, &keyFields, &css, &js)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("model %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load model %d: %w", id, err)
	}
	if err := json.Unmarshal([]byte(keyFields), &m.KeyFields); err != nil {
		return nil, fmt.Errorf("failed to decode key fields of model %d: %w", id, err)
	}
	m.CSS, m.JS = css.String, js.String

	rows, err := q.QueryContext(ctx, `
		SELECT id, model_id, name, front, back
		FROM templates WHERE model_id = ? ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates of model %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var t domain.Template
		var back sql.NullString
		if err := rows.Scan(&t.ID, &t.ModelID, &t.Name, &t.Front, &back); err != nil {
			return nil, fmt.Errorf("failed to scan template row: %w", err)
		}
		t.Back = back.String
		m.Templates = append(m.Templates, t)
	}
	return &m, rows.Err()
}

// wrapWrite maps constraint failures to domain.ErrConstraintViolation.
func wrapWrite(msg string, err error) error {
	if isConstraint(err) {
		return fmt.Errorf("%s: %w: %v", msg, domain.ErrConstraintViolation, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
