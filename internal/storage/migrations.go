package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
)

type migration struct {
	version string
	apply   func(ctx context.Context, tx *sql.Tx) error
	// rebuild migrations recreate tables and run with foreign keys off.
	rebuild bool
}

// migrations upgrade databases created by older releases. Each runs once,
// in order, when the stored version is below its own.
var migrations = []migration{
	{version: "0.2", apply: execAll(
		`ALTER TABLE decks ADD COLUMN info TEXT NOT NULL DEFAULT '{}'`,
		`ALTER TABLE models ADD COLUMN info TEXT NOT NULL DEFAULT '{}'`,
		`ALTER TABLE templates ADD COLUMN info TEXT NOT NULL DEFAULT '{}'`,
		`ALTER TABLE notes ADD COLUMN info TEXT NOT NULL DEFAULT '{}'`,
		`ALTER TABLE cards ADD COLUMN info TEXT NOT NULL DEFAULT '{}'`,
		`ALTER TABLE cards ADD COLUMN last_review INTEGER`,
	)},
	{version: "0.3", apply: func(ctx context.Context, tx *sql.Tx) error {
		if err := execAll(
			`ALTER TABLE notes ADD COLUMN guid TEXT`,
			`ALTER TABLE cards ADD COLUMN backup TEXT`,
		)(ctx, tx); err != nil {
			return err
		}
		if err := backfillGUIDs(ctx, tx); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_notes_guid ON notes(guid)`)
		return err
	}},
	// Note uniqueness moves from the whole database to each model.
	{version: "0.4", rebuild: true, apply: execAll(
		`CREATE TABLE notes_v4 (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			guid TEXT UNIQUE,
			model_id INTEGER NOT NULL REFERENCES models(id),
			data TEXT NOT NULL,
			key_constraint TEXT NOT NULL,
			created INTEGER NOT NULL,
			modified INTEGER NOT NULL,
			info TEXT NOT NULL DEFAULT '{}',

			UNIQUE (model_id, key_constraint)
		)`,
		`INSERT INTO notes_v4 (id, guid, model_id, data, key_constraint, created, modified, info)
			SELECT id, guid, model_id, data, key_constraint, created, modified, info FROM notes`,
		`DROP TABLE notes`,
		`ALTER TABLE notes_v4 RENAME TO notes`,
	)},
}

func latestVersion() string {
	return migrations[len(migrations)-1].version
}

func execAll(stmts ...string) func(ctx context.Context, tx *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("%s: %w", stmt, err)
			}
		}
		return nil
	}
}

func backfillGUIDs(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM notes WHERE guid IS NULL`)
	if err != nil {
		return err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE notes SET guid = ? WHERE id = ?`, uuid.NewString(), id); err != nil {
			return err
		}
	}
	return nil
}

// migrate applies every migration newer than the stored version and stamps
// the settings row after each one.
func (db *DB) migrate(ctx context.Context) error {
	settings, err := db.Settings(ctx)
	if err != nil {
		return err
	}
	version := settings.Version
	if version == "" {
		version = "0.1"
	}
	current, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid schema version %q: %w", version, err)
	}

	for _, m := range migrations {
		target := semver.MustParse(m.version)
		if !current.LessThan(target) {
			continue
		}
		db.log.Info().Str("from", current.Original()).Str("to", m.version).Msg("migrating database")
		run := db.withTx
		if m.rebuild {
			run = db.withTxForeignKeysOff
		}
		err := run(ctx, func(tx *sql.Tx) error {
			if err := m.apply(ctx, tx); err != nil {
				return err
			}
			info, err := json.Marshal(settingsInfo{Version: m.version})
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, `UPDATE settings SET info = json_patch(info, ?) WHERE id = 1`, string(info))
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s: %w", m.version, err)
		}
		current = target
	}
	return nil
}
