package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/srsdb/internal/domain"
)

func openTest(t *testing.T, opts ...Option) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

var vocab = ModelSpec{
	Name:      "vocab",
	KeyFields: []string{"word"},
	Templates: []TemplateSpec{
		{Name: "forward", Front: "{{word}}", Back: "{{meaning}}"},
		{Name: "reverse", Front: "Which word means {{meaning}}?", Back: "{{word}}"},
		{Name: "static", Front: "Say something"},
	},
}

func fields(kv ...string) domain.Fields {
	var f domain.Fields
	for i := 0; i+1 < len(kv); i += 2 {
		f.Set(kv[i], domain.String(kv[i+1]))
	}
	return f
}

func TestOpenSeedsSettings(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)

	s, err := db.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultIntervals, s.Intervals)
	assert.Equal(t, latestVersion(), s.Version)

	table := []time.Duration{time.Minute, time.Hour}
	require.NoError(t, db.SetIntervals(ctx, table))
	s, err = db.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, table, s.Intervals)

	assert.Error(t, db.SetIntervals(ctx, nil))
	assert.Error(t, db.SetIntervals(ctx, []time.Duration{time.Hour, 0}))
}

func TestOpenWithIntervals(t *testing.T) {
	table := []time.Duration{time.Minute, 90 * time.Second}
	db := openTest(t, WithIntervals(table))
	s, err := db.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, table, s.Intervals)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.db")

	db, err := Open(path)
	require.NoError(t, err)
	_, err = db.CreateModel(ctx, vocab)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	m, err := db.ModelByName(ctx, "vocab")
	require.NoError(t, err)
	assert.Len(t, m.Templates, 3)
}

func TestMigrateLegacyDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "legacy.db")

	conn, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `
		CREATE TABLE settings (id INTEGER PRIMARY KEY, srs TEXT, info TEXT NOT NULL DEFAULT '{}');
		CREATE TABLE tags (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE COLLATE NOCASE);
		CREATE TABLE decks (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE COLLATE NOCASE);
		CREATE TABLE models (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE,
			key_fields TEXT NOT NULL DEFAULT '[]', css TEXT, js TEXT);
		CREATE TABLE templates (id INTEGER PRIMARY KEY AUTOINCREMENT, model_id INTEGER NOT NULL,
			name TEXT NOT NULL, front TEXT NOT NULL, back TEXT);
		CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT, model_id INTEGER NOT NULL,
			data TEXT NOT NULL, key_constraint TEXT NOT NULL UNIQUE, created INTEGER NOT NULL, modified INTEGER NOT NULL);
		CREATE TABLE note_tags (note_id INTEGER NOT NULL, tag_id INTEGER NOT NULL, PRIMARY KEY (note_id, tag_id));
		CREATE TABLE cards (id INTEGER PRIMARY KEY AUTOINCREMENT, template_id INTEGER NOT NULL, note_id INTEGER NOT NULL,
			front TEXT NOT NULL UNIQUE, srs_level INTEGER, next_review INTEGER);
		CREATE TABLE card_decks (card_id INTEGER NOT NULL, deck_id INTEGER NOT NULL, PRIMARY KEY (card_id, deck_id));

		INSERT INTO settings (id, srs, info) VALUES (1, '[60, 3600]', '{}');
		INSERT INTO models (id, name, key_fields) VALUES (1, 'basic', '["q"]');
		INSERT INTO templates (id, model_id, name, front, back) VALUES (1, 1, 'forward', '{{q}}', '{{a}}');
		INSERT INTO notes (id, model_id, data, key_constraint, created, modified)
			VALUES (1, 1, '{"q":"2+2","a":"4"}', '{"q":"2+2"}', 0, 0);
		INSERT INTO cards (id, template_id, note_id, front, srs_level, next_review) VALUES (1, 1, 1, '2+2', 2, 1000);
	`)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	s, err := db.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, latestVersion(), s.Version)
	assert.Equal(t, []time.Duration{time.Minute, time.Hour}, s.Intervals)

	n, err := db.Note(ctx, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, n.GUID)

	c, err := db.Card(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, *c.SRSLevel)
	assert.Nil(t, c.LastReview)
	assert.Nil(t, c.Backup)
	assert.Equal(t, "4", c.Back())

	// Rebuilt notes keep their uniqueness, now scoped to the model.
	_, err = db.CreateNote(ctx, 1, fields("q", "2+2", "a", "5"), nil)
	assert.ErrorIs(t, err, domain.ErrConstraintViolation)
	other, err := db.CreateModel(ctx, ModelSpec{
		Name:      "other",
		KeyFields: []string{"q"},
		Templates: []TemplateSpec{{Name: "forward", Front: "Solve {{q}}", Back: "{{a}}"}},
	})
	require.NoError(t, err)
	_, err = db.CreateNote(ctx, other, fields("q", "2+2", "a", "4"), nil)
	assert.NoError(t, err)
}
