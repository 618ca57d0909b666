package storage

// Timestamps are stored as Unix milliseconds so that due filtering compares integers.
const schema = `
-- The 'settings' table holds a single row: the SRS interval table and the schema version.
CREATE TABLE IF NOT EXISTS settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    srs TEXT,                        -- JSON array of interval seconds, NULL for the default table
    info TEXT NOT NULL DEFAULT '{}'  -- JSON object, carries "version"
);

CREATE TABLE IF NOT EXISTS tags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE COLLATE NOCASE
);

CREATE TABLE IF NOT EXISTS decks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE COLLATE NOCASE,
    info TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS models (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    key_fields TEXT NOT NULL DEFAULT '[]',
    css TEXT,
    js TEXT,
    info TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS templates (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    model_id INTEGER NOT NULL REFERENCES models(id),
    name TEXT NOT NULL,
    front TEXT NOT NULL,
    back TEXT,
    info TEXT NOT NULL DEFAULT '{}',

    UNIQUE (model_id, name),
    UNIQUE (model_id, front)
);

-- 'key_constraint' is the sorted JSON of the model's key fields; it keeps facts
-- unique within a model.
CREATE TABLE IF NOT EXISTS notes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    guid TEXT UNIQUE,
    model_id INTEGER NOT NULL REFERENCES models(id),
    data TEXT NOT NULL,
    key_constraint TEXT NOT NULL,
    created INTEGER NOT NULL,
    modified INTEGER NOT NULL,
    info TEXT NOT NULL DEFAULT '{}',

    UNIQUE (model_id, key_constraint)
);

CREATE TABLE IF NOT EXISTS note_tags (
    note_id INTEGER NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
    tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,

    PRIMARY KEY (note_id, tag_id)
);

-- 'front' is the rendered front text; no two cards may render the same question.
CREATE TABLE IF NOT EXISTS cards (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    template_id INTEGER NOT NULL REFERENCES templates(id),
    note_id INTEGER NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
    front TEXT NOT NULL UNIQUE,
    srs_level INTEGER,
    next_review INTEGER,
    last_review INTEGER,
    info TEXT NOT NULL DEFAULT '{}',
    backup TEXT,

    UNIQUE (note_id, template_id)
);

CREATE TABLE IF NOT EXISTS card_decks (
    card_id INTEGER NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
    deck_id INTEGER NOT NULL REFERENCES decks(id) ON DELETE CASCADE,

    PRIMARY KEY (card_id, deck_id)
);

CREATE INDEX IF NOT EXISTS idx_cards_next_review ON cards(next_review);
CREATE INDEX IF NOT EXISTS idx_cards_note ON cards(note_id);
CREATE INDEX IF NOT EXISTS idx_card_decks_deck ON card_decks(deck_id);
CREATE INDEX IF NOT EXISTS idx_note_tags_tag ON note_tags(tag_id);
`
