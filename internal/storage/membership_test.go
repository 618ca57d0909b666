package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/srsdb/internal/domain"
)

func seedNote(t *testing.T, db *DB) (noteID int64, cardIDs []int64) {
	t.Helper()
	ctx := context.Background()
	modelID, err := db.CreateModel(ctx, vocab)
	require.NoError(t, err)
	noteID, err = db.CreateNote(ctx, modelID, fields("word", "猫", "meaning", "cat"), nil)
	require.NoError(t, err)
	cardIDs, err = db.CardsForNote(ctx, noteID)
	require.NoError(t, err)
	return noteID, cardIDs
}

func TestTags(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)
	noteID, _ := seedNote(t, db)

	require.NoError(t, db.AddTag(ctx, []int64{noteID}, "animal", false))
	require.NoError(t, db.AddTag(ctx, []int64{noteID}, "ANIMAL", false), "re-adding is idempotent")
	assert.ErrorIs(t, db.AddTag(ctx, []int64{noteID}, "animal", true), domain.ErrConstraintViolation)

	require.NoError(t, db.AddTags(ctx, []int64{noteID}, []string{"n5", "kanji"}, false))
	n, err := db.Note(ctx, noteID)
	require.NoError(t, err)
	assert.Equal(t, []string{"animal", "kanji", "n5"}, n.Tags)

	require.NoError(t, db.RemoveTag(ctx, []int64{noteID}, "kanji"))
	require.NoError(t, db.RemoveTag(ctx, []int64{noteID}, "never-added"))
	n, err = db.Note(ctx, noteID)
	require.NoError(t, err)
	assert.Equal(t, []string{"animal", "n5"}, n.Tags)

	assert.ErrorIs(t, db.AddTag(ctx, []int64{noteID}, " ", false), ErrInvalidName)
	assert.ErrorIs(t, db.AddTag(ctx, []int64{404}, "animal", false), domain.ErrNotFound)
}

func TestDecks(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)
	_, cards := seedNote(t, db)

	require.NoError(t, db.AddDeck(ctx, cards, "lang::jp", false))
	require.NoError(t, db.AddDeck(ctx, cards[:1], "lang::jp", false))
	assert.ErrorIs(t, db.AddDeck(ctx, cards[:1], "Lang::JP", true), domain.ErrConstraintViolation)

	c, err := db.Card(ctx, cards[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"lang::jp"}, c.Decks)

	decks, err := db.Decks(ctx)
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, "lang::jp", decks[0].Name)

	require.NoError(t, db.RemoveDeck(ctx, cards[:1], "lang::jp"))
	c, err = db.Card(ctx, cards[0])
	require.NoError(t, err)
	assert.Empty(t, c.Decks)

	for _, bad := range []string{"", "lang::", "::jp", "a:: ::b"} {
		assert.ErrorIs(t, db.AddDeck(ctx, cards, bad, false), ErrInvalidName, bad)
	}
	assert.ErrorIs(t, db.AddDeck(ctx, []int64{404}, "lang", false), domain.ErrNotFound)
}

func TestSaveCardState(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)
	_, cards := seedNote(t, db)

	c, err := db.Card(ctx, cards[0])
	require.NoError(t, err)
	prev := c.Snapshot()
	lvl := 3
	c.SRSLevel = &lvl
	c.Info.TotalRight = 4
	c.Backup = &prev
	require.NoError(t, db.SaveCardState(ctx, c))

	got, err := db.Card(ctx, cards[0])
	require.NoError(t, err)
	assert.Equal(t, 3, *got.SRSLevel)
	assert.Equal(t, 4, got.Info.TotalRight)
	require.NotNil(t, got.Backup)
	assert.Nil(t, got.Backup.SRSLevel)

	c.ID = 404
	assert.ErrorIs(t, db.SaveCardState(ctx, c), domain.ErrNotFound)
}
