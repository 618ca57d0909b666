package srs_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/srsdb/internal/domain"
	"github.com/conorfennell/srsdb/internal/srs"
	"github.com/conorfennell/srsdb/internal/storage"
)

func newCard(t *testing.T) (*storage.DB, int64) {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(filepath.Join(t.TempDir(), "srs.db"),
		storage.WithIntervals([]time.Duration{10 * time.Minute, 4 * time.Hour, 8 * time.Hour, 24 * time.Hour}))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	modelID, err := db.CreateModel(ctx, storage.ModelSpec{
		Name:      "basic",
		KeyFields: []string{"front"},
		Templates: []storage.TemplateSpec{{Name: "forward", Front: "Q: {{front}}", Back: "{{back}}"}},
	})
	require.NoError(t, err)
	noteID, err := db.CreateNote(ctx, modelID, domain.Fields{
		{Name: "front", Value: domain.String("capital of France")},
		{Name: "back", Value: domain.String("Paris")},
	}, nil)
	require.NoError(t, err)
	cards, err := db.CardsForNote(ctx, noteID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	return db, cards[0]
}

func TestSchedulerPersistsTransitions(t *testing.T) {
	ctx := context.Background()
	db, id := newCard(t)
	now := time.UnixMilli(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli())
	s := srs.NewScheduler(db, srs.WithClock(func() time.Time { return now }))

	_, err := s.Right(ctx, id)
	require.NoError(t, err)
	_, err = s.Right(ctx, id)
	require.NoError(t, err)

	c, err := db.Card(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, *c.SRSLevel)
	assert.True(t, now.Add(4*time.Hour).Equal(*c.NextReview))
	assert.Equal(t, 2, c.Info.Streak)
	require.NotNil(t, c.Backup)
	assert.Nil(t, c.Backup.SRSLevel)

	_, err = s.Wrong(ctx, id, srs.When{})
	require.NoError(t, err)
	c, err = db.Card(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, *c.SRSLevel)
	assert.True(t, now.Add(10*time.Minute).Equal(*c.NextReview))
	assert.Equal(t, domain.CardInfo{Lapse: 1, Streak: 0, TotalRight: 2, TotalWrong: 1}, c.Info)

	_, err = s.Undo(ctx, id)
	require.NoError(t, err)
	c, err = db.Card(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, c.Status())
	assert.Equal(t, domain.CardInfo{}, c.Info)
	assert.Nil(t, c.Backup)

	// A second undo is a no-op.
	_, err = s.Undo(ctx, id)
	require.NoError(t, err)
}

func TestSchedulerEasyCeiling(t *testing.T) {
	ctx := context.Background()
	db, id := newCard(t)
	s := srs.NewScheduler(db, srs.WithEasyCeiling(2))

	c, err := s.Easy(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, *c.SRSLevel)
	c, err = s.Easy(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, *c.SRSLevel)

	_, err = s.Easy(ctx, id)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	c, err = db.Card(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, *c.SRSLevel)
}

func TestSchedulerBuryAndReset(t *testing.T) {
	ctx := context.Background()
	db, id := newCard(t)
	now := time.UnixMilli(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli())
	s := srs.NewScheduler(db,
		srs.WithClock(func() time.Time { return now }),
		srs.WithDelays(0, 2*time.Hour))

	c, err := s.Bury(ctx, id, srs.When{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBuried, c.Status())
	assert.True(t, now.Add(2*time.Hour).Equal(*c.NextReview))

	c, err = s.Reset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, c.Status())
}

func TestSchedulerPersistsBuriedMark(t *testing.T) {
	ctx := context.Background()
	db, id := newCard(t)
	s := srs.NewScheduler(db)

	_, err := s.Right(ctx, id)
	require.NoError(t, err)
	_, err = s.Bury(ctx, id, srs.After(48*time.Hour))
	require.NoError(t, err)

	c, err := db.Card(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, *c.SRSLevel)
	assert.Equal(t, domain.StatusBuried, c.Status())

	c, err = s.Right(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusScheduled, c.Status())
}

func TestSchedulerUndoWindow(t *testing.T) {
	ctx := context.Background()
	db, id := newCard(t)
	now := time.UnixMilli(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC).UnixMilli())
	s := srs.NewScheduler(db, srs.WithClock(func() time.Time { return now }))

	_, err := s.Right(ctx, id)
	require.NoError(t, err)

	// A later session grades again; undo only reverts that session.
	now = now.Add(4 * 24 * time.Hour)
	_, err = s.Right(ctx, id)
	require.NoError(t, err)
	c, err := s.Undo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, *c.SRSLevel)
	assert.Equal(t, 1, c.Info.TotalRight)

	// A grading left alone past the window can no longer be undone.
	_, err = s.Right(ctx, id)
	require.NoError(t, err)
	now = now.Add(2 * time.Hour)
	_, err = s.Undo(ctx, id)
	require.NoError(t, err)
	c, err = db.Card(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, *c.SRSLevel)
	assert.Nil(t, c.Backup)
}

func TestSchedulerWithoutUndoWindowKeepsBackup(t *testing.T) {
	ctx := context.Background()
	db, id := newCard(t)
	now := time.UnixMilli(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC).UnixMilli())
	s := srs.NewScheduler(db,
		srs.WithClock(func() time.Time { return now }),
		srs.WithUndoWindow(0))

	_, err := s.Right(ctx, id)
	require.NoError(t, err)
	now = now.Add(4 * 24 * time.Hour)
	_, err = s.Right(ctx, id)
	require.NoError(t, err)

	c, err := s.Undo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, c.Status())
}

func TestSchedulerMissingCard(t *testing.T) {
	db, _ := newCard(t)
	s := srs.NewScheduler(db)
	_, err := s.Right(context.Background(), 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSchedulerSerialisesPerCard(t *testing.T) {
	ctx := context.Background()
	db, id := newCard(t)
	s := srs.NewScheduler(db)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Right(ctx, id)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := db.Card(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 8, c.Info.TotalRight)
	assert.Equal(t, 7, *c.SRSLevel)
}
