package srs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/srsdb/internal/domain"
)

var table = Intervals{10 * time.Minute, 4 * time.Hour, 8 * time.Hour, 24 * time.Hour}

func at(t time.Time) *time.Time { return &t }

func level(n int) *int { return &n }

func TestIntervalsNext(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		level int
		want  *time.Time
	}{
		{"first", 0, at(now.Add(10 * time.Minute))},
		{"last", 3, at(now.Add(24 * time.Hour))},
		{"past end", 4, nil},
		{"negative", -1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Next(tt.level, now))
		})
	}
}

func TestScenario(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &domain.Card{ID: 1}
	assert.Equal(t, domain.StatusNew, c.Status())

	Right(c, 1, table, now)
	require.NotNil(t, c.SRSLevel)
	assert.Equal(t, 0, *c.SRSLevel)
	assert.Equal(t, now.Add(10*time.Minute), *c.NextReview)

	Right(c, 1, table, now)
	assert.Equal(t, 1, *c.SRSLevel)
	assert.Equal(t, now.Add(4*time.Hour), *c.NextReview)

	Wrong(c, When{}, DefaultWrongDelay, now)
	assert.Equal(t, 0, *c.SRSLevel)
	assert.Equal(t, now.Add(10*time.Minute), *c.NextReview)
	assert.Equal(t, 1, c.Info.Lapse)
	assert.Equal(t, 0, c.Info.Streak)
	assert.Equal(t, 1, c.Info.TotalWrong)
	assert.Equal(t, 2, c.Info.TotalRight)
}

// The first right lands on level 0, so four rights reach level 3, the last
// entry of a four-interval table. Only the fifth moves past the table.
func TestGraduation(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &domain.Card{}
	for range 4 {
		Right(c, 1, table, now)
	}
	assert.Equal(t, 3, *c.SRSLevel)
	assert.Equal(t, now.Add(24*time.Hour), *c.NextReview)
	assert.Equal(t, domain.StatusScheduled, c.Status())

	Right(c, 1, table, now)
	assert.Equal(t, 4, *c.SRSLevel)
	assert.Nil(t, c.NextReview)
	assert.Equal(t, domain.StatusGraduated, c.Status())
}

func TestUndoRestoresExactState(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	states := map[string]domain.Card{
		"new": {},
		"scheduled": {
			SRSLevel:   level(2),
			NextReview: at(now.Add(time.Hour)),
			LastReview: at(now.Add(-time.Hour)),
			Info:       domain.CardInfo{Lapse: 1, Streak: 3, TotalRight: 7, TotalWrong: 2},
		},
		"buried": {NextReview: at(now.Add(time.Hour))},
	}
	for name, state := range states {
		t.Run(name, func(t *testing.T) {
			c := state
			want := c.Snapshot()

			Right(&c, 1, table, now)
			assert.NotEqual(t, want, c.Snapshot())
			require.True(t, Undo(&c))
			assert.Equal(t, want, c.Snapshot())
			assert.Nil(t, c.Backup)

			assert.False(t, Undo(&c))
			assert.Equal(t, want, c.Snapshot())
		})
	}
}

func TestUndoRollsBackAccumulatedGradings(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &domain.Card{}
	Right(c, 1, table, now)
	Right(c, 1, table, now)
	Wrong(c, When{}, DefaultWrongDelay, now)

	require.True(t, Undo(c))
	assert.Equal(t, domain.StatusNew, c.Status())
	assert.Equal(t, domain.CardInfo{}, c.Info)
}

func TestWrongFloorsAtZero(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &domain.Card{SRSLevel: level(0)}
	for range 5 {
		Wrong(c, When{}, DefaultWrongDelay, now)
		assert.Equal(t, 0, *c.SRSLevel)
	}
	assert.Equal(t, 5, c.Info.Lapse)

	fresh := &domain.Card{}
	Wrong(fresh, When{}, DefaultWrongDelay, now)
	assert.Nil(t, fresh.SRSLevel)
	assert.Equal(t, domain.StatusBuried, fresh.Status())
}

func TestEasy(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		level   *int
		want    int
		wantErr bool
	}{
		{"new card", nil, 0, false},
		{"low level", level(0), 2, false},
		{"below ceiling", level(2), 4, false},
		{"at ceiling", level(3), 3, true},
		{"above ceiling", level(5), 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &domain.Card{SRSLevel: tt.level}
			err := Easy(c, DefaultEasyCeiling, table, now)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidOperation)
				assert.Nil(t, c.Backup)
			} else {
				assert.NoError(t, err)
			}
			require.NotNil(t, c.SRSLevel)
			assert.Equal(t, tt.want, *c.SRSLevel)
		})
	}
}

func TestBuryAndReset(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	fixed := now.Add(72 * time.Hour)
	tests := []struct {
		name string
		when When
		want time.Time
	}{
		{"default", When{}, now.Add(DefaultBuryDelay)},
		{"relative", After(30 * time.Minute), now.Add(30 * time.Minute)},
		{"absolute", At(fixed), fixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &domain.Card{SRSLevel: level(1)}
			Bury(c, tt.when, DefaultBuryDelay, now)
			assert.Equal(t, tt.want, *c.NextReview)
			assert.Equal(t, 1, *c.SRSLevel)
			assert.Equal(t, domain.StatusBuried, c.Status())
		})
	}

	c := &domain.Card{SRSLevel: level(2), NextReview: at(now)}
	Reset(c)
	assert.Equal(t, domain.StatusNew, c.Status())
	assert.Nil(t, c.Backup)
}

func TestBuriedMarkClearedByGrading(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		grade func(c *domain.Card)
		want  domain.Status
	}{
		{"right", func(c *domain.Card) { Right(c, 1, table, now) }, domain.StatusScheduled},
		{"wrong", func(c *domain.Card) { Wrong(c, When{}, DefaultWrongDelay, now) }, domain.StatusScheduled},
		{"reset", Reset, domain.StatusNew},
		{"undo", func(c *domain.Card) { Undo(c) }, domain.StatusScheduled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &domain.Card{SRSLevel: level(1), NextReview: at(now.Add(time.Hour))}
			Bury(c, After(48*time.Hour), DefaultBuryDelay, now)
			require.Equal(t, domain.StatusBuried, c.Status())

			tt.grade(c)
			assert.False(t, c.Info.Buried)
			assert.Equal(t, tt.want, c.Status())
		})
	}
}

func TestExpire(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		taken  time.Time
		window time.Duration
		want   bool
	}{
		{"fresh", now.Add(-time.Minute), time.Hour, false},
		{"at window", now.Add(-time.Hour), time.Hour, false},
		{"stale", now.Add(-96 * time.Hour), time.Hour, true},
		{"no window", now.Add(-96 * time.Hour), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &domain.Card{}
			Right(c, 1, table, tt.taken)
			require.NotNil(t, c.Backup)
			assert.Equal(t, tt.taken, c.Backup.Captured)

			assert.Equal(t, tt.want, Expire(c, tt.window, now))
			assert.Equal(t, tt.want, c.Backup == nil)
		})
	}

	assert.False(t, Expire(&domain.Card{}, time.Hour, now))
}

func TestStaleBackupIsNotRolledBackWithNewGrading(t *testing.T) {
	monday := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	friday := monday.Add(4 * 24 * time.Hour)

	c := &domain.Card{}
	Right(c, 1, table, monday)
	afterMonday := c.Snapshot()

	Expire(c, DefaultUndoWindow, friday)
	Right(c, 1, table, friday)
	require.True(t, Undo(c))
	assert.Equal(t, afterMonday, c.Snapshot())
}
