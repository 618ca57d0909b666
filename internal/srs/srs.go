// Package srs implements the review-level state machine of a card.
//
// A card is new (no level, no review time), scheduled (level k, next review
// after Intervals[k]), graduated (level past the end of the table, no review
// time) or buried (review time set by hand). Every grading transition first
// captures the card's current state into its single backup slot, unless a
// backup is already pending, so Undo returns to the state before the first
// unresolved transition. A backup older than the undo window no longer
// belongs to the current review and is dropped by Expire.
package srs

import (
	"fmt"
	"time"

	"github.com/conorfennell/srsdb/internal/domain"
)

// Default transition parameters.
const (
	DefaultWrongDelay  = 10 * time.Minute
	DefaultBuryDelay   = 4 * time.Hour
	DefaultEasyCeiling = 3
	DefaultUndoWindow  = time.Hour
)

// Intervals is the SRS interval table. Entry i is the wait before the next
// review of a card at level i.
type Intervals []time.Duration

// Next returns the next review time for level, or nil once level is past the
// end of the table.
func (iv Intervals) Next(level int, now time.Time) *time.Time {
	if level < 0 || level >= len(iv) {
		return nil
	}
	t := now.Add(iv[level])
	return &t
}

// When selects the next review of a buried card: a delay from now, an
// absolute time, or the zero value for the caller's default delay.
type When struct {
	delay time.Duration
	at    time.Time
	fixed bool
}

// After buries for d from now.
func After(d time.Duration) When { return When{delay: d} }

// At buries until t.
func At(t time.Time) When { return When{at: t, fixed: true} }

func (w When) resolve(def time.Duration, now time.Time) time.Time {
	switch {
	case w.fixed:
		return w.at
	case w.delay != 0:
		return now.Add(w.delay)
	default:
		return now.Add(def)
	}
}

// Capture stores the card's current state as its backup unless one is pending.
func Capture(c *domain.Card, now time.Time) {
	if c.Backup != nil {
		return
	}
	s := c.Snapshot()
	s.Captured = now
	c.Backup = &s
}

// Expire drops a pending backup captured more than window before now and
// reports whether it did. A window of zero or less never expires backups.
func Expire(c *domain.Card, window time.Duration, now time.Time) bool {
	if c.Backup == nil || window <= 0 || now.Sub(c.Backup.Captured) <= window {
		return false
	}
	c.Backup = nil
	return true
}

// Right promotes the card by step levels (a new card goes to level 0) and
// schedules it from the interval table.
//
// A pending backup stays the restore point: consecutive gradings accumulate
// and Undo rolls all of them back at once.
func Right(c *domain.Card, step int, iv Intervals, now time.Time) {
	Capture(c, now)

	level := 0
	if c.SRSLevel != nil {
		level = *c.SRSLevel + step
	}
	c.SRSLevel = &level
	c.NextReview = iv.Next(level, now)
	c.LastReview = &now

	c.Info.Lapse = 0
	c.Info.Streak++
	c.Info.TotalRight++
	c.Info.Buried = false
}

// Easy is Right with a step of two, allowed only below ceiling.
func Easy(c *domain.Card, ceiling int, iv Intervals, now time.Time) error {
	if c.SRSLevel != nil && *c.SRSLevel >= ceiling {
		return fmt.Errorf("%w: easy needs a level below %d, card %d is at level %d",
			domain.ErrInvalidOperation, ceiling, c.ID, *c.SRSLevel)
	}
	Right(c, 2, iv, now)
	return nil
}

// Wrong demotes the card by one level, never below zero, records the lapse
// and postpones it like Bury. The level changed, so the card is not marked
// buried.
func Wrong(c *domain.Card, when When, def time.Duration, now time.Time) {
	Capture(c, now)

	if c.SRSLevel != nil && *c.SRSLevel > 0 {
		level := *c.SRSLevel - 1
		c.SRSLevel = &level
	}
	c.LastReview = &now

	c.Info.Streak = 0
	c.Info.Lapse++
	c.Info.TotalWrong++
	c.Info.Buried = false

	postpone(c, when, def, now)
}

// Bury sets the next review without touching the level and marks the card
// buried until its next grading.
func Bury(c *domain.Card, when When, def time.Duration, now time.Time) {
	Capture(c, now)
	postpone(c, when, def, now)
	c.Info.Buried = true
}

func postpone(c *domain.Card, when When, def time.Duration, now time.Time) {
	next := when.resolve(def, now)
	c.NextReview = &next
}

// Reset clears level and next review. It is not a grading and does not
// capture a backup.
func Reset(c *domain.Card) {
	c.SRSLevel = nil
	c.NextReview = nil
	c.Info.Buried = false
}

// Undo restores the pending backup and clears it. It reports false, changing
// nothing, when no backup is pending.
func Undo(c *domain.Card) bool {
	if c.Backup == nil {
		return false
	}
	c.Restore(*c.Backup)
	c.Backup = nil
	return true
}
