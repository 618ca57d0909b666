package srs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/conorfennell/srsdb/internal/domain"
)

// Store is the persistence the scheduler needs.
type Store interface {
	Card(ctx context.Context, id int64) (*domain.Card, error)
	SaveCardState(ctx context.Context, c *domain.Card) error
	Settings(ctx context.Context) (*domain.Settings, error)
}

// Scheduler applies transitions to stored cards. Each transition is a
// read-modify-write serialised per card.
type Scheduler struct {
	store       Store
	now         func() time.Time
	log         zerolog.Logger
	wrongDelay  time.Duration
	buryDelay   time.Duration
	easyCeiling int
	undoWindow  time.Duration

	mu    sync.Mutex
	locks map[int64]*cardLock
}

type cardLock struct {
	sync.Mutex
	refs int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithDelays sets the default delays of Wrong and Bury.
func WithDelays(wrong, bury time.Duration) Option {
	return func(s *Scheduler) {
		if wrong > 0 {
			s.wrongDelay = wrong
		}
		if bury > 0 {
			s.buryDelay = bury
		}
	}
}

// WithEasyCeiling sets the level from which Easy is refused.
func WithEasyCeiling(level int) Option {
	return func(s *Scheduler) { s.easyCeiling = level }
}

// WithUndoWindow sets how long a backup stays undoable. Zero keeps backups
// until they are undone.
func WithUndoWindow(d time.Duration) Option {
	return func(s *Scheduler) { s.undoWindow = d }
}

// NewScheduler creates a scheduler over store.
func NewScheduler(store Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:       store,
		now:         time.Now,
		log:         zerolog.Nop(),
		wrongDelay:  DefaultWrongDelay,
		buryDelay:   DefaultBuryDelay,
		easyCeiling: DefaultEasyCeiling,
		undoWindow:  DefaultUndoWindow,
		locks:       make(map[int64]*cardLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Right grades the card as remembered.
func (s *Scheduler) Right(ctx context.Context, cardID int64) (*domain.Card, error) {
	return s.RightBy(ctx, cardID, 1)
}

// RightBy grades the card as remembered, promoting it by step levels.
func (s *Scheduler) RightBy(ctx context.Context, cardID int64, step int) (*domain.Card, error) {
	return s.apply(ctx, cardID, "right", func(c *domain.Card, iv Intervals, now time.Time) error {
		Right(c, step, iv, now)
		return nil
	})
}

// Easy grades the card as trivially remembered. It fails with
// domain.ErrInvalidOperation once the card has reached the easy ceiling.
func (s *Scheduler) Easy(ctx context.Context, cardID int64) (*domain.Card, error) {
	return s.apply(ctx, cardID, "easy", func(c *domain.Card, iv Intervals, now time.Time) error {
		return Easy(c, s.easyCeiling, iv, now)
	})
}

// Wrong grades the card as forgotten.
func (s *Scheduler) Wrong(ctx context.Context, cardID int64, when When) (*domain.Card, error) {
	return s.apply(ctx, cardID, "wrong", func(c *domain.Card, _ Intervals, now time.Time) error {
		Wrong(c, when, s.wrongDelay, now)
		return nil
	})
}

// Bury postpones the card without grading it.
func (s *Scheduler) Bury(ctx context.Context, cardID int64, when When) (*domain.Card, error) {
	return s.apply(ctx, cardID, "bury", func(c *domain.Card, _ Intervals, now time.Time) error {
		Bury(c, when, s.buryDelay, now)
		return nil
	})
}

// Reset returns the card to the unscheduled state.
func (s *Scheduler) Reset(ctx context.Context, cardID int64) (*domain.Card, error) {
	return s.apply(ctx, cardID, "reset", func(c *domain.Card, _ Intervals, _ time.Time) error {
		Reset(c)
		return nil
	})
}

// Undo restores the card's pending backup. Without one, or once the backup
// has outlived the undo window, it returns the card unchanged.
func (s *Scheduler) Undo(ctx context.Context, cardID int64) (*domain.Card, error) {
	unlock := s.lock(cardID)
	defer unlock()

	c, err := s.store.Card(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if s.expire(c, s.now()) {
		if err := s.store.SaveCardState(ctx, c); err != nil {
			return nil, err
		}
	}
	if !Undo(c) {
		s.log.Debug().Int64("card_id", cardID).Msg("nothing to undo")
		return c, nil
	}
	if err := s.store.SaveCardState(ctx, c); err != nil {
		return nil, err
	}
	s.log.Debug().Int64("card_id", cardID).Msg("undo")
	return c, nil
}

func (s *Scheduler) apply(ctx context.Context, cardID int64, op string, fn func(*domain.Card, Intervals, time.Time) error) (*domain.Card, error) {
	unlock := s.lock(cardID)
	defer unlock()

	c, err := s.store.Card(ctx, cardID)
	if err != nil {
		return nil, err
	}
	settings, err := s.store.Settings(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	s.expire(c, now)
	if err := fn(c, Intervals(settings.Intervals), now); err != nil {
		return nil, err
	}
	if err := s.store.SaveCardState(ctx, c); err != nil {
		return nil, err
	}

	ev := s.log.Debug().Int64("card_id", cardID).Str("op", op)
	if c.SRSLevel != nil {
		ev = ev.Int("srs_level", *c.SRSLevel)
	}
	if c.NextReview != nil {
		ev = ev.Time("next_review", *c.NextReview)
	}
	ev.Msg("card transition")
	return c, nil
}

func (s *Scheduler) expire(c *domain.Card, now time.Time) bool {
	if !Expire(c, s.undoWindow, now) {
		return false
	}
	s.log.Debug().Int64("card_id", c.ID).Msg("stale backup dropped")
	return true
}

func (s *Scheduler) lock(cardID int64) func() {
	s.mu.Lock()
	l, ok := s.locks[cardID]
	if !ok {
		l = &cardLock{}
		s.locks[cardID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, cardID)
		}
		s.mu.Unlock()
	}
}
