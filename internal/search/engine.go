package search

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/conorfennell/srsdb/internal/domain"
	"github.com/conorfennell/srsdb/internal/query"
)

// Store is the read access the engine needs.
type Store interface {
	FieldLister
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Decks(ctx context.Context) ([]domain.Deck, error)
}

// Engine runs searches and reports over a store.
type Engine struct {
	store Store
	now   func() time.Time
	log   zerolog.Logger
	rand  *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithRand fixes the source used to shuffle quizzes.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rand = r }
}

// New creates an engine over store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) compile(ctx context.Context, q string, opts Options) (*Filter, error) {
	clauses, err := query.Parse(q)
	if err != nil {
		return nil, err
	}
	return Compile(ctx, clauses, opts, e.store, e.now())
}

// Search returns the IDs of the cards matching q and opts, most recently
// due first.
func (e *Engine) Search(ctx context.Context, q string, opts Options) ([]int64, error) {
	f, err := e.compile(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	stmt, args := f.SQL("c.id", true)
	rows, err := e.store.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search cards: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan card id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	e.log.Debug().Str("query", q).Int("results", len(ids)).Msg("search")
	return ids, nil
}

// Count returns the number of cards matching q and opts, ignoring
// pagination.
func (e *Engine) Count(ctx context.Context, q string, opts Options) (int, error) {
	f, err := e.compile(ctx, q, opts)
	if err != nil {
		return 0, err
	}
	stmt, args := f.SQL("COUNT(*)", false)
	var n int
	if err := e.store.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

// Quiz is a shuffled sequence of card IDs.
type Quiz struct {
	ids []int64
	pos int
}

// Next returns the next card ID, or false once the quiz is exhausted.
func (q *Quiz) Next() (int64, bool) {
	if q.pos >= len(q.ids) {
		return 0, false
	}
	id := q.ids[q.pos]
	q.pos++
	return id, true
}

// Len returns the number of cards not yet handed out.
func (q *Quiz) Len() int { return len(q.ids) - q.pos }

// Quiz runs a search and shuffles the result.
func (e *Engine) Quiz(ctx context.Context, q string, opts Options) (*Quiz, error) {
	ids, err := e.Search(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	shuffle := rand.Shuffle
	if e.rand != nil {
		shuffle = e.rand.Shuffle
	}
	shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return &Quiz{ids: ids}, nil
}

// DueQuiz is Quiz restricted to cards whose next review has passed.
func (e *Engine) DueQuiz(ctx context.Context, q string, opts Options) (*Quiz, error) {
	opts.Due = DueTrue()
	return e.Quiz(ctx, q, opts)
}
