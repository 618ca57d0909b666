package search

import (
	"context"

	"github.com/conorfennell/srsdb/internal/deck"
)

// DeckCounts counts the cards of a deck and its descendants that match q:
// due now, not scheduled, and in total.
func (e *Engine) DeckCounts(ctx context.Context, name, q string) (deck.Counts, error) {
	var c deck.Counts
	var err error
	opts := Options{Deck: name}

	opts.Due = AnyDue()
	if c.Total, err = e.Count(ctx, q, opts); err != nil {
		return c, err
	}
	opts.Due = DueTrue()
	if c.Due, err = e.Count(ctx, q, opts); err != nil {
		return c, err
	}
	opts.Due = DueFalse()
	if c.Remaining, err = e.Count(ctx, q, opts); err != nil {
		return c, err
	}
	return c, nil
}

// DeckTree builds the deck hierarchy, keeping only nodes under which some
// card matches q. Counts are attached when withCounts is set.
func (e *Engine) DeckTree(ctx context.Context, q string, withCounts bool) ([]*deck.Node, error) {
	if _, err := e.compile(ctx, q, Options{}); err != nil {
		return nil, err
	}
	decks, err := e.store.Decks(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]deck.Entry, len(decks))
	for i, d := range decks {
		entries[i] = deck.Entry{ID: d.ID, Name: d.Name}
	}
	forest := deck.Build(entries)

	totals := make(map[*deck.Node]int)
	err = deck.Walk(forest, func(n *deck.Node) error {
		if withCounts {
			c, err := e.DeckCounts(ctx, n.Path, q)
			if err != nil {
				return err
			}
			n.Counts = &c
			totals[n] = c.Total
			return nil
		}
		total, err := e.Count(ctx, q, Options{Deck: n.Path, Due: AnyDue()})
		if err != nil {
			return err
		}
		totals[n] = total
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deck.Prune(forest, func(n *deck.Node) bool { return totals[n] > 0 }), nil
}

// HasSubDeck reports whether any deck lies below name.
func (e *Engine) HasSubDeck(ctx context.Context, name string) (bool, error) {
	decks, err := e.store.Decks(ctx)
	if err != nil {
		return false, err
	}
	names := make([]string, len(decks))
	for i, d := range decks {
		names[i] = d.Name
	}
	return deck.HasSubDeck(name, names), nil
}
