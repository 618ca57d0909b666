package search_test

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/srsdb/internal/deck"
	"github.com/conorfennell/srsdb/internal/domain"
	"github.com/conorfennell/srsdb/internal/query"
	"github.com/conorfennell/srsdb/internal/search"
	"github.com/conorfennell/srsdb/internal/storage"
)

var now = time.UnixMilli(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli())

type fixture struct {
	db     *storage.DB
	engine *search.Engine
	// cards in creation order: 猫 (new), 犬 (overdue), 鳥 (due tomorrow)
	cards []int64
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(filepath.Join(t.TempDir(), "search.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	modelID, err := db.CreateModel(ctx, storage.ModelSpec{
		Name:      "vocab",
		KeyFields: []string{"word"},
		Templates: []storage.TemplateSpec{{Name: "forward", Front: "{{word}}", Back: "{{meaning}}"}},
	})
	require.NoError(t, err)

	notes := []struct {
		word, meaning string
		level         float64
		year, date    string
		tags          []string
		deck          string
		next          *time.Time
	}{
		{"猫", "cat", 1, "2005", "2023-06-01", []string{"animal"}, "lang::jp", nil},
		{"犬", "dog", 2, "2015", "2024-02-15", []string{"animal", "pet"}, "lang::jp::n5", ptr(now.Add(-time.Hour))},
		{"鳥", "bird", 3, "2010", "2024-05-20", nil, "lang::zh", ptr(now.Add(24 * time.Hour))},
	}
	f := &fixture{db: db}
	for _, n := range notes {
		noteID, err := db.CreateNote(ctx, modelID, domain.Fields{
			{Name: "word", Value: domain.String(n.word)},
			{Name: "meaning", Value: domain.String(n.meaning)},
			{Name: "level", Value: domain.Number(n.level)},
			// Text as entered on the command line or imported from markdown.
			{Name: "year", Value: domain.String(n.year)},
			{Name: "date", Value: domain.String(n.date)},
		}, n.tags)
		require.NoError(t, err)
		ids, err := db.CardsForNote(ctx, noteID)
		require.NoError(t, err)
		require.Len(t, ids, 1)
		require.NoError(t, db.AddDeck(ctx, ids, n.deck, false))

		if n.next != nil {
			c, err := db.Card(ctx, ids[0])
			require.NoError(t, err)
			c.NextReview = n.next
			require.NoError(t, db.SaveCardState(ctx, c))
		}
		f.cards = append(f.cards, ids[0])
	}

	// An empty deck only shows up in the tree if it holds cards.
	require.NoError(t, db.AddDeck(ctx, f.cards[:1], "empty", false))
	require.NoError(t, db.RemoveDeck(ctx, f.cards[:1], "empty"))

	f.engine = search.New(db,
		search.WithClock(func() time.Time { return now }),
		search.WithRand(rand.New(rand.NewPCG(1, 2))))
	return f
}

func ptr(t time.Time) *time.Time { return &t }

func TestSearch(t *testing.T) {
	f := setup(t)
	cat, dog, bird := f.cards[0], f.cards[1], f.cards[2]
	all := search.AnyDue()

	tests := []struct {
		name string
		q    string
		opts search.Options
		want []int64
	}{
		{"default scope", "", search.Options{}, []int64{dog, cat}},
		{"everything", "", search.Options{Due: all}, []int64{bird, dog, cat}},
		{"due true", "due:true", search.Options{}, []int64{dog}},
		{"due false", "due:false", search.Options{}, []int64{cat}},
		{"due within", "due:2d", search.Options{}, []int64{bird, dog}},
		{"due clause and option", "due:true", search.Options{Due: search.DueFalse()}, nil},
		{"bare term", "dog", search.Options{Due: all}, []int64{dog}},
		{"bare unicode term", "猫", search.Options{Due: all}, []int64{cat}},
		{"terms are and-ed", "cat dog", search.Options{Due: all}, nil},
		{"field contains", "meaning:ir", search.Options{Due: all}, []int64{bird}},
		{"field equal", "meaning=ca", search.Options{Due: all}, nil},
		{"number equal", "level=2", search.Options{Due: all}, []int64{dog}},
		{"number greater", "level>1", search.Options{Due: all}, []int64{bird, dog}},
		{"number less", "level<2", search.Options{Due: all}, []int64{cat}},
		{"number less than text", "level<m", search.Options{Due: all}, []int64{bird, dog, cat}},
		{"numeric text equal", "year=2010", search.Options{Due: all}, []int64{bird}},
		{"numeric text less", "year<2010", search.Options{Due: all}, []int64{cat}},
		{"numeric text greater", "year>2010", search.Options{Due: all}, []int64{dog}},
		{"date text equal", "date=2024-02-15", search.Options{Due: all}, []int64{dog}},
		{"date text less", "date<2024-01-01", search.Options{Due: all}, []int64{cat}},
		{"date text greater", "date>2024-03-01", search.Options{Due: all}, []int64{bird}},
		{"deck exact", `deck="lang::jp"`, search.Options{Due: all}, []int64{cat}},
		{"deck descendants", "deck:lang", search.Options{Due: all}, []int64{bird, dog, cat}},
		{"explicit deck", "", search.Options{Deck: "LANG::JP", Due: all}, []int64{dog, cat}},
		{"tag contains", "tag:ani", search.Options{Due: all}, []int64{dog, cat}},
		{"tag exact", "tag=ani", search.Options{Due: all}, nil},
		{"explicit tags", "", search.Options{Tags: []string{"pet", "anim"}, Due: all}, []int64{dog}},
		{"limit", "", search.Options{Due: all, Limit: 2}, []int64{bird, dog}},
		{"offset", "", search.Options{Due: all, Offset: 1}, []int64{dog, cat}},
		{"page", "", search.Options{Due: all, Offset: 1, Limit: 1}, []int64{dog}},
		{"no field", "colour:red", search.Options{Due: all}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.engine.Search(context.Background(), tt.q, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearchSyntaxErrors(t *testing.T) {
	f := setup(t)
	for _, q := range []string{"a:", `"open`, "due:whenever-ish"} {
		_, err := f.engine.Search(context.Background(), q, search.Options{})
		assert.ErrorIs(t, err, query.ErrSyntax, q)
	}
}

func TestCount(t *testing.T) {
	f := setup(t)
	n, err := f.engine.Count(context.Background(), "", search.Options{Due: search.AnyDue(), Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestQuiz(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	quiz, err := f.engine.Quiz(ctx, "", search.Options{Due: search.AnyDue()})
	require.NoError(t, err)
	assert.Equal(t, 3, quiz.Len())

	var got []int64
	for id, ok := quiz.Next(); ok; id, ok = quiz.Next() {
		got = append(got, id)
	}
	assert.ElementsMatch(t, f.cards, got)
	assert.Zero(t, quiz.Len())

	due, err := f.engine.DueQuiz(ctx, "", search.Options{Due: search.AnyDue()})
	require.NoError(t, err)
	id, ok := due.Next()
	assert.True(t, ok)
	assert.Equal(t, f.cards[1], id)
	_, ok = due.Next()
	assert.False(t, ok)
}

func TestDeckTree(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tree, err := f.engine.DeckTree(ctx, "", true)
	require.NoError(t, err)
	require.Len(t, tree, 1)

	lang := tree[0]
	assert.Equal(t, "lang", lang.Path)
	assert.Nil(t, lang.Deck)
	assert.Equal(t, &deck.Counts{Due: 1, Remaining: 1, Total: 3}, lang.Counts)
	require.Len(t, lang.Children, 2)

	jp, zh := lang.Children[0], lang.Children[1]
	assert.Equal(t, "lang::jp", jp.Path)
	require.NotNil(t, jp.Deck)
	assert.Equal(t, &deck.Counts{Due: 1, Remaining: 1, Total: 2}, jp.Counts)
	require.Len(t, jp.Children, 1)
	assert.Equal(t, "lang::jp::n5", jp.Children[0].Path)
	assert.Equal(t, &deck.Counts{Due: 0, Remaining: 0, Total: 1}, zh.Counts)

	filtered, err := f.engine.DeckTree(ctx, "tag:pet", false)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Nil(t, filtered[0].Counts)
	require.Len(t, filtered[0].Children, 1)
	assert.Equal(t, "lang::jp", filtered[0].Children[0].Path)

	_, err = f.engine.DeckTree(ctx, "a:", false)
	assert.ErrorIs(t, err, query.ErrSyntax)
}

func TestDeckCountsAndSubDecks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	c, err := f.engine.DeckCounts(ctx, "lang::jp::n5", "")
	require.NoError(t, err)
	assert.Equal(t, deck.Counts{Due: 1, Remaining: 0, Total: 1}, c)

	has, err := f.engine.HasSubDeck(ctx, "lang::jp")
	require.NoError(t, err)
	assert.True(t, has)
	has, err = f.engine.HasSubDeck(ctx, "lang::zh")
	require.NoError(t, err)
	assert.False(t, has)
}
