package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/conorfennell/srsdb/internal/query"
	"github.com/conorfennell/srsdb/internal/storage"
)

// FieldLister supplies every note field name, used to expand bare terms.
type FieldLister interface {
	NoteFieldNames(ctx context.Context) ([]string, error)
}

// Options are the structured filters applied next to the search string.
type Options struct {
	// Deck limits results to the deck and all of its descendants.
	Deck string
	// Tags must each be contained in some tag of the card's note.
	Tags []string
	// Due overrides the default actionable scope.
	Due    Due
	Offset int
	Limit  int
}

// Filter is a compiled search: AND-ed SQL conditions over cards c joined to
// notes n, plus ordering and pagination.
type Filter struct {
	conditions []string
	args       []any
	offset     int
	limit      int
}

func (f *Filter) add(cond string, args ...any) {
	f.conditions = append(f.conditions, cond)
	f.args = append(f.args, args...)
}

// Compile turns parsed clauses and explicit options into a filter. The
// default due scope applies only when neither a due clause nor opts.Due is
// given. Note field names are fetched at most once, and only when a bare
// term needs them.
func Compile(ctx context.Context, clauses []query.Clause, opts Options, fields FieldLister, now time.Time) (*Filter, error) {
	f := &Filter{offset: opts.Offset, limit: opts.Limit}
	dueSet := false

	var keys []string
	keysLoaded := false

	for _, c := range clauses {
		if c.IsTerm() {
			if !keysLoaded {
				var err error
				if keys, err = fields.NoteFieldNames(ctx); err != nil {
					return nil, err
				}
				keysLoaded = true
			}
			f.addTerm(c.Term(), keys)
			continue
		}

		switch c.Field() {
		case "due":
			d, err := ParseDue(c.Value())
			if err != nil {
				return nil, err
			}
			dueSet = true
			f.addDue(d, now)
		case "deck":
			f.addDeck(c.Value(), c.Op() == query.OpEqual)
		case "tag":
			f.addTag(c.Value(), c.Op() == query.OpEqual)
		default:
			f.addField(c.Field(), c.Op(), c.Value())
		}
	}

	switch {
	case opts.Due.IsSet():
		f.addDue(opts.Due, now)
	case !dueSet:
		f.addDue(Due{}, now)
	}

	if opts.Deck != "" {
		f.addDeck(opts.Deck, false)
	}
	for _, tag := range opts.Tags {
		f.addTag(tag, false)
	}
	return f, nil
}

func (f *Filter) addDue(d Due, now time.Time) {
	if cond, args := d.condition(now); cond != "" {
		f.add(cond, args...)
	}
}

// addTerm matches a term against any field of the note.
func (f *Filter) addTerm(term string, keys []string) {
	if len(keys) == 0 {
		f.add("0")
		return
	}
	parts := make([]string, len(keys))
	var args []any
	for i, k := range keys {
		parts[i] = `CAST(json_extract(n.data, ?) AS TEXT) LIKE ? ESCAPE '\'`
		args = append(args, storage.JSONPath(k), containsPattern(term))
	}
	f.add("("+strings.Join(parts, " OR ")+")", args...)
}

// addDeck matches the deck by name and, unless exact, every deck below it.
func (f *Filter) addDeck(name string, exact bool) {
	match := "d.name = ?"
	args := []any{name}
	if !exact {
		match = `(d.name = ? OR d.name LIKE ? ESCAPE '\')`
		args = append(args, escapeLike(name)+"::%")
	}
	f.add(`EXISTS (
		SELECT 1 FROM card_decks cd JOIN decks d ON d.id = cd.deck_id
		WHERE cd.card_id = c.id AND `+match+`)`, args...)
}

// addTag matches a tag of the note by exact name or by containment.
func (f *Filter) addTag(name string, exact bool) {
	match, arg := "t.name = ?", any(name)
	if !exact {
		match, arg = `t.name LIKE ? ESCAPE '\'`, containsPattern(name)
	}
	f.add(`EXISTS (
		SELECT 1 FROM note_tags nt JOIN tags t ON t.id = nt.tag_id
		WHERE nt.note_id = c.note_id AND `+match+`)`, arg)
}

// addField compares a note field with =, > or <; any other operator tests containment.
func (f *Filter) addField(field, op, value string) {
	path := storage.JSONPath(field)
	switch op {
	case query.OpEqual:
		f.add("(json_extract(n.data, ?) = ? OR CAST(json_extract(n.data, ?) AS TEXT) = ?)",
			path, literal(value), path, value)
	case query.OpGreater:
		f.addOrdered(path, ">", value)
	case query.OpLess:
		f.addOrdered(path, "<", value)
	default:
		f.add(`CAST(json_extract(n.data, ?) AS TEXT) LIKE ? ESCAPE '\'`, path, containsPattern(value))
	}
}

// addOrdered compares a field with > or <. Stored numbers and booleans
// compare by value against a numeric or boolean query value. Everything else,
// including numbers and dates stored as text, compares as text.
func (f *Filter) addOrdered(path, cmp, value string) {
	text := fmt.Sprintf("CAST(json_extract(n.data, ?) AS TEXT) %s ?", cmp)
	var types string
	switch literal(value).(type) {
	case float64:
		types = "'integer', 'real'"
	case int:
		types = "'true', 'false'"
	default:
		f.add(text, path, value)
		return
	}
	f.add(fmt.Sprintf("CASE WHEN json_type(n.data, ?) IN (%s) THEN json_extract(n.data, ?) %s ? ELSE %s END",
		types, cmp, text), path, path, literal(value), path, value)
}

// literal types a query value the way json_extract types stored values.
func literal(v string) any {
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}
	switch v {
	case "true":
		return 1
	case "false":
		return 0
	}
	return v
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func containsPattern(s string) string {
	return "%" + escapeLike(s) + "%"
}

// Where returns the AND-ed conditions and their arguments.
func (f *Filter) Where() (string, []any) {
	if len(f.conditions) == 0 {
		return "1", nil
	}
	return strings.Join(f.conditions, "\n  AND "), f.args
}

// SQL renders a SELECT of expr over the matching cards. Ordered queries sort
// by next review descending, unscheduled cards last, then by card ID, and
// apply offset and limit.
func (f *Filter) SQL(expr string, ordered bool) (string, []any) {
	where, args := f.Where()
	stmt := fmt.Sprintf("SELECT %s\nFROM cards c\nJOIN notes n ON n.id = c.note_id\nWHERE %s", expr, where)
	args = append([]any(nil), args...)
	if !ordered {
		return stmt, args
	}

	stmt += "\nORDER BY c.next_review IS NULL, c.next_review DESC, c.id"
	switch {
	case f.limit > 0:
		stmt += "\nLIMIT ? OFFSET ?"
		args = append(args, f.limit, f.offset)
	case f.offset > 0:
		stmt += "\nLIMIT -1 OFFSET ?"
		args = append(args, f.offset)
	}
	return stmt, args
}
