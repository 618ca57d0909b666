package search

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/xhit/go-str2duration/v2"

	"github.com/conorfennell/srsdb/internal/query"
)

type dueKind int

const (
	dueUnset dueKind = iota
	dueAny
	dueTrue
	dueFalse
	dueWithin
	dueBefore
)

// Due restricts a search by next review time. The zero value leaves the
// restriction unset, which selects the default actionable scope: cards that
// are overdue or have never been scheduled.
type Due struct {
	kind   dueKind
	within time.Duration
	before time.Time
}

// DueTrue selects cards whose next review is in the past.
func DueTrue() Due { return Due{kind: dueTrue} }

// DueFalse selects cards that are not scheduled.
func DueFalse() Due { return Due{kind: dueFalse} }

// DueWithin selects cards due before now plus d.
func DueWithin(d time.Duration) Due { return Due{kind: dueWithin, within: d} }

// DueBefore selects cards due before t.
func DueBefore(t time.Time) Due { return Due{kind: dueBefore, before: t} }

// AnyDue disables due filtering entirely.
func AnyDue() Due { return Due{kind: dueAny} }

// IsSet reports whether d overrides the default actionable scope.
func (d Due) IsSet() bool { return d.kind != dueUnset }

func (d Due) String() string {
	switch d.kind {
	case dueAny:
		return "any"
	case dueTrue:
		return "true"
	case dueFalse:
		return "false"
	case dueWithin:
		return d.within.String()
	case dueBefore:
		return d.before.Format(time.RFC3339)
	default:
		return ""
	}
}

// ParseDue reads a due value: "true", "false", a relative duration such as
// "2h" or "3d", or an absolute date.
func ParseDue(s string) (Due, error) {
	v := strings.TrimSpace(s)
	switch strings.ToLower(v) {
	case "true":
		return DueTrue(), nil
	case "false":
		return DueFalse(), nil
	}
	if d, err := str2duration.ParseDuration(v); err == nil && d != 0 {
		return DueWithin(d), nil
	}
	if t, err := dateparse.ParseLocal(v); err == nil {
		return DueBefore(t), nil
	}
	return Due{}, &query.SyntaxError{Query: s, Reason: "due must be true, false, a duration or a date"}
}

// condition renders the SQL predicate for d, or "" when d adds none.
func (d Due) condition(now time.Time) (string, []any) {
	switch d.kind {
	case dueTrue:
		return "c.next_review < ?", []any{now.UnixMilli()}
	case dueFalse:
		return "c.next_review IS NULL", nil
	case dueWithin:
		return "c.next_review < ?", []any{now.Add(d.within).UnixMilli()}
	case dueBefore:
		return "c.next_review < ?", []any{d.before.UnixMilli()}
	case dueUnset:
		return "(c.next_review < ? OR c.next_review IS NULL)", []any{now.UnixMilli()}
	default:
		return "", nil
	}
}
