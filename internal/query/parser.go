package query

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrSyntax is matched by every error returned for a malformed search string.
var ErrSyntax = errors.New("query syntax error")

// SyntaxError describes why a search string could not be parsed.
type SyntaxError struct {
	Query  string
	Pos    int
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("query syntax error at %d in %q: %s", e.Pos, e.Query, e.Reason)
}

func (e *SyntaxError) Is(target error) bool { return target == ErrSyntax }

// Operators recognised between a field and its value.
const (
	OpContains = ":"
	OpEqual    = "="
	OpGreater  = ">"
	OpLess     = "<"
)

func isOperator(r rune) bool {
	switch r {
	case ':', '=', '>', '<':
		return true
	}
	return false
}

// Clause is one parsed predicate: either a single bare term or a
// field, operator, value triple.
type Clause []string

// IsTerm reports whether the clause is a bare term.
func (c Clause) IsTerm() bool { return len(c) == 1 }

func (c Clause) Term() string  { return c[0] }
func (c Clause) Field() string { return c[0] }
func (c Clause) Op() string    { return c[1] }
func (c Clause) Value() string { return c[2] }

type token struct {
	text   string
	pos    int
	quoted bool
}

func (t token) isOperator() bool {
	return !t.quoted && len(t.text) == 1 && isOperator(rune(t.text[0]))
}

// tokenize splits the query on whitespace and operator characters, honouring
// quotes. "year<2004" becomes "year" "<" "2004".
func tokenize(query string) ([]token, error) {
	var tokens []token
	var cur strings.Builder
	inToken := false
	quoted := false
	start := 0

	flush := func() {
		if inToken {
			tokens = append(tokens, token{text: cur.String(), pos: start, quoted: quoted})
		}
		cur.Reset()
		inToken = false
		quoted = false
	}

	runes := []rune(query)
	for pos := 0; pos < len(runes); pos++ {
		r := runes[pos]
		switch {
		case unicode.IsSpace(r):
			flush()
		case isOperator(r):
			flush()
			tokens = append(tokens, token{text: string(r), pos: pos})
		case r == '"' || r == '\'':
			if !inToken {
				start = pos
			}
			inToken = true
			quoted = true
			quote := r
			foundEnd := false
			for pos++; pos < len(runes); pos++ {
				c := runes[pos]
				if c == quote {
					foundEnd = true
					break
				}
				if c == '\\' && pos+1 < len(runes) {
					pos++
					c = runes[pos]
				}
				cur.WriteRune(c)
			}
			if !foundEnd {
				return nil, &SyntaxError{Query: query, Pos: start, Reason: "unterminated quote " + string(quote)}
			}
		default:
			if !inToken {
				start = pos
			}
			inToken = true
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens, nil
}

// Parse turns a search string into clauses. An empty or blank query yields
// no clauses and no error.
func Parse(query string) ([]Clause, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	tokens, err := tokenize(query)
	if err != nil {
		return nil, err
	}

	var clauses []Clause
	var current Clause
	for _, tok := range tokens {
		if tok.isOperator() {
			switch len(current) {
			case 1:
				current = append(current, tok.text)
			case 0:
				return nil, &SyntaxError{Query: query, Pos: tok.pos, Reason: "operator " + tok.text + " without a field"}
			default:
				return nil, &SyntaxError{Query: query, Pos: tok.pos, Reason: "unexpected operator " + tok.text}
			}
			continue
		}

		switch len(current) {
		case 0:
			current = Clause{tok.text}
		case 2:
			current = append(current, tok.text)
		default:
			clauses = append(clauses, current)
			current = Clause{tok.text}
		}
	}

	if len(current) == 2 {
		return nil, &SyntaxError{Query: query, Pos: len([]rune(query)), Reason: "missing value after " + current.Op()}
	}
	if len(current) > 0 {
		clauses = append(clauses, current)
	}
	return clauses, nil
}
