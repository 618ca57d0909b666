// Package query parses card search strings.
//
// A search string is a whitespace separated list of clauses. A clause is
// either a bare term, matched against every note field, or a field-scoped
// predicate of the form field<op>value where op is one of ':', '=', '>' or
// '<':
//
//	kanji:日 deck:"Lang::JP" tag=leech due:3d
//
// Single or double quotes group text containing spaces or operator
// characters; the quotes themselves are stripped. A quoted token is never an
// operator, so 'a:b':c is the predicate field "a:b", op ':', value "c".
package query
