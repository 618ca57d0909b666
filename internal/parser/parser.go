// Package parser reads question blocks from markdown card files.
//
// A block starts at a line beginning with "Q:" and may carry "A:" and "C:"
// sections. Unprefixed lines continue the current section, and a line of
// "---" closes the block.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/conorfennell/srsdb/internal/domain"
)

// Field names produced for each entry.
const (
	FieldQuestion = "Question"
	FieldAnswer   = "Answer"
	FieldContext  = "Context"
)

// Entry is one question block.
type Entry struct {
	Question string
	Answer   string
	Context  string
	// Line is where the question starts, counting from 1.
	Line int
}

// Fields converts the entry to note data.
func (e Entry) Fields() domain.Fields {
	return domain.Fields{
		{Name: FieldQuestion, Value: domain.String(e.Question)},
		{Name: FieldAnswer, Value: domain.String(e.Answer)},
		{Name: FieldContext, Value: domain.String(e.Context)},
	}
}

type section int

const (
	none section = iota
	question
	answer
	context
)

var prefixes = []struct {
	text string
	sec  section
}{
	{"Q:", question},
	{"A:", answer},
	{"C:", context},
}

func sectionOf(line string) (section, string) {
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(line, p.text); ok {
			return p.sec, strings.TrimPrefix(rest, " ")
		}
	}
	return none, line
}

type builder struct {
	entries []Entry
	cur     Entry
	sec     section
	lines   []string
}

func (b *builder) flushSection() {
	text := strings.TrimRight(strings.Join(b.lines, "\n"), " \t\n")
	switch b.sec {
	case question:
		b.cur.Question = text
	case answer:
		b.cur.Answer = text
	case context:
		b.cur.Context = text
	}
	b.lines = nil
}

func (b *builder) finish() {
	b.flushSection()
	if b.cur.Question != "" {
		b.entries = append(b.entries, b.cur)
	}
	b.cur = Entry{}
	b.sec = none
}

// Parse extracts every entry from r.
func Parse(r io.Reader) ([]Entry, error) {
	var b builder
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if line == "---" {
			b.finish()
			continue
		}

		sec, text := sectionOf(line)
		switch {
		case sec == question:
			b.finish()
			b.cur.Line = lineNo
		case sec != none:
			b.flushSection()
		case b.sec == none:
			continue
		default:
			b.lines = append(b.lines, line)
			continue
		}
		b.sec = sec
		b.lines = append(b.lines, text)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	b.finish()
	return b.entries, nil
}

// ParseFile extracts every entry from the named file of fsys.
func ParseFile(fsys fs.FS, name string) ([]Entry, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return entries, nil
}
