// Package importer loads markdown card files into the store.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/conorfennell/srsdb/internal/deck"
	"github.com/conorfennell/srsdb/internal/domain"
	"github.com/conorfennell/srsdb/internal/parser"
	"github.com/conorfennell/srsdb/internal/storage"
)

// DefaultPattern selects markdown files at any depth.
const DefaultPattern = "**/*.{md,markdown}"

// BasicModel is the model imported entries are stored under. It is created
// on first import.
var BasicModel = storage.ModelSpec{
	Name:      "Basic",
	KeyFields: []string{parser.FieldQuestion},
	Templates: []storage.TemplateSpec{{
		Name:  "Card",
		Front: "{{" + parser.FieldQuestion + "}}",
		Back:  "{{" + parser.FieldAnswer + "}}\n\n{{" + parser.FieldContext + "}}",
	}},
}

// Store is the persistence the importer writes to.
type Store interface {
	ModelByName(ctx context.Context, name string) (*domain.Model, error)
	CreateModel(ctx context.Context, spec storage.ModelSpec) (int64, error)
	CreateNote(ctx context.Context, modelID int64, data domain.Fields, tags []string) (int64, error)
	NoteByKey(ctx context.Context, modelID int64, data domain.Fields) (int64, error)
	CardsForNote(ctx context.Context, noteID int64) ([]int64, error)
	AddDeck(ctx context.Context, cardIDs []int64, name string, strict bool) error
}

// Importer turns card files into notes and files their cards into decks
// named after the file path.
type Importer struct {
	store   Store
	log     zerolog.Logger
	pattern string
	tags    []string
}

// Option configures an Importer.
type Option func(*Importer)

func WithLogger(l zerolog.Logger) Option {
	return func(im *Importer) { im.log = l }
}

// WithPattern replaces DefaultPattern.
func WithPattern(pattern string) Option {
	return func(im *Importer) { im.pattern = pattern }
}

// WithTags tags every imported note.
func WithTags(tags ...string) Option {
	return func(im *Importer) { im.tags = tags }
}

// New creates an importer over store.
func New(store Store, opts ...Option) *Importer {
	im := &Importer{
		store:   store,
		log:     zerolog.Nop(),
		pattern: DefaultPattern,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Report summarises an import run.
type Report struct {
	Files    int
	Entries  int
	Created  int
	Existing int
	Errors   []error
}

// Import reads every matching file of fsys. Cards land in a deck built from
// root, the file's directories and its base name. Entries whose question is
// already stored count as existing and are still filed into the deck.
// Per-entry failures are collected in the report; only failures that stop
// the whole run are returned.
func (im *Importer) Import(ctx context.Context, fsys fs.FS, root string) (*Report, error) {
	if !doublestar.ValidatePattern(im.pattern) {
		return nil, fmt.Errorf("invalid file pattern %q", im.pattern)
	}
	modelID, err := im.ensureModel(ctx)
	if err != nil {
		return nil, err
	}
	files, err := doublestar.Glob(fsys, im.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", im.pattern, err)
	}

	report := &Report{}
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		entries, err := parser.ParseFile(fsys, name)
		if err != nil {
			report.Errors = append(report.Errors, err)
			continue
		}
		report.Files++
		deckName := DeckFor(root, name)

		for _, e := range entries {
			report.Entries++
			created, err := im.importEntry(ctx, modelID, e, deckName)
			switch {
			case err != nil:
				report.Errors = append(report.Errors, fmt.Errorf("%s:%d: %w", name, e.Line, err))
			case created:
				report.Created++
			default:
				report.Existing++
			}
		}
		im.log.Debug().Str("file", name).Str("deck", deckName).Int("entries", len(entries)).Msg("imported file")
	}

	im.log.Info().
		Int("files", report.Files).
		Int("created", report.Created).
		Int("existing", report.Existing).
		Int("errors", len(report.Errors)).
		Msg("import complete")
	return report, nil
}

func (im *Importer) ensureModel(ctx context.Context) (int64, error) {
	m, err := im.store.ModelByName(ctx, BasicModel.Name)
	if err == nil {
		return m.ID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return 0, err
	}
	im.log.Info().Str("model", BasicModel.Name).Msg("creating import model")
	return im.store.CreateModel(ctx, BasicModel)
}

func (im *Importer) importEntry(ctx context.Context, modelID int64, e parser.Entry, deckName string) (bool, error) {
	created := true
	noteID, err := im.store.CreateNote(ctx, modelID, e.Fields(), im.tags)
	if errors.Is(err, domain.ErrConstraintViolation) {
		created = false
		noteID, err = im.store.NoteByKey(ctx, modelID, e.Fields())
	}
	if err != nil {
		return false, err
	}

	cards, err := im.store.CardsForNote(ctx, noteID)
	if err != nil {
		return false, err
	}
	if deckName != "" && len(cards) > 0 {
		if err := im.store.AddDeck(ctx, cards, deckName, false); err != nil {
			return false, err
		}
	}
	return created, nil
}

// DeckFor names the deck of a card file: root, then each directory, then the
// file name without its extension.
func DeckFor(root, name string) string {
	name = strings.TrimSuffix(name, path.Ext(name))
	var segments []string
	if root != "" {
		segments = append(segments, root)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg != "" && seg != "." {
			segments = append(segments, seg)
		}
	}
	return deck.Join(segments...)
}
