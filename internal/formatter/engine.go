package formatter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"github.com/roach88/citesync/internal/cite"
	"github.com/roach88/citesync/internal/engine"
	"github.com/roach88/citesync/internal/protocol"
)

// Reference is one entry in the engine's reference library.
type Reference struct {
	Author string
	Title  string
	Year   int
}

// Engine is the in-process formatting engine. Implements
// protocol.Transport.
type Engine struct {
	mu        sync.Mutex
	styles    map[string]Style
	library   map[string]Reference
	ids       engine.TokenGenerator
	stylesDir string

	// Engine-side state, mirroring the external engine's statefulness.
	style     Style
	locale    language.Tag
	citations []cite.Record
}

// EngineOption configures the embedded engine.
type EngineOption func(*Engine)

// WithLibrary sets the reference library used for rendering.
func WithLibrary(library map[string]Reference) EngineOption {
	return func(e *Engine) {
		e.library = library
	}
}

// WithIDGenerator overrides citation-ID assignment. Tests pass an
// engine.FixedGenerator for deterministic IDs.
func WithIDGenerator(ids engine.TokenGenerator) EngineOption {
	return func(e *Engine) {
		e.ids = ids
	}
}

// WithStylesDir compiles additional style descriptors from dir on top of
// the builtins.
func WithStylesDir(dir string) EngineOption {
	return func(e *Engine) {
		e.stylesDir = dir
	}
}

// NewEngine creates an embedded engine with the builtin styles.
func NewEngine(opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		library: map[string]Reference{},
		ids:     engine.UUIDv7Generator{},
		locale:  language.AmericanEnglish,
	}
	for _, opt := range opts {
		opt(e)
	}

	styles, err := LoadStyles(e.stylesDir)
	if err != nil {
		return nil, err
	}
	e.styles = styles
	e.style = styles["chicago-note"]

	return e, nil
}

// Roundtrip handles one request. Safe for concurrent use, though the
// client's single-flight gate means calls never overlap in practice.
func (e *Engine) Roundtrip(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	if err := ctx.Err(); err != nil {
		return protocol.Response{}, err
	}
	if err := req.Validate(); err != nil {
		return protocol.Response{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch req.Kind {
	case protocol.KindInitialize:
		return e.initialize(*req.Initialize), nil
	case protocol.KindRegister:
		return e.register(*req.Register), nil
	default:
		return protocol.Response{}, fmt.Errorf("unknown request kind %q", req.Kind)
	}
}

// initialize resets engine state from a full citation sequence.
func (e *Engine) initialize(body protocol.InitializeRequest) protocol.Response {
	style, ok := e.styles[body.StyleID]
	if !ok {
		slog.Warn("unknown style, using default", "style", body.StyleID)
		style = e.styles["chicago-note"]
	}
	e.style = style

	tag, err := language.Parse(body.LocaleID)
	if err != nil {
		slog.Warn("unknown locale, using en-US", "locale", body.LocaleID)
		tag = language.AmericanEnglish
	}
	e.locale = tag

	e.citations = cite.CloneAll(body.CitationByIndex)
	for i := range e.citations {
		if e.citations[i].ID == "" {
			e.citations[i].ID = e.ids.Generate()
		}
		e.citations[i].Properties.NoteIndex = e.noteIndex(i)
	}

	rebuild := make([]cite.RebuildEntry, len(e.citations))
	for i, c := range e.citations {
		rebuild[i] = cite.RebuildEntry{
			ID:        c.ID,
			NoteIndex: c.Properties.NoteIndex,
			Text:      e.render(c),
		}
	}

	return protocol.Response{
		Kind: protocol.KindInitialize,
		Initialize: &protocol.InitializeResponse{
			Mode:         e.style.Mode,
			RebuildData:  rebuild,
			Bibliography: e.bibliography(),
		},
	}
}

// register rebuilds the engine's sequence from the request's identity
// context: before, then the target, then after. A citation absent from
// the context is dropped; that is how deletions reach the engine.
func (e *Engine) register(body protocol.RegisterRequest) protocol.Response {
	known := make(map[string]cite.Record, len(e.citations))
	for _, c := range e.citations {
		known[c.ID] = c
	}

	target := body.Citation.Clone()
	if target.ID == "" {
		target.ID = e.ids.Generate()
	}

	sequence := make([]cite.Record, 0, len(body.Before)+1+len(body.After))
	for _, entry := range body.Before {
		sequence = append(sequence, e.recall(known, entry))
	}
	sequence = append(sequence, target)
	for _, entry := range body.After {
		sequence = append(sequence, e.recall(known, entry))
	}

	e.citations = sequence
	for i := range e.citations {
		e.citations[i].Properties.NoteIndex = e.noteIndex(i)
	}

	updates := make([]cite.Update, len(e.citations))
	for i, c := range e.citations {
		updates[i] = cite.Update{Position: i, Text: e.render(c), ID: c.ID}
	}

	return protocol.Response{
		Kind: protocol.KindRegister,
		Register: &protocol.RegisterResponse{
			CitationByIndex: cite.CloneAll(e.citations),
			CitationData:    updates,
			Bibliography:    e.bibliography(),
		},
	}
}

// recall resolves a context entry against the engine's stored citations.
func (e *Engine) recall(known map[string]cite.Record, entry cite.ContextEntry) cite.Record {
	rec, ok := known[entry.ID]
	if !ok {
		rec = cite.Record{ID: entry.ID, Items: []string{}}
	}
	rec = rec.Clone()
	rec.Properties.NoteIndex = entry.NoteIndex
	return rec
}

func (e *Engine) noteIndex(pos int) int {
	if e.style.Mode == cite.ModeNote {
		return pos + 1
	}
	return 0
}

// render joins the citation's items with the style delimiter.
func (e *Engine) render(c cite.Record) string {
	parts := make([]string, len(c.Items))
	for i, item := range c.Items {
		parts[i] = e.renderItem(item)
	}
	return strings.Join(parts, e.style.Delimiter)
}

func (e *Engine) renderItem(item string) string {
	ref, ok := e.library[item]
	if !ok {
		return item
	}
	return fmt.Sprintf("%s, %s (%d)", ref.Author, ref.Title, ref.Year)
}

// bibliography renders one entry per distinct item in first-appearance
// order, with the style's layout flags.
func (e *Engine) bibliography() cite.Bibliography {
	seen := map[string]bool{}
	var entries []string
	maxOffset := 0

	for _, c := range e.citations {
		for _, item := range c.Items {
			if seen[item] {
				continue
			}
			seen[item] = true
			entries = append(entries, e.renderItem(item))
		}
	}

	if e.style.SecondFieldAlign {
		// Width of the widest entry number, e.g. "12.".
		maxOffset = len(fmt.Sprintf("%d.", len(entries)))
	}

	return cite.Bibliography{
		Flags: cite.BibliographyFlags{
			HangingIndent:    e.style.HangingIndent && len(entries) > 0,
			SecondFieldAlign: e.style.SecondFieldAlign && len(entries) > 0,
			MaxOffset:        maxOffset,
			EntrySpacing:     e.style.EntrySpacing,
		},
		Entries: entries,
	}
}
