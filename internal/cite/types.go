package cite

// Mode is the rendering mode reported by the formatting engine.
// The engine chooses the mode from the active style; it is never
// selected locally.
type Mode string

const (
	// ModeNote renders citations as numbered footnotes.
	ModeNote Mode = "note"
	// ModeInText renders citations inline.
	ModeInText Mode = "in-text"
)

// Valid reports whether m is a recognized mode.
func (m Mode) Valid() bool {
	return m == ModeNote || m == ModeInText
}

// Properties holds per-citation metadata owned by the formatter protocol.
type Properties struct {
	// NoteIndex is the 1-based sequential footnote number in note mode.
	// Always 0 in in-text mode.
	NoteIndex int `json:"note_index"`
}

// Record is one citation in document order.
//
// ID is assigned by the formatting engine on first registration and is
// empty for a record created by an in-progress edit that the formatter
// has not yet confirmed. Items is the ordered sequence of reference
// identifiers; duplicates are allowed and order is significant.
type Record struct {
	ID         string     `json:"citation_id,omitempty"`
	Items      []string   `json:"citation_items"`
	Properties Properties `json:"properties"`
}

// NewRecord builds an unconfirmed record (no ID yet) for a fresh edit.
func NewRecord(items []string, noteIndex int) Record {
	return Record{
		Items:      append([]string(nil), items...),
		Properties: Properties{NoteIndex: noteIndex},
	}
}

// NoteIndex returns the record's footnote number.
func (r Record) NoteIndex() int {
	return r.Properties.NoteIndex
}

// Clone returns a deep copy of the record.
// Used at the protocol boundary so in-flight requests hold an immutable
// snapshot of ledger state.
func (r Record) Clone() Record {
	c := r
	if r.Items != nil {
		c.Items = append([]string(nil), r.Items...)
	}
	return c
}

// Equal reports field-for-field equality.
func (r Record) Equal(o Record) bool {
	if r.ID != o.ID || r.Properties != o.Properties || len(r.Items) != len(o.Items) {
		return false
	}
	for i := range r.Items {
		if r.Items[i] != o.Items[i] {
			return false
		}
	}
	return true
}

// CloneAll deep-copies a record sequence.
func CloneAll(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// ContextEntry is the (citationID, noteIndex) pair sent to the formatter
// for citations outside the edit point. Identity and ordering context
// only - never item content.
type ContextEntry struct {
	ID        string `json:"citation_id"`
	NoteIndex int    `json:"note_index"`
}

// Update is one reconciliation tuple decoded from a formatter response:
// the marker at Position must display Text and carry ID.
type Update struct {
	Position int    `json:"position"`
	Text     string `json:"text"`
	ID       string `json:"citation_id"`
}

// RebuildEntry is one element of an initialize response: everything the
// engine knows about one citation, in document order.
type RebuildEntry struct {
	ID        string `json:"citation_id"`
	NoteIndex int    `json:"note_index"`
	Text      string `json:"text"`
}

// BibliographyFlags select the bibliography layout policy.
// At most one of HangingIndent and SecondFieldAlign is set; neither
// means default flow layout.
type BibliographyFlags struct {
	HangingIndent    bool `json:"hanging_indent,omitempty"`
	SecondFieldAlign bool `json:"second_field_align,omitempty"`
	// MaxOffset is the widest first-field width hint, in characters,
	// used to compute the float offset under second-field alignment.
	MaxOffset int `json:"max_offset,omitempty"`
	// EntrySpacing is the inter-entry spacing hint in lines.
	EntrySpacing int `json:"entry_spacing,omitempty"`
}

// Bibliography is the rendered bibliography payload from the formatter.
type Bibliography struct {
	Flags   BibliographyFlags `json:"flags"`
	Entries []string          `json:"entries"`
}

// Empty reports whether the payload carries no entries.
func (b Bibliography) Empty() bool {
	return len(b.Entries) == 0
}
