package document

import (
	"fmt"
	"strings"
)

// Marker is one citation placeholder in document order.
type Marker struct {
	// ID is the citation identifier, empty until first assigned from a
	// formatter response.
	ID string
	// Visible is what the reader sees at the marker position: the
	// rendered citation in in-text mode, the sequence number in note
	// mode.
	Visible string
	// Hidden is the rendered citation text stashed on the marker in
	// note mode, read back when the note block is regenerated.
	Hidden string
}

// Layout selects the bibliography layout policy.
type Layout int

const (
	// LayoutDefault is plain flow layout.
	LayoutDefault Layout = iota
	// LayoutHangingIndent applies a fixed negative first-line indent.
	LayoutHangingIndent
	// LayoutSecondField floats entry numbers left of the entry body.
	LayoutSecondField
)

// HangingIndentWidth is the fixed first-line indent, in characters,
// under LayoutHangingIndent.
const HangingIndentWidth = 4

// Bibliography is the document's bibliography container.
type Bibliography struct {
	Visible bool
	Entries []string
	Layout  Layout
	// Offset is the left float width under LayoutSecondField, derived
	// from the formatter's maximum first-field width hint.
	Offset int
	// NoWrap keeps entry bodies on one line under LayoutSecondField.
	NoWrap bool
}

// Doc is an in-memory document surface.
type Doc struct {
	markers []Marker
	// notes is the out-of-line footnote block; nil when absent.
	notes []string
	bib   Bibliography
}

// New creates an empty document.
func New() *Doc {
	return &Doc{}
}

// MarkerCount returns the number of citation markers.
func (d *Doc) MarkerCount() int {
	return len(d.markers)
}

// Marker returns a copy of the marker at pos.
func (d *Doc) Marker(pos int) (Marker, error) {
	if pos < 0 || pos >= len(d.markers) {
		return Marker{}, fmt.Errorf("no marker at position %d (have %d)", pos, len(d.markers))
	}
	return d.markers[pos], nil
}

// Markers returns a copy of all markers in position order.
func (d *Doc) Markers() []Marker {
	return append([]Marker(nil), d.markers...)
}

// InsertMarker inserts an empty marker at pos (clamped to the end) and
// returns its position.
func (d *Doc) InsertMarker(pos int) int {
	if pos < 0 {
		pos = 0
	}
	if pos > len(d.markers) {
		pos = len(d.markers)
	}
	d.markers = append(d.markers, Marker{})
	copy(d.markers[pos+1:], d.markers[pos:])
	d.markers[pos] = Marker{}
	return pos
}

// RemoveMarker deletes the marker at pos.
func (d *Doc) RemoveMarker(pos int) error {
	if pos < 0 || pos >= len(d.markers) {
		return fmt.Errorf("no marker at position %d (have %d)", pos, len(d.markers))
	}
	d.markers = append(d.markers[:pos], d.markers[pos+1:]...)
	return nil
}

// PositionOf returns the position of the marker carrying id, or -1.
func (d *Doc) PositionOf(id string) int {
	if id == "" {
		return -1
	}
	for i, m := range d.markers {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (d *Doc) setMarkerID(pos int, id string) {
	d.markers[pos].ID = id
}

func (d *Doc) setMarkerContent(pos int, visible, hidden string) {
	d.markers[pos].Visible = visible
	d.markers[pos].Hidden = hidden
}

func (d *Doc) setMarkerVisible(pos int, visible string) {
	d.markers[pos].Visible = visible
}

// setNotes replaces the whole note block.
func (d *Doc) setNotes(notes []string) {
	d.notes = notes
}

// Notes returns a copy of the note block, nil when absent.
func (d *Doc) Notes() []string {
	if d.notes == nil {
		return nil
	}
	return append([]string(nil), d.notes...)
}

// BibliographyBlock returns the current bibliography container state.
func (d *Doc) BibliographyBlock() Bibliography {
	b := d.bib
	b.Entries = append([]string(nil), d.bib.Entries...)
	return b
}

func (d *Doc) hideBibliography() {
	d.bib = Bibliography{}
}

func (d *Doc) setBibliography(b Bibliography) {
	d.bib = b
}

// Render prints the document as plain text: the marker line, the note
// block, then the bibliography. Used by the run command and golden tests.
func (d *Doc) Render() string {
	var sb strings.Builder

	for i, m := range d.markers {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString("[" + m.Visible + "]")
	}
	sb.WriteString("\n")

	if d.notes != nil {
		sb.WriteString("---\n")
		for i, note := range d.notes {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, note)
		}
	}

	if d.bib.Visible {
		sb.WriteString("===\n")
		for i, entry := range d.bib.Entries {
			switch d.bib.Layout {
			case LayoutHangingIndent:
				sb.WriteString(entry + "\n")
				// Continuation lines would be indented by
				// HangingIndentWidth; plain text keeps one line.
			case LayoutSecondField:
				fmt.Fprintf(&sb, "%-*s%s\n", d.bib.Offset, fmt.Sprintf("%d.", i+1), entry)
			default:
				sb.WriteString(entry + "\n")
			}
		}
	}

	return sb.String()
}
