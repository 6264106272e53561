package document

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/roach88/citesync/internal/cite"
)

// PositionRecorder receives citationID -> document ordinal assignments
// the moment a marker is first given an identifier. Implementations
// persist the assignment immediately.
type PositionRecorder interface {
	RecordPosition(id string, pos int)
}

// Reconciler applies formatter output onto the document surface.
type Reconciler struct {
	doc       *Doc
	positions PositionRecorder
}

// NewReconciler creates a reconciler over doc. positions may be nil when
// no bookkeeping is wanted (tests).
func NewReconciler(doc *Doc, positions PositionRecorder) *Reconciler {
	return &Reconciler{doc: doc, positions: positions}
}

// ApplyCitations writes the update tuples onto the document.
//
// Pass 1 ensures every referenced marker carries an identifier. In note
// mode three further passes follow: hidden payload + sequence marker for
// the updated markers, renumbering of ALL markers in position order, and
// a full rebuild of the note block from the hidden payloads. In in-text
// mode the visible content is replaced directly.
func (r *Reconciler) ApplyCitations(mode cite.Mode, updates []cite.Update) error {
	// Pass 1: identifier assignment. Recorded into the position map as
	// it happens so a crash mid-reconcile still knows the assignment.
	for _, u := range updates {
		m, err := r.doc.Marker(u.Position)
		if err != nil {
			return fmt.Errorf("apply citations: %w", err)
		}
		if m.ID == "" {
			r.doc.setMarkerID(u.Position, u.ID)
			if r.positions != nil {
				r.positions.RecordPosition(u.ID, u.Position)
			}
			slog.Debug("marker identified", "citation", u.ID, "position", u.Position)
		}
	}

	if mode != cite.ModeNote {
		for _, u := range updates {
			r.doc.setMarkerVisible(u.Position, u.Text)
		}
		return nil
	}

	// Note mode. Hidden payload first: the markup has no link from an
	// inline marker to its out-of-line note, so the rendered text rides
	// on the marker itself.
	for _, u := range updates {
		r.doc.setMarkerContent(u.Position, "", u.Text)
	}

	// Renumber every marker in position order, independently of which
	// tuples changed. The formatter does not re-emit numbering-only
	// changes.
	count := r.doc.MarkerCount()
	if count == 0 {
		r.doc.setNotes(nil)
		return nil
	}
	for pos := 0; pos < count; pos++ {
		r.doc.setMarkerVisible(pos, strconv.Itoa(pos+1))
	}

	// Discard and regenerate the note block from the markers.
	notes := make([]string, count)
	for pos := 0; pos < count; pos++ {
		m, err := r.doc.Marker(pos)
		if err != nil {
			return fmt.Errorf("apply citations: %w", err)
		}
		notes[pos] = m.Hidden
	}
	r.doc.setNotes(notes)

	return nil
}

// ApplyBibliography replaces the bibliography container contents.
//
// An empty payload hides the container with no layout styling. Otherwise
// exactly one layout policy applies: hanging indent, or second-field
// alignment with the float offset derived from the maximum-width hint.
// Absence of both flags leaves default flow layout.
func (r *Reconciler) ApplyBibliography(bib cite.Bibliography) {
	if bib.Empty() {
		r.doc.hideBibliography()
		return
	}

	block := Bibliography{
		Visible: true,
		Entries: append([]string(nil), bib.Entries...),
		Layout:  LayoutDefault,
	}

	switch {
	case bib.Flags.HangingIndent:
		block.Layout = LayoutHangingIndent
	case bib.Flags.SecondFieldAlign:
		block.Layout = LayoutSecondField
		// One column of breathing room past the widest first field.
		block.Offset = bib.Flags.MaxOffset + 1
		block.NoWrap = true
	}

	r.doc.setBibliography(block)
	slog.Debug("bibliography applied", "entries", len(bib.Entries), "layout", int(block.Layout))
}
