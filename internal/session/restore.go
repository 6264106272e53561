package session

import (
	"fmt"
	"log/slog"

	"github.com/roach88/citesync/internal/cite"
	"github.com/roach88/citesync/internal/document"
	"github.com/roach88/citesync/internal/ledger"
)

// CheckState validates persisted citation state for session recovery:
// every stored record must carry an identifier known to the position
// map, identifiers must be unique, and positions must be in range.
// Returns a description of every problem found.
func CheckState(records []cite.Record, positions map[string]int) []string {
	var issues []string

	seen := make(map[string]int, len(records))
	for i, r := range records {
		if r.ID == "" {
			issues = append(issues, fmt.Sprintf("record %d has no citation ID", i))
			continue
		}
		if prev, dup := seen[r.ID]; dup {
			issues = append(issues, fmt.Sprintf("citation ID %q duplicated at positions %d and %d", r.ID, prev, i))
			continue
		}
		seen[r.ID] = i

		if _, ok := positions[r.ID]; !ok {
			issues = append(issues, fmt.Sprintf("citation %q missing from position map", r.ID))
		}
	}

	for id, pos := range positions {
		if _, ok := seen[id]; !ok {
			issues = append(issues, fmt.Sprintf("position map entry %q has no record", id))
			continue
		}
		if pos < 0 || pos >= len(records) {
			issues = append(issues, fmt.Sprintf("citation %q position %d out of range 0..%d", id, pos, len(records)-1))
		}
	}

	return issues
}

// Restore loads persisted citation state at startup and runs the
// consistency checks once. Malformed state is never fatal: everything is
// discarded back to empty, orphan markers are removed from the document,
// and the emptied state is persisted.
//
// When the document has no markers yet, consistent state seeds one
// identified marker per record in position order; rendered content
// arrives with the next initialize response.
func (s *Session) Restore() {
	records := s.adapter.CitationByIndex()
	positions := s.adapter.Positions()

	issues := CheckState(records, positions)
	if len(issues) == 0 && s.doc.MarkerCount() > 0 && s.doc.MarkerCount() != len(records) {
		issues = append(issues, fmt.Sprintf("document has %d markers, ledger has %d records",
			s.doc.MarkerCount(), len(records)))
	}

	if len(issues) > 0 {
		for _, issue := range issues {
			slog.Warn("persisted citation state malformed", "issue", issue)
		}
		s.reset()
		return
	}

	if err := s.ledger.Replace(records); err != nil {
		slog.Warn("persisted citation state malformed", "issue", err.Error())
		s.reset()
		return
	}
	s.positions = positions

	if s.doc.MarkerCount() == 0 {
		s.seedMarkers(records)
	}

	slog.Info("citation state restored", "citations", len(records))
}

// reset discards all citation state to empty and removes orphan markers.
func (s *Session) reset() {
	// Replacing with nothing cannot violate uniqueness.
	_ = s.ledger.Replace(nil)
	s.positions = map[string]int{}

	for s.doc.MarkerCount() > 0 {
		if err := s.doc.RemoveMarker(0); err != nil {
			break
		}
	}

	s.persistLedger()
	s.persistPositions()
	slog.Warn("citation state reset to empty")
}

// seedMarkers creates one identified marker per record in position order.
func (s *Session) seedMarkers(records []cite.Record) {
	for i := range records {
		s.doc.InsertMarker(i)
	}
	// Identification runs through the reconciler's first pass so the
	// position map stays in step.
	updates := make([]cite.Update, len(records))
	for i, r := range records {
		updates[i] = cite.Update{Position: i, ID: r.ID}
	}
	if err := s.reconciler.ApplyCitations(cite.ModeInText, updates); err != nil {
		slog.Warn("marker seed failed", "error", err)
	}
}

// Validate re-checks the live ledger against its invariants. Exposed for
// the validate command and the harness.
func (s *Session) Validate() error {
	return ledger.Validate(s.ledger.Records(), s.mode)
}

var _ document.PositionRecorder = (*Session)(nil)
