package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/citesync/internal/cite"
	"github.com/roach88/citesync/internal/ledger"
)

// HandleEdit runs the state machine over one user edit.
//
// Whatever follows, the ledger is first re-sequenced to position order
// and persisted: the local copy may have drifted from true document
// order between formatter round trips.
//
// An empty item set deletes the citation (or removes a never-confirmed
// marker); a non-empty set registers an update, reusing the existing
// record when the marker carries an identifier and constructing a fresh
// one otherwise.
func (s *Session) HandleEdit(ctx context.Context, edit Edit) error {
	records := ledger.Resequence(s.ledger.Records(), s.mode)
	if err := s.ledger.Replace(records); err != nil {
		return fmt.Errorf("handle edit: %w", err)
	}
	s.persistLedger()

	if len(edit.Items) == 0 {
		if edit.MarkerID != "" {
			return s.deleteCitation(ctx, edit, records)
		}
		// Citation started but never confirmed: remove the marker, no
		// engine call.
		if err := s.doc.RemoveMarker(edit.Position); err != nil {
			return fmt.Errorf("remove unconfirmed marker: %w", err)
		}
		slog.Debug("unconfirmed marker removed", "position", edit.Position)
		return nil
	}

	return s.registerEdit(ctx, edit, records)
}

// registerEdit handles a non-empty item set: an edit of an existing
// citation or a fresh insertion, distinguished purely by whether the
// marker carries an identifier.
func (s *Session) registerEdit(ctx context.Context, edit Edit, records []cite.Record) error {
	fresh := edit.MarkerID == ""
	split := ledger.Split(records, &edit.Position, fresh)

	noteIndex := 0
	if s.mode == cite.ModeNote {
		noteIndex = len(split.Before) + 1
	}

	var target cite.Record
	if !fresh {
		if split.Target == nil {
			return newMissingRecordError(edit.MarkerID)
		}
		target = *split.Target
		target.Items = append([]string(nil), edit.Items...)
	} else {
		target = cite.NewRecord(edit.Items, noteIndex)
	}
	target.Properties.NoteIndex = noteIndex

	// Optimistic local edit prior to the request; the register response
	// replaces the whole ledger regardless.
	updated := spliceTarget(records, split, target, edit.Position)
	if err := s.ledger.Replace(updated); err != nil {
		return fmt.Errorf("register edit: %w", err)
	}
	s.persistLedger()

	if !s.client.Register(ctx, target, split.Before, split.After) {
		slog.Debug("formatter busy, edit not registered", "marker", edit.MarkerID)
	}
	return nil
}

// spliceTarget writes target back into the record sequence: in place for
// an edit, inserted at the marker position for a fresh citation.
func spliceTarget(records []cite.Record, split ledger.SplitResult, target cite.Record, pos int) []cite.Record {
	if split.TargetIndex >= 0 {
		out := cite.CloneAll(records)
		out[split.TargetIndex] = target
		return out
	}
	if pos > len(records) {
		pos = len(records)
	}
	out := make([]cite.Record, 0, len(records)+1)
	out = append(out, records[:pos]...)
	out = append(out, target)
	out = append(out, records[pos:]...)
	return cite.CloneAll(out)
}

// deleteCitation removes an identified citation. With the ledger emptied
// the engine is reset through initialize; otherwise the record after the
// deleted one becomes the new first reference point and is re-registered
// with note index 1, because the engine recomputes back-references
// relative to the position it is told is first.
func (s *Session) deleteCitation(ctx context.Context, edit Edit, records []cite.Record) error {
	_, pos, ok := s.ledger.FindByID(edit.MarkerID)
	if !ok {
		// Unreachable given validated state (the marker carried this
		// identifier); reported as an invariant violation.
		return newMissingRecordError(edit.MarkerID)
	}

	remaining := make([]cite.Record, 0, len(records)-1)
	remaining = append(remaining, records[:pos]...)
	remaining = append(remaining, records[pos+1:]...)

	delete(s.positions, edit.MarkerID)
	s.persistPositions()

	if err := s.doc.RemoveMarker(edit.Position); err != nil {
		return fmt.Errorf("delete citation: %w", err)
	}

	// Renumbering treats the record after the deleted one as the new
	// first reference point, even if earlier records exist with stale
	// numbers.
	remaining = ledger.Resequence(remaining, s.mode)
	if err := s.ledger.Replace(remaining); err != nil {
		return fmt.Errorf("delete citation: %w", err)
	}
	s.persistLedger()

	slog.Debug("citation deleted", "citation", edit.MarkerID, "remaining", len(remaining))

	if len(remaining) == 0 {
		if !s.client.Initialize(ctx, s.adapter.DefaultStyle(), s.adapter.DefaultLocale(), nil) {
			slog.Debug("formatter busy, reset not sent")
		}
		return nil
	}

	split := ledger.Split(remaining, nil, false)
	if !s.client.Register(ctx, *split.Target, split.Before, split.After) {
		slog.Debug("formatter busy, deletion not registered", "citation", edit.MarkerID)
	}
	return nil
}
