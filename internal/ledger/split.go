package ledger

import "github.com/roach88/citesync/internal/cite"

// SplitResult partitions the ledger around an edit point.
//
// Before and After carry (citationID, noteIndex) pairs only - the
// formatter needs ordering and identity context for citations outside
// the edit point, never their item content.
type SplitResult struct {
	// Target is a copy of the record under edit, or nil when the edit
	// marker is fresh (not yet in the ledger) or the ledger is empty.
	Target *cite.Record
	// TargetIndex is Target's position in the input sequence, -1 when
	// Target is nil.
	TargetIndex int
	Before      []cite.ContextEntry
	After       []cite.ContextEntry
}

// Split partitions records around an edit position. Pure: the input is
// never mutated and the result holds no aliases into it.
//
// With editPos == nil the split re-anchors the document at its first
// record: target is records[0], before is empty, after is everything
// else. Used when a citation was deleted but others remain.
//
// With editPos set, markers before the edit marker go to Before and
// markers after go to After. fresh marks an edit marker that is not yet
// in the ledger; it consumes the document position without a record, so
// every subsequent record is read one index earlier. Tracking that
// offset explicitly is what keeps existing records from being read at
// the wrong index.
func Split(records []cite.Record, editPos *int, fresh bool) SplitResult {
	if editPos == nil {
		if len(records) == 0 {
			return SplitResult{TargetIndex: -1}
		}
		return Split(records, intPtr(0), false)
	}

	pos := *editPos
	if fresh {
		// The fresh marker occupies document position pos; the record
		// sequence has no entry for it.
		if pos > len(records) {
			pos = len(records)
		}
		return SplitResult{
			TargetIndex: -1,
			Before:      contextEntries(records[:pos]),
			After:       contextEntries(records[pos:]),
		}
	}

	if pos < 0 || pos >= len(records) {
		// Missing expected record: invariant violation surfaced to the
		// caller as an empty split, not defensively patched.
		return SplitResult{TargetIndex: -1}
	}

	target := records[pos].Clone()
	return SplitResult{
		Target:      &target,
		TargetIndex: pos,
		Before:      contextEntries(records[:pos]),
		After:       contextEntries(records[pos+1:]),
	}
}

func contextEntries(records []cite.Record) []cite.ContextEntry {
	out := make([]cite.ContextEntry, len(records))
	for i, r := range records {
		out[i] = cite.ContextEntry{ID: r.ID, NoteIndex: r.Properties.NoteIndex}
	}
	return out
}

func intPtr(n int) *int { return &n }
