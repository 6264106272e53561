package ledger

import (
	"fmt"

	"github.com/roach88/citesync/internal/cite"
)

// Ledger is the ordered citation record with a derived ID lookup map.
//
// Not safe for concurrent use. The whole pipeline is single-threaded
// (UI events and engine responses never interleave), so the ledger
// relies on the session's single-writer discipline instead of a lock.
type Ledger struct {
	records []cite.Record
	byID    map[string]int // non-empty citation ID -> index
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		records: []cite.Record{},
		byID:    map[string]int{},
	}
}

// FromRecords creates a ledger holding a copy of records.
// Returns an error if two records share a non-empty ID.
func FromRecords(records []cite.Record) (*Ledger, error) {
	l := New()
	if err := l.Replace(records); err != nil {
		return nil, err
	}
	return l, nil
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	return len(l.records)
}

// Records returns a deep copy of the current sequence in document order.
func (l *Ledger) Records() []cite.Record {
	return cite.CloneAll(l.records)
}

// Replace atomically swaps the whole sequence and re-derives the ID map.
// The input is deep-copied; the caller keeps no alias into ledger state.
func (l *Ledger) Replace(records []cite.Record) error {
	byID := make(map[string]int, len(records))
	for i, r := range records {
		if r.ID == "" {
			continue // unconfirmed record, no ID yet
		}
		if prev, dup := byID[r.ID]; dup {
			return fmt.Errorf("duplicate citation ID %q at positions %d and %d", r.ID, prev, i)
		}
		byID[r.ID] = i
	}
	l.records = cite.CloneAll(records)
	if l.records == nil {
		l.records = []cite.Record{}
	}
	l.byID = byID
	return nil
}

// FindByID returns a copy of the record with the given ID and its
// position. ok is false when no record carries that ID.
func (l *Ledger) FindByID(id string) (rec cite.Record, pos int, ok bool) {
	if id == "" {
		return cite.Record{}, 0, false
	}
	i, ok := l.byID[id]
	if !ok {
		return cite.Record{}, 0, false
	}
	return l.records[i].Clone(), i, true
}

// Resequence returns a copy of records with every NoteIndex normalized
// to its position-based sequence value under mode: 1..n in note mode,
// 0 otherwise. The local copy may have drifted from true document order
// between formatter round trips; resequencing restores the invariant.
func Resequence(records []cite.Record, mode cite.Mode) []cite.Record {
	out := cite.CloneAll(records)
	for i := range out {
		if mode == cite.ModeNote {
			out[i].Properties.NoteIndex = i + 1
		} else {
			out[i].Properties.NoteIndex = 0
		}
	}
	return out
}

// Validate checks ID uniqueness and note-index sequencing over a
// record sequence.
func Validate(records []cite.Record, mode cite.Mode) error {
	seen := make(map[string]int, len(records))
	for i, r := range records {
		if r.ID != "" {
			if prev, dup := seen[r.ID]; dup {
				return fmt.Errorf("duplicate citation ID %q at positions %d and %d", r.ID, prev, i)
			}
			seen[r.ID] = i
		}
		want := 0
		if mode == cite.ModeNote {
			want = i + 1
		}
		if r.Properties.NoteIndex != want {
			return fmt.Errorf("record %d: note index %d, want %d in %s mode",
				i, r.Properties.NoteIndex, want, mode)
		}
	}
	return nil
}
