package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/cite"
)

func entries(records ...cite.Record) []cite.ContextEntry {
	out := make([]cite.ContextEntry, len(records))
	for i, r := range records {
		out[i] = cite.ContextEntry{ID: r.ID, NoteIndex: r.NoteIndex()}
	}
	return out
}

func TestSplitExistingRecord(t *testing.T) {
	a, b, c := rec("a", 1, "x"), rec("b", 2, "y"), rec("c", 3, "z")
	records := []cite.Record{a, b, c}
	pos := 1

	split := Split(records, &pos, false)

	require.NotNil(t, split.Target)
	assert.Equal(t, "b", split.Target.ID)
	assert.Equal(t, 1, split.TargetIndex)
	assert.Equal(t, entries(a), split.Before)
	assert.Equal(t, entries(c), split.After)
}

func TestSplitFreshMarker(t *testing.T) {
	a, b := rec("a", 1, "x"), rec("b", 2, "y")
	records := []cite.Record{a, b}

	tests := []struct {
		name   string
		pos    int
		before []cite.ContextEntry
		after  []cite.ContextEntry
	}{
		{"at front", 0, entries(), entries(a, b)},
		{"in middle", 1, entries(a), entries(b)},
		{"at end", 2, entries(a, b), entries()},
		{"past end clamps", 9, entries(a, b), entries()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := tt.pos
			split := Split(records, &pos, true)

			assert.Nil(t, split.Target)
			assert.Equal(t, -1, split.TargetIndex)
			assert.Equal(t, tt.before, split.Before)
			assert.Equal(t, tt.after, split.After)
		})
	}
}

func TestSplitNilPositionReanchorsAtFirst(t *testing.T) {
	a, b := rec("a", 1, "x"), rec("b", 2, "y")

	split := Split([]cite.Record{a, b}, nil, false)

	require.NotNil(t, split.Target)
	assert.Equal(t, "a", split.Target.ID)
	assert.Equal(t, 0, split.TargetIndex)
	assert.Empty(t, split.Before)
	assert.Equal(t, entries(b), split.After)
}

func TestSplitNilPositionEmptyLedger(t *testing.T) {
	split := Split(nil, nil, false)

	assert.Nil(t, split.Target)
	assert.Equal(t, -1, split.TargetIndex)
	assert.Empty(t, split.Before)
	assert.Empty(t, split.After)
}

func TestSplitOutOfRangeExistingIsEmpty(t *testing.T) {
	records := []cite.Record{rec("a", 1, "x")}

	for _, pos := range []int{-1, 1, 5} {
		p := pos
		split := Split(records, &p, false)
		assert.Nil(t, split.Target, "pos %d", pos)
		assert.Equal(t, -1, split.TargetIndex, "pos %d", pos)
	}
}

func TestSplitDoesNotAliasInput(t *testing.T) {
	records := []cite.Record{rec("a", 1, "x"), rec("b", 2, "y")}
	pos := 0

	split := Split(records, &pos, false)
	split.Target.Items[0] = "mutated"

	assert.Equal(t, "x", records[0].Items[0])
}
