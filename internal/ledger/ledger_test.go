package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/cite"
)

func rec(id string, noteIndex int, items ...string) cite.Record {
	r := cite.NewRecord(items, noteIndex)
	r.ID = id
	return r
}

func TestReplaceRejectsDuplicateIDs(t *testing.T) {
	l := New()
	err := l.Replace([]cite.Record{
		rec("c1", 1, "a"),
		rec("c1", 2, "b"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate citation ID "c1"`)

	// The failed replace must not have touched ledger state.
	assert.Equal(t, 0, l.Len())
}

func TestReplaceAllowsMultipleUnconfirmedRecords(t *testing.T) {
	l := New()
	err := l.Replace([]cite.Record{
		cite.NewRecord([]string{"a"}, 1),
		cite.NewRecord([]string{"b"}, 2),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, l.Len())
}

func TestRecordsReturnsDeepCopy(t *testing.T) {
	l := New()
	require.NoError(t, l.Replace([]cite.Record{rec("c1", 1, "a")}))

	out := l.Records()
	out[0].Items[0] = "mutated"

	again := l.Records()
	assert.Equal(t, "a", again[0].Items[0])
}

func TestFindByID(t *testing.T) {
	l, err := FromRecords([]cite.Record{
		rec("c1", 1, "a"),
		rec("c2", 2, "b"),
	})
	require.NoError(t, err)

	got, pos, ok := l.FindByID("c2")
	require.True(t, ok)
	assert.Equal(t, 1, pos)
	assert.Equal(t, "c2", got.ID)

	_, _, ok = l.FindByID("missing")
	assert.False(t, ok)

	_, _, ok = l.FindByID("")
	assert.False(t, ok)
}

func TestResequence(t *testing.T) {
	records := []cite.Record{
		rec("c1", 7, "a"),
		rec("c2", 0, "b"),
		rec("c3", 7, "c"),
	}

	noted := Resequence(records, cite.ModeNote)
	assert.Equal(t, []int{1, 2, 3}, noteIndexes(noted))

	inline := Resequence(records, cite.ModeInText)
	assert.Equal(t, []int{0, 0, 0}, noteIndexes(inline))

	// Input untouched.
	assert.Equal(t, []int{7, 0, 7}, noteIndexes(records))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		records []cite.Record
		mode    cite.Mode
		wantErr string
	}{
		{
			name:    "note sequence intact",
			records: []cite.Record{rec("c1", 1, "a"), rec("c2", 2, "b")},
			mode:    cite.ModeNote,
		},
		{
			name:    "in-text zeroes",
			records: []cite.Record{rec("c1", 0, "a")},
			mode:    cite.ModeInText,
		},
		{
			name:    "duplicate id",
			records: []cite.Record{rec("c1", 1, "a"), rec("c1", 2, "b")},
			mode:    cite.ModeNote,
			wantErr: "duplicate citation ID",
		},
		{
			name:    "gap in note sequence",
			records: []cite.Record{rec("c1", 1, "a"), rec("c2", 3, "b")},
			mode:    cite.ModeNote,
			wantErr: "note index 3, want 2",
		},
		{
			name:    "stale note index inline",
			records: []cite.Record{rec("c1", 1, "a")},
			mode:    cite.ModeInText,
			wantErr: "note index 1, want 0",
		},
		{
			name: "empty is valid",
			mode: cite.ModeNote,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.records, tt.mode)
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func noteIndexes(records []cite.Record) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.NoteIndex()
	}
	return out
}
