package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/cite"
)

func noteRecord(id string, noteIndex int, items ...string) cite.Record {
	rec := cite.NewRecord(items, noteIndex)
	rec.ID = id
	return rec
}

func TestAssertNoteSequence(t *testing.T) {
	tests := []struct {
		name    string
		records []cite.Record
		mode    cite.Mode
		wantErr bool
	}{
		{
			name: "sequence intact",
			records: []cite.Record{
				noteRecord("a", 1, "x"),
				noteRecord("b", 2, "y"),
			},
			mode: cite.ModeNote,
		},
		{
			name: "gap in sequence",
			records: []cite.Record{
				noteRecord("a", 1, "x"),
				noteRecord("b", 3, "y"),
			},
			mode:    cite.ModeNote,
			wantErr: true,
		},
		{
			name: "in-text wants zeroes",
			records: []cite.Record{
				noteRecord("a", 0, "x"),
				noteRecord("b", 0, "y"),
			},
			mode: cite.ModeInText,
		},
		{
			name: "stale note index in in-text mode",
			records: []cite.Record{
				noteRecord("a", 1, "x"),
			},
			mode:    cite.ModeInText,
			wantErr: true,
		},
		{
			name: "empty ledger holds vacuously",
			mode: cite.ModeNote,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertNoteSequence(tt.records, tt.mode, nil)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAssertUniqueIDs(t *testing.T) {
	require.NoError(t, assertUniqueIDs([]cite.Record{
		noteRecord("a", 1, "x"),
		noteRecord("b", 2, "y"),
	}, nil))

	err := assertUniqueIDs([]cite.Record{
		noteRecord("a", 1, "x"),
		noteRecord("a", 2, "y"),
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positions 0 and 1")

	err = assertUniqueIDs([]cite.Record{noteRecord("", 1, "x")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty identifier")
}

func TestAssertCitationCount(t *testing.T) {
	records := []cite.Record{noteRecord("a", 1, "x")}

	require.NoError(t, assertCitationCount(records, Assertion{Count: 1}, nil))
	require.Error(t, assertCitationCount(records, Assertion{Count: 2}, nil))
}

func TestAssertRenderContains(t *testing.T) {
	render := "[1]\n---\n1. Doe, On Things (2019)\n"

	require.NoError(t, assertRenderContains(render, Assertion{Text: "Doe"}, nil))

	err := assertRenderContains(render, Assertion{Text: "Smith"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `render contains "Smith"`)
}

func TestAssertionErrorIncludesSteps(t *testing.T) {
	err := &AssertionError{
		Type:     AssertCitationCount,
		Expected: "2 citations",
		Actual:   "1 citations",
		Trace: []TraceEvent{
			{Type: "step", Op: OpInsert, Position: 0, Items: []string{"doe2019"}},
			{Type: "state"},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "assertion failed: citation_count")
	assert.Contains(t, msg, "expected: 2 citations")
	assert.Contains(t, msg, "insert at 0 [doe2019]")
}
