package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/formatter"
)

func testLibrary() map[string]formatter.Reference {
	return map[string]formatter.Reference{
		"doe2019": {Author: "Doe", Title: "On Things", Year: 2019},
		"roe2020": {Author: "Roe", Title: "Other Matters", Year: 2020},
	}
}

func TestRunInterleavesStepsAndStates(t *testing.T) {
	scenario := &Scenario{
		Name:        "two_inserts",
		Description: "steps and settled states alternate in the trace",
		Library:     testLibrary(),
		Steps: []Step{
			{Op: OpInsert, Position: 0, Items: []string{"doe2019"}},
			{Op: OpInsert, Position: 1, Items: []string{"roe2020"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass)
	require.Len(t, result.Trace, 4)

	assert.Equal(t, "step", result.Trace[0].Type)
	assert.Equal(t, "state", result.Trace[1].Type)
	assert.Equal(t, "step", result.Trace[2].Type)
	assert.Equal(t, "state", result.Trace[3].Type)

	final := result.Trace[3]
	require.Len(t, final.Citations, 2)
	assert.Equal(t, "cite-0001", final.Citations[0].ID)
	assert.Equal(t, 1, final.Citations[0].NoteIndex)
	assert.Equal(t, "cite-0002", final.Citations[1].ID)
	assert.Equal(t, 2, final.Citations[1].NoteIndex)
	assert.Equal(t, "note", final.Mode)
}

func TestRunRecordsMarkerIDsForEditsAndDeletes(t *testing.T) {
	scenario := &Scenario{
		Name:        "edit_then_delete",
		Description: "edit and delete steps carry the addressed marker ID",
		Library:     testLibrary(),
		Steps: []Step{
			{Op: OpInsert, Position: 0, Items: []string{"doe2019"}},
			{Op: OpEdit, Position: 0, Items: []string{"roe2020"}},
			{Op: OpDelete, Position: 0},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.Empty(t, result.Trace[0].MarkerID)
	assert.Equal(t, "cite-0001", result.Trace[2].MarkerID)
	assert.Equal(t, "cite-0001", result.Trace[4].MarkerID)

	final := result.Trace[5]
	assert.Empty(t, final.Citations)
}

func TestRunFailedAssertionsReported(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_count",
		Description: "a failing assertion marks the result failed",
		Library:     testLibrary(),
		Steps: []Step{
			{Op: OpInsert, Position: 0, Items: []string{"doe2019"}},
		},
		Assertions: []Assertion{
			{Type: AssertCitationCount, Count: 3},
			{Type: AssertRenderContains, Text: "not in the document"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "3 citations")
	assert.Contains(t, result.Errors[1], "not in the document")
}

func TestRunUnknownStyleFallsBackToDefault(t *testing.T) {
	scenario := &Scenario{
		Name:        "unknown_style",
		Description: "an unknown style falls back to the engine default",
		Style:       "never-heard-of-it",
		Library:     testLibrary(),
		Steps: []Step{
			{Op: OpInsert, Position: 0, Items: []string{"doe2019"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	// chicago-note is the fallback: note mode, numbered markers.
	final := result.Trace[len(result.Trace)-1]
	assert.Equal(t, "note", final.Mode)
}

func TestRunEditAtEmptyPositionFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "edit_nothing",
		Description: "editing a position with no marker is a script error",
		Library:     testLibrary(),
		Steps: []Step{
			{Op: OpEdit, Position: 0, Items: []string{"doe2019"}},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no marker at position 0")
}
