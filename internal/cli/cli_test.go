package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/cite"
	"github.com/roach88/citesync/internal/persist"
)

// execute runs the CLI with the given arguments and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// memoryConfig writes a config selecting the in-memory store.
func memoryConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "citesync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: memory\n"), 0600))
	return path
}

// sqliteConfig writes a config pointing at a fresh SQLite database and
// returns both paths.
func sqliteConfig(t *testing.T) (configPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "state.db")
	configPath = filepath.Join(dir, "citesync.yaml")
	content := "store:\n  backend: sqlite\n  path: " + dbPath + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))
	return configPath, dbPath
}

func seedState(t *testing.T, dbPath string, records []cite.Record, positions map[string]int) {
	t.Helper()
	store, err := persist.OpenSQLite(dbPath)
	require.NoError(t, err)
	adapter := persist.NewAdapter(store)
	require.NoError(t, adapter.SetCitationByIndex(records))
	if positions != nil {
		require.NoError(t, adapter.SetPositions(positions))
	}
	require.NoError(t, adapter.Close())
}

func TestRootRejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, "styles", "--format", "xml", "--config", memoryConfig(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestStylesListsBuiltins(t *testing.T) {
	out, err := execute(t, "styles", "--config", memoryConfig(t))
	require.NoError(t, err)

	assert.Contains(t, out, `chicago-note (note, delimiter "; ", hanging indent)`)
	assert.Contains(t, out, `numeric-inline (in-text, delimiter ", ", second-field alignment)`)
}

func TestStylesJSON(t *testing.T) {
	out, err := execute(t, "styles", "--format", "json", "--config", memoryConfig(t))
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   []StyleInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)
	// Sorted by name.
	assert.Equal(t, "chicago-note", resp.Data[0].Name)
	assert.Equal(t, "numeric-inline", resp.Data[1].Name)
}

func TestStylesReportsCompileErrors(t *testing.T) {
	dir := t.TempDir()
	stylesDir := filepath.Join(dir, "styles")
	require.NoError(t, os.Mkdir(stylesDir, 0750))
	require.NoError(t, os.WriteFile(filepath.Join(stylesDir, "bad.cue"),
		[]byte(`styles: "broken": { delimiter: "; " }`), 0600))

	configPath := filepath.Join(dir, "citesync.yaml")
	content := "store:\n  backend: memory\nengine:\n  styles_dir: " + stylesDir + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	out, err := execute(t, "styles", "--config", configPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "style compilation failed")
}

func TestValidateEmptyStateIsConsistent(t *testing.T) {
	out, err := execute(t, "validate", "--config", memoryConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "state is consistent")
}

func TestValidateReportsProblems(t *testing.T) {
	configPath, dbPath := sqliteConfig(t)
	seedState(t, dbPath, []cite.Record{
		{ID: "c1", Items: []string{"doe2019"}, Properties: cite.Properties{NoteIndex: 1}},
	}, nil) // no position entry for c1

	out, err := execute(t, "validate", "--config", configPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "1 problem(s) found")
}

func TestValidateRepairResetsState(t *testing.T) {
	configPath, dbPath := sqliteConfig(t)
	seedState(t, dbPath, []cite.Record{
		{ID: "c1", Items: []string{"doe2019"}, Properties: cite.Properties{NoteIndex: 1}},
	}, nil)

	out, err := execute(t, "validate", "--repair", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "state reset to empty")

	out, err = execute(t, "validate", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "state is consistent")
}

func TestValidateJSONEnvelope(t *testing.T) {
	out, err := execute(t, "validate", "--format", "json", "--config", memoryConfig(t))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
}

func TestInspectPrintsPersistedState(t *testing.T) {
	configPath, dbPath := sqliteConfig(t)
	seedState(t, dbPath, []cite.Record{
		{ID: "c1", Items: []string{"doe2019"}, Properties: cite.Properties{NoteIndex: 1}},
		{ID: "c2", Items: []string{"roe2020", "doe2019"}, Properties: cite.Properties{NoteIndex: 2}},
	}, map[string]int{"c1": 0, "c2": 1})

	out, err := execute(t, "inspect", "--config", configPath)
	require.NoError(t, err)

	assert.Contains(t, out, "style: chicago-note")
	assert.Contains(t, out, "locale: en-US")
	assert.Contains(t, out, "citations: 2")
	assert.Contains(t, out, "[0] c1 note=1 items=doe2019")
	assert.Contains(t, out, "[1] c2 note=2 items=roe2020,doe2019")
	assert.Contains(t, out, "c1 -> 0")
}

func TestRunScenario(t *testing.T) {
	scenarioPath := filepath.Join(t.TempDir(), "scenario.yaml")
	scenario := `
name: cli-run
description: insert two citations and check the render
style: chicago-note
library:
  doe2019:
    author: Doe
    title: On Things
    year: 2019
  roe2020:
    author: Roe
    title: Other Matters
    year: 2020
steps:
  - op: insert
    position: 0
    items: [doe2019]
  - op: insert
    position: 1
    items: [roe2020]
assertions:
  - type: citation_count
    count: 2
  - type: render_contains
    text: "Roe, Other Matters (2020)"
`
	require.NoError(t, os.WriteFile(scenarioPath, []byte(scenario), 0600))

	out, err := execute(t, "run", "--fresh", "--config", memoryConfig(t), scenarioPath)
	require.NoError(t, err)

	assert.Contains(t, out, "[1] [2]")
	assert.Contains(t, out, "1. Doe, On Things (2019)")
	assert.Contains(t, out, "2. Roe, Other Matters (2020)")
}

func TestRunScenarioAssertionFailure(t *testing.T) {
	scenarioPath := filepath.Join(t.TempDir(), "scenario.yaml")
	scenario := `
name: cli-run-fail
description: assert a count the steps never reach
steps:
  - op: insert
    position: 0
    items: [doe2019]
assertions:
  - type: citation_count
    count: 5
`
	require.NoError(t, os.WriteFile(scenarioPath, []byte(scenario), 0600))

	out, err := execute(t, "run", "--fresh", "--config", memoryConfig(t), scenarioPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "assertion(s) failed")
}

func TestRunMissingScenarioFile(t *testing.T) {
	_, err := execute(t, "run", "--config", memoryConfig(t), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
