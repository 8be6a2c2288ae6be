package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryCommand_RecordsCompilations(t *testing.T) {
	schemaPath := writeTestFile(t, "schema.yaml", testSchemaYAML)
	filterPath := writeTestFile(t, "filter.json", `{"name": "Keanu"}`)
	orFilterPath := writeTestFile(t, "or.json", `{"OR": [{"name": "a"}, {"age": 3}]}`)
	dbPath := filepath.Join(t.TempDir(), "history.db")

	_, err := runCLI(t, "", "compile", "Person", filterPath, "--schema", schemaPath, "--db", dbPath)
	require.NoError(t, err)
	_, err = runCLI(t, "", "compile", "Person", orFilterPath, "--schema", schemaPath, "--db", dbPath)
	require.NoError(t, err)

	out, err := runCLI(t, "", "--format", "json", "history", "--db", dbPath)
	require.NoError(t, err)

	_, data := decodeResponse(t, out)
	var entries []HistoryEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)

	assert.Equal(t, int64(1), entries[0].Seq)
	assert.Equal(t, "optimized", entries[0].Strategy)
	assert.Equal(t, "MATCH (this:Person)\nWHERE this.name = $this_name\nRETURN this", entries[0].Statement)
	assert.Equal(t, map[string]any{"this_name": "Keanu"}, entries[0].Params)

	assert.Equal(t, int64(2), entries[1].Seq)
	assert.Equal(t, "general", entries[1].Strategy)
	assert.Equal(t, "filter contains OR combinator", entries[1].FallbackReason)
	assert.NotEqual(t, entries[0].RunID, entries[1].RunID)
	assert.NotEqual(t, entries[0].Fingerprint, entries[1].Fingerprint)

	out, err = runCLI(t, "", "--format", "json", "history", "--db", dbPath, "--fingerprint", entries[1].Fingerprint)
	require.NoError(t, err)
	_, data = decodeResponse(t, out)
	var filtered []HistoryEntry
	require.NoError(t, json.Unmarshal(data, &filtered))
	require.Len(t, filtered, 1)
	assert.Equal(t, entries[1].RunID, filtered[0].RunID)
}

func TestHistoryCommand_Text(t *testing.T) {
	schemaPath := writeTestFile(t, "schema.yaml", testSchemaYAML)
	orFilterPath := writeTestFile(t, "or.json", `{"OR": [{"name": "a"}, {"name": "b"}]}`)
	dbPath := filepath.Join(t.TempDir(), "history.db")

	_, err := runCLI(t, "", "compile", "Person", orFilterPath, "--schema", schemaPath, "--db", dbPath)
	require.NoError(t, err)

	out, err := runCLI(t, "", "history", "--db", dbPath, "--entity", "Person")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "1  "), lines[0])
	assert.Contains(t, lines[0], "  Person  general  ")
	assert.Equal(t, "    fallback: filter contains OR combinator", lines[1])
}

func TestHistoryCommand_Empty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	out, err := runCLI(t, "", "history", "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "No compilations recorded\n", out)

	out, err = runCLI(t, "", "--format", "json", "history", "--db", dbPath, "--entity", "Movie")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":[]}`, out)
}

func TestHistoryCommand_NoDatabase(t *testing.T) {
	out, err := runCLI(t, "", "--format", "json", "history")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp, _ := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeStoreFailed, resp.Error.Code)
}
