package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchemaYAML = `
entities:
  - name: Person
    kind: node
    fields:
      - {name: name, type: String}
      - {name: age, type: Int}
      - name: friends
        type: "[Person]"
        relationship: {type: FRIENDS_WITH}
  - name: Movie
    kind: node
    implements: [Production]
    fields:
      - {name: title, type: String}
  - name: Production
    kind: interface
    fields:
      - {name: title, type: String}
`

// writeTestFile writes content to name inside a fresh temp dir.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeResponse decodes a JSON CLIResponse, leaving data raw.
func decodeResponse(t *testing.T, out string) (CLIResponse, json.RawMessage) {
	t.Helper()
	var resp struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp.CLIResponse, resp.Data
}

func TestCompileCommand_Text(t *testing.T) {
	schemaPath := writeTestFile(t, "schema.yaml", testSchemaYAML)
	filterPath := writeTestFile(t, "filter.json", `{"name": "Keanu"}`)

	out, err := runCLI(t, "", "compile", "Person", filterPath, "--schema", schemaPath)
	require.NoError(t, err)

	expected := "MATCH (this:Person)\n" +
		"WHERE this.name = $this_name\n" +
		"RETURN this\n" +
		"\n" +
		"Params:\n" +
		"  $this_name = \"Keanu\"\n"
	assert.Equal(t, expected, out)
}

func TestCompileCommand_JSON(t *testing.T) {
	schemaPath := writeTestFile(t, "schema.yaml", testSchemaYAML)
	filterPath := writeTestFile(t, "filter.yaml", "OR:\n  - name: Keanu\n  - age_GT: 30\n")

	out, err := runCLI(t, "", "--format", "json", "compile", "Person", filterPath, "--schema", schemaPath)
	require.NoError(t, err)

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.RunID)

	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, resp.RunID, result.RunID)
	assert.Equal(t, "Person", result.Entity)
	assert.Equal(t, "general", result.Strategy)
	assert.Equal(t, "filter contains OR combinator", result.FallbackReason)
	assert.Len(t, result.Fingerprint, 64)
	assert.Equal(t, map[string]any{"this_OR0_name": "Keanu", "this_OR1_age_GT": float64(30)}, result.Params)
}

func TestCompileCommand_Stdin(t *testing.T) {
	schemaPath := writeTestFile(t, "schema.yaml", testSchemaYAML)

	out, err := runCLI(t, `{"name_CONTAINS": "ean"}`, "compile", "Person", "-", "--schema", schemaPath)
	require.NoError(t, err)
	assert.Contains(t, out, "WHERE this.name CONTAINS $this_name_CONTAINS\n")
	assert.Contains(t, out, `$this_name_CONTAINS = "ean"`)
}

func TestCompileCommand_OutputFile(t *testing.T) {
	schemaPath := writeTestFile(t, "schema.yaml", testSchemaYAML)
	filterPath := writeTestFile(t, "filter.json", `{}`)
	outputPath := filepath.Join(t.TempDir(), "query.cypher")

	out, err := runCLI(t, "", "compile", "Person", filterPath, "--schema", schemaPath, "-o", outputPath)
	require.NoError(t, err)

	written, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, out, string(written))
	assert.NotContains(t, out, "Params:")
}

func TestCompileCommand_Errors(t *testing.T) {
	schemaPath := writeTestFile(t, "schema.yaml", testSchemaYAML)
	badSchemaPath := writeTestFile(t, "bad.yaml", strings.Replace(testSchemaYAML, "type: Int", "type: Integer", 1))
	filterPath := writeTestFile(t, "filter.json", `{"name": "Keanu"}`)
	orFilterPath := writeTestFile(t, "or.json", `{"OR": [{"name": "a"}, {"name": "b"}]}`)
	unknownPath := writeTestFile(t, "unknown.json", `{"nickname": "Neo"}`)
	listPath := writeTestFile(t, "list.json", `[1, 2]`)

	tests := []struct {
		name     string
		args     []string
		code     string
		exitCode int
	}{
		{"no schema", []string{"compile", "Person", filterPath}, ErrCodeNoSchema, ExitCommandError},
		{"schema not found", []string{"compile", "Person", filterPath, "--schema", "/nonexistent.yaml"}, ErrCodeNotFound, ExitCommandError},
		{"invalid schema", []string{"compile", "Person", filterPath, "--schema", badSchemaPath}, ErrCodeSchemaErrors, ExitFailure},
		{"filter not found", []string{"compile", "Person", "/nonexistent.json", "--schema", schemaPath}, ErrCodeNotFound, ExitCommandError},
		{"filter not an object", []string{"compile", "Person", listPath, "--schema", schemaPath}, ErrCodeInvalidInput, ExitCommandError},
		{"bad strategy", []string{"compile", "Person", filterPath, "--schema", schemaPath, "--strategy", "fastest"}, ErrCodeGeneric, ExitCommandError},
		{"unknown entity", []string{"compile", "Robot", filterPath, "--schema", schemaPath}, "E200", ExitFailure},
		{"unknown key", []string{"compile", "Person", unknownPath, "--schema", schemaPath}, "E201", ExitFailure},
		{"bad aggregate", []string{"compile", "Person", filterPath, "--schema", schemaPath, "--aggregate", "age"}, ErrCodeGeneric, ExitCommandError},
		{"aggregate on relation", []string{"compile", "Person", filterPath, "--schema", schemaPath, "--aggregate", "friends:MAX"}, "E201", ExitFailure},
		{"aggregate type mismatch", []string{"compile", "Person", filterPath, "--schema", schemaPath, "--aggregate", "name:SUM"}, "E204", ExitFailure},
		{"optimized only", []string{"compile", "Person", orFilterPath, "--schema", schemaPath, "--strategy", "optimized"}, ErrCodeFallback, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--format", "json"}, tt.args...)
			out, err := runCLI(t, "", args...)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))

			resp, _ := decodeResponse(t, out)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestCompileCommand_Aggregate(t *testing.T) {
	schemaPath := writeTestFile(t, "schema.yaml", testSchemaYAML)
	filterPath := writeTestFile(t, "filter.json", `{"name": "Keanu"}`)

	out, err := runCLI(t, "", "compile", "Person", filterPath, "--schema", schemaPath,
		"--aggregate", "age:average", "--aggregate", "name:AVERAGE_LENGTH")
	require.NoError(t, err)
	assert.Contains(t, out, "MATCH (this:Person)\n"+
		"WHERE this.name = $this_name\n"+
		"RETURN count(this) AS count, avg(this.age) AS age_AVERAGE, avg(size(this.name)) AS name_AVERAGE_LENGTH\n")
}

func TestCompileCommand_ErrorDetails(t *testing.T) {
	schemaPath := writeTestFile(t, "schema.yaml", testSchemaYAML)
	unknownPath := writeTestFile(t, "unknown.json", `{"friends_SOME": {"nickname": "Neo"}}`)

	out, err := runCLI(t, "", "--format", "json", "compile", "Person", unknownPath, "--schema", schemaPath)
	require.Error(t, err)

	resp, _ := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, &ErrorDetails{Entity: "Person", Key: "nickname", Path: "friends_SOME.nickname"}, resp.Error.Details)
	assert.Equal(t, `unknown filter key "nickname" on Person (at friends_SOME.nickname)`, resp.Error.Message)
}

func TestCompileCommand_TextError(t *testing.T) {
	schemaPath := writeTestFile(t, "schema.yaml", testSchemaYAML)

	out, err := runCLI(t, "", "compile", "Person", "/nonexistent.json", "--schema", schemaPath)
	require.Error(t, err)
	assert.Equal(t, "Error [E005]: filter not found: /nonexistent.json\n", out)
}

func TestCompileCommand_ConfigFile(t *testing.T) {
	schemaPath := writeTestFile(t, "schema.yaml", testSchemaYAML)
	filterPath := writeTestFile(t, "filter.json", `{"name": "Keanu"}`)
	configPath := writeTestFile(t, "cyfilter.yaml", "schema: "+schemaPath+"\nstrategy: general\n")

	out, err := runCLI(t, "", "--config", configPath, "--format", "json", "compile", "Person", filterPath)
	require.NoError(t, err)

	_, data := decodeResponse(t, out)
	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, "general", result.Strategy)
	assert.Empty(t, result.FallbackReason)
}
