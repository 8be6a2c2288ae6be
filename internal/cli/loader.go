package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cyfilter/internal/optimize"
	"github.com/roach88/cyfilter/internal/schema"
)

// Error code constants - unified across all CLI commands. Schema validation
// owns E1xx and filter input errors E2xx; see internal/schema and
// internal/predicate.
const (
	ErrCodeGeneric      = "E001"                        // Generic/unknown error
	ErrCodeNotFound     = "E005"                        // Path not found
	ErrCodeLoadFailed   = "E004"                        // Schema or filter could not be decoded
	ErrCodeWriteFailed  = "E007"                        // File write error
	ErrCodeNoSchema     = "E008"                        // No schema configured
	ErrCodeStoreFailed  = "E009"                        // History database error
	ErrCodeInvalidInput = "E010"                        // Filter file is not an object
	ErrCodeSchemaErrors = "E100"                        // Schema has validation errors
	ErrCodeFallback     = optimize.CodeFallbackRequired // Optimized strategy cannot express the filter
)

// LoadError represents an error that occurred while loading a schema or
// filter file.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadSchema reads and builds the schema at path: a .yaml/.yml/.cue file
// or a directory holding a CUE package. Validation failures are returned
// as *schema.DocumentError so callers can list every error.
func LoadSchema(path string) (*schema.Schema, error) {
	if path == "" {
		return nil, &LoadError{Code: ErrCodeNoSchema, Message: "no schema given: pass --schema or set schema in cyfilter.yaml"}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema not found: %s", path), Err: err}
	}

	doc, err := schema.LoadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Err: err}
	}
	return schema.Build(doc)
}

// LoadFilter reads a filter object from a .json, .yaml or .yml file, or
// from stdin when path is "-" (JSON or YAML, detected from content).
func LoadFilter(path string, stdin io.Reader) (map[string]any, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("filter not found: %s", path), Err: err}
		}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading filter: %v", err), Err: err}
	}

	var raw any
	switch ext := filepath.Ext(path); {
	case ext == ".json" || (path == "-" && looksLikeJSON(data)):
		err = json.Unmarshal(data, &raw)
	default:
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("decoding filter: %v", err), Err: err}
	}

	if raw == nil {
		return map[string]any{}, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &LoadError{Code: ErrCodeInvalidInput, Message: fmt.Sprintf("filter must be an object, got %T", raw)}
	}
	return obj, nil
}

func looksLikeJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}
