package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/cyfilter/internal/compiler"
	"github.com/roach88/cyfilter/internal/optimize"
	"github.com/roach88/cyfilter/internal/predicate"
	"github.com/roach88/cyfilter/internal/schema"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Filter or schema rejected (E1xx and E2xx codes)
	ExitCommandError = 2 // Command error (missing files, bad flags, store failures)
)

// ExitError carries the exit code a failed command terminates with.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string // usually the CLI error code
	Err     error  // underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// ExitCodeFor maps a CLI error code to an exit code. Schema validation
// (E1xx) and filter input (E2xx) codes reject what the user wrote and
// exit ExitFailure; everything else is a command error.
func ExitCodeFor(code string) int {
	if len(code) == 4 && code[0] == 'E' && (code[1] == '1' || code[1] == '2') {
		return ExitFailure
	}
	return ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`           // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`   // success payload
	Error  *CLIError   `json:"error,omitempty"`  // error details
	RunID  string      `json:"run_id,omitempty"` // compilation run correlation
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string        `json:"code"`              // "E005", "E201", etc.
	Message string        `json:"message"`           // human-readable message
	Details *ErrorDetails `json:"details,omitempty"` // where and why the input was rejected
}

// ErrorDetails locates a rejected filter or schema. Only the fields that
// apply to the failing error are set.
type ErrorDetails struct {
	Entity string `json:"entity,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Key    string `json:"key,omitempty"`
	Path   string `json:"path,omitempty"`
	Reason string `json:"reason,omitempty"`
	Limit  int    `json:"limit,omitempty"`

	// Aggregation type mismatches.
	Field  string `json:"field,omitempty"`
	Type   string `json:"type,omitempty"`
	Method string `json:"method,omitempty"`

	Validation []schema.ValidationError `json:"validation_errors,omitempty"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Fail reports err and returns the *ExitError the command should return.
// The code, message, details and exit code all derive from err.
func (f *OutputFormatter) Fail(err error) error {
	code := errorCode(err)
	return f.report(code, errorMessage(err), errorDetails(err), err)
}

// FailWith reports a failure that carries no code of its own, such as a
// store or output file error, under code.
func (f *OutputFormatter) FailWith(code string, err error) error {
	return f.report(code, err.Error(), errorDetails(err), err)
}

func (f *OutputFormatter) report(code, message string, details *ErrorDetails, err error) error {
	_ = f.Error(code, message, details)
	return WrapExitError(ExitCodeFor(code), code, err)
}

// Error outputs an error in the configured format. In text mode schema
// validation errors are always listed; the remaining details only with
// --verbose.
func (f *OutputFormatter) Error(code, message string, details *ErrorDetails) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if details == nil {
		return nil
	}
	for _, v := range details.Validation {
		fmt.Fprintf(f.Writer, "  %s: %s: %s\n", v.Code, v.Path, v.Message)
	}
	if f.Verbose {
		for _, line := range details.lines() {
			fmt.Fprintf(f.Writer, "  %s\n", line)
		}
	}
	return nil
}

// lines renders the set scalar details as "name: value" lines.
func (d *ErrorDetails) lines() []string {
	var out []string
	add := func(name, value string) {
		if value != "" {
			out = append(out, name+": "+value)
		}
	}
	add("entity", d.Entity)
	add("kind", d.Kind)
	add("key", d.Key)
	add("path", d.Path)
	add("reason", d.Reason)
	if d.Limit > 0 {
		add("limit", fmt.Sprint(d.Limit))
	}
	add("field", d.Field)
	add("type", d.Type)
	add("method", d.Method)
	return out
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// coded is implemented by every error that carries a CLI error code.
type coded interface {
	Code() string
}

// errorCode returns the code carried by err, or ErrCodeGeneric.
func errorCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	var de *schema.DocumentError
	if errors.As(err, &de) {
		return ErrCodeSchemaErrors
	}
	var c coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return ErrCodeGeneric
}

// errorMessage returns the human-readable message of err without the code
// prefix some error types carry.
func errorMessage(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Message
	}
	var de *schema.DocumentError
	if errors.As(err, &de) {
		return fmt.Sprintf("schema has %d validation error(s)", len(de.Errors))
	}
	msg := err.Error()
	var c coded
	if errors.As(err, &c) {
		msg = strings.TrimPrefix(msg, c.Code()+": ")
	}
	return msg
}

// errorDetails extracts the structured context of err, or nil.
func errorDetails(err error) *ErrorDetails {
	var (
		de       *schema.DocumentError
		fb       *optimize.FallbackRequired
		unknown  *predicate.UnknownFieldError
		comb     *predicate.UnsupportedCombinatorError
		invalid  *predicate.InvalidValueError
		deep     *predicate.TooDeepError
		mismatch *predicate.AggregationTypeMismatch
		entity   *compiler.UnknownEntityError
		root     *compiler.InvalidRootError
	)
	switch {
	case errors.As(err, &de):
		return &ErrorDetails{Validation: de.Errors}
	case errors.As(err, &fb):
		return &ErrorDetails{Reason: fb.Reason}
	case errors.As(err, &unknown):
		return &ErrorDetails{Entity: unknown.Entity, Key: unknown.Key, Path: unknown.Path, Reason: unknown.Reason}
	case errors.As(err, &comb):
		return &ErrorDetails{Key: comb.Key, Path: comb.Path, Reason: comb.Reason}
	case errors.As(err, &invalid):
		return &ErrorDetails{Key: invalid.Key, Path: invalid.Path, Reason: invalid.Reason}
	case errors.As(err, &deep):
		return &ErrorDetails{Path: deep.Path, Limit: deep.Limit}
	case errors.As(err, &mismatch):
		return &ErrorDetails{Field: mismatch.Field, Type: mismatch.Type, Method: string(mismatch.Method)}
	case errors.As(err, &entity):
		return &ErrorDetails{Entity: entity.Name}
	case errors.As(err, &root):
		return &ErrorDetails{Entity: root.Name, Kind: string(root.Kind)}
	}
	return nil
}
