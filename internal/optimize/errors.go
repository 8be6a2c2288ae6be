package optimize

import (
	"errors"
	"fmt"
)

// ErrFallbackRequired is the sentinel every FallbackRequired unwraps to.
var ErrFallbackRequired = errors.New("fallback required")

// CodeFallbackRequired is reported when only the optimized translator was
// allowed and it declined the filter.
const CodeFallbackRequired = "E210"

// FallbackRequired reports a filter shape the optimized translator does not
// stage. It is a signal rather than a failure: the caller retries the same
// entity and input with the general translator, which accepts every shape
// the builder produces.
type FallbackRequired struct {
	// Reason names the unsupported construct.
	Reason string
}

// Error implements the error interface.
func (e *FallbackRequired) Error() string {
	return fmt.Sprintf("%s: %s", ErrFallbackRequired, e.Reason)
}

// Code returns CodeFallbackRequired.
func (e *FallbackRequired) Code() string { return CodeFallbackRequired }

// Unwrap returns ErrFallbackRequired.
func (e *FallbackRequired) Unwrap() error {
	return ErrFallbackRequired
}

// IsFallbackRequired returns true if err asks for the general translator.
// Uses errors.Is to handle wrapped errors.
func IsFallbackRequired(err error) bool {
	return errors.Is(err, ErrFallbackRequired)
}

func fallback(format string, args ...any) error {
	return &FallbackRequired{Reason: fmt.Sprintf(format, args...)}
}
