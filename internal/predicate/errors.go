package predicate

import (
	"errors"
	"fmt"
)

// Error codes for filter input errors. Schema validation owns E1xx.
const (
	// CodeUnknownField: a key resolves to no field/operator combination.
	CodeUnknownField = "E201"

	// CodeUnsupportedCombinator: an AND/OR value is not a list of objects.
	CodeUnsupportedCombinator = "E202"

	// CodeTooDeep: the input nests deeper than the configured limit.
	CodeTooDeep = "E203"

	// CodeAggregationTypeMismatch: an aggregation method was applied to a
	// field type that does not support it.
	CodeAggregationTypeMismatch = "E204"

	// CodeInvalidValue: a key resolved but its value has the wrong shape.
	CodeInvalidValue = "E205"
)

// UnknownFieldError reports an input key that does not resolve to a
// declared field/operator combination on the entity it is scoped to.
// It is a client input error and is never retried.
type UnknownFieldError struct {
	Entity string // entity the key was resolved against
	Key    string // raw input key
	Path   string // dotted path of the key in the input
	Reason string // optional detail
}

func (e *UnknownFieldError) Error() string {
	msg := fmt.Sprintf("%s: unknown filter key %q on %s", CodeUnknownField, e.Key, e.Entity)
	if e.Path != "" && e.Path != e.Key {
		msg += fmt.Sprintf(" (at %s)", e.Path)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Code returns the error code.
func (e *UnknownFieldError) Code() string { return CodeUnknownField }

// UnsupportedCombinatorError reports a malformed AND/OR value.
type UnsupportedCombinatorError struct {
	Key    string
	Path   string
	Reason string
}

func (e *UnsupportedCombinatorError) Error() string {
	return fmt.Sprintf("%s: unsupported %s value at %s: %s", CodeUnsupportedCombinator, e.Key, e.Path, e.Reason)
}

// Code returns the error code.
func (e *UnsupportedCombinatorError) Code() string { return CodeUnsupportedCombinator }

// TooDeepError reports input nested deeper than the recursion guard allows.
type TooDeepError struct {
	Limit int
	Path  string
}

func (e *TooDeepError) Error() string {
	return fmt.Sprintf("%s: filter nesting exceeds max depth %d at %s", CodeTooDeep, e.Limit, e.Path)
}

// Code returns the error code.
func (e *TooDeepError) Code() string { return CodeTooDeep }

// AggregationTypeMismatch reports an aggregation method applied to a field
// type outside the availability table. Valid schema facts never produce
// one; seeing it means the fact base and the operator table disagree.
type AggregationTypeMismatch struct {
	Field  string
	Type   string
	Method AggregationMethod
}

func (e *AggregationTypeMismatch) Error() string {
	return fmt.Sprintf("%s: aggregation %s is not defined for field %s of type %s",
		CodeAggregationTypeMismatch, e.Method, e.Field, e.Type)
}

// Code returns the error code.
func (e *AggregationTypeMismatch) Code() string { return CodeAggregationTypeMismatch }

// InvalidValueError reports a resolved key whose value has the wrong shape,
// e.g. a relation filter that is not an object.
type InvalidValueError struct {
	Key    string
	Path   string
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("%s: invalid value for %s at %s: %s", CodeInvalidValue, e.Key, e.Path, e.Reason)
}

// Code returns the error code.
func (e *InvalidValueError) Code() string { return CodeInvalidValue }

// IsUnknownField returns true if err is or wraps an UnknownFieldError.
func IsUnknownField(err error) bool {
	var target *UnknownFieldError
	return errors.As(err, &target)
}

// IsUnsupportedCombinator returns true if err is or wraps an
// UnsupportedCombinatorError.
func IsUnsupportedCombinator(err error) bool {
	var target *UnsupportedCombinatorError
	return errors.As(err, &target)
}

// IsTooDeep returns true if err is or wraps a TooDeepError.
func IsTooDeep(err error) bool {
	var target *TooDeepError
	return errors.As(err, &target)
}

// IsAggregationTypeMismatch returns true if err is or wraps an
// AggregationTypeMismatch.
func IsAggregationTypeMismatch(err error) bool {
	var target *AggregationTypeMismatch
	return errors.As(err, &target)
}

// IsInvalidValue returns true if err is or wraps an InvalidValueError.
func IsInvalidValue(err error) bool {
	var target *InvalidValueError
	return errors.As(err, &target)
}
