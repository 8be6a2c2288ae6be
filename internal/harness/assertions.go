package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/cyfilter/internal/compiler"
	"github.com/roach88/cyfilter/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	// Header with assertion type
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	// Full trace for context
	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		if event.ErrorCode != "" {
			fmt.Fprintf(&buf, "  [%d] %s error %s\n", event.Step, event.Entity, event.ErrorCode)
			continue
		}
		fmt.Fprintf(&buf, "  [%d] %s %s %s\n", event.Step, event.Entity, event.Strategy, event.RunID)
	}

	return buf.String()
}

// assertStatementContains checks that a step compiled to a statement
// containing the expected substring.
func assertStatementContains(trace []TraceEvent, assertion Assertion) error {
	event, ok := stepEvent(trace, assertion.Step)
	if !ok {
		return fmt.Errorf("statement_contains: no step %d", assertion.Step)
	}
	if event.ErrorCode != "" || !strings.Contains(event.Statement, assertion.Contains) {
		actual := event.Statement
		if event.ErrorCode != "" {
			actual = "error " + event.ErrorCode
		}
		return &AssertionError{
			Type:     AssertStatementContains,
			Expected: fmt.Sprintf("step %d statement contains %q", assertion.Step, assertion.Contains),
			Actual:   actual,
			Trace:    trace,
		}
	}
	return nil
}

// assertSameFingerprint checks that the listed steps compiled filters with
// one fingerprint.
func assertSameFingerprint(trace []TraceEvent, assertion Assertion) error {
	var first string
	for i, n := range assertion.Steps {
		event, ok := stepEvent(trace, n)
		if !ok || event.Fingerprint == "" {
			return &AssertionError{
				Type:     AssertSameFingerprint,
				Expected: fmt.Sprintf("steps %v compiled", assertion.Steps),
				Actual:   fmt.Sprintf("step %d has no fingerprint", n),
				Trace:    trace,
			}
		}
		if i == 0 {
			first = event.Fingerprint
			continue
		}
		if event.Fingerprint != first {
			return &AssertionError{
				Type:     AssertSameFingerprint,
				Expected: fmt.Sprintf("steps %v share one fingerprint", assertion.Steps),
				Actual:   fmt.Sprintf("step %d is %s, step %d is %s", assertion.Steps[0], first, n, event.Fingerprint),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertHistoryCount checks the number of compilations recorded in the store.
func assertHistoryCount(ctx context.Context, st *store.Store, trace []TraceEvent, assertion Assertion) error {
	records, err := st.List(ctx, store.ListOptions{Entity: assertion.Entity})
	if err != nil {
		return fmt.Errorf("history_count: %w", err)
	}
	if len(records) != assertion.Count {
		scope := "all entities"
		if assertion.Entity != "" {
			scope = assertion.Entity
		}
		return &AssertionError{
			Type:     AssertHistoryCount,
			Expected: fmt.Sprintf("%d compilation(s) recorded for %s", assertion.Count, scope),
			Actual:   fmt.Sprintf("%d", len(records)),
			Trace:    trace,
		}
	}
	return nil
}

// assertCacheHits checks how many compilations the cache served.
func assertCacheHits(c *compiler.Compiler, trace []TraceEvent, assertion Assertion) error {
	stats, ok := c.CacheStats()
	if !ok {
		return fmt.Errorf("cache_hits: scenario has no cache configured")
	}
	if stats.Hits != uint64(assertion.Count) {
		return &AssertionError{
			Type:     AssertCacheHits,
			Expected: fmt.Sprintf("%d cache hit(s)", assertion.Count),
			Actual:   fmt.Sprintf("%d hit(s), %d miss(es)", stats.Hits, stats.Misses),
			Trace:    trace,
		}
	}
	return nil
}

func stepEvent(trace []TraceEvent, n int) (TraceEvent, bool) {
	r := Result{Trace: trace}
	return r.step(n)
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store    *store.Store
	Compiler *compiler.Compiler
	Ctx      context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides the store and compiler for history_count
// and cache_hits assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertStatementContains:
			err = assertStatementContains(result.Trace, assertion)
		case AssertSameFingerprint:
			err = assertSameFingerprint(result.Trace, assertion)
		case AssertHistoryCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: history_count requires a store", i)
			} else {
				err = assertHistoryCount(actx.Ctx, actx.Store, result.Trace, assertion)
			}
		case AssertCacheHits:
			if actx == nil || actx.Compiler == nil {
				err = fmt.Errorf("assertion[%d]: cache_hits requires a compiler", i)
			} else {
				err = assertCacheHits(actx.Compiler, result.Trace, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
