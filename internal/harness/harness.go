package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"

	"github.com/roach88/cyfilter/internal/compiler"
	"github.com/roach88/cyfilter/internal/schema"
	"github.com/roach88/cyfilter/internal/store"
	"github.com/roach88/cyfilter/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with deterministic run IDs against a fresh store.
type Harness struct {
	store    *store.Store
	compiler *compiler.Compiler
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Load and build the schema
// 2. Create fresh in-memory database
// 3. Compile every step and check its expect clause
// 4. Evaluate assertions
// 5. Return result with pass/fail, trace, and errors
//
// Expectation and assertion failures are reported in the result; the
// returned error is reserved for scenarios that cannot run at all.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	doc, err := schema.LoadFile(scenario.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	s, err := schema.Build(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build schema: %w", err)
	}

	strategy, err := compiler.ParseStrategy(scenario.Strategy)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	opts := []compiler.Option{
		compiler.WithStrategy(strategy),
		compiler.WithStore(st),
		compiler.WithRunIDs(testutil.NewFixedRunIDs(runIDs(scenario)...)),
		compiler.WithLogger(logger),
	}
	if scenario.MaxDepth > 0 {
		opts = append(opts, compiler.WithMaxDepth(scenario.MaxDepth))
	}
	if scenario.Cache > 0 {
		opts = append(opts, compiler.WithCache(scenario.Cache))
	}

	h := &Harness{
		store:    st,
		compiler: compiler.New(s, opts...),
		logger:   logger,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(ctx, i+1, step, result)
	}

	actx := &AssertionContext{
		Store:    st,
		Compiler: h.compiler,
		Ctx:      ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// runIDs returns one deterministic run ID per step.
func runIDs(scenario *Scenario) []string {
	ids := make([]string, len(scenario.Steps))
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%d", scenario.Name, i+1)
	}
	return ids
}

// executeStep compiles one step, traces it and checks its expect clause.
func (h *Harness) executeStep(ctx context.Context, n int, step Step, result *Result) {
	filter := step.Filter
	if filter == nil {
		filter = map[string]any{}
	}

	event := TraceEvent{Step: n, Entity: step.Entity}
	out, err := h.compiler.Compile(ctx, step.Entity, filter)
	if err != nil {
		event.ErrorCode = errorCode(err)
		event.Error = err.Error()
	} else {
		event.RunID = out.RunID
		event.Fingerprint = out.Fingerprint
		event.Strategy = string(out.Strategy)
		event.FallbackReason = out.FallbackReason
		event.Cached = out.Cached
		event.Statement = out.Statement
		event.Params = out.Params
	}
	result.AddTrace(event)

	h.logger.Info("step compiled",
		"step", n,
		"entity", step.Entity,
		"run_id", event.RunID,
		"strategy", event.Strategy,
		"error_code", event.ErrorCode,
	)

	if step.Expect != nil {
		for _, msg := range checkExpect(n, step.Expect, event) {
			result.AddError(msg)
		}
	}
}

// checkExpect compares a step's outcome with its expect clause.
func checkExpect(n int, want *ExpectClause, got TraceEvent) []string {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf("step %d: ", n)+fmt.Sprintf(format, args...))
	}

	if want.Error != "" {
		if got.ErrorCode != want.Error {
			fail("expected error %s, got %q", want.Error, got.ErrorCode)
		}
		return errs
	}
	if got.ErrorCode != "" {
		return []string{fmt.Sprintf("step %d: unexpected error: %s", n, got.Error)}
	}

	if want.Strategy != "" && got.Strategy != want.Strategy {
		fail("expected strategy %s, got %s", want.Strategy, got.Strategy)
	}
	if want.Fallback != "" && got.FallbackReason != want.Fallback {
		fail("expected fallback %q, got %q", want.Fallback, got.FallbackReason)
	}
	if want.Statement != "" {
		expected := strings.TrimRight(want.Statement, "\n")
		if got.Statement != expected {
			fail("statement mismatch\n  Expected:\n%s\n  Actual:\n%s", indent(expected), indent(got.Statement))
		}
	}
	if !matchParams(got.Params, want.Params) {
		fail("expected params %v, got %v", want.Params, got.Params)
	}
	return errs
}

// coded is implemented by every error that carries an error code.
type coded interface {
	Code() string
}

// errorCode returns the code carried by err, or "error" when it has none.
func errorCode(err error) string {
	var c coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return "error"
}

// matchParams checks if actual params contain all expected params (subset match).
// Extra keys in actual are ignored.
func matchParams(actual, expected map[string]any) bool {
	for key, expectedVal := range expected {
		actualVal, exists := actual[key]
		if !exists {
			return false // Required key missing
		}
		if !valuesEqual(actualVal, expectedVal) {
			return false // Value mismatch
		}
	}

	// Extra keys in actual are OK (subset match)
	return true
}

// valuesEqual compares two values for equality. Numbers compare by value
// so a filter decoded from JSON matches a YAML expectation.
func valuesEqual(actual, expected any) bool {
	if a, ok := toFloat(actual); ok {
		e, ok := toFloat(expected)
		return ok && a == e
	}

	switch e := expected.(type) {
	case []any:
		a, ok := actual.([]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for i := range e {
			if !valuesEqual(a[i], e[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok || len(a) != len(e) {
			return false
		}
		return matchParams(a, e)
	}

	return reflect.DeepEqual(actual, expected)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func indent(s string) string {
	return "    " + strings.ReplaceAll(s, "\n", "\n    ")
}
