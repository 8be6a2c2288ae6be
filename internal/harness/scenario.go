package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cyfilter/internal/compiler"
)

// Scenario defines a conformance test scenario.
// Scenarios compile a sequence of filters against one schema and assert on
// the statements, fallbacks and recorded history they produce.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file
	// and prefixes run IDs.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the path to a .yaml/.yml/.cue schema or CUE package directory.
	// LoadScenario resolves it relative to the scenario file.
	Schema string `yaml:"schema"`

	// Strategy is auto (the default), general or optimized.
	Strategy string `yaml:"strategy,omitempty"`

	// MaxDepth overrides the nesting limit when positive.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// Cache enables the compilation cache with this many entries.
	Cache int `yaml:"cache,omitempty"`

	// Steps are compiled in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace, cache and store after all steps ran.
	// Supported types: statement_contains, same_fingerprint, history_count, cache_hits
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step compiles one filter.
type Step struct {
	// Entity is the root entity name.
	Entity string `yaml:"entity"`

	// Filter is the raw filter object. A missing filter is the empty filter.
	Filter map[string]any `yaml:"filter"`

	// Expect specifies the expected outcome.
	// If nil, the step only has to compile.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected compilation results. Empty fields are
// not checked.
type ExpectClause struct {
	// Strategy is the translator that produced the statement.
	Strategy string `yaml:"strategy,omitempty"`

	// Fallback is the reason the optimized translator declined.
	Fallback string `yaml:"fallback,omitempty"`

	// Statement is compared after trimming trailing newlines, so YAML block
	// scalars can be used.
	Statement string `yaml:"statement,omitempty"`

	// Params is a subset match - only specified parameters are validated.
	Params map[string]any `yaml:"params,omitempty"`

	// Error is the expected error code. A step expecting an error fails if
	// it compiles.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the outcome of the whole scenario.
type Assertion struct {
	// Type specifies the assertion type:
	// - "statement_contains": Check a step's statement contains a substring
	// - "same_fingerprint": Check steps share one fingerprint
	// - "history_count": Check the number of recorded compilations
	// - "cache_hits": Check the number of steps served from the cache
	Type string `yaml:"type"`

	// Step is the 1-based step number (used by statement_contains).
	Step int `yaml:"step,omitempty"`

	// Steps lists 1-based step numbers (used by same_fingerprint).
	Steps []int `yaml:"steps,omitempty"`

	// Contains is the expected substring (used by statement_contains).
	Contains string `yaml:"contains,omitempty"`

	// Entity restricts history_count to one root entity.
	Entity string `yaml:"entity,omitempty"`

	// Count is the expected number (used by history_count and cache_hits).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertStatementContains = "statement_contains"
	AssertSameFingerprint   = "same_fingerprint"
	AssertHistoryCount      = "history_count"
	AssertCacheHits         = "cache_hits"
)

// LoadScenario reads and parses a scenario YAML file, resolving the schema
// path relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the schema path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the schema path BEFORE validation
	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && basePath != "" {
		scenario.Schema = filepath.Join(basePath, scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
		return fmt.Errorf("schema file not found: %s", s.Schema)
	}

	if _, err := compiler.ParseStrategy(s.Strategy); err != nil {
		return err
	}
	if s.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be non-negative")
	}
	if s.Cache < 0 {
		return fmt.Errorf("cache must be non-negative")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if step.Entity == "" {
			return fmt.Errorf("steps[%d]: entity is required", i)
		}
		if step.Expect != nil && step.Expect.Error != "" &&
			(step.Expect.Statement != "" || step.Expect.Strategy != "" || len(step.Expect.Params) > 0) {
			return fmt.Errorf("steps[%d].expect: error excludes statement, strategy and params", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, len(s.Steps)); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	inRange := func(n int) bool { return n >= 1 && n <= steps }

	switch a.Type {
	case AssertStatementContains:
		if !inRange(a.Step) {
			return fmt.Errorf("assertions[%d]: step %d out of range for statement_contains", index, a.Step)
		}
		if a.Contains == "" {
			return fmt.Errorf("assertions[%d]: contains is required for statement_contains", index)
		}
	case AssertSameFingerprint:
		if len(a.Steps) < 2 {
			return fmt.Errorf("assertions[%d]: at least two steps are required for same_fingerprint", index)
		}
		for _, n := range a.Steps {
			if !inRange(n) {
				return fmt.Errorf("assertions[%d]: step %d out of range for same_fingerprint", index, n)
			}
		}
	case AssertHistoryCount, AssertCacheHits:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
