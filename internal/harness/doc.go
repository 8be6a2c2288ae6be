// Package harness provides conformance testing for filter compilation.
//
// The harness loads a schema, compiles a sequence of filters through the
// full compiler (strategy selection, fallback, cache and history store),
// and checks the statements, parameters and errors each step produces.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schema: schemas/movies.yaml
//	strategy: auto
//	steps:
//	  - entity: Person
//	    filter: { name_CONTAINS: "an" }
//	    expect:
//	      strategy: optimized
//	      statement: |
//	        MATCH (this:Person)
//	        WHERE this.name CONTAINS $this_name_CONTAINS
//	        RETURN this
//	      params: { this_name_CONTAINS: "an" }
//	assertions:
//	  - type: statement_contains
//	    step: 1
//	    contains: "CONTAINS"
//	  - type: history_count
//	    count: 1
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - statement_contains: The statement of a step contains a substring
//   - same_fingerprint: Two or more steps share one filter fingerprint
//   - history_count: The store holds N compilations (optionally for one entity)
//   - cache_hits: The compilation cache served exactly N steps
//
// Steps are numbered from 1 in assertions.
//
// # Deterministic Testing
//
// Run IDs are fixed per scenario ("<name>-1", "<name>-2", ...) and every
// scenario records into a fresh in-memory SQLite database, so traces are
// identical across runs and can be compared against golden snapshots.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/fallback.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness
