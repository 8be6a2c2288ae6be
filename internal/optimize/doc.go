// Package optimize is the optimized filter translator. Instead of
// existential and counting subqueries it stages a filter as a chain of
// MATCH, WHERE and WITH clauses, which lets the store plan each hop with
// its indexes.
//
// ARCHITECTURE:
//
//	raw filter ──► predicate.Builder ──► planner ──► MatchPlan
//	                                       │
//	                                       └─► translate (scalar conditions, hops)
//
// The planner owns staging only. Conditions, hops and names come from the
// general translator, so a filter compiles to the same parameters under
// either strategy.
//
// STAGES:
//
//	scalar leaves         WHERE on the current element
//	EQUAL / SOME          MATCH hop, recurse on the related node, WITH DISTINCT
//	ALL / SINGLE / NONE   OPTIONAL MATCH hop, WITH counts WHERE quantifier
//	NOT_EQUAL             as NONE
//	{rel: null}           WHERE EXISTS { ... } or its negation
//
// CARRY:
//
// Every WITH names exactly what later stages need: the root always, plus
// the current element while relation leaves of its level remain. Recursing
// into a related node makes it the current element.
//
// FALLBACK:
//
// Shapes outside this subset fail with *FallbackRequired: non-node roots,
// AND/OR combinators at any depth, interface or union targets, connection
// and aggregate filters, and counting quantifiers whose nested filter is
// more than scalar comparisons. The general translator accepts all of them.
package optimize
