// Package compiler turns raw filter input for a named entity into an
// executable Cypher read statement.
//
// ARCHITECTURE:
//
// The compiler owns strategy selection. Everything below it is pure:
//
//	[entity name, raw map]
//	    → canonical.Fingerprint            (cache/store key)
//	    → optimize.Optimizer.Compile        (staged MATCH plan)
//	    → on FallbackRequired:
//	      predicate.Builder.Build → translate.Translator.Compile
//	    → Statement + Params
//
// STRATEGIES:
//
//   - auto: try the optimized translator, fall back to the general one when
//     the filter shape is outside the staged subset
//   - general: always use the general translator
//   - optimized: use the optimized translator, returning FallbackRequired
//     instead of falling back
//
// Input errors (unknown keys, bad combinators, excessive depth) are never
// retried with another strategy.
//
// SIDE EFFECTS:
//
// An optional cache keeps compiled statements per fingerprint. An optional
// store appends every compilation, cached or not, under a fresh run ID.
package compiler
