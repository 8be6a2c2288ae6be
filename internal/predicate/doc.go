// Package predicate provides the typed filter model shared by both
// translators, the builder that produces it from raw input, and the
// operator tables every translator reads from.
//
// ARCHITECTURE:
//
// Filter input arrives as a JSON-like tree of string-keyed maps:
//
//	{"name_CONTAINS": "an", "friends_ALL": {"age_GT": 18}}
//
// The Builder resolves every key once against the schema facts and
// returns a Tree:
//
//	[raw map] → Builder.Build → [Tree] → translate / optimize
//
// Unknown keys are rejected eagerly; nothing is silently ignored.
//
// KEY RESOLUTION:
//
// A key is <field><suffix>. The suffix is matched longest-first over the
// suffixes valid for the field's kind, so name_NOT_CONTAINS resolves to
// field name with NOT_CONTAINS, never to a field called name_NOT. The
// reserved keys AND, OR and (on interfaces) _on are handled before field
// resolution. Connection keys are <relation>Connection<suffix> and
// aggregate keys are <relation>Aggregate.
//
// OPERATOR TABLES:
//
// ScalarOp, RelationOp, CountOp, AggregationMethod and AggregationOp are
// closed enumerations. Each carries its key suffix and its condition
// construction rule, so the general and optimized translators cannot
// drift apart on predicate semantics. Evaluate is an in-memory evaluator
// over ScalarOp for checking values without a store.
//
// SEALED INTERFACES:
//
// Tree and AggregationTree are sealed with marker methods. Translators
// switch over every variant.
package predicate
