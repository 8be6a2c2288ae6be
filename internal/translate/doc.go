// Package translate is the general filter translator. It compiles any
// predicate.Tree into a boolean condition, the CALL subqueries that
// condition depends on, and the parameter bindings for both.
//
// Every shape the builder accepts is supported here, which is what lets
// the optimized translator defer to this package on FallbackRequired.
//
// NAMING:
//
// Names come from a naming.Scope rooted at the compiled element. A leaf
// extends the scope with its raw input key, an AND/OR list with its key,
// and each list element with its index:
//
//	{OR: [{name: "Al"}]}     →  $this_OR0_name
//	{friends_ALL: {age: 1}}  →  variable this_friends_ALL, $this_friends_ALL_age
//
// Related nodes are bound to the scope name and their relationships to
// the scope name with a _rel suffix.
//
// QUANTIFIERS:
//
// EQUAL and SOME compile to EXISTS subqueries. ALL, SINGLE and NONE
// compile to a CALL subquery that counts related elements and matching
// related elements over one MATCH; the outer condition compares the two
// counts. See quantify for the exact rules.
package translate
