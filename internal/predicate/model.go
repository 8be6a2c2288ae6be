package predicate

import "github.com/roach88/cyfilter/internal/schema"

// Tree is one node of a compiled filter input.
//
// This is a sealed interface - only types in this package implement it.
// Translators switch over every variant; there is no default branch to
// fall into when a new variant is added.
//
// Tree types:
//   - Group: AND/OR of child trees, plus interface overrides
//   - ScalarLeaf: property comparison
//   - RelationLeaf: quantified filter over related nodes
//   - ConnectionLeaf: quantified filter over relationship + node pairs
//   - AggregateLeaf: count and aggregate comparisons over related nodes
type Tree interface {
	predicateNode() // Marker method - seals interface to this package
}

// Combinator joins the children of a Group.
type Combinator string

const (
	And Combinator = "AND"
	Or  Combinator = "OR"
)

// Group combines child trees with a single combinator.
//
// Semantics:
//
//	child1 <combinator> child2 <combinator> ... childN
//
// An empty Group is "no condition", the identity of AND. A filter object
// builds to an AND Group with an empty Key; the AND and OR list keys build
// to Groups whose Key is the list key and whose children are the list
// elements, in input order.
type Group struct {
	Combinator Combinator
	Children   []Tree

	// Key is the reserved input key the group came from ("AND", "OR"),
	// empty for a filter object.
	Key string

	// Overrides holds the per-implementation filters of the _on key.
	// Only groups scoped to an interface carry overrides.
	Overrides []Override
}

func (*Group) predicateNode() {}

// Override is a filter applied only to one implementation of an interface,
// in addition to the common leaves of the group that carries it.
type Override struct {
	Implementation *schema.Node
	Tree           *Group
}

// ScalarLeaf compares one property with a literal.
//
// A nil Value is only produced for EQUAL and NOT_EQUAL and compiles to a
// null check, never to a comparison against a null literal.
type ScalarLeaf struct {
	Key   string // raw input key, e.g. name_CONTAINS
	Field *schema.ScalarField
	Op    ScalarOp
	Value any
}

func (*ScalarLeaf) predicateNode() {}

// RelationLeaf filters on nodes reachable through a relation field.
//
// Nested nil means plain existence (EQUAL) or absence (NOT_EQUAL) of the
// relationship. For union targets Members carries one optional filter per
// member and Nested is nil.
type RelationLeaf struct {
	Key     string
	Field   *schema.RelationField
	Op      RelationOp
	Nested  *Group
	Members []MemberFilter
}

func (*RelationLeaf) predicateNode() {}

// MemberFilter scopes a filter to one member of a union. Tree is nil when
// the member is matched without a filter.
type MemberFilter struct {
	Member *schema.Node
	Tree   *Group
}

// ConnectionLeaf filters on relationship + node pairs of a relation field.
type ConnectionLeaf struct {
	Key   string
	Field *schema.RelationField
	Op    RelationOp
	Where *ConnectionWhere
}

func (*ConnectionLeaf) predicateNode() {}

// ConnectionWhere is the filter applied to one relationship + node pair.
// Node is used for node and interface targets, Members for union targets.
type ConnectionWhere struct {
	Node    *Group
	NodeNot bool
	Members []MemberFilter
	Edge    *Group
	EdgeNot bool

	And []*ConnectionWhere
	Or  []*ConnectionWhere
}

// AggregateLeaf compares counts and aggregates over the related nodes of
// a relation field.
type AggregateLeaf struct {
	Key   string
	Field *schema.RelationField
	Count []CountPredicate
	Node  AggregationTree
	Edge  AggregationTree

	And []*AggregateLeaf
	Or  []*AggregateLeaf
}

func (*AggregateLeaf) predicateNode() {}

// CountPredicate compares the number of related nodes with a literal.
type CountPredicate struct {
	Key   string
	Op    CountOp
	Value any
}

// AggregationTree is a filter over aggregated field values.
//
// This is a sealed interface - only types in this package implement it.
type AggregationTree interface {
	aggregationNode()
}

// AggregationGroup combines aggregation filters.
type AggregationGroup struct {
	Combinator Combinator
	Children   []AggregationTree
	Key        string
}

func (*AggregationGroup) aggregationNode() {}

// AggregationLeaf compares method(field) with a literal,
// e.g. title_SHORTEST_LENGTH_LT: 10.
type AggregationLeaf struct {
	Key    string
	Field  *schema.ScalarField
	Method AggregationMethod
	Op     AggregationOp
	Value  any
}

func (*AggregationLeaf) aggregationNode() {}
