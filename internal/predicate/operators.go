package predicate

import (
	"github.com/roach88/cyfilter/internal/cypher"
	"github.com/roach88/cyfilter/internal/schema"
)

// ScalarOp is a comparison between one property and a literal.
type ScalarOp int

const (
	OpEqual ScalarOp = iota
	OpNotEqual
	OpLT
	OpLTE
	OpGT
	OpGTE
	OpMatches
	OpContains
	OpNotContains
	OpStartsWith
	OpNotStartsWith
	OpEndsWith
	OpNotEndsWith
	OpIn
	OpNotIn
	OpIncludes
	OpNotIncludes
	OpDistance
)

var scalarOpNames = [...]struct {
	name   string
	suffix string
}{
	OpEqual:         {"EQUAL", ""},
	OpNotEqual:      {"NOT_EQUAL", "_NOT"},
	OpLT:            {"LT", "_LT"},
	OpLTE:           {"LTE", "_LTE"},
	OpGT:            {"GT", "_GT"},
	OpGTE:           {"GTE", "_GTE"},
	OpMatches:       {"MATCHES", "_MATCHES"},
	OpContains:      {"CONTAINS", "_CONTAINS"},
	OpNotContains:   {"NOT_CONTAINS", "_NOT_CONTAINS"},
	OpStartsWith:    {"STARTS_WITH", "_STARTS_WITH"},
	OpNotStartsWith: {"NOT_STARTS_WITH", "_NOT_STARTS_WITH"},
	OpEndsWith:      {"ENDS_WITH", "_ENDS_WITH"},
	OpNotEndsWith:   {"NOT_ENDS_WITH", "_NOT_ENDS_WITH"},
	OpIn:            {"IN", "_IN"},
	OpNotIn:         {"NOT_IN", "_NOT_IN"},
	OpIncludes:      {"INCLUDES", "_INCLUDES"},
	OpNotIncludes:   {"NOT_INCLUDES", "_NOT_INCLUDES"},
	OpDistance:      {"DISTANCE", "_DISTANCE"},
}

// scalarAliases are accepted spellings in addition to the canonical suffix.
var scalarAliases = map[string]ScalarOp{
	"_EQUAL":     OpEqual,
	"_NOT_EQUAL": OpNotEqual,
}

func (o ScalarOp) String() string { return scalarOpNames[o].name }

// Suffix returns the key fragment that selects o, e.g. "_CONTAINS".
func (o ScalarOp) Suffix() string { return scalarOpNames[o].suffix }

// Condition applies the operator to a property expression and a bound
// value. A nil value means the input value was null: EQUAL and NOT_EQUAL
// become null checks and no literal-null comparison is ever produced.
func (o ScalarOp) Condition(property, value cypher.Expr) cypher.Expr {
	switch o {
	case OpEqual:
		if value == nil {
			return cypher.IsNull{Expr: property}
		}
		return cypher.Eq(property, value)
	case OpNotEqual:
		if value == nil {
			return cypher.IsNotNull{Expr: property}
		}
		return cypher.Not(cypher.Eq(property, value))
	case OpLT:
		return cypher.Compare(property, cypher.OpLt, value)
	case OpLTE:
		return cypher.Compare(property, cypher.OpLte, value)
	case OpGT:
		return cypher.Compare(property, cypher.OpGt, value)
	case OpGTE:
		return cypher.Compare(property, cypher.OpGte, value)
	case OpMatches:
		return cypher.Compare(property, cypher.OpMatches, value)
	case OpContains:
		return cypher.Compare(property, cypher.OpContains, value)
	case OpNotContains:
		return cypher.Not(cypher.Compare(property, cypher.OpContains, value))
	case OpStartsWith:
		return cypher.Compare(property, cypher.OpStartsWith, value)
	case OpNotStartsWith:
		return cypher.Not(cypher.Compare(property, cypher.OpStartsWith, value))
	case OpEndsWith:
		return cypher.Compare(property, cypher.OpEndsWith, value)
	case OpNotEndsWith:
		return cypher.Not(cypher.Compare(property, cypher.OpEndsWith, value))
	case OpIn:
		return cypher.Compare(property, cypher.OpIn, value)
	case OpNotIn:
		return cypher.Not(cypher.Compare(property, cypher.OpIn, value))
	case OpIncludes:
		return cypher.Compare(value, cypher.OpIn, property)
	case OpNotIncludes:
		return cypher.Not(cypher.Compare(value, cypher.OpIn, property))
	case OpDistance:
		return cypher.Eq(property, value)
	}
	return nil
}

// AllowsNull reports whether o accepts a null value.
func (o ScalarOp) AllowsNull() bool {
	return o == OpEqual || o == OpNotEqual
}

// Features toggles operators that are off for some deployments.
type Features struct {
	StringComparison bool // LT/LTE/GT/GTE on String
	StringMatches    bool // MATCHES on String
	IDMatches        bool // MATCHES on ID
}

// DefaultFeatures enables every optional operator.
func DefaultFeatures() Features {
	return Features{StringComparison: true, StringMatches: true, IDMatches: true}
}

// ScalarOperators returns the operators a scalar field accepts.
func ScalarOperators(f *schema.ScalarField, features Features) []ScalarOp {
	ops := []ScalarOp{OpEqual, OpNotEqual}
	if f.List {
		return append(ops, OpIncludes, OpNotIncludes)
	}
	t := f.Type
	if t == schema.TypeBoolean {
		return ops
	}
	ops = append(ops, OpIn, OpNotIn)
	if t.IsSpatial() {
		return append(ops, OpLT, OpLTE, OpGT, OpGTE, OpDistance)
	}
	if t.IsStringLike() {
		ops = append(ops, OpContains, OpNotContains, OpStartsWith, OpNotStartsWith, OpEndsWith, OpNotEndsWith)
		if (t == schema.TypeString && features.StringMatches) || (t == schema.TypeID && features.IDMatches) {
			ops = append(ops, OpMatches)
		}
	}
	if t.IsComparable() && (t != schema.TypeString || features.StringComparison) {
		ops = append(ops, OpLT, OpLTE, OpGT, OpGTE)
	}
	return ops
}

// RelationOp is a quantifier over the related elements of a relation.
type RelationOp int

const (
	RelEqual RelationOp = iota
	RelNotEqual
	RelAll
	RelNone
	RelSingle
	RelSome
)

var relationOpNames = [...]struct {
	name   string
	suffix string
}{
	RelEqual:    {"EQUAL", ""},
	RelNotEqual: {"NOT_EQUAL", "_NOT"},
	RelAll:      {"ALL", "_ALL"},
	RelNone:     {"NONE", "_NONE"},
	RelSingle:   {"SINGLE", "_SINGLE"},
	RelSome:     {"SOME", "_SOME"},
}

// RelationOperators lists every quantifier; all are valid on every
// relation and connection field.
var RelationOperators = []RelationOp{RelEqual, RelNotEqual, RelAll, RelNone, RelSingle, RelSome}

func (o RelationOp) String() string { return relationOpNames[o].name }

// Suffix returns the key fragment that selects o, e.g. "_ALL".
func (o RelationOp) Suffix() string { return relationOpNames[o].suffix }

// Existential reports whether o holds when at least one related element
// matches, so it can be compiled as a pattern-existence check.
func (o RelationOp) Existential() bool {
	return o == RelEqual || o == RelSome
}

// Quantify builds the comparison that decides the quantifier from a total
// count and a matching count computed over the same pattern.
func (o RelationOp) Quantify(total, matched cypher.Expr) cypher.Expr {
	switch o {
	case RelEqual, RelSome:
		return cypher.Compare(matched, cypher.OpGt, cypher.Int(0))
	case RelNotEqual, RelNone:
		return cypher.Eq(matched, cypher.Int(0))
	case RelAll:
		return cypher.Eq(total, matched)
	case RelSingle:
		return cypher.And(cypher.Eq(total, matched), cypher.Eq(total, cypher.Int(1)))
	}
	return nil
}

// CountOp compares the number of related nodes with a literal.
type CountOp int

const (
	CountEqual CountOp = iota
	CountLT
	CountLTE
	CountGT
	CountGTE
)

var countOps = [...]struct {
	key string
	op  cypher.Operator
}{
	CountEqual: {"count", cypher.OpEq},
	CountLT:    {"count_LT", cypher.OpLt},
	CountLTE:   {"count_LTE", cypher.OpLte},
	CountGT:    {"count_GT", cypher.OpGt},
	CountGTE:   {"count_GTE", cypher.OpGte},
}

// Key returns the aggregate input key of o, e.g. "count_GT".
func (o CountOp) Key() string { return countOps[o].key }

// Operator returns the comparison operator of o.
func (o CountOp) Operator() cypher.Operator { return countOps[o].op }

func (o CountOp) String() string { return countOps[o].key }

func countOpForKey(key string) (CountOp, bool) {
	for i, c := range countOps {
		if c.key == key {
			return CountOp(i), true
		}
	}
	return 0, false
}
