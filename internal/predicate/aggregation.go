package predicate

import (
	"github.com/roach88/cyfilter/internal/cypher"
	"github.com/roach88/cyfilter/internal/schema"
)

// AggregationMethod reduces one property over the related nodes.
type AggregationMethod string

const (
	MethodAverage        AggregationMethod = "AVERAGE"
	MethodSum            AggregationMethod = "SUM"
	MethodMin            AggregationMethod = "MIN"
	MethodMax            AggregationMethod = "MAX"
	MethodAverageLength  AggregationMethod = "AVERAGE_LENGTH"
	MethodLongestLength  AggregationMethod = "LONGEST_LENGTH"
	MethodShortestLength AggregationMethod = "SHORTEST_LENGTH"

	// MethodLongest and MethodShortest are the legacy filter spellings of
	// the length methods. As selections they return the value itself.
	MethodLongest  AggregationMethod = "LONGEST"
	MethodShortest AggregationMethod = "SHORTEST"
)

// AggregationMethods lists every method in key-resolution order.
var AggregationMethods = []AggregationMethod{
	MethodAverage, MethodSum, MethodMin, MethodMax,
	MethodAverageLength, MethodLongestLength, MethodShortestLength,
	MethodLongest, MethodShortest,
}

// Allowed reports whether m is defined for fields of type t.
//
//	Int, Float, BigInt        AVERAGE SUM MIN MAX
//	Duration                  AVERAGE MIN MAX
//	DateTime and other times  MIN MAX
//	String, ID                AVERAGE_LENGTH and the LONGEST/SHORTEST family
func (m AggregationMethod) Allowed(t schema.ScalarType) bool {
	switch {
	case t.IsNumeric():
		return m == MethodAverage || m == MethodSum || m == MethodMin || m == MethodMax
	case t == schema.TypeDuration:
		return m == MethodAverage || m == MethodMin || m == MethodMax
	case t.IsTemporal():
		return m == MethodMin || m == MethodMax
	case t.IsStringLike():
		return m.Length()
	}
	return false
}

// Length reports whether m reduces over string lengths.
func (m AggregationMethod) Length() bool {
	switch m {
	case MethodAverageLength, MethodLongestLength, MethodShortestLength, MethodLongest, MethodShortest:
		return true
	}
	return false
}

// Aggregate returns the aggregating expression of m over values, the
// per-row property expression. It fails for a method/type combination
// outside the Allowed table.
func (m AggregationMethod) Aggregate(f *schema.ScalarField, values cypher.Expr) (cypher.Expr, error) {
	if f.List || !m.Allowed(f.Type) {
		return nil, &AggregationTypeMismatch{Field: f.Name, Type: string(f.Type), Method: m}
	}
	switch m {
	case MethodAverage:
		return cypher.Call("avg", values), nil
	case MethodSum:
		return cypher.Call("sum", values), nil
	case MethodMin:
		return cypher.Call("min", values), nil
	case MethodMax:
		return cypher.Call("max", values), nil
	case MethodAverageLength:
		return cypher.Call("avg", cypher.Size(values)), nil
	case MethodLongestLength, MethodLongest:
		return cypher.Call("max", cypher.Size(values)), nil
	case MethodShortestLength, MethodShortest:
		return cypher.Call("min", cypher.Size(values)), nil
	}
	return nil, &AggregationTypeMismatch{Field: f.Name, Type: string(f.Type), Method: m}
}

// AggregationOp compares an aggregate with a literal.
type AggregationOp string

const (
	AggEqual AggregationOp = "EQUAL"
	AggLT    AggregationOp = "LT"
	AggLTE   AggregationOp = "LTE"
	AggGT    AggregationOp = "GT"
	AggGTE   AggregationOp = "GTE"
)

// AggregationOperators lists every aggregation comparison.
var AggregationOperators = []AggregationOp{AggEqual, AggLT, AggLTE, AggGT, AggGTE}

// Operator returns the comparison operator of o.
func (o AggregationOp) Operator() cypher.Operator {
	switch o {
	case AggLT:
		return cypher.OpLt
	case AggLTE:
		return cypher.OpLte
	case AggGT:
		return cypher.OpGt
	case AggGTE:
		return cypher.OpGte
	}
	return cypher.OpEq
}

// AllowedFor reports whether o may compare aggregates of type t.
// Length aggregates over IDs only support equality.
func (o AggregationOp) AllowedFor(t schema.ScalarType) bool {
	if t == schema.TypeID {
		return o == AggEqual
	}
	return true
}
