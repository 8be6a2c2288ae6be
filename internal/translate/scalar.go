package translate

import (
	"github.com/roach88/cyfilter/internal/cypher"
	"github.com/roach88/cyfilter/internal/naming"
	"github.com/roach88/cyfilter/internal/predicate"
	"github.com/roach88/cyfilter/internal/schema"
)

// scalar compiles a property comparison. Null values never reach a
// parameter: the operator turns them into IS NULL / IS NOT NULL.
func (c *compilation) scalar(l *predicate.ScalarLeaf, elem string, scope naming.Scope) cypher.Expr {
	prop := PropertyExpr(elem, l.Field)
	if l.Value == nil {
		return l.Op.Condition(prop, nil)
	}
	param := c.bind(scope, l.Value)

	switch t := l.Field.Type; {
	case t.IsSpatial():
		return spatialCondition(l.Op, prop, param)
	case t == schema.TypeDuration && isOrdering(l.Op):
		// Durations only order relative to an instant.
		now := cypher.Call("datetime")
		return l.Op.Condition(cypher.Plus{Left: now, Right: prop}, cypher.Plus{Left: now, Right: param})
	}
	return l.Op.Condition(prop, param)
}

// PropertyExpr is the store-side property of f on v, coalesced to the
// field's declared default when it has one.
func PropertyExpr(v string, f *schema.ScalarField) cypher.Expr {
	prop := cypher.Expr(cypher.Prop(v, f.PropertyName()))
	if f.Default != nil {
		prop = cypher.Coalesce(prop, cypher.Lit{Value: f.Default})
	}
	return prop
}

// spatialCondition compares points. Ordering and DISTANCE take a
// {point, distance} value and compare the distance from the point.
func spatialCondition(op predicate.ScalarOp, prop cypher.Expr, param cypher.Param) cypher.Expr {
	switch op {
	case predicate.OpEqual, predicate.OpNotEqual:
		return op.Condition(prop, cypher.Call("point", param))
	case predicate.OpIn, predicate.OpNotIn:
		points := cypher.ListComprehension{Variable: "p", List: param, Mapping: cypher.Call("point", cypher.Var("p"))}
		return op.Condition(prop, points)
	}
	distance := cypher.Call("point.distance", prop, cypher.Call("point", cypher.Property{Owner: param, Key: "point"}))
	return op.Condition(distance, cypher.Property{Owner: param, Key: "distance"})
}

func isOrdering(op predicate.ScalarOp) bool {
	switch op {
	case predicate.OpLT, predicate.OpLTE, predicate.OpGT, predicate.OpGTE:
		return true
	}
	return false
}
