package translate

import (
	"fmt"

	"github.com/roach88/cyfilter/internal/cypher"
	"github.com/roach88/cyfilter/internal/naming"
	"github.com/roach88/cyfilter/internal/predicate"
	"github.com/roach88/cyfilter/internal/schema"
)

// aggregate compiles count and field-aggregation comparisons. All of them
// are evaluated by one CALL subquery over a single MATCH of the relation,
// which returns the combined comparison as one boolean column:
//
//	CALL {
//	    WITH this
//	    MATCH (this)-[v_rel:T]->(v:Target)
//	    RETURN count(v) > $p AND avg(v.x) >= $q AS v_aggregate
//	}
//
// The outer condition tests that column.
func (c *compilation) aggregate(l *predicate.AggregateLeaf, elem string, scope naming.Scope) (cypher.Expr, []*cypher.Subquery, error) {
	switch l.Field.Target.(type) {
	case *schema.Node, *schema.Interface:
	case *schema.Union, *schema.Properties:
		return nil, nil, fmt.Errorf("aggregation is not defined on relation %s", l.Field.Name)
	}
	hop := NewHop(elem, l.Field, l.Field.Target, scope.Name())

	cond, err := c.aggregateCondition(l, hop, scope)
	if err != nil {
		return nil, nil, err
	}
	if cond == nil {
		return nil, nil, nil
	}

	alias := hop.NodeVar + "_aggregate"
	sub := &cypher.Subquery{
		Imports: []string{elem},
		Match:   hop.Pattern,
		Where:   hop.Labels,
		Returns: []cypher.Projection{cypher.As(cond, alias)},
	}
	return cypher.Eq(cypher.Var(alias), cypher.True), []*cypher.Subquery{sub}, nil
}

func (c *compilation) aggregateCondition(l *predicate.AggregateLeaf, hop Hop, scope naming.Scope) (cypher.Expr, error) {
	var conds []cypher.Expr
	for _, cp := range l.Count {
		param := c.bind(scope.Extend(cp.Key), cp.Value)
		conds = append(conds, cypher.Compare(cypher.Count(cypher.Var(hop.NodeVar)), cp.Op.Operator(), param))
	}
	if l.Node != nil {
		cond, err := c.aggregation(l.Node, hop.NodeVar, scope.Extend(predicate.KeyNode))
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	if l.Edge != nil {
		cond, err := c.aggregation(l.Edge, hop.RelVar, scope.Extend(predicate.KeyEdge))
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	for _, list := range []struct {
		key   string
		items []*predicate.AggregateLeaf
	}{{predicate.KeyAnd, l.And}, {predicate.KeyOr, l.Or}} {
		if len(list.items) == 0 {
			continue
		}
		var items []cypher.Expr
		for i, child := range list.items {
			cond, err := c.aggregateCondition(child, hop, scope.Extend(list.key, i))
			if err != nil {
				return nil, err
			}
			items = append(items, cond)
		}
		if list.key == predicate.KeyOr {
			conds = append(conds, cypher.Or(items...))
		} else {
			conds = append(conds, cypher.And(items...))
		}
	}
	return cypher.And(conds...), nil
}

// aggregation compiles an aggregation filter over the values of owner,
// the related node or relationship variable.
func (c *compilation) aggregation(t predicate.AggregationTree, owner string, scope naming.Scope) (cypher.Expr, error) {
	switch n := t.(type) {
	case *predicate.AggregationGroup:
		if n.Key != "" {
			scope = scope.Extend(n.Key)
		}
		var conds []cypher.Expr
		for i, child := range n.Children {
			childScope := scope
			if n.Key != "" {
				childScope = scope.Extend(i)
			}
			cond, err := c.aggregation(child, owner, childScope)
			if err != nil {
				return nil, err
			}
			conds = append(conds, cond)
		}
		if n.Combinator == predicate.Or {
			return cypher.Or(conds...), nil
		}
		return cypher.And(conds...), nil
	case *predicate.AggregationLeaf:
		agg, err := n.Method.Aggregate(n.Field, cypher.Prop(owner, n.Field.PropertyName()))
		if err != nil {
			return nil, err
		}
		param := cypher.Expr(c.bind(scope.Extend(n.Key), n.Value))
		if n.Field.Type == schema.TypeDuration && !n.Method.Length() {
			now := cypher.Call("datetime")
			agg = cypher.Plus{Left: now, Right: agg}
			param = cypher.Plus{Left: now, Right: param}
		}
		return cypher.Compare(agg, n.Op.Operator(), param), nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("unhandled aggregation %T", t)
}

// AggregateProjection returns the selection-side expression of method over
// the values of property v.f, for aggregate selections rather than
// filters. It differs from the filter side in two places: DateTime min and
// max are re-encoded as offset timestamp text, and LONGEST/SHORTEST on
// strings return the longest or shortest value itself instead of its
// length.
func AggregateProjection(method predicate.AggregationMethod, v string, f *schema.ScalarField) (cypher.Expr, error) {
	prop := cypher.Prop(v, f.PropertyName())
	if !method.Allowed(f.Type) || f.List {
		return nil, &predicate.AggregationTypeMismatch{Field: f.Name, Type: string(f.Type), Method: method}
	}

	switch {
	case f.Type == schema.TypeDateTime && (method == predicate.MethodMin || method == predicate.MethodMax):
		agg, err := method.Aggregate(f, prop)
		if err != nil {
			return nil, err
		}
		return cypher.Call("apoc.date.convertFormat",
			cypher.Call("toString", agg),
			cypher.Lit{Value: "iso_zoned_date_time"},
			cypher.Lit{Value: "iso_offset_date_time"},
		), nil
	case method == predicate.MethodLongest || method == predicate.MethodShortest:
		values := cypher.Call("collect", prop)
		cmp := cypher.OpGt
		if method == predicate.MethodShortest {
			cmp = cypher.OpLt
		}
		return cypher.Reduce{
			Accumulator: "aggVar",
			Init:        cypher.Index{List: values, Index: 0},
			Variable:    "current",
			List:        values,
			Expr: cypher.Case{
				When: cypher.Compare(cypher.Size(cypher.Var("current")), cmp, cypher.Size(cypher.Var("aggVar"))),
				Then: cypher.Var("current"),
				Else: cypher.Var("aggVar"),
			},
		}, nil
	}
	return method.Aggregate(f, prop)
}
