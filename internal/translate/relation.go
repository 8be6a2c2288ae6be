package translate

import (
	"fmt"

	"github.com/roach88/cyfilter/internal/cypher"
	"github.com/roach88/cyfilter/internal/naming"
	"github.com/roach88/cyfilter/internal/predicate"
	"github.com/roach88/cyfilter/internal/schema"
)

// Hop is one traversal of a relation field from a bound element.
type Hop struct {
	Pattern cypher.RelationshipPattern
	NodeVar string
	RelVar  string

	// Labels restricts an unlabeled end node (interface targets), nil
	// otherwise.
	Labels cypher.Expr
}

// NewHop builds the hop from elem through f to target, binding the end
// node to nodeVar and the relationship to nodeVar_rel.
func NewHop(elem string, f *schema.RelationField, target schema.Entity, nodeVar string) Hop {
	relVar := nodeVar + "_rel"
	return Hop{
		Pattern: cypher.RelationshipPattern{
			Start:     cypher.Node(elem),
			Var:       relVar,
			Type:      f.Type,
			Direction: PatternDirection(f.Direction),
			End:       NodePattern(nodeVar, target),
		},
		NodeVar: nodeVar,
		RelVar:  relVar,
		Labels:  LabelPredicate(nodeVar, target),
	}
}

// PatternDirection maps a schema direction onto a pattern arrow.
func PatternDirection(d schema.Direction) cypher.Direction {
	switch d {
	case schema.DirectionIn:
		return cypher.Incoming
	case schema.DirectionBoth:
		return cypher.Undirected
	}
	return cypher.Outgoing
}

// target is one concrete end of a relation with its optional filter.
type target struct {
	entity schema.Entity
	nodeVar string
	member  *schema.Node // nil unless the relation targets a union
	tree    *predicate.Group
}

// unionTargets lists the members a union filter applies to: the members
// named in the filter, or every member when none is named.
func unionTargets(u *schema.Union, members []predicate.MemberFilter, scope naming.Scope) []target {
	var out []target
	if len(members) == 0 {
		for _, m := range u.Members {
			out = append(out, target{entity: m, nodeVar: scope.Extend(m.Name).Name(), member: m})
		}
		return out
	}
	for _, mf := range members {
		out = append(out, target{entity: mf.Member, nodeVar: scope.Extend(mf.Member.Name).Name(), member: mf.Member, tree: mf.Tree})
	}
	return out
}

func (c *compilation) relation(l *predicate.RelationLeaf, elem string, scope naming.Scope) (cypher.Expr, []*cypher.Subquery, error) {
	var targets []target
	switch t := l.Field.Target.(type) {
	case *schema.Node, *schema.Interface:
		targets = []target{{entity: t, nodeVar: scope.Name(), tree: l.Nested}}
	case *schema.Union:
		targets = unionTargets(t, l.Members, scope)
	case *schema.Properties:
		return nil, nil, fmt.Errorf("relation %s targets relationship properties %s", l.Field.Name, t.Name)
	}

	compileOne := func(tg target, op predicate.RelationOp) (cypher.Expr, []*cypher.Subquery, error) {
		hop := NewHop(elem, l.Field, tg.entity, tg.nodeVar)
		inner, innerSubs, err := c.group(tg.tree, hop.NodeVar, naming.NewScope(tg.nodeVar))
		if err != nil {
			return nil, nil, err
		}
		cond, subs := c.quantify(op, elem, hop, inner, innerSubs)
		return cond, subs, nil
	}
	return c.acrossTargets(l.Op, targets, compileOne)
}

// acrossTargets applies the quantifier per target and ORs the results. A
// union relation matches when any member matches. The negative quantifiers
// hold only when no member matches, so they negate the OR of EQUAL.
func (c *compilation) acrossTargets(op predicate.RelationOp, targets []target,
	compileOne func(target, predicate.RelationOp) (cypher.Expr, []*cypher.Subquery, error),
) (cypher.Expr, []*cypher.Subquery, error) {
	perTarget := op
	negate := false
	if len(targets) > 1 && (op == predicate.RelNotEqual || op == predicate.RelNone) {
		perTarget, negate = predicate.RelEqual, true
	}

	var conds []cypher.Expr
	var subs []*cypher.Subquery
	for _, tg := range targets {
		cond, tsubs, err := compileOne(tg, perTarget)
		if err != nil {
			return nil, nil, err
		}
		conds = append(conds, cond)
		subs = append(subs, tsubs...)
	}
	cond := cypher.Or(conds...)
	if negate {
		cond = cypher.Not(cond)
	}
	return cond, subs, nil
}

// quantify wraps the inner condition over one hop with the relation
// operator's rule.
//
//	EQUAL, SOME      EXISTS { MATCH hop WHERE inner }
//	NOT_EQUAL        NOT EXISTS { ... }
//	ALL, SINGLE, NONE  CALL { MATCH hop RETURN count(rel) AS total,
//	                          count(CASE WHEN inner THEN 1 END) AS matched }
//
// Both counts come from the same MATCH. Existential operators also fall
// back to a counting CALL when the inner condition needs subqueries of its
// own, since those cannot run inside EXISTS.
func (c *compilation) quantify(op predicate.RelationOp, elem string, hop Hop, inner cypher.Expr, innerSubs []*cypher.Subquery) (cypher.Expr, []*cypher.Subquery) {
	matchedAlias := hop.NodeVar + "_matched"
	matched := cypher.Expr(cypher.Count(cypher.Var(hop.RelVar)))
	if inner != nil {
		matched = cypher.Count(cypher.Case{When: inner, Then: cypher.Int(1)})
	}

	if op.Existential() || op == predicate.RelNotEqual {
		if len(innerSubs) == 0 {
			cond := cypher.Expr(cypher.Exists{Match: hop.Pattern, Where: cypher.And(hop.Labels, inner)})
			if op == predicate.RelNotEqual {
				cond = cypher.Not(cond)
			}
			return cond, nil
		}
		sub := &cypher.Subquery{
			Imports: []string{elem},
			Match:   hop.Pattern,
			Where:   hop.Labels,
			Nested:  innerSubs,
			Returns: []cypher.Projection{cypher.As(matched, matchedAlias)},
		}
		return op.Quantify(nil, cypher.Var(matchedAlias)), []*cypher.Subquery{sub}
	}

	totalAlias := hop.NodeVar + "_total"
	sub := &cypher.Subquery{
		Imports: []string{elem},
		Match:   hop.Pattern,
		Where:   hop.Labels,
		Nested:  innerSubs,
		Returns: []cypher.Projection{
			cypher.As(cypher.Count(cypher.Var(hop.RelVar)), totalAlias),
			cypher.As(matched, matchedAlias),
		},
	}
	return op.Quantify(cypher.Var(totalAlias), cypher.Var(matchedAlias)), []*cypher.Subquery{sub}
}

func (c *compilation) connection(l *predicate.ConnectionLeaf, elem string, scope naming.Scope) (cypher.Expr, []*cypher.Subquery, error) {
	var targets []target
	switch t := l.Field.Target.(type) {
	case *schema.Node, *schema.Interface:
		targets = []target{{entity: t, nodeVar: scope.Name()}}
	case *schema.Union:
		targets = unionTargets(t, collectMembers(l.Where), scope)
	case *schema.Properties:
		return nil, nil, fmt.Errorf("connection %s targets relationship properties %s", l.Field.Name, t.Name)
	}

	compileOne := func(tg target, op predicate.RelationOp) (cypher.Expr, []*cypher.Subquery, error) {
		hop := NewHop(elem, l.Field, tg.entity, tg.nodeVar)
		inner, innerSubs, err := c.connectionWhere(l.Where, hop, tg.member, naming.NewScope(tg.nodeVar))
		if err != nil {
			return nil, nil, err
		}
		cond, subs := c.quantify(op, elem, hop, inner, innerSubs)
		return cond, subs, nil
	}
	return c.acrossTargets(l.Op, targets, compileOne)
}

// connectionWhere compiles the edge and node filters of one relationship +
// node pair. For union targets only the filter of member applies.
func (c *compilation) connectionWhere(w *predicate.ConnectionWhere, hop Hop, member *schema.Node, scope naming.Scope) (cypher.Expr, []*cypher.Subquery, error) {
	if w == nil {
		return nil, nil, nil
	}
	var conds []cypher.Expr
	var subs []*cypher.Subquery

	nodeTree := w.Node
	if member != nil {
		nodeTree = nil
		for _, mf := range w.Members {
			if mf.Member == member {
				nodeTree = mf.Tree
			}
		}
	}
	nodeKey := predicate.KeyNode
	if w.NodeNot {
		nodeKey = predicate.KeyNodeNot
	}
	nodeCond, nodeSubs, err := c.group(nodeTree, hop.NodeVar, scope.Extend(nodeKey))
	if err != nil {
		return nil, nil, err
	}
	if w.NodeNot {
		nodeCond = cypher.Not(nodeCond)
	}
	conds = append(conds, nodeCond)
	subs = append(subs, nodeSubs...)

	edgeKey := predicate.KeyEdge
	if w.EdgeNot {
		edgeKey = predicate.KeyEdgeNot
	}
	edgeCond, edgeSubs, err := c.group(w.Edge, hop.RelVar, scope.Extend(edgeKey))
	if err != nil {
		return nil, nil, err
	}
	if w.EdgeNot {
		edgeCond = cypher.Not(edgeCond)
	}
	conds = append(conds, edgeCond)
	subs = append(subs, edgeSubs...)

	for _, list := range []struct {
		key   string
		items []*predicate.ConnectionWhere
	}{{predicate.KeyAnd, w.And}, {predicate.KeyOr, w.Or}} {
		if len(list.items) == 0 {
			continue
		}
		var items []cypher.Expr
		for i, child := range list.items {
			cond, childSubs, err := c.connectionWhere(child, hop, member, scope.Extend(list.key, i))
			if err != nil {
				return nil, nil, err
			}
			items = append(items, cond)
			subs = append(subs, childSubs...)
		}
		if list.key == predicate.KeyOr {
			conds = append(conds, cypher.Or(items...))
		} else {
			conds = append(conds, cypher.And(items...))
		}
	}
	return cypher.And(conds...), subs, nil
}

// collectMembers returns every member named anywhere in a union
// connection filter, in first-seen order.
func collectMembers(w *predicate.ConnectionWhere) []predicate.MemberFilter {
	var out []predicate.MemberFilter
	seen := make(map[*schema.Node]bool)
	var walk func(*predicate.ConnectionWhere)
	walk = func(w *predicate.ConnectionWhere) {
		if w == nil {
			return
		}
		for _, mf := range w.Members {
			if !seen[mf.Member] {
				seen[mf.Member] = true
				out = append(out, predicate.MemberFilter{Member: mf.Member})
			}
		}
		for _, child := range w.And {
			walk(child)
		}
		for _, child := range w.Or {
			walk(child)
		}
	}
	walk(w)
	return out
}
