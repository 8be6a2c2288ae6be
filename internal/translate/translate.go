package translate

import (
	"fmt"

	"github.com/roach88/cyfilter/internal/cypher"
	"github.com/roach88/cyfilter/internal/naming"
	"github.com/roach88/cyfilter/internal/predicate"
	"github.com/roach88/cyfilter/internal/schema"
)

// Result is the output of one compilation.
type Result struct {
	// Condition is the boolean filter, nil when the tree imposes none.
	Condition cypher.Expr

	// Subqueries must run, in order, before Condition is evaluated. Each
	// one imports the element the tree was compiled against.
	Subqueries []*cypher.Subquery

	// Params binds every parameter Condition and Subqueries reference.
	Params *naming.Params
}

// Translator compiles predicate trees into conditions and subqueries.
// It holds no state and is safe for concurrent use.
type Translator struct{}

// New returns a Translator.
func New() *Translator {
	return &Translator{}
}

// Compile compiles tree against the graph element bound to variable
// element. Parameter and variable names are derived from scope, so equal
// inputs compile to identical output.
func (t *Translator) Compile(tree predicate.Tree, element string, scope naming.Scope) (*Result, error) {
	c := &compilation{params: naming.NewParams()}
	cond, subs, err := c.tree(tree, element, scope)
	if err != nil {
		return nil, err
	}
	return &Result{Condition: cond, Subqueries: subs, Params: c.params}, nil
}

// compilation is the mutable state of one Compile call.
type compilation struct {
	params *naming.Params
}

func (c *compilation) bind(scope naming.Scope, value any) cypher.Param {
	return cypher.Param(c.params.Bind(scope, value))
}

// tree dispatches over every predicate variant. Leaves extend the scope
// with their input key; list groups extend it with their key, and each
// list element with its index.
func (c *compilation) tree(t predicate.Tree, elem string, scope naming.Scope) (cypher.Expr, []*cypher.Subquery, error) {
	switch n := t.(type) {
	case *predicate.Group:
		return c.group(n, elem, scope)
	case *predicate.ScalarLeaf:
		return c.scalar(n, elem, scope.Extend(n.Key)), nil, nil
	case *predicate.RelationLeaf:
		return c.relation(n, elem, scope.Extend(n.Key))
	case *predicate.ConnectionLeaf:
		return c.connection(n, elem, scope.Extend(n.Key))
	case *predicate.AggregateLeaf:
		return c.aggregate(n, elem, scope.Extend(n.Key))
	case nil:
		return nil, nil, nil
	}
	return nil, nil, fmt.Errorf("unhandled predicate %T", t)
}

func (c *compilation) group(g *predicate.Group, elem string, scope naming.Scope) (cypher.Expr, []*cypher.Subquery, error) {
	if g == nil {
		return nil, nil, nil
	}
	if g.Key != "" {
		scope = scope.Extend(g.Key)
	}

	var conds []cypher.Expr
	var subs []*cypher.Subquery
	for i, child := range g.Children {
		childScope := scope
		if g.Key != "" {
			childScope = scope.Extend(i)
		}
		cond, childSubs, err := c.tree(child, elem, childScope)
		if err != nil {
			return nil, nil, err
		}
		conds = append(conds, cond)
		subs = append(subs, childSubs...)
	}

	var cond cypher.Expr
	if g.Combinator == predicate.Or {
		cond = cypher.Or(conds...)
	} else {
		cond = cypher.And(conds...)
	}

	// An override only constrains its own implementation:
	// C AND (NOT this:Impl OR O).
	for _, o := range g.Overrides {
		oc, osubs, err := c.group(o.Tree, elem, scope.Extend("on", o.Implementation.Name))
		if err != nil {
			return nil, nil, err
		}
		subs = append(subs, osubs...)
		if oc == nil {
			continue
		}
		notImpl := cypher.Not(cypher.HasLabels{Var: elem, Labels: o.Implementation.LabelSet()})
		cond = cypher.And(cond, cypher.Or(notImpl, oc))
	}
	return cond, subs, nil
}

// NodePattern returns the pattern matching variable v as entity e. Nodes
// carry their labels; interface and union patterns are unlabeled and are
// restricted by LabelPredicate instead.
func NodePattern(v string, e schema.Entity) cypher.NodePattern {
	if n, ok := e.(*schema.Node); ok {
		return cypher.Node(v, n.LabelSet()...)
	}
	return cypher.Node(v)
}

// LabelPredicate restricts an unlabeled variable to the concrete nodes of
// e. It is nil for nodes, whose pattern already carries the labels.
func LabelPredicate(v string, e schema.Entity) cypher.Expr {
	var nodes []*schema.Node
	switch ent := e.(type) {
	case *schema.Node:
		return nil
	case *schema.Interface:
		nodes = ent.Implementations
	case *schema.Union:
		nodes = ent.Members
	case *schema.Properties:
		return nil
	}
	exprs := make([]cypher.Expr, 0, len(nodes))
	for _, n := range nodes {
		exprs = append(exprs, cypher.HasLabels{Var: v, Labels: n.LabelSet()})
	}
	return cypher.Or(exprs...)
}
