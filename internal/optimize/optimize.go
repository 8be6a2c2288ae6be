package optimize

import (
	"github.com/roach88/cyfilter/internal/cypher"
	"github.com/roach88/cyfilter/internal/naming"
	"github.com/roach88/cyfilter/internal/predicate"
	"github.com/roach88/cyfilter/internal/schema"
	"github.com/roach88/cyfilter/internal/translate"
)

// MatchPlan is a staged read that leaves exactly the root elements
// satisfying a filter bound to Root.
type MatchPlan struct {
	// Root is the variable the root entity is matched as.
	Root string

	// Entity is the root node entity.
	Entity *schema.Node

	// Stages follow the root MATCH in order.
	Stages []cypher.Clause

	// Params binds every parameter the stages reference.
	Params *naming.Params
}

// Statement renders the root MATCH followed by the stages. Callers append
// their own projection.
func (p *MatchPlan) Statement() *cypher.Statement {
	s := &cypher.Statement{}
	s.Add(&cypher.Match{Pattern: translate.NodePattern(p.Root, p.Entity)})
	return s.Add(p.Stages...)
}

// Optimizer compiles filters into MatchPlans. It shares the builder's
// operator tables and the general translator's condition rules; only the
// staging is its own. It holds no per-call state and is safe for
// concurrent use.
type Optimizer struct {
	builder    *predicate.Builder
	translator *translate.Translator
}

// New returns an Optimizer building predicate trees with builder. A nil
// builder uses predicate.NewBuilder().
func New(builder *predicate.Builder) *Optimizer {
	if builder == nil {
		builder = predicate.NewBuilder()
	}
	return &Optimizer{builder: builder, translator: translate.New()}
}

// Compile plans raw as a filter on entity. Shapes outside the staged subset
// fail with *FallbackRequired; input errors from the builder are returned
// unchanged.
func (o *Optimizer) Compile(entity schema.Entity, raw map[string]any) (*MatchPlan, error) {
	node, ok := entity.(*schema.Node)
	if !ok {
		return nil, fallback("root entity %s is %s", entity.EntityName(), describeEntity(entity))
	}
	tree, err := o.builder.Build(node, raw)
	if err != nil {
		return nil, err
	}

	p := &planner{translator: o.translator, params: naming.NewParams()}
	if err := p.level(naming.Root, tree, []string{naming.Root}, false); err != nil {
		return nil, err
	}
	return &MatchPlan{Root: naming.Root, Entity: node, Stages: p.stages, Params: p.params}, nil
}

// planner accumulates the stages of one Compile call.
type planner struct {
	translator *translate.Translator
	params     *naming.Params
	stages     []cypher.Clause
}

func (p *planner) add(clauses ...cypher.Clause) {
	p.stages = append(p.stages, clauses...)
}

// level plans the filter g on elem. after is the carry set later stages
// need once this level is done; while relation leaves of this level remain,
// elem is carried as well.
//
// A nested level follows the MATCH of an existential relation and always
// closes with WITH DISTINCT to collapse the rows that MATCH fanned out.
func (p *planner) level(elem string, g *predicate.Group, after []string, nested bool) error {
	scalars, relations, err := split(g)
	if err != nil {
		return err
	}
	cond, err := p.condition(scalars, elem)
	if err != nil {
		return err
	}

	active := after
	if len(relations) > 0 {
		active = carrying(after, elem)
	}
	if cond != nil {
		p.add(&cypher.Where{Condition: cond})
	}
	if nested || (cond != nil && len(relations) > 0) {
		p.add(&cypher.With{Items: cypher.Carry(active...), Distinct: nested})
	}

	for i, rel := range relations {
		next := after
		if i < len(relations)-1 {
			next = active
		}
		if err := p.relation(elem, rel, active, next); err != nil {
			return err
		}
	}
	return nil
}

func (p *planner) relation(elem string, l *predicate.RelationLeaf, active, next []string) error {
	target, ok := l.Field.Target.(*schema.Node)
	if !ok {
		return fallback("relation %s targets %s", l.Key, describeEntity(l.Field.Target))
	}
	scope := naming.NewScope(elem).Extend(l.Key)
	hop := translate.NewHop(elem, l.Field, target, scope.Name())

	switch {
	case l.Nested == nil:
		exists := cypher.Expr(cypher.Exists{Match: hop.Pattern})
		if l.Op == predicate.RelNotEqual {
			exists = cypher.Not(exists)
		}
		p.add(&cypher.Where{Condition: exists}, &cypher.With{Items: cypher.Carry(next...)})
		return nil
	case l.Op.Existential():
		p.add(&cypher.Match{Pattern: hop.Pattern})
		return p.level(hop.NodeVar, l.Nested, next, true)
	}
	return p.count(l, hop, active, next)
}

// count plans a counting quantifier with one OPTIONAL MATCH, so elements
// without any related element survive with a zero count:
//
//	OPTIONAL MATCH hop
//	WITH active, count(DISTINCT rel) AS v_total,
//	     count(DISTINCT CASE WHEN inner THEN rel END) AS v_count
//	WHERE <quantifier over v_total, v_count>
//	WITH DISTINCT next
//
// Grouping by active keeps the counts per bound element.
func (p *planner) count(l *predicate.RelationLeaf, hop translate.Hop, active, next []string) error {
	items, total, matched, err := p.tally(l, hop, active)
	if err != nil {
		return err
	}
	p.add(
		&cypher.With{Items: items, Where: l.Op.Quantify(cypher.Var(total), cypher.Var(matched))},
		&cypher.With{Items: cypher.Carry(next...), Distinct: true},
	)
	return nil
}

// tally adds the OPTIONAL MATCH of hop and returns the projection that
// groups by carry and counts all related elements and those satisfying the
// nested filter of l, with the names of both counts.
//
// Relation leaves inside the nested filter cannot drop rows here, since a
// related element failing them must still be counted in the total. Each
// one is tallied in turn per related element, carrying the hop's
// relationship and end node, and enters inner as its own quantifier over
// those counts.
func (p *planner) tally(l *predicate.RelationLeaf, hop translate.Hop, carry []string) (items []cypher.Projection, total, matched string, err error) {
	scalars, relations, err := split(l.Nested)
	if err != nil {
		return nil, "", "", err
	}
	p.add(&cypher.Match{Pattern: hop.Pattern, Optional: true})

	inner, err := p.condition(scalars, hop.NodeVar)
	if err != nil {
		return nil, "", "", err
	}
	if l.Nested.HasRelations() {
		row := carrying(carrying(carry, hop.RelVar), hop.NodeVar)
		conds := []cypher.Expr{inner}
		for _, rel := range relations {
			cond, next, err := p.flag(hop.NodeVar, rel, row)
			if err != nil {
				return nil, "", "", err
			}
			conds = append(conds, cond)
			row = next
		}
		inner = cypher.And(conds...)
	}

	rel := cypher.Var(hop.RelVar)
	total = hop.NodeVar + "_total"
	matched = hop.NodeVar + "_count"
	matchedExpr := cypher.CountDistinct(rel)
	if inner != nil {
		matchedExpr = cypher.CountDistinct(cypher.Case{When: inner, Then: rel})
	}
	items = append(cypher.Carry(carry...),
		cypher.As(cypher.CountDistinct(rel), total),
		cypher.As(matchedExpr, matched),
	)
	return items, total, matched, nil
}

// flag plans relation leaf l of elem without filtering rows. It returns the
// condition that holds for rows whose elem satisfies l, and the carry set
// extended with the counts that condition reads.
func (p *planner) flag(elem string, l *predicate.RelationLeaf, row []string) (cypher.Expr, []string, error) {
	target, ok := l.Field.Target.(*schema.Node)
	if !ok {
		return nil, nil, fallback("relation %s targets %s", l.Key, describeEntity(l.Field.Target))
	}
	hop := translate.NewHop(elem, l.Field, target, naming.NewScope(elem).Extend(l.Key).Name())

	if l.Nested == nil {
		exists := cypher.Expr(cypher.Exists{Match: hop.Pattern})
		if l.Op == predicate.RelNotEqual {
			exists = cypher.Not(exists)
		}
		return exists, row, nil
	}

	items, total, matched, err := p.tally(l, hop, row)
	if err != nil {
		return nil, nil, err
	}
	p.add(&cypher.With{Items: items})
	return l.Op.Quantify(cypher.Var(total), cypher.Var(matched)), carrying(carrying(row, total), matched), nil
}

// condition compiles scalar leaves on elem with the general translator and
// takes over its parameters. Names match what the general translator
// produces for the same leaf.
func (p *planner) condition(scalars []predicate.Tree, elem string) (cypher.Expr, error) {
	if len(scalars) == 0 {
		return nil, nil
	}
	res, err := p.translator.Compile(&predicate.Group{Combinator: predicate.And, Children: scalars}, elem, naming.NewScope(elem))
	if err != nil {
		return nil, err
	}
	if len(res.Subqueries) > 0 {
		return nil, fallback("scalar filter on %s needs subqueries", elem)
	}
	if err := p.params.Merge(res.Params); err != nil {
		// Stages bind each level separately; the general translator binds
		// into one map and suffixes clashing names instead.
		return nil, fallback("%v", err)
	}
	return res.Condition, nil
}

// split separates the children of g into scalar and relation leaves, in
// order, and rejects everything else.
func split(g *predicate.Group) (scalars []predicate.Tree, relations []*predicate.RelationLeaf, err error) {
	if g == nil {
		return nil, nil, nil
	}
	if len(g.Overrides) > 0 {
		return nil, nil, fallback("implementation overrides")
	}
	for _, child := range g.Children {
		switch n := child.(type) {
		case *predicate.ScalarLeaf:
			scalars = append(scalars, n)
		case *predicate.RelationLeaf:
			relations = append(relations, n)
		default:
			return nil, nil, fallback("filter contains %s", describeTree(n))
		}
	}
	return scalars, relations, nil
}

func carrying(carry []string, v string) []string {
	for _, c := range carry {
		if c == v {
			return carry
		}
	}
	out := make([]string, len(carry), len(carry)+1)
	copy(out, carry)
	return append(out, v)
}

func describeEntity(e schema.Entity) string {
	switch ent := e.(type) {
	case *schema.Node:
		return "node " + ent.Name
	case *schema.Interface:
		return "interface " + ent.Name
	case *schema.Union:
		return "union " + ent.Name
	case *schema.Properties:
		return "relationship properties " + ent.Name
	}
	return "unknown entity"
}

func describeTree(t predicate.Tree) string {
	switch n := t.(type) {
	case *predicate.Group:
		return n.Key + " combinator"
	case *predicate.ScalarLeaf:
		return "scalar filter " + n.Key
	case *predicate.RelationLeaf:
		return "relation filter " + n.Key
	case *predicate.ConnectionLeaf:
		return "connection filter " + n.Key
	case *predicate.AggregateLeaf:
		return "aggregate filter " + n.Key
	}
	return "unknown predicate"
}
