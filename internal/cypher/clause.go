package cypher

import "strings"

const indentUnit = "    "

// Clause is one line-level clause of a statement.
//
// This is a sealed interface - only types in this package implement it.
type Clause interface {
	clauseNode()
	lines(indent string) []string
}

// Projection is "expr AS alias". An empty alias renders the expression alone.
type Projection struct {
	Expr  Expr
	Alias string
}

// Cypher renders the projection.
func (p Projection) Cypher() string {
	s := p.Expr.Cypher()
	if p.Alias == "" || s == Ident(p.Alias) {
		return s
	}
	return s + " AS " + Ident(p.Alias)
}

// As builds a projection.
func As(e Expr, alias string) Projection {
	return Projection{Expr: e, Alias: alias}
}

// Carry projects variables through unchanged.
func Carry(names ...string) []Projection {
	out := make([]Projection, len(names))
	for i, n := range names {
		out[i] = Projection{Expr: Var(n)}
	}
	return out
}

func renderProjections(items []Projection) string {
	parts := make([]string, len(items))
	for i, p := range items {
		parts[i] = p.Cypher()
	}
	return strings.Join(parts, ", ")
}

// Match is MATCH or OPTIONAL MATCH, with an optional attached WHERE.
type Match struct {
	Pattern  PatternElement
	Optional bool
	Where    Expr
}

func (*Match) clauseNode() {}

func (m *Match) lines(indent string) []string {
	kw := "MATCH "
	if m.Optional {
		kw = "OPTIONAL MATCH "
	}
	out := []string{indent + kw + m.Pattern.Cypher()}
	if m.Where != nil {
		out = append(out, indent+"WHERE "+m.Where.Cypher())
	}
	return out
}

// Where is a standalone filter attached to the preceding MATCH or WITH.
type Where struct {
	Condition Expr
}

func (*Where) clauseNode() {}

func (w *Where) lines(indent string) []string {
	return []string{indent + "WHERE " + w.Condition.Cypher()}
}

// With carries items forward. With no items it renders WITH *.
type With struct {
	Items    []Projection
	Distinct bool
	Where    Expr
}

func (*With) clauseNode() {}

func (w *With) lines(indent string) []string {
	kw := "WITH "
	if w.Distinct {
		kw = "WITH DISTINCT "
	}
	items := "*"
	if len(w.Items) > 0 {
		items = renderProjections(w.Items)
	}
	out := []string{indent + kw + items}
	if w.Where != nil {
		out = append(out, indent+"WHERE "+w.Where.Cypher())
	}
	return out
}

// Return is the final projection of a statement or subquery.
type Return struct {
	Items []Projection
}

func (*Return) clauseNode() {}

func (r *Return) lines(indent string) []string {
	return []string{indent + "RETURN " + renderProjections(r.Items)}
}

// Subquery is a correlated CALL { ... } block. It imports the carried
// identifiers, matches one pattern, runs its nested subqueries per row and
// returns aggregated columns, so it always yields exactly one row.
type Subquery struct {
	Imports []string
	Match   PatternElement
	Where   Expr
	Nested  []*Subquery
	Returns []Projection
}

func (*Subquery) clauseNode() {}

func (s *Subquery) lines(indent string) []string {
	inner := indent + indentUnit
	out := []string{indent + "CALL {"}
	if len(s.Imports) > 0 {
		out = append(out, inner+"WITH "+renderProjections(Carry(s.Imports...)))
	}
	out = append(out, (&Match{Pattern: s.Match, Where: s.Where}).lines(inner)...)
	for _, n := range s.Nested {
		out = append(out, n.lines(inner)...)
	}
	out = append(out, (&Return{Items: s.Returns}).lines(inner)...)
	return append(out, indent+"}")
}

// Cypher renders the subquery block.
func (s *Subquery) Cypher() string {
	return strings.Join(s.lines(""), "\n")
}

// Statement is an ordered list of clauses.
type Statement struct {
	Clauses []Clause
}

// Add appends clauses and returns the statement.
func (s *Statement) Add(clauses ...Clause) *Statement {
	s.Clauses = append(s.Clauses, clauses...)
	return s
}

// Cypher renders the statement, one clause per line.
func (s *Statement) Cypher() string {
	var lines []string
	for _, c := range s.Clauses {
		lines = append(lines, c.lines("")...)
	}
	return strings.Join(lines, "\n")
}
