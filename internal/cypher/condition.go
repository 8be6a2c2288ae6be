package cypher

import "strings"

// Operator is a binary comparison operator.
type Operator string

const (
	OpEq         Operator = "="
	OpNe         Operator = "<>"
	OpLt         Operator = "<"
	OpLte        Operator = "<="
	OpGt         Operator = ">"
	OpGte        Operator = ">="
	OpContains   Operator = "CONTAINS"
	OpStartsWith Operator = "STARTS WITH"
	OpEndsWith   Operator = "ENDS WITH"
	OpMatches    Operator = "=~"
	OpIn         Operator = "IN"
)

// Comparison is left <op> right.
type Comparison struct {
	Left  Expr
	Op    Operator
	Right Expr
}

// Cypher renders the comparison.
func (c Comparison) Cypher() string {
	return c.Left.Cypher() + " " + string(c.Op) + " " + c.Right.Cypher()
}

// Compare builds a comparison.
func Compare(left Expr, op Operator, right Expr) Comparison {
	return Comparison{Left: left, Op: op, Right: right}
}

// Eq builds left = right.
func Eq(left, right Expr) Comparison { return Compare(left, OpEq, right) }

// IsNull is "e IS NULL".
type IsNull struct{ Expr Expr }

// Cypher renders the null check.
func (n IsNull) Cypher() string { return n.Expr.Cypher() + " IS NULL" }

// IsNotNull is "e IS NOT NULL".
type IsNotNull struct{ Expr Expr }

// Cypher renders the not-null check.
func (n IsNotNull) Cypher() string { return n.Expr.Cypher() + " IS NOT NULL" }

// HasLabels is "v:A:B", true when v carries every label.
type HasLabels struct {
	Var    string
	Labels []string
}

// Cypher renders the label predicate.
func (h HasLabels) Cypher() string {
	var b strings.Builder
	b.WriteString(Ident(h.Var))
	for _, l := range h.Labels {
		b.WriteString(":")
		b.WriteString(Ident(l))
	}
	return b.String()
}

// Negation is NOT (e).
type Negation struct{ Expr Expr }

// Cypher renders the negation.
func (n Negation) Cypher() string { return "NOT (" + n.Expr.Cypher() + ")" }

// Not negates e. Not(nil) is nil and a double negation cancels out.
func Not(e Expr) Expr {
	if e == nil {
		return nil
	}
	if n, ok := e.(Negation); ok {
		return n.Expr
	}
	return Negation{Expr: e}
}

// JunctionKind is AND or OR.
type JunctionKind string

const (
	KindAnd JunctionKind = "AND"
	KindOr  JunctionKind = "OR"
)

// Junction joins two or more conditions with one kind.
type Junction struct {
	Kind  JunctionKind
	Exprs []Expr
}

// Cypher renders the junction. Nested junctions of the other kind are
// parenthesized.
func (j Junction) Cypher() string {
	parts := make([]string, len(j.Exprs))
	for i, e := range j.Exprs {
		s := e.Cypher()
		if inner, ok := e.(Junction); ok && inner.Kind != j.Kind {
			s = "(" + s + ")"
		}
		parts[i] = s
	}
	return strings.Join(parts, " "+string(j.Kind)+" ")
}

// And combines conditions with AND. Nil conditions are dropped; no
// condition at all yields nil, the identity of AND.
func And(exprs ...Expr) Expr {
	return junction(KindAnd, exprs)
}

// Or combines conditions with OR. Nil conditions are dropped.
func Or(exprs ...Expr) Expr {
	return junction(KindOr, exprs)
}

func junction(kind JunctionKind, exprs []Expr) Expr {
	var kept []Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		// Flatten same-kind junctions: (a AND b) AND c -> a AND b AND c.
		if j, ok := e.(Junction); ok && j.Kind == kind {
			kept = append(kept, j.Exprs...)
			continue
		}
		kept = append(kept, e)
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return Junction{Kind: kind, Exprs: kept}
	}
}

// Exists is an existential subquery: EXISTS { MATCH pattern WHERE cond }.
type Exists struct {
	Match PatternElement
	Where Expr
}

// Cypher renders the existential subquery.
func (e Exists) Cypher() string {
	s := "EXISTS { MATCH " + e.Match.Cypher()
	if e.Where != nil {
		s += " WHERE " + e.Where.Cypher()
	}
	return s + " }"
}
