package cypher

import "strings"

// PatternElement is anything that can follow MATCH.
type PatternElement interface {
	Expr
	patternElement()
}

// NodePattern is (v:Label).
type NodePattern struct {
	Var    string
	Labels []string
}

func (NodePattern) patternElement() {}

// Cypher renders the node pattern.
func (n NodePattern) Cypher() string {
	var b strings.Builder
	b.WriteString("(")
	if n.Var != "" {
		b.WriteString(Ident(n.Var))
	}
	for _, l := range n.Labels {
		b.WriteString(":")
		b.WriteString(Ident(l))
	}
	b.WriteString(")")
	return b.String()
}

// Node builds a node pattern.
func Node(variable string, labels ...string) NodePattern {
	return NodePattern{Var: variable, Labels: labels}
}

// Direction is the arrow direction of a relationship pattern, seen from
// the start node.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Undirected
)

// RelationshipPattern is one hop: (start)-[r:TYPE]->(end).
type RelationshipPattern struct {
	Start     NodePattern
	Var       string
	Type      string
	Direction Direction
	End       NodePattern
}

func (RelationshipPattern) patternElement() {}

// Cypher renders the hop.
func (r RelationshipPattern) Cypher() string {
	var rel strings.Builder
	rel.WriteString("[")
	if r.Var != "" {
		rel.WriteString(Ident(r.Var))
	}
	if r.Type != "" {
		rel.WriteString(":")
		rel.WriteString(Ident(r.Type))
	}
	rel.WriteString("]")

	left, right := "-", "-"
	switch r.Direction {
	case Outgoing:
		right = "->"
	case Incoming:
		left = "<-"
	}
	return r.Start.Cypher() + left + rel.String() + right + r.End.Cypher()
}
