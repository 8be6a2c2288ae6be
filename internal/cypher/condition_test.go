package cypher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCondition_Cypher(t *testing.T) {
	name := Prop("this", "name")
	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{"eq", Eq(name, Param("p")), "this.name = $p"},
		{"ne", Compare(name, OpNe, Param("p")), "this.name <> $p"},
		{"starts with", Compare(name, OpStartsWith, Param("p")), "this.name STARTS WITH $p"},
		{"matches", Compare(name, OpMatches, Param("p")), "this.name =~ $p"},
		{"in", Compare(name, OpIn, Param("p")), "this.name IN $p"},
		{"is null", IsNull{Expr: name}, "this.name IS NULL"},
		{"is not null", IsNotNull{Expr: name}, "this.name IS NOT NULL"},
		{"labels", HasLabels{Var: "this", Labels: []string{"Movie", "Item"}}, "this:Movie:Item"},
		{"not", Not(Eq(name, Param("p"))), "NOT (this.name = $p)"},
		{
			"exists",
			Exists{
				Match: RelationshipPattern{Start: Node("this"), Type: "ACTED_IN", End: Node("m", "Movie")},
				Where: Eq(Prop("m", "title"), Param("t")),
			},
			"EXISTS { MATCH (this)-[:ACTED_IN]->(m:Movie) WHERE m.title = $t }",
		},
		{
			"exists without where",
			Exists{Match: RelationshipPattern{Start: Node("this"), Type: "KNOWS", Direction: Undirected, End: Node("")}},
			"EXISTS { MATCH (this)-[:KNOWS]-() }",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.expr.Cypher())
		})
	}
}

func TestNot(t *testing.T) {
	e := Eq(Var("a"), Int(1))

	assert.Nil(t, Not(nil))
	assert.Equal(t, Negation{Expr: e}, Not(e))
	assert.Equal(t, e, Not(Not(e)))
}

func TestJunction(t *testing.T) {
	a, b, c := Raw("a"), Raw("b"), Raw("c")

	t.Run("empty is nil", func(t *testing.T) {
		assert.Nil(t, And())
		assert.Nil(t, Or(nil, nil))
	})

	t.Run("single collapses", func(t *testing.T) {
		assert.Equal(t, a, And(nil, a))
		assert.Equal(t, b, Or(b))
	})

	t.Run("nil dropped", func(t *testing.T) {
		assert.Equal(t, "a AND b", And(a, nil, b).Cypher())
	})

	t.Run("same kind flattens", func(t *testing.T) {
		got := And(And(a, b), c)
		assert.Equal(t, Junction{Kind: KindAnd, Exprs: []Expr{a, b, c}}, got)
		assert.Equal(t, "a AND b AND c", got.Cypher())
	})

	t.Run("other kind parenthesized", func(t *testing.T) {
		assert.Equal(t, "a AND (b OR c)", And(a, nil, Or(b, c)).Cypher())
		assert.Equal(t, "(a AND b) OR c", Or(And(a, b), c).Cypher())
	})

	t.Run("negated junction", func(t *testing.T) {
		assert.Equal(t, "NOT (a OR b) AND c", And(Not(Or(a, b)), c).Cypher())
	})
}
