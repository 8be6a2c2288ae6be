package cypher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPattern_Cypher(t *testing.T) {
	tests := []struct {
		name    string
		pattern PatternElement
		want    string
	}{
		{"node", Node("this", "Person"), "(this:Person)"},
		{"anonymous node", Node("", "Person"), "(:Person)"},
		{"multi label", Node("b", "Book", "Item"), "(b:Book:Item)"},
		{"bare node", Node("n"), "(n)"},
		{
			"outgoing",
			RelationshipPattern{Start: Node("this"), Var: "r", Type: "FRIENDS_WITH", End: Node("f", "Person")},
			"(this)-[r:FRIENDS_WITH]->(f:Person)",
		},
		{
			"incoming",
			RelationshipPattern{Start: Node("this"), Type: "WROTE", Direction: Incoming, End: Node("a", "Author")},
			"(this)<-[:WROTE]-(a:Author)",
		},
		{
			"undirected untyped",
			RelationshipPattern{Start: Node("this"), Direction: Undirected, End: Node("x")},
			"(this)-[]-(x)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pattern.Cypher())
		})
	}
}

func TestProjection(t *testing.T) {
	assert.Equal(t, "this", As(Var("this"), "this").Cypher())
	assert.Equal(t, "this", As(Var("this"), "").Cypher())
	assert.Equal(t, "count(f) AS total", As(Count(Var("f")), "total").Cypher())
	assert.Equal(t, []Projection{{Expr: Var("a")}, {Expr: Var("b")}}, Carry("a", "b"))
}

func TestStatement_Simple(t *testing.T) {
	stmt := (&Statement{}).Add(
		&Match{Pattern: Node("this", "Person"), Where: Compare(Prop("this", "name"), OpContains, Param("this_name_CONTAINS"))},
		&Return{Items: Carry("this")},
	)
	assert.Equal(t, "MATCH (this:Person)\nWHERE this.name CONTAINS $this_name_CONTAINS\nRETURN this", stmt.Cypher())
}

func TestStatement_Clauses(t *testing.T) {
	stmt := &Statement{}
	stmt.Add(&Match{Pattern: Node("this")})
	stmt.Add(&Where{Condition: Or(HasLabels{Var: "this", Labels: []string{"Movie"}}, HasLabels{Var: "this", Labels: []string{"Series"}})})
	stmt.Add(&Match{
		Pattern:  RelationshipPattern{Start: Node("this"), Var: "r", Type: "ACTED_IN", Direction: Incoming, End: Node("a", "Person")},
		Optional: true,
	})
	stmt.Add(&With{Items: []Projection{As(Var("this"), ""), As(Count(Var("a")), "n")}, Where: Compare(Var("n"), OpGt, Int(2))})
	stmt.Add(&With{Distinct: true})
	stmt.Add(&Return{Items: Carry("this")})

	want := "MATCH (this)\n" +
		"WHERE this:Movie OR this:Series\n" +
		"OPTIONAL MATCH (this)<-[r:ACTED_IN]-(a:Person)\n" +
		"WITH this, count(a) AS n\n" +
		"WHERE n > 2\n" +
		"WITH DISTINCT *\n" +
		"RETURN this"
	assert.Equal(t, want, stmt.Cypher())
}

func TestSubquery_Cypher(t *testing.T) {
	inner := &Subquery{
		Imports: []string{"f"},
		Match:   RelationshipPattern{Start: Node("f"), Type: "ACTED_IN", End: Node("m", "Movie")},
		Returns: []Projection{As(Count(Var("m")), "movies")},
	}
	sub := &Subquery{
		Imports: []string{"this"},
		Match:   RelationshipPattern{Start: Node("this"), Type: "FRIENDS_WITH", End: Node("f", "Person")},
		Where:   IsNotNull{Expr: Prop("f", "name")},
		Nested:  []*Subquery{inner},
		Returns: []Projection{As(Count(Var("f")), "total")},
	}

	want := "CALL {\n" +
		"    WITH this\n" +
		"    MATCH (this)-[:FRIENDS_WITH]->(f:Person)\n" +
		"    WHERE f.name IS NOT NULL\n" +
		"    CALL {\n" +
		"        WITH f\n" +
		"        MATCH (f)-[:ACTED_IN]->(m:Movie)\n" +
		"        RETURN count(m) AS movies\n" +
		"    }\n" +
		"    RETURN count(f) AS total\n" +
		"}"
	assert.Equal(t, want, sub.Cypher())

	stmt := (&Statement{}).Add(&Match{Pattern: Node("this", "Person")}, sub, &Return{Items: Carry("this", "total")})
	assert.Contains(t, stmt.Cypher(), "MATCH (this:Person)\nCALL {\n    WITH this\n")
	assert.Contains(t, stmt.Cypher(), "\n}\nRETURN this, total")
}

func TestSubquery_NoImports(t *testing.T) {
	sub := &Subquery{Match: Node("n", "Person"), Returns: Carry("n")}
	assert.Equal(t, "CALL {\n    MATCH (n:Person)\n    RETURN n\n}", sub.Cypher())
}
