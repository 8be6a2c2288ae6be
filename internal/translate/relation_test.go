package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelation_Existence(t *testing.T) {
	res := compile(t, "Person", map[string]any{"friends": nil})
	assert.Equal(t,
		"EXISTS { MATCH (this)-[this_friends_rel:FRIENDS_WITH]->(this_friends:Person) }",
		render(res.Condition))
	assert.Empty(t, res.Subqueries)
	assert.Equal(t, 0, res.Params.Len())

	assert.Equal(t,
		"NOT (EXISTS { MATCH (this)-[this_friends_NOT_rel:FRIENDS_WITH]->(this_friends_NOT:Person) })",
		condition(t, "Person", map[string]any{"friends_NOT": nil}))
}

func TestRelation_ExistentialQuantifiers(t *testing.T) {
	assert.Equal(t,
		"EXISTS { MATCH (this)-[this_friends_rel:FRIENDS_WITH]->(this_friends:Person) WHERE this_friends.name = $this_friends_name }",
		condition(t, "Person", map[string]any{"friends": map[string]any{"name": "Al"}}))
	assert.Equal(t,
		"EXISTS { MATCH (this)-[this_friends_SOME_rel:FRIENDS_WITH]->(this_friends_SOME:Person) WHERE this_friends_SOME.age > $this_friends_SOME_age_GT }",
		condition(t, "Person", map[string]any{"friends_SOME": map[string]any{"age_GT": 18}}))
	assert.Equal(t,
		"EXISTS { MATCH (this)<-[this_actors_rel:ACTED_IN]-(this_actors:Person) WHERE this_actors.name = $this_actors_name }",
		condition(t, "Movie", map[string]any{"actors": map[string]any{"name": "Al"}}))
}

func TestRelation_All(t *testing.T) {
	res := compile(t, "Person", map[string]any{"friends_ALL": map[string]any{"age_GT": 18}})

	require.Len(t, res.Subqueries, 1)
	assert.Equal(t, "CALL {\n"+
		"    WITH this\n"+
		"    MATCH (this)-[this_friends_ALL_rel:FRIENDS_WITH]->(this_friends_ALL:Person)\n"+
		"    RETURN count(this_friends_ALL_rel) AS this_friends_ALL_total, count(CASE WHEN this_friends_ALL.age > $this_friends_ALL_age_GT THEN 1 END) AS this_friends_ALL_matched\n"+
		"}", res.Subqueries[0].Cypher())
	assert.Equal(t, "this_friends_ALL_total = this_friends_ALL_matched", render(res.Condition))

	v, ok := res.Params.Get("this_friends_ALL_age_GT")
	require.True(t, ok)
	assert.Equal(t, 18, v)
}

func TestRelation_CountingQuantifiers(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"friends_ALL", "this_friends_ALL_total = this_friends_ALL_matched"},
		{"friends_SINGLE", "this_friends_SINGLE_total = this_friends_SINGLE_matched AND this_friends_SINGLE_total = 1"},
		{"friends_NONE", "this_friends_NONE_matched = 0"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			res := compile(t, "Person", map[string]any{tt.key: map[string]any{"active": true}})
			assert.Equal(t, tt.want, render(res.Condition))
			require.Len(t, res.Subqueries, 1)
			assert.Len(t, res.Subqueries[0].Returns, 2)
		})
	}
}

func TestRelation_EmptyNestedFilterCountsRelationships(t *testing.T) {
	res := compile(t, "Person", map[string]any{"friends_SINGLE": map[string]any{}})
	require.Len(t, res.Subqueries, 1)
	assert.Contains(t, res.Subqueries[0].Cypher(),
		"RETURN count(this_friends_SINGLE_rel) AS this_friends_SINGLE_total, count(this_friends_SINGLE_rel) AS this_friends_SINGLE_matched")
}

func TestRelation_NestedSubqueries(t *testing.T) {
	res := compile(t, "Person", map[string]any{
		"friends_SOME": map[string]any{"friends_ALL": map[string]any{"age_GT": 18}},
	})
	assertGolden(t, "nested_some_all", res)
}

func TestRelation_InterfaceTarget(t *testing.T) {
	assert.Equal(t,
		"EXISTS { MATCH (this)-[this_productions_SOME_rel:ACTED_IN]->(this_productions_SOME) "+
			"WHERE (this_productions_SOME:Movie OR this_productions_SOME:Series) "+
			"AND this_productions_SOME.title = $this_productions_SOME_title }",
		condition(t, "Person", map[string]any{"productions_SOME": map[string]any{"title": "Heat"}}))
}

func TestRelation_InterfaceTargetOverride(t *testing.T) {
	got := condition(t, "Person", map[string]any{
		"productions_SOME": map[string]any{
			"_on": map[string]any{"Series": map[string]any{"episodes_GT": 10}},
		},
	})
	assert.Equal(t,
		"EXISTS { MATCH (this)-[this_productions_SOME_rel:ACTED_IN]->(this_productions_SOME) "+
			"WHERE (this_productions_SOME:Movie OR this_productions_SOME:Series) "+
			"AND (NOT (this_productions_SOME:Series) OR this_productions_SOME.episodes > $this_productions_SOME_on_Series_episodes_GT) }",
		got)
}

func TestRelation_UnionSingleMember(t *testing.T) {
	assert.Equal(t,
		"EXISTS { MATCH (this)-[this_favorites_SOME_Book_rel:LIKES]->(this_favorites_SOME_Book:Book:Publication) "+
			"WHERE this_favorites_SOME_Book.pageCount > $this_favorites_SOME_Book_pages_GT }",
		condition(t, "Person", map[string]any{"favorites_SOME": map[string]any{"Book": map[string]any{"pages_GT": 100}}}))
}

func TestRelation_UnionNegatedAcrossMembers(t *testing.T) {
	got := condition(t, "Person", map[string]any{
		"favorites_NONE": map[string]any{
			"Movie": map[string]any{"title": "A"},
			"Book":  map[string]any{"title": "B"},
		},
	})
	assert.Equal(t,
		"NOT (EXISTS { MATCH (this)-[this_favorites_NONE_Movie_rel:LIKES]->(this_favorites_NONE_Movie:Movie) "+
			"WHERE this_favorites_NONE_Movie.title = $this_favorites_NONE_Movie_title } "+
			"OR EXISTS { MATCH (this)-[this_favorites_NONE_Book_rel:LIKES]->(this_favorites_NONE_Book:Book:Publication) "+
			"WHERE this_favorites_NONE_Book.title = $this_favorites_NONE_Book_title })",
		got)
}

func TestRelation_UnionExistenceCoversEveryMember(t *testing.T) {
	assert.Equal(t,
		"EXISTS { MATCH (this)-[this_favorites_Movie_rel:LIKES]->(this_favorites_Movie:Movie) } "+
			"OR EXISTS { MATCH (this)-[this_favorites_Book_rel:LIKES]->(this_favorites_Book:Book:Publication) }",
		condition(t, "Person", map[string]any{"favorites": nil}))
}

func TestConnection_NodeAndEdge(t *testing.T) {
	res := compile(t, "Person", map[string]any{
		"actedInConnection": map[string]any{
			"node": map[string]any{"title": "Heat"},
			"edge": map[string]any{"screenTime_GT": 10},
		},
	})
	assert.Equal(t,
		"EXISTS { MATCH (this)-[this_actedInConnection_rel:ACTED_IN]->(this_actedInConnection:Movie) "+
			"WHERE this_actedInConnection.title = $this_actedInConnection_node_title "+
			"AND this_actedInConnection_rel.screenTime > $this_actedInConnection_edge_screenTime_GT }",
		render(res.Condition))
	assert.Equal(t, 2, res.Params.Len())
}

func TestConnection_Negations(t *testing.T) {
	got := condition(t, "Person", map[string]any{
		"actedInConnection_NOT": map[string]any{
			"node_NOT": map[string]any{"title": "Heat"},
		},
	})
	assert.Equal(t,
		"NOT (EXISTS { MATCH (this)-[this_actedInConnection_NOT_rel:ACTED_IN]->(this_actedInConnection_NOT:Movie) "+
			"WHERE NOT (this_actedInConnection_NOT.title = $this_actedInConnection_NOT_node_NOT_title) })",
		got)
}

func TestConnection_Lists(t *testing.T) {
	got := condition(t, "Person", map[string]any{
		"actedInConnection": map[string]any{
			"OR": []any{
				map[string]any{"node": map[string]any{"title": "Heat"}},
				map[string]any{"edge": map[string]any{"roles_INCLUDES": "Neil"}},
			},
		},
	})
	assert.Equal(t,
		"EXISTS { MATCH (this)-[this_actedInConnection_rel:ACTED_IN]->(this_actedInConnection:Movie) "+
			"WHERE this_actedInConnection.title = $this_actedInConnection_OR0_node_title "+
			"OR $this_actedInConnection_OR1_edge_roles_INCLUDES IN this_actedInConnection_rel.roles }",
		got)
}

func TestConnection_UnionMembers(t *testing.T) {
	got := condition(t, "Person", map[string]any{
		"favoritesConnection": map[string]any{
			"node": map[string]any{
				"Movie": map[string]any{"title": "A"},
				"Book":  map[string]any{"title": "B"},
			},
		},
	})
	assert.Equal(t,
		"EXISTS { MATCH (this)-[this_favoritesConnection_Movie_rel:LIKES]->(this_favoritesConnection_Movie:Movie) "+
			"WHERE this_favoritesConnection_Movie.title = $this_favoritesConnection_Movie_node_title } "+
			"OR EXISTS { MATCH (this)-[this_favoritesConnection_Book_rel:LIKES]->(this_favoritesConnection_Book:Book:Publication) "+
			"WHERE this_favoritesConnection_Book.title = $this_favoritesConnection_Book_node_title }",
		got)
}
