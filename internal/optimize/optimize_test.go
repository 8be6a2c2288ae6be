package optimize

import (
	"errors"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cyfilter/internal/naming"
	"github.com/roach88/cyfilter/internal/predicate"
	"github.com/roach88/cyfilter/internal/schema"
	"github.com/roach88/cyfilter/internal/testutil"
	"github.com/roach88/cyfilter/internal/translate"
)

func plan(t *testing.T, entity string, raw map[string]any) *MatchPlan {
	t.Helper()
	s := testutil.MovieSchema()
	p, err := New(nil).Compile(testutil.MustEntity(s, entity), raw)
	require.NoError(t, err)
	return p
}

func assertGolden(t *testing.T, name string, p *MatchPlan) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(p.Statement().Cypher()+"\n"))
}

func TestCompile_ScalarsOnly(t *testing.T) {
	p := plan(t, "Person", map[string]any{"name_CONTAINS": "an", "age_GT": 30})

	assert.Equal(t, "MATCH (this:Person)\nWHERE this.name CONTAINS $this_name_CONTAINS AND this.age > $this_age_GT",
		p.Statement().Cypher())
	assert.Equal(t, naming.Root, p.Root)
	assert.Equal(t, 2, p.Params.Len())
}

func TestCompile_EmptyFilter(t *testing.T) {
	p := plan(t, "Person", map[string]any{})
	assert.Empty(t, p.Stages)
	assert.Equal(t, "MATCH (this:Person)", p.Statement().Cypher())
}

func TestCompile_Existential(t *testing.T) {
	assertGolden(t, "existential_with_root_filter", plan(t, "Person", map[string]any{
		"name_STARTS_WITH": "A",
		"friends_SOME":     map[string]any{"age_GT": 18},
	}))
}

func TestCompile_CountingQuantifier(t *testing.T) {
	assertGolden(t, "all_counts", plan(t, "Person", map[string]any{
		"friends_ALL": map[string]any{"age_GT": 18},
	}))
}

func TestCompile_NestedCarry(t *testing.T) {
	assertGolden(t, "nested_carry", plan(t, "Person", map[string]any{
		"friends_SOME": map[string]any{
			"name":         "Al",
			"actedIn_SOME": map[string]any{"title": "Heat"},
			"friends_NONE": map[string]any{"active": false},
		},
	}))
}

func TestCompile_SiblingRelations(t *testing.T) {
	assertGolden(t, "sibling_relations", plan(t, "Person", map[string]any{
		"age_GTE":        18,
		"friends_NOT":    nil,
		"actedIn_SINGLE": map[string]any{},
	}))
}

func TestCompile_CountOverNestedRelation(t *testing.T) {
	assertGolden(t, "all_over_nested_relation", plan(t, "Person", map[string]any{
		"friends_ALL": map[string]any{
			"age_GT":       18,
			"actedIn_SOME": map[string]any{"title": "Heat"},
		},
	}))
}

func TestCompile_CountOverNestedExistence(t *testing.T) {
	p := plan(t, "Person", map[string]any{"friends_NONE": map[string]any{"actedIn": nil}})
	assert.Equal(t, "MATCH (this:Person)\n"+
		"OPTIONAL MATCH (this)-[this_friends_NONE_rel:FRIENDS_WITH]->(this_friends_NONE:Person)\n"+
		"WITH this, count(DISTINCT this_friends_NONE_rel) AS this_friends_NONE_total, "+
		"count(DISTINCT CASE WHEN EXISTS { MATCH (this_friends_NONE)-[this_friends_NONE_actedIn_rel:ACTED_IN]->(this_friends_NONE_actedIn:Movie) } "+
		"THEN this_friends_NONE_rel END) AS this_friends_NONE_count\n"+
		"WHERE this_friends_NONE_count = 0\n"+
		"WITH DISTINCT this", p.Statement().Cypher())
}

func TestCompile_CountOverDeepRelations(t *testing.T) {
	p := plan(t, "Person", map[string]any{
		"name": "Al",
		"friends_SINGLE": map[string]any{
			"friends_ALL": map[string]any{"actedIn_NOT": nil},
		},
	})
	stmt := p.Statement().Cypher()

	// Each tally groups by everything bound above it.
	assert.Contains(t, stmt, "WITH this, this_friends_SINGLE_rel, this_friends_SINGLE, "+
		"count(DISTINCT this_friends_SINGLE_friends_ALL_rel) AS this_friends_SINGLE_friends_ALL_total")
	assert.Contains(t, stmt, "CASE WHEN NOT (EXISTS { MATCH (this_friends_SINGLE_friends_ALL)-[")
	assert.Contains(t, stmt, "CASE WHEN this_friends_SINGLE_friends_ALL_total = this_friends_SINGLE_friends_ALL_count THEN this_friends_SINGLE_rel END")
	assert.Contains(t, stmt, "WHERE this_friends_SINGLE_total = this_friends_SINGLE_count AND this_friends_SINGLE_total = 1")
	assert.True(t, strings.HasSuffix(stmt, "WITH DISTINCT this"))
}

func TestCompile_ParamClashFallsBack(t *testing.T) {
	doc := testutil.MovieDocument()
	person := &doc.Entities[0]
	person.Fields = append(person.Fields, schema.FieldDef{Name: "friends_SOME_name", Type: "String"})
	s := schema.MustBuild(doc)

	// this_friends_SOME_name is bound by the root scalar and by the
	// nested filter of friends_SOME, with different values.
	_, err := New(nil).Compile(testutil.MustEntity(s, "Person"), map[string]any{
		"friends_SOME_name": "Al",
		"friends_SOME":      map[string]any{"name": "Bo"},
	})
	require.Error(t, err)
	assert.True(t, IsFallbackRequired(err))
	assert.Contains(t, err.Error(), `parameter "this_friends_SOME_name" bound twice`)
}

func TestCompile_Existence(t *testing.T) {
	p := plan(t, "Person", map[string]any{"friends": nil})
	assert.Equal(t, "MATCH (this:Person)\n"+
		"WHERE EXISTS { MATCH (this)-[this_friends_rel:FRIENDS_WITH]->(this_friends:Person) }\n"+
		"WITH this", p.Statement().Cypher())
	assert.Equal(t, 0, p.Params.Len())
}

func TestCompile_QuantifierConditions(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"friends_ALL", "WHERE this_friends_ALL_total = this_friends_ALL_count"},
		{"friends_SINGLE", "WHERE this_friends_SINGLE_total = this_friends_SINGLE_count AND this_friends_SINGLE_total = 1"},
		{"friends_NONE", "WHERE this_friends_NONE_count = 0"},
		{"friends_NOT", "WHERE this_friends_NOT_count = 0"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			p := plan(t, "Person", map[string]any{tt.key: map[string]any{"name": "Al"}})
			assert.Contains(t, p.Statement().Cypher(), "OPTIONAL MATCH")
			assert.Contains(t, p.Statement().Cypher(), tt.want)
		})
	}
}

func TestCompile_SameParamsAsGeneralTranslator(t *testing.T) {
	raw := map[string]any{
		"name":         "Al",
		"friends_SOME": map[string]any{"age_GT": 18, "friends_ALL": map[string]any{"active": true}},
	}
	s := testutil.MovieSchema()
	person := testutil.MustEntity(s, "Person")

	p, err := New(nil).Compile(person, raw)
	require.NoError(t, err)

	tree, err := predicate.NewBuilder().Build(person, raw)
	require.NoError(t, err)
	res, err := translate.New().Compile(tree, naming.Root, naming.NewScope(naming.Root))
	require.NoError(t, err)

	assert.Equal(t, res.Params.Map(), p.Params.Map())
}

func TestCompile_Fallback(t *testing.T) {
	tests := []struct {
		name   string
		entity string
		raw    map[string]any
		reason string
	}{
		{"interface root", "Production", map[string]any{"title": "Heat"}, "interface Production"},
		{"properties root", "ActedIn", map[string]any{"screenTime_GT": 1}, "relationship properties ActedIn"},
		{"top-level OR", "Person", map[string]any{"OR": []any{map[string]any{"name": "Al"}}}, "OR combinator"},
		{"top-level AND", "Person", map[string]any{"AND": []any{}}, "AND combinator"},
		{"nested AND", "Person", map[string]any{"friends_SOME": map[string]any{"AND": []any{map[string]any{"name": "Al"}}}}, "AND combinator"},
		{"interface target", "Person", map[string]any{"productions_SOME": map[string]any{"title": "Heat"}}, "interface Production"},
		{"union target", "Person", map[string]any{"favorites_SOME": map[string]any{"Book": map[string]any{"pages_GT": 1}}}, "union Media"},
		{"connection", "Person", map[string]any{"actedInConnection": map[string]any{"node": map[string]any{"title": "Heat"}}}, "connection filter"},
		{"aggregate", "Person", map[string]any{"actedInAggregate": map[string]any{"count_GT": 1}}, "aggregate filter"},
		{"count over union relation", "Person", map[string]any{"friends_ALL": map[string]any{"favorites_SOME": map[string]any{"Book": map[string]any{"pages_GT": 1}}}}, "favorites_SOME targets union Media"},
		{"count over connection", "Person", map[string]any{"friends_NONE": map[string]any{"actedInConnection": map[string]any{"node": map[string]any{"title": "Heat"}}}}, "connection filter"},
		{"count over combinator", "Person", map[string]any{"friends_NONE": map[string]any{"OR": []any{map[string]any{"age": 1}}}}, "OR combinator"},
	}
	s := testutil.MovieSchema()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entity := testutil.MustEntity(s, tt.entity)

			_, err := New(nil).Compile(entity, tt.raw)
			require.Error(t, err)
			assert.True(t, IsFallbackRequired(err))
			var fr *FallbackRequired
			require.True(t, errors.As(err, &fr))
			assert.Contains(t, fr.Reason, tt.reason)

			// Every rejected input compiles with the general translator.
			tree, err := predicate.NewBuilder().Build(entity, tt.raw)
			require.NoError(t, err)
			_, err = translate.New().Compile(tree, naming.Root, naming.NewScope(naming.Root))
			require.NoError(t, err)
		})
	}
}

func TestCompile_InputErrorsAreNotFallbacks(t *testing.T) {
	s := testutil.MovieSchema()
	_, err := New(nil).Compile(testutil.MustEntity(s, "Person"), map[string]any{"bogus": 1})
	require.Error(t, err)
	assert.True(t, predicate.IsUnknownField(err))
	assert.False(t, IsFallbackRequired(err))

	_, err = New(predicate.NewBuilder(predicate.WithMaxDepth(2))).Compile(testutil.MustEntity(s, "Person"), map[string]any{
		"friends_SOME": map[string]any{"friends_SOME": map[string]any{"name": "Al"}},
	})
	assert.True(t, predicate.IsTooDeep(err))
}

func TestFallbackRequired_Wrapped(t *testing.T) {
	err := fallback("shape %d", 1)
	assert.Equal(t, "fallback required: shape 1", err.Error())
	assert.True(t, IsFallbackRequired(errors.Join(errors.New("context"), err)))
	assert.False(t, IsFallbackRequired(errors.New("other")))
}
