package predicate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cyfilter/internal/schema"
	"github.com/roach88/cyfilter/internal/testutil"
)

func buildFor(t *testing.T, entity string, raw map[string]any, opts ...Option) (*Group, error) {
	t.Helper()
	s := testutil.MovieSchema()
	return NewBuilder(opts...).Build(testutil.MustEntity(s, entity), raw)
}

func mustBuild(t *testing.T, entity string, raw map[string]any, opts ...Option) *Group {
	t.Helper()
	g, err := buildFor(t, entity, raw, opts...)
	require.NoError(t, err)
	return g
}

func TestBuild_ScalarLeavesFollowDeclarationOrder(t *testing.T) {
	g := mustBuild(t, "Person", map[string]any{
		"age_GT":        30,
		"name_CONTAINS": "an",
	})

	assert.Equal(t, And, g.Combinator)
	require.Len(t, g.Children, 2)

	name := g.Children[0].(*ScalarLeaf)
	assert.Equal(t, "name", name.Field.Name)
	assert.Equal(t, OpContains, name.Op)
	assert.Equal(t, "an", name.Value)
	assert.Equal(t, "name_CONTAINS", name.Key)

	age := g.Children[1].(*ScalarLeaf)
	assert.Equal(t, "age", age.Field.Name)
	assert.Equal(t, OpGT, age.Op)
	assert.Equal(t, 30, age.Value)
}

func TestBuild_LongestSuffixWins(t *testing.T) {
	tests := []struct {
		key string
		op  ScalarOp
	}{
		{"name", OpEqual},
		{"name_EQUAL", OpEqual},
		{"name_NOT", OpNotEqual},
		{"name_NOT_EQUAL", OpNotEqual},
		{"name_CONTAINS", OpContains},
		{"name_NOT_CONTAINS", OpNotContains},
		{"name_STARTS_WITH", OpStartsWith},
		{"name_NOT_STARTS_WITH", OpNotStartsWith},
		{"name_ENDS_WITH", OpEndsWith},
		{"name_NOT_ENDS_WITH", OpNotEndsWith},
		{"name_MATCHES", OpMatches},
		{"name_LTE", OpLTE},
		{"name_LT", OpLT},
		{"name_IN", OpIn},
		{"name_NOT_IN", OpNotIn},
		{"nicknames_INCLUDES", OpIncludes},
		{"nicknames_NOT_INCLUDES", OpNotIncludes},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			value := any("x")
			if tt.op == OpIn || tt.op == OpNotIn {
				value = []any{"x"}
			}
			g := mustBuild(t, "Person", map[string]any{tt.key: value})
			require.Len(t, g.Children, 1)
			leaf := g.Children[0].(*ScalarLeaf)
			assert.Equal(t, tt.op, leaf.Op)
		})
	}
}

func TestBuild_UnknownKeys(t *testing.T) {
	tests := []struct {
		name   string
		entity string
		raw    map[string]any
	}{
		{"undeclared field", "Person", map[string]any{"height": 180}},
		{"operator not on boolean", "Person", map[string]any{"active_CONTAINS": "t"}},
		{"substring on int", "Person", map[string]any{"age_STARTS_WITH": "1"}},
		{"includes on non-list", "Person", map[string]any{"name_INCLUDES": "x"}},
		{"comparison on list", "Person", map[string]any{"nicknames_GT": "x"}},
		{"on key outside interface", "Person", map[string]any{"_on": map[string]any{}}},
		{"aggregate on union relation", "Person", map[string]any{"favoritesAggregate": map[string]any{"count": 1}}},
		{"relation suffix on scalar", "Person", map[string]any{"name_ALL": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildFor(t, tt.entity, tt.raw)
			require.Error(t, err)
			assert.True(t, IsUnknownField(err), "got %v", err)
		})
	}
}

func TestBuild_UnknownKeyReason(t *testing.T) {
	_, err := buildFor(t, "Person", map[string]any{"active_GT": true})
	var ufe *UnknownFieldError
	require.ErrorAs(t, err, &ufe)
	assert.Equal(t, "Person", ufe.Entity)
	assert.Equal(t, "active_GT", ufe.Key)
	assert.Contains(t, ufe.Reason, "Boolean")
}

func TestBuild_Features(t *testing.T) {
	off := WithFeatures(Features{})

	for _, key := range []string{"name_GT", "name_MATCHES"} {
		_, err := buildFor(t, "Person", map[string]any{key: "a"}, off)
		assert.True(t, IsUnknownField(err), key)
	}
	_, err := buildFor(t, "Movie", map[string]any{"id_MATCHES": "a.*"}, off)
	assert.True(t, IsUnknownField(err))

	// Orderings on numbers are not feature gated.
	_, err = buildFor(t, "Person", map[string]any{"age_GT": 1}, off)
	assert.NoError(t, err)

	_, err = buildFor(t, "Movie", map[string]any{"id_MATCHES": "a.*"})
	assert.NoError(t, err)
}

func TestBuild_NullValues(t *testing.T) {
	g := mustBuild(t, "Person", map[string]any{"name": nil, "age_NOT_EQUAL": nil})
	require.Len(t, g.Children, 2)
	assert.Nil(t, g.Children[0].(*ScalarLeaf).Value)
	assert.Equal(t, OpNotEqual, g.Children[1].(*ScalarLeaf).Op)

	_, err := buildFor(t, "Person", map[string]any{"age_GT": nil})
	assert.True(t, IsInvalidValue(err))
}

func TestBuild_ValueShapes(t *testing.T) {
	_, err := buildFor(t, "Person", map[string]any{"name_IN": "Al"})
	assert.True(t, IsInvalidValue(err))

	_, err = buildFor(t, "Person", map[string]any{"location_LT": map[string]any{"point": map[string]any{"x": 1}}})
	assert.True(t, IsInvalidValue(err))

	g := mustBuild(t, "Person", map[string]any{
		"location_DISTANCE": map[string]any{"point": map[string]any{"longitude": 1.5, "latitude": 2.5}, "distance": 100},
	})
	assert.Equal(t, OpDistance, g.Children[0].(*ScalarLeaf).Op)

	_, err = buildFor(t, "Person", map[string]any{"friends": "Al"})
	assert.True(t, IsInvalidValue(err))
}

func TestBuild_Combinators(t *testing.T) {
	g := mustBuild(t, "Person", map[string]any{
		"OR": []any{
			map[string]any{"name_EQUAL": "Al"},
			map[string]any{"name_EQUAL": "Bo"},
		},
	})
	require.Len(t, g.Children, 1)
	or := g.Children[0].(*Group)
	assert.Equal(t, Or, or.Combinator)
	assert.Equal(t, "OR", or.Key)
	require.Len(t, or.Children, 2)

	// List elements keep input order.
	first := or.Children[0].(*Group).Children[0].(*ScalarLeaf)
	second := or.Children[1].(*Group).Children[0].(*ScalarLeaf)
	assert.Equal(t, "Al", first.Value)
	assert.Equal(t, "Bo", second.Value)
}

func TestBuild_CombinatorsFollowLeaves(t *testing.T) {
	g := mustBuild(t, "Person", map[string]any{
		"OR":   []any{map[string]any{"age": 1}},
		"AND":  []any{map[string]any{"age": 2}},
		"name": "Al",
	})
	require.Len(t, g.Children, 3)
	assert.IsType(t, &ScalarLeaf{}, g.Children[0])
	assert.Equal(t, "AND", g.Children[1].(*Group).Key)
	assert.Equal(t, "OR", g.Children[2].(*Group).Key)
}

func TestBuild_MalformedCombinators(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"object instead of list", map[string]any{"AND": map[string]any{"name": "Al"}}},
		{"null", map[string]any{"OR": nil}},
		{"scalar element", map[string]any{"OR": []any{"Al"}}},
		{"connection where", map[string]any{"actedInConnection": map[string]any{"AND": "x"}}},
		{"aggregate", map[string]any{"actedInAggregate": map[string]any{"OR": []any{1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildFor(t, "Person", tt.raw)
			assert.True(t, IsUnsupportedCombinator(err), "got %v", err)
		})
	}
}

func TestBuild_Relations(t *testing.T) {
	g := mustBuild(t, "Person", map[string]any{
		"friends_ALL": map[string]any{"age_GT": 18},
	})
	leaf := g.Children[0].(*RelationLeaf)
	assert.Equal(t, RelAll, leaf.Op)
	assert.Equal(t, "friends", leaf.Field.Name)
	require.NotNil(t, leaf.Nested)
	assert.Equal(t, "age", leaf.Nested.Children[0].(*ScalarLeaf).Field.Name)

	g = mustBuild(t, "Person", map[string]any{"friends": nil, "actedIn_NOT": nil})
	require.Len(t, g.Children, 2)
	assert.Nil(t, g.Children[0].(*RelationLeaf).Nested)
	assert.Equal(t, RelNotEqual, g.Children[1].(*RelationLeaf).Op)

	_, err := buildFor(t, "Person", map[string]any{"friends_SINGLE": nil})
	assert.True(t, IsInvalidValue(err))

	_, err = buildFor(t, "Person", map[string]any{"friends_SOME": map[string]any{"title": "x"}})
	var ufe *UnknownFieldError
	require.ErrorAs(t, err, &ufe)
	assert.Equal(t, "friends_SOME.title", ufe.Path)
}

func TestBuild_UnionRelation(t *testing.T) {
	g := mustBuild(t, "Person", map[string]any{
		"favorites_SOME": map[string]any{
			"Book":  map[string]any{"pages_GT": 100},
			"Movie": nil,
		},
	})
	leaf := g.Children[0].(*RelationLeaf)
	assert.Nil(t, leaf.Nested)
	require.Len(t, leaf.Members, 2)
	assert.Equal(t, "Movie", leaf.Members[0].Member.Name)
	assert.Nil(t, leaf.Members[0].Tree)
	assert.Equal(t, "Book", leaf.Members[1].Member.Name)
	require.NotNil(t, leaf.Members[1].Tree)

	_, err := buildFor(t, "Person", map[string]any{"favorites": map[string]any{"Series": map[string]any{}}})
	assert.True(t, IsUnknownField(err))
}

func TestBuild_InterfaceOverrides(t *testing.T) {
	g := mustBuild(t, "Production", map[string]any{
		"title_CONTAINS": "Matrix",
		"_on": map[string]any{
			"Movie": map[string]any{"rating_GT": 7.5},
		},
	})
	require.Len(t, g.Children, 1)
	require.Len(t, g.Overrides, 1)
	assert.Equal(t, "Movie", g.Overrides[0].Implementation.Name)
	assert.Equal(t, "rating", g.Overrides[0].Tree.Children[0].(*ScalarLeaf).Field.Name)

	// Implementation fields are not visible on the interface itself.
	_, err := buildFor(t, "Production", map[string]any{"rating_GT": 7.5})
	assert.True(t, IsUnknownField(err))

	_, err = buildFor(t, "Production", map[string]any{"_on": map[string]any{"Book": map[string]any{}}})
	assert.True(t, IsUnknownField(err))
}

func TestBuild_Connections(t *testing.T) {
	g := mustBuild(t, "Person", map[string]any{
		"actedInConnection_NONE": map[string]any{
			"node": map[string]any{"title": "Heat"},
			"edge": map[string]any{"screenTime_GT": 10},
			"OR": []any{
				map[string]any{"edge_NOT": map[string]any{"roles_INCLUDES": "Neo"}},
			},
		},
	})
	leaf := g.Children[0].(*ConnectionLeaf)
	assert.Equal(t, RelNone, leaf.Op)
	require.NotNil(t, leaf.Where.Node)
	require.NotNil(t, leaf.Where.Edge)
	require.Len(t, leaf.Where.Or, 1)
	assert.True(t, leaf.Where.Or[0].EdgeNot)

	_, err := buildFor(t, "Person", map[string]any{"friendsConnection": map[string]any{"edge": map[string]any{}}})
	assert.True(t, IsUnknownField(err), "FRIENDS_WITH has no properties")

	_, err = buildFor(t, "Person", map[string]any{"actedInConnection": map[string]any{"cursor": "x"}})
	assert.True(t, IsUnknownField(err))

	_, err = buildFor(t, "Person", map[string]any{"actedInConnection": map[string]any{
		"node": map[string]any{}, "node_NOT": map[string]any{},
	}})
	assert.True(t, IsInvalidValue(err))
}

func TestBuild_UnionConnection(t *testing.T) {
	g := mustBuild(t, "Person", map[string]any{
		"favoritesConnection": map[string]any{
			"node": map[string]any{
				"Movie": map[string]any{"title": "Heat"},
				"Book":  map[string]any{"title": "Dune"},
			},
		},
	})
	leaf := g.Children[0].(*ConnectionLeaf)
	assert.Nil(t, leaf.Where.Node)
	require.Len(t, leaf.Where.Members, 2)
	assert.Equal(t, "Movie", leaf.Where.Members[0].Member.Name)
	assert.Equal(t, "Book", leaf.Where.Members[1].Member.Name)
}

func TestBuild_Aggregates(t *testing.T) {
	g := mustBuild(t, "Person", map[string]any{
		"actedInAggregate": map[string]any{
			"count_GT": 2,
			"node": map[string]any{
				"title_SHORTEST_LENGTH_LT": 5,
				"rating_AVERAGE_GTE":       7.0,
			},
			"edge": map[string]any{"screenTime_SUM_GT": 100},
		},
	})
	leaf := g.Children[0].(*AggregateLeaf)
	require.Len(t, leaf.Count, 1)
	assert.Equal(t, CountGT, leaf.Count[0].Op)

	node := leaf.Node.(*AggregationGroup)
	require.Len(t, node.Children, 2)
	rating := node.Children[0].(*AggregationLeaf)
	assert.Equal(t, MethodAverage, rating.Method)
	assert.Equal(t, AggGTE, rating.Op)
	title := node.Children[1].(*AggregationLeaf)
	assert.Equal(t, MethodShortestLength, title.Method)
	assert.Equal(t, AggLT, title.Op)

	edge := leaf.Edge.(*AggregationGroup)
	assert.Equal(t, MethodSum, edge.Children[0].(*AggregationLeaf).Method)
}

func TestBuild_CountLiteralKinds(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"int", 2, 2},
		{"int8", int8(2), int64(2)},
		{"int16", int16(2), int64(2)},
		{"uint8", uint8(2), int64(2)},
		{"uint16", uint16(2), int64(2)},
		{"float32", float32(2.5), 2.5},
		{"json integer", json.Number("2"), int64(2)},
		{"json decimal", json.Number("2.5"), 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustBuild(t, "Person", map[string]any{
				"actedInAggregate": map[string]any{"count_GT": tt.value},
			})
			leaf := g.Children[0].(*AggregateLeaf)
			require.Len(t, leaf.Count, 1)
			assert.Equal(t, tt.want, leaf.Count[0].Value)
		})
	}

	_, err := buildFor(t, "Person", map[string]any{
		"actedInAggregate": map[string]any{"count_GT": json.Number("two")},
	})
	assert.True(t, IsInvalidValue(err))
}

func TestBuild_AggregationAvailability(t *testing.T) {
	tests := []struct {
		key string
		ok  bool
	}{
		{"rating_SUM_GT", true},
		{"runtime_AVERAGE_GT", true},
		{"runtime_SUM_GT", false},
		{"title_AVERAGE_LENGTH_GT", true},
		{"title_LONGEST_GT", true},
		{"title_SUM_GT", false},
		{"id_SHORTEST_LENGTH_EQUAL", true},
		{"id_SHORTEST_LENGTH_LT", false},
		{"tags_LONGEST_LENGTH_GT", false},
		{"released_MAX_LTE", true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			_, err := buildFor(t, "Person", map[string]any{
				"actedInAggregate": map[string]any{"node": map[string]any{tt.key: 1}},
			})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, IsUnknownField(err), "got %v", err)
			}
		})
	}

	g := mustBuild(t, "Person", map[string]any{
		"friendsAggregate": map[string]any{"node": map[string]any{"born_MIN_LT": "2000-01-01T00:00:00Z"}},
	})
	assert.Equal(t, MethodMin, g.Children[0].(*AggregateLeaf).Node.(*AggregationGroup).Children[0].(*AggregationLeaf).Method)

	_, err := buildFor(t, "Person", map[string]any{"friendsAggregate": map[string]any{"node": map[string]any{"born_AVERAGE_LT": "x"}}})
	assert.True(t, IsUnknownField(err))
}

func TestBuild_TooDeep(t *testing.T) {
	raw := map[string]any{
		"friends": map[string]any{
			"friends": map[string]any{"name": "Al"},
		},
	}
	_, err := buildFor(t, "Person", raw, WithMaxDepth(2))
	require.Error(t, err)
	assert.True(t, IsTooDeep(err))
	var tde *TooDeepError
	require.ErrorAs(t, err, &tde)
	assert.Equal(t, 2, tde.Limit)
	assert.Equal(t, "friends.friends", tde.Path)

	_, err = buildFor(t, "Person", raw, WithMaxDepth(3))
	assert.NoError(t, err)
}

func TestBuild_TooDeepCombinators(t *testing.T) {
	// Nest OR lists far past the default limit.
	raw := map[string]any{"name": "leaf"}
	for i := 0; i < DefaultMaxDepth+5; i++ {
		raw = map[string]any{"OR": []any{raw}}
	}
	_, err := buildFor(t, "Person", raw)
	assert.True(t, IsTooDeep(err))
}

func TestBuild_EmptyInput(t *testing.T) {
	g := mustBuild(t, "Person", nil)
	assert.Empty(t, g.Children)
	assert.True(t, g.Empty())
}

func TestOperatorsFor(t *testing.T) {
	s := testutil.MovieSchema()
	person := testutil.MustEntity(s, "Person")

	f, ok := schema.ResolveField(person, "active")
	require.True(t, ok)
	assert.Equal(t, []ScalarOp{OpEqual, OpNotEqual}, OperatorsFor(f, DefaultFeatures()).Scalar)

	f, _ = schema.ResolveField(person, "nicknames")
	assert.Equal(t, []ScalarOp{OpEqual, OpNotEqual, OpIncludes, OpNotIncludes}, OperatorsFor(f, DefaultFeatures()).Scalar)

	f, _ = schema.ResolveField(person, "friends")
	table := OperatorsFor(f, DefaultFeatures())
	assert.Empty(t, table.Scalar)
	assert.Equal(t, RelationOperators, table.Relation)
}
