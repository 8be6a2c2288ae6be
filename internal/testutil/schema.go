package testutil

import (
	"fmt"

	"github.com/roach88/cyfilter/internal/schema"
)

// MovieDocument returns the schema document shared by the translator
// tests. It covers every entity kind:
//
//	Person     node, scalar fields of most types, relations to every target kind
//	Movie      node implementing Production
//	Series     node implementing Production
//	Book       node, member of Media only
//	Production interface implemented by Movie and Series
//	Media      union of Movie and Book
//	ActedIn    relationship properties of ACTED_IN
//
// A fresh document is returned on every call so tests may mutate it.
func MovieDocument() *schema.Document {
	actedIn := func(name, target, direction string) schema.FieldDef {
		return schema.FieldDef{
			Name: name,
			Type: target,
			Relationship: &schema.RelationshipDef{
				Type:       "ACTED_IN",
				Direction:  direction,
				Properties: "ActedIn",
			},
		}
	}
	return &schema.Document{Entities: []schema.EntityDef{
		{
			Name: "Person",
			Kind: schema.KindNode,
			Fields: []schema.FieldDef{
				{Name: "name", Type: "String"},
				{Name: "age", Type: "Int"},
				{Name: "score", Type: "Float", Default: 0},
				{Name: "born", Type: "DateTime"},
				{Name: "active", Type: "Boolean"},
				{Name: "nicknames", Type: "[String]"},
				{Name: "location", Type: "Point"},
				{Name: "friends", Type: "[Person]", Relationship: &schema.RelationshipDef{Type: "FRIENDS_WITH"}},
				actedIn("actedIn", "[Movie]", "OUT"),
				actedIn("productions", "[Production]", "OUT"),
				{Name: "favorites", Type: "[Media]", Relationship: &schema.RelationshipDef{Type: "LIKES"}},
			},
		},
		{
			Name:       "Movie",
			Kind:       schema.KindNode,
			Implements: []string{"Production"},
			Fields: []schema.FieldDef{
				{Name: "id", Type: "ID"},
				{Name: "title", Type: "String"},
				{Name: "released", Type: "Int"},
				{Name: "rating", Type: "Float"},
				{Name: "runtime", Type: "Duration"},
				{Name: "tags", Type: "[String]"},
				actedIn("actors", "[Person]", "IN"),
				{Name: "director", Type: "Person", Relationship: &schema.RelationshipDef{Type: "DIRECTED", Direction: "IN"}},
			},
		},
		{
			Name:       "Series",
			Kind:       schema.KindNode,
			Implements: []string{"Production"},
			Fields: []schema.FieldDef{
				{Name: "title", Type: "String"},
				{Name: "released", Type: "Int"},
				{Name: "episodes", Type: "Int"},
				actedIn("actors", "[Person]", "IN"),
			},
		},
		{
			Name:   "Book",
			Kind:   schema.KindNode,
			Labels: []string{"Book", "Publication"},
			Fields: []schema.FieldDef{
				{Name: "title", Type: "String"},
				{Name: "pages", Type: "Int", Property: "pageCount"},
			},
		},
		{
			Name: "Production",
			Kind: schema.KindInterface,
			Fields: []schema.FieldDef{
				{Name: "title", Type: "String"},
				{Name: "released", Type: "Int"},
				actedIn("actors", "[Person]", "IN"),
			},
		},
		{
			Name:    "Media",
			Kind:    schema.KindUnion,
			Members: []string{"Movie", "Book"},
		},
		{
			Name: "ActedIn",
			Kind: schema.KindProperties,
			Fields: []schema.FieldDef{
				{Name: "roles", Type: "[String]"},
				{Name: "screenTime", Type: "Int"},
				{Name: "since", Type: "DateTime"},
			},
		},
	}}
}

// MovieSchema builds MovieDocument. It panics if the fixture is invalid.
func MovieSchema() *schema.Schema {
	return schema.MustBuild(MovieDocument())
}

// MustEntity looks up an entity and panics when it is missing.
func MustEntity(s *schema.Schema, name string) schema.Entity {
	e, ok := s.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("testutil: entity %q not in schema", name))
	}
	return e
}

// MustNode looks up a node entity and panics when it is missing or has
// another kind.
func MustNode(s *schema.Schema, name string) *schema.Node {
	n, ok := MustEntity(s, name).(*schema.Node)
	if !ok {
		panic(fmt.Sprintf("testutil: entity %q is not a node", name))
	}
	return n
}
