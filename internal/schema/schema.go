package schema

import (
	"fmt"
	"strings"
)

// Schema is the read-only fact base consulted by the predicate builder and
// both translators. It is immutable after Build and safe to share across
// concurrent compilations.
type Schema struct {
	entities map[string]Entity
	names    []string // declaration order
}

// Lookup returns the entity with the given name.
func (s *Schema) Lookup(name string) (Entity, bool) {
	e, ok := s.entities[name]
	return e, ok
}

// Entities returns all entities in declaration order.
func (s *Schema) Entities() []Entity {
	out := make([]Entity, 0, len(s.names))
	for _, n := range s.names {
		out = append(out, s.entities[n])
	}
	return out
}

// ResolveField returns the field called name declared on e.
// Unions declare no fields.
func (s *Schema) ResolveField(e Entity, name string) (Field, bool) {
	return ResolveField(e, name)
}

// Implementations returns the nodes implementing i, in declaration order.
func (s *Schema) Implementations(i *Interface) []*Node {
	return i.Implementations
}

// MembersOf returns the members of u, in declaration order.
func (s *Schema) MembersOf(u *Union) []*Node {
	return u.Members
}

// ResolveField looks a field up on any entity kind.
func ResolveField(e Entity, name string) (Field, bool) {
	switch ent := e.(type) {
	case *Node:
		return lookupField(ent.index, ent.Fields, name)
	case *Interface:
		return lookupField(ent.index, ent.Fields, name)
	case *Properties:
		return lookupField(ent.index, ent.Fields, name)
	case *Union:
		return nil, false
	default:
		return nil, false
	}
}

func lookupField(index map[string]Field, fields []Field, name string) (Field, bool) {
	if index != nil {
		f, ok := index[name]
		return f, ok
	}
	for _, f := range fields {
		if f.FieldName() == name {
			return f, true
		}
	}
	return nil, false
}

func indexFields(fields []Field) map[string]Field {
	idx := make(map[string]Field, len(fields))
	for _, f := range fields {
		idx[f.FieldName()] = f
	}
	return idx
}

// LabelSet returns the labels a node is stored under.
func (n *Node) LabelSet() []string {
	if len(n.Labels) > 0 {
		return n.Labels
	}
	return []string{n.Name}
}

// DocumentError carries every validation error found while building a
// schema from a Document.
type DocumentError struct {
	Errors []ValidationError
}

func (e *DocumentError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("%d schema errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Build validates doc and links it into a Schema.
func Build(doc *Document) (*Schema, error) {
	if errs := Validate(doc); len(errs) > 0 {
		return nil, &DocumentError{Errors: errs}
	}

	s := &Schema{entities: make(map[string]Entity, len(doc.Entities))}

	// First pass: allocate shells so relation targets can be linked by name.
	for _, def := range doc.Entities {
		var e Entity
		switch def.Kind {
		case KindNode:
			e = &Node{Name: def.Name, Labels: def.Labels, Interfaces: def.Implements}
		case KindInterface:
			e = &Interface{Name: def.Name}
		case KindUnion:
			e = &Union{Name: def.Name}
		case KindProperties:
			e = &Properties{Name: def.Name}
		}
		s.entities[def.Name] = e
		s.names = append(s.names, def.Name)
	}

	// Second pass: fields, members, implementations.
	for _, def := range doc.Entities {
		switch e := s.entities[def.Name].(type) {
		case *Node:
			e.Fields = s.linkFields(def.Fields, false)
			e.index = indexFields(e.Fields)
			for _, iname := range def.Implements {
				iface := s.entities[iname].(*Interface)
				iface.Implementations = append(iface.Implementations, e)
			}
		case *Interface:
			e.Fields = s.linkFields(def.Fields, true)
			e.index = indexFields(e.Fields)
		case *Properties:
			e.Fields = s.linkFields(def.Fields, false)
			e.index = indexFields(e.Fields)
		case *Union:
			for _, m := range def.Members {
				e.Members = append(e.Members, s.entities[m].(*Node))
			}
		}
	}

	return s, nil
}

// MustBuild is like Build but panics on error.
// Use only in tests or when the document is known to be valid.
func MustBuild(doc *Document) *Schema {
	s, err := Build(doc)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) linkFields(defs []FieldDef, onInterface bool) []Field {
	fields := make([]Field, 0, len(defs))
	for _, fd := range defs {
		typeName, list := parseTypeRef(fd.Type)
		if fd.Relationship == nil {
			fields = append(fields, &ScalarField{
				Name:     fd.Name,
				Property: fd.Property,
				Type:     ScalarType(typeName),
				List:     list,
				Default:  fd.Default,
			})
			continue
		}
		rel := &RelationField{
			Name:        fd.Name,
			Type:        fd.Relationship.Type,
			Direction:   directionOrDefault(fd.Relationship.Direction),
			Target:      s.entities[typeName],
			List:        list,
			Declaration: onInterface,
		}
		if fd.Relationship.Properties != "" {
			rel.Properties = s.entities[fd.Relationship.Properties].(*Properties)
		}
		fields = append(fields, rel)
	}
	return fields
}

// parseTypeRef splits a GraphQL-style type reference such as "[Movie!]!"
// into its named type and list flag. Non-null markers are ignored.
func parseTypeRef(ref string) (string, bool) {
	t := strings.TrimSuffix(strings.TrimSpace(ref), "!")
	if strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]") {
		inner := strings.TrimSuffix(strings.TrimSpace(t[1:len(t)-1]), "!")
		return inner, true
	}
	return t, false
}

func directionOrDefault(d string) Direction {
	if d == "" {
		return DirectionOut
	}
	return Direction(strings.ToUpper(d))
}
