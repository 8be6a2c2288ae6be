package schema

// Entity is a filterable type in the schema fact base.
//
// This is a sealed interface - only types in this package implement it.
// Translators switch over the concrete variants exhaustively:
//
//	switch e := entity.(type) {
//	case *Node:
//	case *Interface:
//	case *Union:
//	case *Properties:
//	}
//
// Entity kinds:
//   - Node: one concrete node label set
//   - Interface: abstract type implemented by a set of Nodes
//   - Union: unrelated Nodes with no shared fields
//   - Properties: the property set carried by a relationship
type Entity interface {
	entityNode() // Marker method - seals interface to this package

	// EntityName returns the stable schema name of the entity.
	EntityName() string
}

// Field is a declared field of an Entity.
//
// This is a sealed interface - only types in this package implement it.
type Field interface {
	fieldNode() // Marker method - seals interface to this package

	// FieldName returns the field name as it appears in filter keys.
	FieldName() string
}

// Node is a concrete entity stored under one or more labels.
type Node struct {
	Name   string
	Labels []string // defaults to [Name]
	Fields []Field

	// Interfaces lists the names of the interfaces this node implements.
	Interfaces []string

	index map[string]Field
}

func (*Node) entityNode()          {}
func (n *Node) EntityName() string { return n.Name }

// Interface is an abstract entity. Filters on an interface apply to every
// implementation and may carry per-implementation overrides.
type Interface struct {
	Name            string
	Fields          []Field
	Implementations []*Node

	index map[string]Field
}

func (*Interface) entityNode()          {}
func (i *Interface) EntityName() string { return i.Name }

// Union is a closed set of unrelated nodes.
type Union struct {
	Name    string
	Members []*Node
}

func (*Union) entityNode()          {}
func (u *Union) EntityName() string { return u.Name }

// Member returns the union member with the given name.
func (u *Union) Member(name string) (*Node, bool) {
	for _, m := range u.Members {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Properties is the scalar property set stored on a relationship.
type Properties struct {
	Name   string
	Fields []Field

	index map[string]Field
}

func (*Properties) entityNode()          {}
func (p *Properties) EntityName() string { return p.Name }

// ScalarField is a property-backed field.
type ScalarField struct {
	Name     string
	Property string // store-side property name, defaults to Name
	Type     ScalarType
	List     bool

	// Default is the coalesce value substituted when the property is
	// absent. Nil means no coalesce.
	Default any
}

func (*ScalarField) fieldNode()          {}
func (f *ScalarField) FieldName() string { return f.Name }

// PropertyName returns the store-side property name.
func (f *ScalarField) PropertyName() string {
	if f.Property != "" {
		return f.Property
	}
	return f.Name
}

// RelationField is a field that traverses a relationship.
type RelationField struct {
	Name      string
	Type      string // relationship type, e.g. ACTED_IN
	Direction Direction
	Target    Entity
	List      bool

	// Properties is the relationship-properties entity, nil when the
	// relationship carries no filterable properties.
	Properties *Properties

	// Declaration marks a relation declared on an interface and
	// redeclared by every implementation.
	Declaration bool
}

func (*RelationField) fieldNode()          {}
func (f *RelationField) FieldName() string { return f.Name }

// Direction is the traversal direction of a relationship from its owner.
type Direction string

const (
	DirectionOut  Direction = "OUT"
	DirectionIn   Direction = "IN"
	DirectionBoth Direction = "BOTH"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case DirectionOut, DirectionIn, DirectionBoth:
		return true
	}
	return false
}

// ScalarType is the type tag of a scalar field.
type ScalarType string

const (
	TypeString         ScalarType = "String"
	TypeID             ScalarType = "ID"
	TypeInt            ScalarType = "Int"
	TypeFloat          ScalarType = "Float"
	TypeBigInt         ScalarType = "BigInt"
	TypeBoolean        ScalarType = "Boolean"
	TypeDateTime       ScalarType = "DateTime"
	TypeLocalDateTime  ScalarType = "LocalDateTime"
	TypeDate           ScalarType = "Date"
	TypeTime           ScalarType = "Time"
	TypeLocalTime      ScalarType = "LocalTime"
	TypeDuration       ScalarType = "Duration"
	TypePoint          ScalarType = "Point"
	TypeCartesianPoint ScalarType = "CartesianPoint"
)

var scalarTypes = map[ScalarType]bool{
	TypeString: true, TypeID: true, TypeInt: true, TypeFloat: true,
	TypeBigInt: true, TypeBoolean: true, TypeDateTime: true,
	TypeLocalDateTime: true, TypeDate: true, TypeTime: true,
	TypeLocalTime: true, TypeDuration: true, TypePoint: true,
	TypeCartesianPoint: true,
}

// Valid reports whether t is a known scalar type.
func (t ScalarType) Valid() bool { return scalarTypes[t] }

// IsStringLike reports whether t supports substring operators.
func (t ScalarType) IsStringLike() bool {
	return t == TypeString || t == TypeID
}

// IsNumeric reports whether t is an averageable number.
func (t ScalarType) IsNumeric() bool {
	return t == TypeInt || t == TypeFloat || t == TypeBigInt
}

// IsTemporal reports whether t is a point in time.
func (t ScalarType) IsTemporal() bool {
	switch t {
	case TypeDateTime, TypeLocalDateTime, TypeDate, TypeTime, TypeLocalTime:
		return true
	}
	return false
}

// IsSpatial reports whether t is a point type.
func (t ScalarType) IsSpatial() bool {
	return t == TypePoint || t == TypeCartesianPoint
}

// IsComparable reports whether t supports ordering operators.
func (t ScalarType) IsComparable() bool {
	return t.IsNumeric() || t.IsTemporal() || t == TypeString || t == TypeDuration
}
