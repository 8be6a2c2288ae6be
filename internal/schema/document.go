package schema

// EntityKind names the variant an EntityDef declares.
type EntityKind string

const (
	KindNode       EntityKind = "node"
	KindInterface  EntityKind = "interface"
	KindUnion      EntityKind = "union"
	KindProperties EntityKind = "properties"
)

// Document is the unlinked, serializable form of a schema. CUE and YAML
// sources decode into a Document, which Build validates and links.
type Document struct {
	Entities []EntityDef `yaml:"entities" json:"entities"`
}

// EntityDef declares one entity.
type EntityDef struct {
	Name       string     `yaml:"name" json:"name"`
	Kind       EntityKind `yaml:"kind" json:"kind"`
	Labels     []string   `yaml:"labels,omitempty" json:"labels,omitempty"`
	Implements []string   `yaml:"implements,omitempty" json:"implements,omitempty"`
	Members    []string   `yaml:"members,omitempty" json:"members,omitempty"`
	Fields     []FieldDef `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// FieldDef declares one field. Type is a GraphQL-style reference: a scalar
// type name for scalar fields, an entity name for relation fields, wrapped
// in brackets when list-valued.
type FieldDef struct {
	Name         string           `yaml:"name" json:"name"`
	Type         string           `yaml:"type" json:"type"`
	Property     string           `yaml:"property,omitempty" json:"property,omitempty"`
	Default      any              `yaml:"default,omitempty" json:"default,omitempty"`
	Relationship *RelationshipDef `yaml:"relationship,omitempty" json:"relationship,omitempty"`
}

// RelationshipDef marks a field as a relation.
type RelationshipDef struct {
	Type       string `yaml:"type" json:"type"`
	Direction  string `yaml:"direction,omitempty" json:"direction,omitempty"`
	Properties string `yaml:"properties,omitempty" json:"properties,omitempty"`
}
