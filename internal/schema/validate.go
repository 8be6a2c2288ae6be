package schema

import (
	"fmt"
	"strings"
)

// Validation error codes (E100-E199)
const (
	// Entity errors (E101-E109)
	ErrEntityNameEmpty    = "E101" // entity name is required
	ErrInvalidEntityKind  = "E102" // kind must be node/interface/union/properties
	ErrDuplicateName      = "E103" // duplicate entity or field name
	ErrUnionNoMembers     = "E104" // union must list at least one member
	ErrInvalidUnionMember = "E105" // union member is unknown or not a node
	ErrUnknownInterface   = "E106" // implements names an unknown interface
	ErrMissingImplField   = "E107" // implementation does not redeclare an interface field

	// Field errors (E110-E119)
	ErrInvalidFieldType      = "E110" // unknown scalar type
	ErrUnknownRelationTarget = "E111" // relation target is not an entity
	ErrMissingRelationship   = "E112" // entity-typed field lacks a relationship block
	ErrInvalidDirection      = "E113" // direction must be OUT, IN or BOTH
	ErrInvalidProperties     = "E114" // relationship properties must name a properties entity
	ErrRelationOnProperties  = "E115" // properties entities hold scalars only
	ErrRelationTypeEmpty     = "E116" // relationship type is required
	ErrDeclarationMismatch   = "E117" // redeclared relation differs from the interface
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
}

// Validate checks a Document before linking.
// Returns all errors found (does not fail-fast).
func Validate(doc *Document) []ValidationError {
	var errs []ValidationError

	kinds := make(map[string]EntityKind, len(doc.Entities))
	defs := make(map[string]EntityDef, len(doc.Entities))
	for i, def := range doc.Entities {
		path := fmt.Sprintf("entities[%d]", i)
		if strings.TrimSpace(def.Name) == "" {
			errs = append(errs, ValidationError{Path: path + ".name", Message: "entity name is required", Code: ErrEntityNameEmpty})
			continue
		}
		if _, dup := kinds[def.Name]; dup {
			errs = append(errs, ValidationError{Path: def.Name, Message: fmt.Sprintf("duplicate entity name: %q", def.Name), Code: ErrDuplicateName})
			continue
		}
		switch def.Kind {
		case KindNode, KindInterface, KindUnion, KindProperties:
		default:
			errs = append(errs, ValidationError{Path: def.Name + ".kind", Message: fmt.Sprintf("invalid kind %q", def.Kind), Code: ErrInvalidEntityKind})
			continue
		}
		kinds[def.Name] = def.Kind
		defs[def.Name] = def
	}

	for _, def := range doc.Entities {
		if kinds[def.Name] == "" {
			continue
		}
		switch def.Kind {
		case KindUnion:
			errs = append(errs, validateUnion(def, kinds)...)
		case KindNode:
			errs = append(errs, validateFields(def, kinds)...)
			errs = append(errs, validateImplements(def, defs, kinds)...)
		default:
			errs = append(errs, validateFields(def, kinds)...)
		}
	}

	return errs
}

func validateUnion(def EntityDef, kinds map[string]EntityKind) []ValidationError {
	if len(def.Members) == 0 {
		return []ValidationError{{Path: def.Name + ".members", Message: "union must have at least one member", Code: ErrUnionNoMembers}}
	}
	var errs []ValidationError
	for i, m := range def.Members {
		if kinds[m] != KindNode {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("%s.members[%d]", def.Name, i),
				Message: fmt.Sprintf("member %q is not a node entity", m),
				Code:    ErrInvalidUnionMember,
			})
		}
	}
	return errs
}

func validateFields(def EntityDef, kinds map[string]EntityKind) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(def.Fields))

	for _, fd := range def.Fields {
		path := def.Name + "." + fd.Name
		if seen[fd.Name] {
			errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf("duplicate field name: %q", fd.Name), Code: ErrDuplicateName})
			continue
		}
		seen[fd.Name] = true

		typeName, _ := parseTypeRef(fd.Type)
		if fd.Relationship == nil {
			if _, isEntity := kinds[typeName]; isEntity {
				errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf("field of entity type %q requires a relationship", typeName), Code: ErrMissingRelationship})
			} else if !ScalarType(typeName).Valid() {
				errs = append(errs, ValidationError{Path: path + ".type", Message: fmt.Sprintf("invalid type %q for field %q", fd.Type, fd.Name), Code: ErrInvalidFieldType})
			}
			continue
		}

		if def.Kind == KindProperties {
			errs = append(errs, ValidationError{Path: path, Message: "relationship properties cannot declare relations", Code: ErrRelationOnProperties})
			continue
		}
		kind, ok := kinds[typeName]
		if !ok || kind == KindProperties {
			errs = append(errs, ValidationError{Path: path + ".type", Message: fmt.Sprintf("relation target %q is not a node, interface or union", typeName), Code: ErrUnknownRelationTarget})
		}
		if strings.TrimSpace(fd.Relationship.Type) == "" {
			errs = append(errs, ValidationError{Path: path + ".relationship.type", Message: "relationship type is required", Code: ErrRelationTypeEmpty})
		}
		if !directionOrDefault(fd.Relationship.Direction).Valid() {
			errs = append(errs, ValidationError{Path: path + ".relationship.direction", Message: fmt.Sprintf("invalid direction %q", fd.Relationship.Direction), Code: ErrInvalidDirection})
		}
		if p := fd.Relationship.Properties; p != "" && kinds[p] != KindProperties {
			errs = append(errs, ValidationError{Path: path + ".relationship.properties", Message: fmt.Sprintf("%q is not a properties entity", p), Code: ErrInvalidProperties})
		}
	}
	return errs
}

// validateImplements checks that a node redeclares every field of the
// interfaces it implements, with matching relationship shape.
func validateImplements(def EntityDef, defs map[string]EntityDef, kinds map[string]EntityKind) []ValidationError {
	var errs []ValidationError
	own := make(map[string]FieldDef, len(def.Fields))
	for _, fd := range def.Fields {
		own[fd.Name] = fd
	}

	for _, iname := range def.Implements {
		if kinds[iname] != KindInterface {
			errs = append(errs, ValidationError{Path: def.Name + ".implements", Message: fmt.Sprintf("unknown interface %q", iname), Code: ErrUnknownInterface})
			continue
		}
		for _, ifd := range defs[iname].Fields {
			fd, ok := own[ifd.Name]
			if !ok {
				errs = append(errs, ValidationError{
					Path:    def.Name + "." + ifd.Name,
					Message: fmt.Sprintf("missing field %q declared by interface %q", ifd.Name, iname),
					Code:    ErrMissingImplField,
				})
				continue
			}
			if ifd.Relationship == nil {
				continue
			}
			if fd.Relationship == nil ||
				fd.Relationship.Type != ifd.Relationship.Type ||
				directionOrDefault(fd.Relationship.Direction) != directionOrDefault(ifd.Relationship.Direction) {
				errs = append(errs, ValidationError{
					Path:    def.Name + "." + ifd.Name,
					Message: fmt.Sprintf("relation %q must match the declaration on interface %q", ifd.Name, iname),
					Code:    ErrDeclarationMismatch,
				})
			}
		}
	}
	return errs
}
