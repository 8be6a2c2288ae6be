package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// CUE schema dialect:
//
//	entity: Person: {
//		kind: "node"
//		fields: {
//			name: type: "String"
//			friends: {
//				type: "[Person]"
//				relationship: {type: "FRIENDS", direction: "OUT"}
//			}
//		}
//	}
//	entity: Media: {kind: "union", members: ["Movie", "Series"]}
//
// Field order follows declaration order in the CUE source.

// ParseCUE compiles a single CUE source into a Document.
func ParseCUE(filename string, src []byte) (*Document, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return DecodeCUE(v)
}

// LoadCUE loads the CUE package in dir into a Document.
func LoadCUE(dir string) (*Document, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	ctx := cuecontext.New()
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return DecodeCUE(v)
}

// DecodeCUE reads the entity struct of a built CUE value.
func DecodeCUE(v cue.Value) (*Document, error) {
	entities := v.LookupPath(cue.ParsePath("entity"))
	if !entities.Exists() {
		return nil, &CUEError{Field: "entity", Message: "no entity declarations found", Pos: v.Pos()}
	}

	iter, err := entities.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	doc := &Document{}
	for iter.Next() {
		def, err := decodeEntity(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		doc.Entities = append(doc.Entities, def)
	}
	return doc, nil
}

func decodeEntity(name string, v cue.Value) (EntityDef, error) {
	def := EntityDef{Name: name}

	kind, err := requiredString(v, "kind")
	if err != nil {
		return def, err
	}
	def.Kind = EntityKind(kind)

	if def.Labels, err = optionalStrings(v, "labels"); err != nil {
		return def, err
	}
	if def.Implements, err = optionalStrings(v, "implements"); err != nil {
		return def, err
	}
	if def.Members, err = optionalStrings(v, "members"); err != nil {
		return def, err
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return def, nil
	}
	iter, err := fieldsVal.Fields()
	if err != nil {
		return def, formatCUEError(err)
	}
	for iter.Next() {
		fd, err := decodeField(iter.Label(), iter.Value())
		if err != nil {
			return def, err
		}
		def.Fields = append(def.Fields, fd)
	}
	return def, nil
}

func decodeField(name string, v cue.Value) (FieldDef, error) {
	fd := FieldDef{Name: name}

	typ, err := requiredString(v, "type")
	if err != nil {
		return fd, err
	}
	fd.Type = typ

	if fd.Property, err = optionalString(v, "property"); err != nil {
		return fd, err
	}

	if dv := v.LookupPath(cue.ParsePath("default")); dv.Exists() {
		if fd.Default, err = decodeScalar(dv); err != nil {
			return fd, err
		}
	}

	relVal := v.LookupPath(cue.ParsePath("relationship"))
	if !relVal.Exists() {
		return fd, nil
	}
	rel := &RelationshipDef{}
	if rel.Type, err = requiredString(relVal, "type"); err != nil {
		return fd, err
	}
	if rel.Direction, err = optionalString(relVal, "direction"); err != nil {
		return fd, err
	}
	if rel.Properties, err = optionalString(relVal, "properties"); err != nil {
		return fd, err
	}
	fd.Relationship = rel
	return fd, nil
}

func decodeScalar(v cue.Value) (any, error) {
	switch v.IncompleteKind() {
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return i, nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return f, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return s, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return b, nil
	default:
		return nil, &CUEError{Field: "default", Message: "default must be a string, number or bool", Pos: v.Pos()}
	}
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CUEError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalStrings(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CUEError is a schema decoding error with its CUE source position.
type CUEError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CUEError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CUEError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
