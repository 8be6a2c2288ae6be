package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/cyfilter/internal/schema"
)

const (
	// CodeUnknownEntity: the requested root entity is not declared.
	CodeUnknownEntity = "E200"

	// CodeInvalidRoot: the root entity is declared but cannot be matched
	// as a node, e.g. a relationship-properties entity.
	CodeInvalidRoot = "E206"
)

// UnknownEntityError reports a root entity name missing from the schema.
type UnknownEntityError struct {
	Name string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("unknown entity %q", e.Name)
}

// Code returns the error code.
func (e *UnknownEntityError) Code() string { return CodeUnknownEntity }

// IsUnknownEntity reports whether err is an UnknownEntityError.
func IsUnknownEntity(err error) bool {
	var e *UnknownEntityError
	return errors.As(err, &e)
}

// InvalidRootError reports a root entity whose kind has no node pattern.
// Relationship properties are only reachable through the relation that
// carries them.
type InvalidRootError struct {
	Name string
	Kind schema.EntityKind
}

func (e *InvalidRootError) Error() string {
	return fmt.Sprintf("entity %q is a %s entity and cannot be a filter root", e.Name, e.Kind)
}

// Code returns the error code.
func (e *InvalidRootError) Code() string { return CodeInvalidRoot }

// IsInvalidRoot reports whether err is an InvalidRootError.
func IsInvalidRoot(err error) bool {
	var e *InvalidRootError
	return errors.As(err, &e)
}

// ResolveRoot looks up the entity a filter is rooted at. Nodes,
// interfaces and unions are accepted.
func ResolveRoot(s *schema.Schema, name string) (schema.Entity, error) {
	entity, ok := s.Lookup(name)
	if !ok {
		return nil, &UnknownEntityError{Name: name}
	}
	if _, ok := entity.(*schema.Properties); ok {
		return nil, &InvalidRootError{Name: name, Kind: schema.KindProperties}
	}
	return entity, nil
}
