package predicate

import (
	"sort"
	"strings"

	"github.com/roach88/cyfilter/internal/schema"
)

// Reserved input keys. The spellings are part of the wire vocabulary
// generated clients already use and must not change.
const (
	KeyAnd           = "AND"
	KeyOr            = "OR"
	KeyOn            = "_on"
	KeyNode          = "node"
	KeyNodeNot       = "node_NOT"
	KeyEdge          = "edge"
	KeyEdgeNot       = "edge_NOT"
	ConnectionSuffix = "Connection"
	AggregateSuffix  = "Aggregate"
)

// KeyKind is the family a filter key resolves into.
type KeyKind int

const (
	KindScalar KeyKind = iota
	KindRelation
	KindConnection
	KindAggregate
)

// OperatorTable is the set of operators a field accepts.
type OperatorTable struct {
	Scalar   []ScalarOp
	Relation []RelationOp
}

// OperatorsFor returns the operator table of f.
func OperatorsFor(f schema.Field, features Features) OperatorTable {
	switch field := f.(type) {
	case *schema.ScalarField:
		return OperatorTable{Scalar: ScalarOperators(field, features)}
	case *schema.RelationField:
		return OperatorTable{Relation: RelationOperators}
	}
	return OperatorTable{}
}

func (t OperatorTable) hasScalar(op ScalarOp) bool {
	for _, o := range t.Scalar {
		if o == op {
			return true
		}
	}
	return false
}

// suffixEntry is one way a key may end.
type suffixEntry struct {
	suffix   string
	kind     KeyKind
	scalar   ScalarOp
	relation RelationOp
}

// keySuffixes holds every suffix, longest first, so resolution picks the
// longest suffix that leaves a declared field name.
var keySuffixes = buildKeySuffixes()

func buildKeySuffixes() []suffixEntry {
	var out []suffixEntry
	for i := range scalarOpNames {
		op := ScalarOp(i)
		out = append(out, suffixEntry{suffix: op.Suffix(), kind: KindScalar, scalar: op})
	}
	for s, op := range scalarAliases {
		out = append(out, suffixEntry{suffix: s, kind: KindScalar, scalar: op})
	}
	for _, op := range RelationOperators {
		out = append(out,
			suffixEntry{suffix: op.Suffix(), kind: KindRelation, relation: op},
			suffixEntry{suffix: ConnectionSuffix + op.Suffix(), kind: KindConnection, relation: op},
		)
	}
	out = append(out, suffixEntry{suffix: AggregateSuffix, kind: KindAggregate})
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].suffix) != len(out[j].suffix) {
			return len(out[i].suffix) > len(out[j].suffix)
		}
		if out[i].suffix != out[j].suffix {
			return out[i].suffix < out[j].suffix
		}
		return out[i].kind < out[j].kind
	})
	return out
}

// resolvedKey is a filter key split into field and operator.
type resolvedKey struct {
	field    schema.Field
	kind     KeyKind
	scalar   ScalarOp
	relation RelationOp
}

// resolveKey splits key into <field><suffix> against entity. The reason
// string explains the failure when the field exists but the operator does
// not apply to it.
func resolveKey(entity schema.Entity, key string, features Features) (resolvedKey, string, bool) {
	reason := ""
	for _, e := range keySuffixes {
		if !strings.HasSuffix(key, e.suffix) {
			continue
		}
		name := strings.TrimSuffix(key, e.suffix)
		if name == "" {
			continue
		}
		f, ok := schema.ResolveField(entity, name)
		if !ok {
			continue
		}
		switch field := f.(type) {
		case *schema.ScalarField:
			if e.kind != KindScalar {
				continue
			}
			if !OperatorsFor(field, features).hasScalar(e.scalar) {
				if reason == "" {
					reason = "operator " + e.scalar.String() + " is not available on " + string(field.Type) + " field " + field.Name
				}
				continue
			}
			return resolvedKey{field: field, kind: KindScalar, scalar: e.scalar}, "", true
		case *schema.RelationField:
			if e.kind == KindScalar {
				continue
			}
			if e.kind == KindAggregate {
				if _, isUnion := field.Target.(*schema.Union); isUnion {
					if reason == "" {
						reason = "aggregation is not available on union relation " + field.Name
					}
					continue
				}
			}
			return resolvedKey{field: field, kind: e.kind, relation: e.relation}, "", true
		}
	}
	return resolvedKey{}, reason, false
}

// aggregationSuffix is one <METHOD>_<OP> ending of an aggregation key.
type aggregationSuffix struct {
	suffix string
	method AggregationMethod
	op     AggregationOp
}

var aggregationSuffixes = buildAggregationSuffixes()

func buildAggregationSuffixes() []aggregationSuffix {
	var out []aggregationSuffix
	for _, m := range AggregationMethods {
		for _, op := range AggregationOperators {
			out = append(out, aggregationSuffix{suffix: "_" + string(m) + "_" + string(op), method: m, op: op})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].suffix) > len(out[j].suffix)
	})
	return out
}

// resolveAggregationKey splits key into <field>_<METHOD>_<OP> against the
// scalar fields of entity.
func resolveAggregationKey(entity schema.Entity, key string) (*AggregationLeaf, string, bool) {
	reason := ""
	for _, s := range aggregationSuffixes {
		if !strings.HasSuffix(key, s.suffix) {
			continue
		}
		name := strings.TrimSuffix(key, s.suffix)
		f, ok := schema.ResolveField(entity, name)
		if !ok {
			continue
		}
		field, ok := f.(*schema.ScalarField)
		if !ok || field.List {
			continue
		}
		if !s.method.Allowed(field.Type) || !s.op.AllowedFor(field.Type) {
			if reason == "" {
				reason = string(s.method) + " " + string(s.op) + " is not available on " + string(field.Type) + " field " + field.Name
			}
			continue
		}
		return &AggregationLeaf{Key: key, Field: field, Method: s.method, Op: s.op}, "", true
	}
	return nil, reason, false
}

// fieldPosition returns the declaration index of the named field, or
// len(fields) when it is not declared.
func fieldPosition(entity schema.Entity, name string) int {
	var fields []schema.Field
	switch e := entity.(type) {
	case *schema.Node:
		fields = e.Fields
	case *schema.Interface:
		fields = e.Fields
	case *schema.Properties:
		fields = e.Fields
	case *schema.Union:
	}
	for i, f := range fields {
		if f.FieldName() == name {
			return i
		}
	}
	return len(fields)
}
