package predicate

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/roach88/cyfilter/internal/schema"
)

// DefaultMaxDepth bounds the nesting of filter objects.
const DefaultMaxDepth = 32

// Builder turns raw filter input into a Tree, resolving every key against
// the schema facts once. A Builder is immutable and safe for concurrent use.
type Builder struct {
	features Features
	maxDepth int
}

// Option configures a Builder.
type Option func(*Builder)

// WithFeatures sets the optional operator toggles.
func WithFeatures(f Features) Option {
	return func(b *Builder) { b.features = f }
}

// WithMaxDepth sets the nesting limit. Values below 1 keep the default.
func WithMaxDepth(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxDepth = n
		}
	}
}

// NewBuilder returns a builder with every optional operator enabled and
// DefaultMaxDepth.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{features: DefaultFeatures(), maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Features returns the operator toggles the builder resolves keys with.
func (b *Builder) Features() Features { return b.features }

// MaxDepth returns the nesting limit.
func (b *Builder) MaxDepth() int { return b.maxDepth }

// Build resolves raw against entity and returns the filter as an AND
// Group. A nil or empty map yields an empty Group.
//
// Errors:
//   - UnknownFieldError: a key names no field/operator on its entity
//   - UnsupportedCombinatorError: AND/OR is not a list of objects
//   - InvalidValueError: a resolved key carries a value of the wrong shape
//   - TooDeepError: nesting exceeds the configured limit
func (b *Builder) Build(entity schema.Entity, raw map[string]any) (*Group, error) {
	return b.buildObject(entity, raw, "", 1)
}

// entry is one resolved key of a filter object, ordered for output.
type entry struct {
	position int
	key      string
	tree     Tree
}

func (b *Builder) checkDepth(depth int, path string) error {
	if depth > b.maxDepth {
		if path == "" {
			path = "<root>"
		}
		return &TooDeepError{Limit: b.maxDepth, Path: path}
	}
	return nil
}

func (b *Builder) buildObject(entity schema.Entity, raw map[string]any, path string, depth int) (*Group, error) {
	if err := b.checkDepth(depth, path); err != nil {
		return nil, err
	}
	g := &Group{Combinator: And}

	var leaves []entry
	var lists []entry
	for key, value := range raw {
		keyPath := joinPath(path, key)
		switch key {
		case KeyAnd, KeyOr:
			list, err := b.buildList(entity, key, value, keyPath, depth)
			if err != nil {
				return nil, err
			}
			lists = append(lists, entry{key: key, tree: list})
			continue
		case KeyOn:
			iface, ok := entity.(*schema.Interface)
			if !ok {
				return nil, &UnknownFieldError{Entity: entity.EntityName(), Key: key, Path: keyPath,
					Reason: "implementation overrides are only valid on interfaces"}
			}
			overrides, err := b.buildOverrides(iface, value, keyPath, depth)
			if err != nil {
				return nil, err
			}
			g.Overrides = overrides
			continue
		}

		rk, reason, ok := resolveKey(entity, key, b.features)
		if !ok {
			return nil, &UnknownFieldError{Entity: entity.EntityName(), Key: key, Path: keyPath, Reason: reason}
		}
		leaf, err := b.buildLeaf(rk, key, value, keyPath, depth)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, entry{position: fieldPosition(entity, rk.field.FieldName()), key: key, tree: leaf})
	}

	// Map iteration order is random: leaves follow field declaration order,
	// then the AND list, then the OR list.
	sort.Slice(leaves, func(i, j int) bool {
		if leaves[i].position != leaves[j].position {
			return leaves[i].position < leaves[j].position
		}
		return leaves[i].key < leaves[j].key
	})
	sort.Slice(lists, func(i, j int) bool { return lists[i].key < lists[j].key })
	for _, e := range leaves {
		g.Children = append(g.Children, e.tree)
	}
	for _, e := range lists {
		g.Children = append(g.Children, e.tree)
	}
	return g, nil
}

func (b *Builder) buildList(entity schema.Entity, key string, value any, path string, depth int) (*Group, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, &UnsupportedCombinatorError{Key: key, Path: path, Reason: fmt.Sprintf("expected a list of objects, got %s", describe(value))}
	}
	g := &Group{Combinator: Combinator(key), Key: key}
	for i, item := range items {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &UnsupportedCombinatorError{Key: key, Path: itemPath, Reason: fmt.Sprintf("expected an object, got %s", describe(item))}
		}
		child, err := b.buildObject(entity, obj, itemPath, depth+1)
		if err != nil {
			return nil, err
		}
		g.Children = append(g.Children, child)
	}
	return g, nil
}

func (b *Builder) buildOverrides(iface *schema.Interface, value any, path string, depth int) ([]Override, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, &InvalidValueError{Key: KeyOn, Path: path, Reason: "expected an object keyed by implementation"}
	}
	var out []Override
	for _, impl := range iface.Implementations {
		raw, present := obj[impl.Name]
		if !present {
			continue
		}
		implPath := joinPath(path, impl.Name)
		implObj, ok := raw.(map[string]any)
		if !ok {
			return nil, &InvalidValueError{Key: impl.Name, Path: implPath, Reason: "expected an object"}
		}
		tree, err := b.buildObject(impl, implObj, implPath, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, Override{Implementation: impl, Tree: tree})
	}
	if len(out) != len(obj) {
		for name := range obj {
			if !implements(iface, name) {
				return nil, &UnknownFieldError{Entity: iface.Name, Key: name, Path: joinPath(path, name),
					Reason: "not an implementation of " + iface.Name}
			}
		}
	}
	return out, nil
}

func (b *Builder) buildLeaf(rk resolvedKey, key string, value any, path string, depth int) (Tree, error) {
	switch rk.kind {
	case KindScalar:
		return b.buildScalar(rk.field.(*schema.ScalarField), rk.scalar, key, value, path)
	case KindRelation:
		return b.buildRelation(rk.field.(*schema.RelationField), rk.relation, key, value, path, depth)
	case KindConnection:
		return b.buildConnection(rk.field.(*schema.RelationField), rk.relation, key, value, path, depth)
	case KindAggregate:
		return b.buildAggregate(rk.field.(*schema.RelationField), key, value, path, depth+1)
	}
	return nil, &UnknownFieldError{Key: key, Path: path}
}

func (b *Builder) buildScalar(f *schema.ScalarField, op ScalarOp, key string, value any, path string) (Tree, error) {
	if value == nil {
		if !op.AllowsNull() {
			return nil, &InvalidValueError{Key: key, Path: path, Reason: "null is only allowed for equality"}
		}
		return &ScalarLeaf{Key: key, Field: f, Op: op}, nil
	}
	switch op {
	case OpIn, OpNotIn:
		if _, ok := value.([]any); !ok {
			return nil, &InvalidValueError{Key: key, Path: path, Reason: "expected a list, got " + describe(value)}
		}
	case OpLT, OpLTE, OpGT, OpGTE, OpDistance:
		if f.Type.IsSpatial() {
			obj, ok := value.(map[string]any)
			_, hasPoint := obj["point"]
			_, hasDistance := obj["distance"]
			if !ok || !hasPoint || !hasDistance {
				return nil, &InvalidValueError{Key: key, Path: path, Reason: "expected {point, distance}"}
			}
		}
	}
	return &ScalarLeaf{Key: key, Field: f, Op: op, Value: value}, nil
}

func (b *Builder) buildRelation(f *schema.RelationField, op RelationOp, key string, value any, path string, depth int) (Tree, error) {
	leaf := &RelationLeaf{Key: key, Field: f, Op: op}
	if value == nil {
		if op != RelEqual && op != RelNotEqual {
			return nil, &InvalidValueError{Key: key, Path: path, Reason: "null is only allowed for existence checks"}
		}
		return leaf, nil
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, &InvalidValueError{Key: key, Path: path, Reason: "expected an object, got " + describe(value)}
	}
	switch target := f.Target.(type) {
	case *schema.Node, *schema.Interface:
		nested, err := b.buildObject(target, obj, path, depth+1)
		if err != nil {
			return nil, err
		}
		leaf.Nested = nested
	case *schema.Union:
		members, err := b.buildMembers(target, obj, path, depth+1)
		if err != nil {
			return nil, err
		}
		leaf.Members = members
	case *schema.Properties:
		return nil, &InvalidValueError{Key: key, Path: path, Reason: "relation targets a relationship-properties entity"}
	}
	return leaf, nil
}

// buildMembers builds a member-keyed map of filters for a union target.
// Members are returned in union declaration order.
func (b *Builder) buildMembers(u *schema.Union, obj map[string]any, path string, depth int) ([]MemberFilter, error) {
	if err := b.checkDepth(depth, path); err != nil {
		return nil, err
	}
	for name := range obj {
		if _, ok := u.Member(name); !ok {
			return nil, &UnknownFieldError{Entity: u.Name, Key: name, Path: joinPath(path, name),
				Reason: "not a member of " + u.Name}
		}
	}
	var out []MemberFilter
	for _, m := range u.Members {
		raw, present := obj[m.Name]
		if !present {
			continue
		}
		mf := MemberFilter{Member: m}
		if raw != nil {
			memberObj, ok := raw.(map[string]any)
			if !ok {
				return nil, &InvalidValueError{Key: m.Name, Path: joinPath(path, m.Name), Reason: "expected an object"}
			}
			tree, err := b.buildObject(m, memberObj, joinPath(path, m.Name), depth+1)
			if err != nil {
				return nil, err
			}
			mf.Tree = tree
		}
		out = append(out, mf)
	}
	return out, nil
}

func (b *Builder) buildConnection(f *schema.RelationField, op RelationOp, key string, value any, path string, depth int) (Tree, error) {
	leaf := &ConnectionLeaf{Key: key, Field: f, Op: op, Where: &ConnectionWhere{}}
	if value == nil {
		return leaf, nil
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, &InvalidValueError{Key: key, Path: path, Reason: "expected an object, got " + describe(value)}
	}
	where, err := b.buildConnectionWhere(f, obj, path, depth+1)
	if err != nil {
		return nil, err
	}
	leaf.Where = where
	return leaf, nil
}

func (b *Builder) buildConnectionWhere(f *schema.RelationField, obj map[string]any, path string, depth int) (*ConnectionWhere, error) {
	if err := b.checkDepth(depth, path); err != nil {
		return nil, err
	}
	where := &ConnectionWhere{}
	if _, hasNode := obj[KeyNode]; hasNode {
		if _, hasNot := obj[KeyNodeNot]; hasNot {
			return nil, &InvalidValueError{Key: KeyNodeNot, Path: path, Reason: "node and node_NOT are mutually exclusive"}
		}
	}
	if _, hasEdge := obj[KeyEdge]; hasEdge {
		if _, hasNot := obj[KeyEdgeNot]; hasNot {
			return nil, &InvalidValueError{Key: KeyEdgeNot, Path: path, Reason: "edge and edge_NOT are mutually exclusive"}
		}
	}

	for _, key := range sortedKeys(obj) {
		value := obj[key]
		keyPath := joinPath(path, key)
		switch key {
		case KeyNode, KeyNodeNot:
			nodeObj, ok := value.(map[string]any)
			if !ok {
				return nil, &InvalidValueError{Key: key, Path: keyPath, Reason: "expected an object, got " + describe(value)}
			}
			where.NodeNot = key == KeyNodeNot
			switch target := f.Target.(type) {
			case *schema.Node, *schema.Interface:
				nested, err := b.buildObject(target, nodeObj, keyPath, depth+1)
				if err != nil {
					return nil, err
				}
				where.Node = nested
			case *schema.Union:
				members, err := b.buildMembers(target, nodeObj, keyPath, depth+1)
				if err != nil {
					return nil, err
				}
				where.Members = members
			case *schema.Properties:
				return nil, &InvalidValueError{Key: key, Path: keyPath, Reason: "relation targets a relationship-properties entity"}
			}
		case KeyEdge, KeyEdgeNot:
			if f.Properties == nil {
				return nil, &UnknownFieldError{Entity: f.Name + ConnectionSuffix, Key: key, Path: keyPath,
					Reason: "relationship " + f.Type + " has no properties"}
			}
			edgeObj, ok := value.(map[string]any)
			if !ok {
				return nil, &InvalidValueError{Key: key, Path: keyPath, Reason: "expected an object, got " + describe(value)}
			}
			edge, err := b.buildObject(f.Properties, edgeObj, keyPath, depth+1)
			if err != nil {
				return nil, err
			}
			where.Edge = edge
			where.EdgeNot = key == KeyEdgeNot
		case KeyAnd, KeyOr:
			items, ok := value.([]any)
			if !ok {
				return nil, &UnsupportedCombinatorError{Key: key, Path: keyPath, Reason: "expected a list of objects, got " + describe(value)}
			}
			for i, item := range items {
				itemPath := fmt.Sprintf("%s[%d]", keyPath, i)
				itemObj, ok := item.(map[string]any)
				if !ok {
					return nil, &UnsupportedCombinatorError{Key: key, Path: itemPath, Reason: "expected an object, got " + describe(item)}
				}
				child, err := b.buildConnectionWhere(f, itemObj, itemPath, depth+1)
				if err != nil {
					return nil, err
				}
				if key == KeyAnd {
					where.And = append(where.And, child)
				} else {
					where.Or = append(where.Or, child)
				}
			}
		default:
			return nil, &UnknownFieldError{Entity: f.Name + ConnectionSuffix, Key: key, Path: keyPath}
		}
	}
	return where, nil
}

func (b *Builder) buildAggregate(f *schema.RelationField, key string, value any, path string, depth int) (*AggregateLeaf, error) {
	if err := b.checkDepth(depth, path); err != nil {
		return nil, err
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, &InvalidValueError{Key: key, Path: path, Reason: "expected an object, got " + describe(value)}
	}
	leaf := &AggregateLeaf{Key: key, Field: f}
	for _, k := range sortedKeys(obj) {
		v := obj[k]
		keyPath := joinPath(path, k)
		if op, isCount := countOpForKey(k); isCount {
			n, ok := numberValue(v)
			if !ok {
				return nil, &InvalidValueError{Key: k, Path: keyPath, Reason: "expected a number, got " + describe(v)}
			}
			leaf.Count = append(leaf.Count, CountPredicate{Key: k, Op: op, Value: n})
			continue
		}
		switch k {
		case KeyNode:
			tree, err := b.buildAggregationWhere(f.Target, k, v, keyPath, depth+1)
			if err != nil {
				return nil, err
			}
			leaf.Node = tree
		case KeyEdge:
			if f.Properties == nil {
				return nil, &UnknownFieldError{Entity: f.Name + AggregateSuffix, Key: k, Path: keyPath,
					Reason: "relationship " + f.Type + " has no properties"}
			}
			tree, err := b.buildAggregationWhere(f.Properties, k, v, keyPath, depth+1)
			if err != nil {
				return nil, err
			}
			leaf.Edge = tree
		case KeyAnd, KeyOr:
			items, ok := v.([]any)
			if !ok {
				return nil, &UnsupportedCombinatorError{Key: k, Path: keyPath, Reason: "expected a list of objects, got " + describe(v)}
			}
			for i, item := range items {
				itemPath := fmt.Sprintf("%s[%d]", keyPath, i)
				if _, ok := item.(map[string]any); !ok {
					return nil, &UnsupportedCombinatorError{Key: k, Path: itemPath, Reason: "expected an object, got " + describe(item)}
				}
				child, err := b.buildAggregate(f, k, item, itemPath, depth+1)
				if err != nil {
					return nil, err
				}
				if k == KeyAnd {
					leaf.And = append(leaf.And, child)
				} else {
					leaf.Or = append(leaf.Or, child)
				}
			}
		default:
			return nil, &UnknownFieldError{Entity: f.Name + AggregateSuffix, Key: k, Path: keyPath}
		}
	}
	return leaf, nil
}

func (b *Builder) buildAggregationWhere(entity schema.Entity, key string, value any, path string, depth int) (*AggregationGroup, error) {
	if err := b.checkDepth(depth, path); err != nil {
		return nil, err
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, &InvalidValueError{Key: key, Path: path, Reason: "expected an object, got " + describe(value)}
	}
	g := &AggregationGroup{Combinator: And}
	var lists []AggregationTree
	for _, k := range sortedKeys(obj) {
		v := obj[k]
		keyPath := joinPath(path, k)
		switch k {
		case KeyAnd, KeyOr:
			items, ok := v.([]any)
			if !ok {
				return nil, &UnsupportedCombinatorError{Key: k, Path: keyPath, Reason: "expected a list of objects, got " + describe(v)}
			}
			list := &AggregationGroup{Combinator: Combinator(k), Key: k}
			for i, item := range items {
				child, err := b.buildAggregationWhere(entity, k, item, fmt.Sprintf("%s[%d]", keyPath, i), depth+1)
				if err != nil {
					return nil, err
				}
				list.Children = append(list.Children, child)
			}
			lists = append(lists, list)
		default:
			leaf, reason, ok := resolveAggregationKey(entity, k)
			if !ok {
				return nil, &UnknownFieldError{Entity: entity.EntityName(), Key: k, Path: keyPath, Reason: reason}
			}
			if v == nil {
				return nil, &InvalidValueError{Key: k, Path: keyPath, Reason: "aggregations cannot be compared with null"}
			}
			leaf.Value = v
			g.Children = append(g.Children, leaf)
		}
	}
	g.Children = append(g.Children, lists...)
	return g, nil
}

func implements(iface *schema.Interface, name string) bool {
	for _, impl := range iface.Implementations {
		if impl.Name == name {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func isNumber(v any) bool {
	_, ok := numberValue(v)
	return ok
}

// numberValue normalizes the numeric kinds decoders produce. Fixed-width
// integers widen to int64 and json.Number becomes int64 or float64, so a
// bound count never depends on how the input was decoded.
func numberValue(v any) (any, bool) {
	switch n := v.(type) {
	case int, int64, float64:
		return n, true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		return n, true
	case uint64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return f, true
		}
	}
	return nil, false
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "list"
	case string:
		return "string"
	case bool:
		return "boolean"
	}
	if isNumber(v) {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
