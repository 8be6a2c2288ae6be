package predicate

// Empty reports whether g carries no condition at all.
func (g *Group) Empty() bool {
	if g == nil {
		return true
	}
	if len(g.Overrides) > 0 {
		return false
	}
	for _, c := range g.Children {
		if sub, ok := c.(*Group); ok && sub.Empty() {
			continue
		}
		return false
	}
	return true
}

// HasRelations reports whether g or any nested group contains a leaf that
// traverses a relationship.
func (g *Group) HasRelations() bool {
	if g == nil {
		return false
	}
	for _, c := range g.Children {
		switch t := c.(type) {
		case *Group:
			if t.HasRelations() {
				return true
			}
		case *RelationLeaf, *ConnectionLeaf, *AggregateLeaf:
			return true
		case *ScalarLeaf:
		}
	}
	for _, o := range g.Overrides {
		if o.Tree.HasRelations() {
			return true
		}
	}
	return false
}
