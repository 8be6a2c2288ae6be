// Package naming allocates the variable and parameter names used by the
// translators. Names are derived from the position of a predicate in the
// filter input, so the same input always produces the same names.
package naming

import (
	"fmt"
	"strconv"
	"strings"
)

// Root is the conventional name of the root element of a filter.
const Root = "this"

// Scope is a hierarchical name, e.g. this -> this_friends_ALL -> this_friends_ALL_age_GT.
// Scopes are values: Extend returns a new scope and never mutates the receiver.
type Scope struct {
	parts []part
}

// part is one scope segment. List indices attach to the preceding segment
// without a separator.
type part struct {
	text  string
	index bool
}

// NewScope returns a scope rooted at name.
func NewScope(name string) Scope {
	return Scope{parts: []part{{text: name}}}
}

// Extend returns a child scope. Parts may be strings or integer list
// indices; empty strings are skipped.
func (s Scope) Extend(parts ...any) Scope {
	next := make([]part, len(s.parts), len(s.parts)+len(parts))
	copy(next, s.parts)
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			if v != "" {
				next = append(next, part{text: v})
			}
		case int:
			next = append(next, part{text: strconv.Itoa(v), index: true})
		case int64:
			next = append(next, part{text: strconv.FormatInt(v, 10), index: true})
		default:
			next = append(next, part{text: fmt.Sprint(v)})
		}
	}
	return Scope{parts: next}
}

// Name renders the scope as an identifier. Parts are joined with "_",
// except list indices, which follow their combinator directly:
// this, OR, 0, name -> this_OR0_name. Digits inside keys are left alone,
// so tag_1 and tag1 stay distinct.
func (s Scope) Name() string {
	var b strings.Builder
	for i, p := range s.parts {
		if i > 0 && !p.index {
			b.WriteByte('_')
		}
		b.WriteString(p.text)
	}
	return b.String()
}

// Depth returns the number of parts in the scope.
func (s Scope) Depth() int {
	return len(s.parts)
}

// String implements fmt.Stringer.
func (s Scope) String() string {
	return s.Name()
}
