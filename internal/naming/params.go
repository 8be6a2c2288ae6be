package naming

import (
	"fmt"
	"reflect"
	"sort"
)

// Params is the parameter binding map produced by one compilation.
// It is not safe for concurrent use; each compilation allocates its own.
type Params struct {
	values map[string]any
}

// NewParams returns an empty binding map.
func NewParams() *Params {
	return &Params{values: make(map[string]any)}
}

// Bind registers value under the scope's name and returns the name used.
// Binding the same name twice with an equal value reuses it; a different
// value gets a numbered suffix so the two never collide.
func (p *Params) Bind(s Scope, value any) string {
	return p.BindName(s.Name(), value)
}

// BindName is Bind for an already rendered name.
func (p *Params) BindName(name string, value any) string {
	existing, ok := p.values[name]
	if !ok {
		p.values[name] = value
		return name
	}
	if reflect.DeepEqual(existing, value) {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if v, taken := p.values[candidate]; !taken {
			p.values[candidate] = value
			return candidate
		} else if reflect.DeepEqual(v, value) {
			return candidate
		}
	}
}

// Merge copies other's bindings into p. Names are unique by construction
// across one compilation, so a clash with a different value is a bug.
func (p *Params) Merge(other *Params) error {
	if other == nil {
		return nil
	}
	for k, v := range other.values {
		if existing, ok := p.values[k]; ok && !reflect.DeepEqual(existing, v) {
			return fmt.Errorf("parameter %q bound twice with different values", k)
		}
		p.values[k] = v
	}
	return nil
}

// Get returns the value bound to name.
func (p *Params) Get(name string) (any, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Len returns the number of bindings.
func (p *Params) Len() int {
	return len(p.values)
}

// Names returns the bound names in sorted order.
func (p *Params) Names() []string {
	names := make([]string, 0, len(p.values))
	for k := range p.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Map returns a copy of the bindings.
func (p *Params) Map() map[string]any {
	out := make(map[string]any, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}
