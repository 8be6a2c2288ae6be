package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/cyfilter/internal/cypher"
	"github.com/roach88/cyfilter/internal/naming"
	"github.com/roach88/cyfilter/internal/predicate"
	"github.com/roach88/cyfilter/internal/schema"
	"github.com/roach88/cyfilter/internal/translate"
)

// CountColumn names the matched-element count of an aggregate read.
const CountColumn = "count"

// Selection is one aggregate column computed over the root elements a
// filter matches. The column is named <Field>_<Method>.
type Selection struct {
	Field  string
	Method predicate.AggregationMethod
}

// Column returns the result column name of s.
func (s Selection) Column() string {
	return s.Field + "_" + string(s.Method)
}

// ParseSelection parses a "field:METHOD" selection. The method is case
// insensitive.
func ParseSelection(s string) (Selection, error) {
	field, method, ok := strings.Cut(s, ":")
	if !ok || field == "" || method == "" {
		return Selection{}, fmt.Errorf("invalid aggregate selection %q: want field:METHOD", s)
	}
	m := predicate.AggregationMethod(strings.ToUpper(method))
	for _, known := range predicate.AggregationMethods {
		if m == known {
			return Selection{Field: field, Method: m}, nil
		}
	}
	return Selection{}, fmt.Errorf("invalid aggregate selection %q: unknown method %s", s, method)
}

// returning builds the RETURN clause of a compilation. Without selections
// the matched root elements are returned; with selections (even an empty
// set) one row holding the match count and every selection column.
func returning(entity schema.Entity, selections []Selection) (*cypher.Return, error) {
	if selections == nil {
		return &cypher.Return{Items: cypher.Carry(naming.Root)}, nil
	}

	items := []cypher.Projection{{Expr: cypher.Call("count", cypher.Var(naming.Root)), Alias: CountColumn}}
	for _, sel := range selections {
		f, _ := schema.ResolveField(entity, sel.Field)
		scalar, ok := f.(*schema.ScalarField)
		if !ok {
			return nil, &predicate.UnknownFieldError{
				Entity: entity.EntityName(),
				Key:    sel.Column(),
				Path:   sel.Column(),
				Reason: "aggregate selections need a scalar field",
			}
		}
		expr, err := translate.AggregateProjection(sel.Method, naming.Root, scalar)
		if err != nil {
			return nil, err
		}
		items = append(items, cypher.Projection{Expr: expr, Alias: sel.Column()})
	}
	return &cypher.Return{Items: items}, nil
}
