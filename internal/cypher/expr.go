// Package cypher provides a small Cypher DSL for the fragments the filter
// translators produce: conditions, patterns, subqueries and staged clauses.
// It models what the translators need rather than the whole language.
package cypher

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Expr is the interface that all Cypher expression types implement.
type Expr interface {
	Cypher() string
}

// Var is a reference to a bound variable (node, relationship or alias).
type Var string

// Cypher renders the variable name.
func (v Var) Cypher() string { return Ident(string(v)) }

// Param is a bound query parameter, rendered as $name.
type Param string

// Cypher renders the parameter reference.
func (p Param) Cypher() string { return "$" + Ident(string(p)) }

// Property is a property access on a variable or map expression.
type Property struct {
	Owner Expr
	Key   string
}

// Cypher renders owner.key.
func (p Property) Cypher() string { return p.Owner.Cypher() + "." + Ident(p.Key) }

// Prop is shorthand for a property of a named variable.
func Prop(variable, key string) Property {
	return Property{Owner: Var(variable), Key: key}
}

// Lit is a literal value. Strings, numbers, booleans, nil, slices and
// string-keyed maps are supported.
type Lit struct {
	Value any
}

// Cypher renders the literal.
func (l Lit) Cypher() string { return renderLiteral(l.Value) }

// Int is shorthand for an integer literal.
func Int(i int) Lit { return Lit{Value: i} }

// Null is the null literal.
var Null = Lit{}

// True is the boolean literal true.
var True = Lit{Value: true}

// Func is a function call.
type Func struct {
	Name     string
	Args     []Expr
	Distinct bool // renders name(DISTINCT arg), aggregates only
}

// Cypher renders the call.
func (f Func) Cypher() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.Cypher()
	}
	prefix := ""
	if f.Distinct {
		prefix = "DISTINCT "
	}
	return f.Name + "(" + prefix + strings.Join(args, ", ") + ")"
}

// Call builds a function call.
func Call(name string, args ...Expr) Func {
	return Func{Name: name, Args: args}
}

// Count builds count(e).
func Count(e Expr) Func { return Call("count", e) }

// CountDistinct builds count(DISTINCT e).
func CountDistinct(e Expr) Func { return Func{Name: "count", Args: []Expr{e}, Distinct: true} }

// Coalesce builds coalesce(e, fallback).
func Coalesce(e, fallback Expr) Func { return Call("coalesce", e, fallback) }

// Size builds size(e).
func Size(e Expr) Func { return Call("size", e) }

// Plus is arithmetic (or temporal) addition.
type Plus struct {
	Left  Expr
	Right Expr
}

// Cypher renders left + right.
func (p Plus) Cypher() string { return p.Left.Cypher() + " + " + p.Right.Cypher() }

// Case is a single-branch CASE WHEN cond THEN value [ELSE other] END.
// Without Else the result is null when cond does not hold, which is what
// count() relies on.
type Case struct {
	When Expr
	Then Expr
	Else Expr
}

// Cypher renders the CASE expression.
func (c Case) Cypher() string {
	s := "CASE WHEN " + c.When.Cypher() + " THEN " + c.Then.Cypher()
	if c.Else != nil {
		s += " ELSE " + c.Else.Cypher()
	}
	return s + " END"
}

// Index is list[i].
type Index struct {
	List  Expr
	Index int
}

// Cypher renders the subscript.
func (i Index) Cypher() string { return i.List.Cypher() + "[" + strconv.Itoa(i.Index) + "]" }

// Reduce folds a list: reduce(acc = init, v IN list | expr).
type Reduce struct {
	Accumulator string
	Init        Expr
	Variable    string
	List        Expr
	Expr        Expr
}

// Cypher renders the fold.
func (r Reduce) Cypher() string {
	return "reduce(" + Ident(r.Accumulator) + " = " + r.Init.Cypher() + ", " +
		Ident(r.Variable) + " IN " + r.List.Cypher() + " | " + r.Expr.Cypher() + ")"
}

// ListComprehension renders [v IN list | mapping].
type ListComprehension struct {
	Variable string
	List     Expr
	Mapping  Expr
}

// Cypher renders the comprehension.
func (l ListComprehension) Cypher() string {
	return "[" + Ident(l.Variable) + " IN " + l.List.Cypher() + " | " + l.Mapping.Cypher() + "]"
}

// Raw is an escape hatch for expressions the DSL does not model.
type Raw string

// Cypher renders the raw text as-is.
func (r Raw) Cypher() string { return string(r) }

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Ident renders a name, quoting it with backticks when needed.
func Ident(name string) string {
	if plainIdent.MatchString(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func renderLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		escaped := strings.ReplaceAll(val, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, "'", `\'`)
		return "'" + escaped + "'"
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case []any:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = renderLiteral(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]string, len(keys))
		for i, k := range keys {
			items[i] = Ident(k) + ": " + renderLiteral(val[k])
		}
		return "{" + strings.Join(items, ", ") + "}"
	default:
		return fmt.Sprintf("%v", val)
	}
}
