package predicate

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"
)

// Evaluate applies op to an actual property value and an expected filter
// value in memory, without a store. It follows the store's null rules: a
// comparison involving null is not true, so every operator other than
// EQUAL and NOT_EQUAL with a null expected value returns false when either
// side is null. The negated string and membership operators are no
// exception: NOT_CONTAINS on a null property is false, not true.
//
// Numbers compare by value across Go numeric types; strings, booleans and
// time.Time values compare within their own type. Comparing values of
// unrelated types is an error.
func Evaluate(op ScalarOp, actual, expected any) (bool, error) {
	switch op {
	case OpEqual:
		if expected == nil {
			return actual == nil, nil
		}
		if actual == nil {
			return false, nil
		}
		return valuesEqual(actual, expected), nil
	case OpNotEqual:
		if expected == nil {
			return actual != nil, nil
		}
		if actual == nil {
			return false, nil
		}
		return !valuesEqual(actual, expected), nil
	}

	if actual == nil || expected == nil {
		return false, nil
	}

	switch op {
	case OpLT, OpLTE, OpGT, OpGTE:
		c, err := compareValues(actual, expected)
		if err != nil {
			return false, err
		}
		switch op {
		case OpLT:
			return c < 0, nil
		case OpLTE:
			return c <= 0, nil
		case OpGT:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case OpContains, OpNotContains, OpStartsWith, OpNotStartsWith, OpEndsWith, OpNotEndsWith, OpMatches:
		a, aok := actual.(string)
		e, eok := expected.(string)
		if !aok || !eok {
			return false, fmt.Errorf("%s requires strings, got %T and %T", op, actual, expected)
		}
		return evaluateString(op, a, e)
	case OpIn, OpNotIn:
		list, ok := expected.([]any)
		if !ok {
			return false, fmt.Errorf("%s requires a list, got %T", op, expected)
		}
		found := containsValue(list, actual)
		if op == OpIn {
			return found, nil
		}
		return !found, nil
	case OpIncludes, OpNotIncludes:
		list, ok := actual.([]any)
		if !ok {
			return false, fmt.Errorf("%s requires a list property, got %T", op, actual)
		}
		found := containsValue(list, expected)
		if op == OpIncludes {
			return found, nil
		}
		return !found, nil
	case OpDistance:
		return false, fmt.Errorf("%s cannot be evaluated in memory", op)
	}
	return false, fmt.Errorf("unknown operator %d", int(op))
}

func evaluateString(op ScalarOp, actual, expected string) (bool, error) {
	switch op {
	case OpContains:
		return strings.Contains(actual, expected), nil
	case OpNotContains:
		return !strings.Contains(actual, expected), nil
	case OpStartsWith:
		return strings.HasPrefix(actual, expected), nil
	case OpNotStartsWith:
		return !strings.HasPrefix(actual, expected), nil
	case OpEndsWith:
		return strings.HasSuffix(actual, expected), nil
	case OpNotEndsWith:
		return !strings.HasSuffix(actual, expected), nil
	case OpMatches:
		// =~ matches the whole string.
		re, err := regexp.Compile("^(?:" + expected + ")$")
		if err != nil {
			return false, fmt.Errorf("invalid pattern %q: %w", expected, err)
		}
		return re.MatchString(actual), nil
	}
	return false, fmt.Errorf("%s is not a string operator", op)
}

func containsValue(list []any, v any) bool {
	for _, item := range list {
		if item != nil && valuesEqual(item, v) {
			return true
		}
	}
	return false
}

func valuesEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
		return false
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Equal(bt)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func compareValues(a, b any) (int, error) {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1, nil
			case af > bf:
				return 1, nil
			}
			return 0, nil
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs), nil
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt), nil
		}
	}
	if ad, ok := a.(time.Duration); ok {
		if bd, ok := b.(time.Duration); ok {
			switch {
			case ad < bd:
				return -1, nil
			case ad > bd:
				return 1, nil
			}
			return 0, nil
		}
	}
	return 0, fmt.Errorf("cannot order %T against %T", a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
