package rules

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Evaluator decides whether conditions hold for a given context. A condition
// that cannot be evaluated (type mismatch, bad pattern, non-iterable operand)
// counts as failed; evaluation errors never propagate to the caller.
type Evaluator struct{}

// NewEvaluator creates a condition evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// EvaluateAll reports whether every condition holds, short-circuiting on the
// first failure. An empty condition list is vacuously true.
func (e *Evaluator) EvaluateAll(conditions []Condition, ctx Context) bool {
	for _, cond := range conditions {
		if !e.Evaluate(cond, ctx) {
			return false
		}
	}
	return true
}

// Evaluate tests a single condition against the context. A field missing from
// the context satisfies only the not_exists operator.
func (e *Evaluator) Evaluate(cond Condition, ctx Context) bool {
	fieldValue, present := ctx[cond.Field]
	if !present {
		return cond.Operator == OpNotExists
	}

	result, err := e.apply(cond.Operator, fieldValue, cond.Value)
	if err != nil {
		log.Error().
			Err(err).
			Str("field", cond.Field).
			Str("operator", string(cond.Operator)).
			Msg("condition evaluation failed")
		return false
	}
	return result
}

func (e *Evaluator) apply(op Operator, fieldValue, condValue any) (bool, error) {
	switch op {
	case OpEquals:
		return looseEqual(fieldValue, condValue), nil
	case OpNotEquals:
		return !looseEqual(fieldValue, condValue), nil
	case OpGreaterThan:
		c, err := compareOrdered(fieldValue, condValue)
		return c > 0, err
	case OpLessThan:
		c, err := compareOrdered(fieldValue, condValue)
		return c < 0, err
	case OpGreaterEqual:
		c, err := compareOrdered(fieldValue, condValue)
		return c >= 0, err
	case OpLessEqual:
		c, err := compareOrdered(fieldValue, condValue)
		return c <= 0, err
	case OpContains:
		return contains(fieldValue, condValue)
	case OpNotContains:
		ok, err := contains(fieldValue, condValue)
		return !ok, err
	case OpIn:
		return member(condValue, fieldValue)
	case OpNotIn:
		ok, err := member(condValue, fieldValue)
		return !ok, err
	case OpRegex:
		re, err := regexp.Compile(fmt.Sprint(condValue))
		if err != nil {
			return false, fmt.Errorf("invalid pattern: %w", err)
		}
		return re.MatchString(fmt.Sprint(fieldValue)), nil
	case OpExists:
		// Field presence was already established by the caller.
		return true, nil
	case OpNotExists:
		return false, nil
	default:
		log.Warn().Str("operator", string(op)).Msg("unknown operator")
		return false, nil
	}
}

// looseEqual compares two values structurally, treating all numeric types as
// equivalent so a rule authored with an int matches a JSON-decoded float64.
func looseEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// compareOrdered returns -1, 0 or 1 for operands that support ordering:
// numbers, strings, and RFC 3339 timestamps. Mixing incompatible types is an
// evaluation error, not a panic.
func compareOrdered(a, b any) (int, error) {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		if !bok {
			return 0, fmt.Errorf("cannot compare number with %T", b)
		}
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}

	as, aok := a.(string)
	bs, bok := b.(string)
	if !aok || !bok {
		return 0, fmt.Errorf("cannot order %T against %T", a, b)
	}

	// Timestamps arrive as RFC 3339 strings in JSON contexts; compare them as
	// instants so differing zone offsets order correctly.
	if at, err := time.Parse(time.RFC3339, as); err == nil {
		if bt, err := time.Parse(time.RFC3339, bs); err == nil {
			return at.Compare(bt), nil
		}
	}

	return strings.Compare(as, bs), nil
}

// contains reports whether needle occurs inside haystack, where haystack is a
// string (substring test), a sequence (element test) or a mapping (key test).
func contains(haystack, needle any) (bool, error) {
	switch h := haystack.(type) {
	case string:
		return strings.Contains(h, fmt.Sprint(needle)), nil
	case []any:
		for _, item := range h {
			if looseEqual(item, needle) {
				return true, nil
			}
		}
		return false, nil
	case []string:
		for _, item := range h {
			if item == fmt.Sprint(needle) {
				return true, nil
			}
		}
		return false, nil
	case map[string]any:
		_, ok := h[fmt.Sprint(needle)]
		return ok, nil
	default:
		return false, fmt.Errorf("%T does not support membership tests", haystack)
	}
}

// member reports whether value occurs inside collection (the in/not_in
// operators, which flip the operands of contains).
func member(collection, value any) (bool, error) {
	return contains(collection, value)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
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
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
