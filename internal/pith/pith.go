// Package pith defines the runtime value universe that generated checkers
// operate on. A "pith" is whatever value is currently being checked against
// a hint: nil, bool, int64, float64, string, List, Tuple, Dict, or Set,
// plus arbitrary foreign Go values matched by registered class predicates.
package pith

import (
	"fmt"
	"sort"
	"strings"
)

// Tuple is a fixed-length, positionally-typed sequence. Distinct from []any
// (a list) so that fixed-tuple hints can reject lists of the right length.
type Tuple []any

// Set is an unordered collection of comparable values.
type Set map[any]struct{}

// NewSet builds a Set from its arguments. Non-comparable arguments panic,
// matching the host language's own constraint on set members.
func NewSet(items ...any) Set {
	s := make(Set, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Len returns the length of any sized pith, or -1 if the value has no
// meaningful length.
func Len(v any) int {
	switch x := v.(type) {
	case string:
		return len(x)
	case []any:
		return len(x)
	case Tuple:
		return len(x)
	case map[string]any:
		return len(x)
	case map[any]any:
		return len(x)
	case Set:
		return len(x)
	}
	return -1
}

// Index returns the i'th element of a sequence pith. The caller guarantees
// the pith is a sequence and i is in range; generated code only indexes
// after an isinstance and length check.
func Index(v any, i int) any {
	switch x := v.(type) {
	case []any:
		return x[i]
	case Tuple:
		return x[i]
	case string:
		return string(x[i])
	}
	return nil
}

// Lookup returns the value stored under key in a dict pith. The second
// result is false when the pith is not a dict or the key is absent.
// Generated code only looks up keys previously sampled from the same dict.
func Lookup(v, key any) (any, bool) {
	switch x := v.(type) {
	case map[string]any:
		s, ok := key.(string)
		if !ok {
			return nil, false
		}
		item, ok := x[s]
		return item, ok
	case map[any]any:
		item, ok := x[key]
		return item, ok
	}
	return nil, false
}

// First returns an arbitrary element of a reiterable pith (set or the keys
// of a dict). Returns nil, false for empty or non-reiterable piths.
func First(v any) (any, bool) {
	switch x := v.(type) {
	case Set:
		for item := range x {
			return item, true
		}
	case []any:
		if len(x) > 0 {
			return x[0], true
		}
	case Tuple:
		if len(x) > 0 {
			return x[0], true
		}
	}
	return nil, false
}

// FirstKey returns one arbitrary key of a dict pith.
func FirstKey(v any) (any, bool) {
	switch x := v.(type) {
	case map[string]any:
		for k := range x {
			return k, true
		}
	case map[any]any:
		for k := range x {
			return k, true
		}
	}
	return nil, false
}

// FirstValue returns one arbitrary value of a dict pith.
func FirstValue(v any) (any, bool) {
	switch x := v.(type) {
	case map[string]any:
		for _, item := range x {
			return item, true
		}
	case map[any]any:
		for _, item := range x {
			return item, true
		}
	}
	return nil, false
}

// Equal reports deep structural equality over the literal subset of the
// pith universe (nil, bool, int64, float64, string, lists, tuples, dicts).
// Ints and floats never compare equal across types.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case int64:
		y, ok := b.(int64)
		return ok && x == y
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case []any:
		y, ok := b.([]any)
		return ok && equalSeq(x, y)
	case Tuple:
		y, ok := b.(Tuple)
		return ok && equalSeq(x, y)
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, av := range x {
			bv, found := y[k]
			if !found || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func equalSeq(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Repr renders a pith for diagnostics and violation messages. Dict keys are
// sorted so the output is stable.
func Repr(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		return fmt.Sprintf("%q", x)
	case []any:
		return "[" + reprSeq(x) + "]"
	case Tuple:
		if len(x) == 1 {
			return "(" + Repr(x[0]) + ",)"
		}
		return "(" + reprSeq(x) + ")"
	case Set:
		items := make([]string, 0, len(x))
		for item := range x {
			items = append(items, Repr(item))
		}
		sort.Strings(items)
		return "{" + strings.Join(items, ", ") + "}"
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%q: %s", k, Repr(x[k])))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func reprSeq(items []any) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = Repr(item)
	}
	return strings.Join(parts, ", ")
}
