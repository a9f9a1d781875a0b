package sane

import (
	"sort"
	"strings"

	"hintcheck/internal/hint"
)

// TypeVars is an immutable mapping from type-variable name to the concrete
// hint it currently resolves to within one lexical subtree. A nil *TypeVars
// is the empty table.
type TypeVars struct {
	m map[string]hint.Hint
}

// NewTypeVars builds a table from bindings. The map is copied.
func NewTypeVars(bindings map[string]hint.Hint) *TypeVars {
	if len(bindings) == 0 {
		return nil
	}
	m := make(map[string]hint.Hint, len(bindings))
	for k, v := range bindings {
		m[k] = v
	}
	return &TypeVars{m: m}
}

// Get resolves a type variable by name.
func (t *TypeVars) Get(name string) (hint.Hint, bool) {
	if t == nil {
		return nil, false
	}
	h, ok := t.m[name]
	return h, ok
}

// Len returns the number of bindings.
func (t *TypeVars) Len() int {
	if t == nil {
		return 0
	}
	return len(t.m)
}

// Merge composes a parent table with child bindings; the child wins on
// conflict. Either side may be nil.
func (t *TypeVars) Merge(child *TypeVars) *TypeVars {
	if child.Len() == 0 {
		return t
	}
	if t.Len() == 0 {
		return child
	}
	m := make(map[string]hint.Hint, len(t.m)+len(child.m))
	for k, v := range t.m {
		m[k] = v
	}
	for k, v := range child.m {
		m[k] = v
	}
	return &TypeVars{m: m}
}

// canonical renders the table deterministically for digests.
func (t *TypeVars) canonical() string {
	if t.Len() == 0 {
		return ""
	}
	names := make([]string, 0, len(t.m))
	for name := range t.m {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + t.m[name].String()
	}
	return strings.Join(parts, ",")
}
