package hint

import (
	"hintcheck/internal/pith"
)

// Builtin classes. Instance predicates are total over the pith universe.
// Bool subclasses Int and every class subclasses Object, mirroring the host
// type system's numeric tower just far enough for subclass hints.
var (
	// Object matches every pith.
	Object = &Class{Name: "object", Instance: func(any) bool { return true }}

	// Any is ignorable: it is recognized by repr before any check is built,
	// so its Instance predicate exists only for completeness.
	Any = &Class{Name: "Any", Instance: func(any) bool { return true }}

	// NoneType matches only the null pith.
	NoneType = &Class{Name: "NoneType", Instance: func(v any) bool { return v == nil }}

	Int = &Class{Name: "int", Instance: func(v any) bool {
		switch v.(type) {
		case int64, bool:
			return true
		}
		return false
	}}

	Bool = &Class{Name: "bool", Instance: func(v any) bool {
		_, ok := v.(bool)
		return ok
	}}

	Float = &Class{Name: "float", Instance: func(v any) bool {
		_, ok := v.(float64)
		return ok
	}}

	Str = &Class{Name: "str", Sampling: SampleSequence, Instance: func(v any) bool {
		_, ok := v.(string)
		return ok
	}}

	ListClass = &Class{Name: "list", Sampling: SampleSequence, Instance: func(v any) bool {
		_, ok := v.([]any)
		return ok
	}}

	Tuple = &Class{Name: "tuple", Sampling: SampleSequence, Instance: func(v any) bool {
		_, ok := v.(pith.Tuple)
		return ok
	}}

	DictClass = &Class{Name: "dict", Sampling: SampleReiterable, Instance: isDict}

	SetClass = &Class{Name: "set", Sampling: SampleReiterable, Instance: func(v any) bool {
		_, ok := v.(pith.Set)
		return ok
	}}

	// FrozenSet shares set's runtime representation; it exists so frozenset
	// hints keep their own origin identity.
	FrozenSet = &Class{Name: "frozenset", Sampling: SampleReiterable, Instance: func(v any) bool {
		_, ok := v.(pith.Set)
		return ok
	}}

	// Type matches classes themselves (the piths of type[...] hints).
	Type = &Class{Name: "type", Instance: func(v any) bool {
		switch v.(type) {
		case *Class, *RefProxy:
			return true
		}
		return false
	}}

	// Sequence is the abstract randomly-indexable protocol.
	Sequence = &Class{Name: "Sequence", Sampling: SampleSequence, Instance: func(v any) bool {
		switch v.(type) {
		case []any, pith.Tuple, string:
			return true
		}
		return false
	}}

	// Mapping is the abstract mapping protocol.
	Mapping = &Class{Name: "Mapping", Sampling: SampleReiterable, Instance: isDict}

	// Iterable is the abstract one-shot iteration protocol: anything sized
	// counts. Its items are never sampled.
	Iterable = &Class{Name: "Iterable", Sampling: SampleUnsafe, Instance: func(v any) bool {
		return pith.Len(v) >= 0
	}}
)

func isDict(v any) bool {
	switch v.(type) {
	case map[string]any, map[any]any:
		return true
	}
	return false
}

func init() {
	Bool.Bases = []*Class{Int}
	for _, c := range builtinClasses {
		if c != Object && len(c.Bases) == 0 {
			c.Bases = []*Class{Object}
		}
	}
}

var builtinClasses = []*Class{
	Object, Any, NoneType, Int, Bool, Float, Str,
	ListClass, Tuple, DictClass, SetClass, FrozenSet, Type,
	Sequence, Mapping, Iterable,
}
