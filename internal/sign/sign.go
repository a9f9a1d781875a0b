// Package sign classifies hints into their syntactic categories. Every hint
// family maps to exactly one sign; the reducer and generator dispatch on the
// sign rather than on the hint's concrete type, keeping the hint model the
// only place that knows all families.
package sign

import (
	"hintcheck/internal/hint"
)

// Sign is a stable discriminant for a hint's syntactic shape.
type Sign int

const (
	// None denotes a plain isinstance-able class with no subscription.
	None Sign = iota
	Union
	Container
	TupleFixed
	Mapping
	Literal
	Annotated
	Subclass
	Generic
	SubscriptedGeneric
	TypeVar
	NewType
	Alias
	Ref
	Optional
	NoneType
	Self
	// Invalid denotes a value that is not a recognized hint at all.
	Invalid
)

var signNames = map[Sign]string{
	None:               "class",
	Union:              "union",
	Container:          "container",
	TupleFixed:         "fixed tuple",
	Mapping:            "mapping",
	Literal:            "literal",
	Annotated:          "annotated",
	Subclass:           "subclass",
	Generic:            "generic",
	SubscriptedGeneric: "subscripted generic",
	TypeVar:            "typevar",
	NewType:            "newtype",
	Alias:              "alias",
	Ref:                "forward reference",
	Optional:           "optional",
	NoneType:           "none",
	Self:               "self",
	Invalid:            "invalid",
}

func (s Sign) String() string { return signNames[s] }

// Of returns the sign of a hint. The hint families form a closed variant
// set, so an unrecognized dynamic type is Invalid rather than a panic.
func Of(h hint.Hint) Sign {
	switch h.(type) {
	case *hint.Class:
		return None
	case *hint.Union:
		return Union
	case *hint.Container:
		return Container
	case *hint.FixedTuple:
		return TupleFixed
	case *hint.MapOf:
		return Mapping
	case *hint.Lit:
		return Literal
	case *hint.Annotated:
		return Annotated
	case *hint.SubclassOf:
		return Subclass
	case *hint.Generic:
		return Generic
	case *hint.Subscripted:
		return SubscriptedGeneric
	case *hint.TypeVar:
		return TypeVar
	case *hint.NewTypeOf:
		return NewType
	case *hint.Alias:
		return Alias
	case *hint.Ref:
		return Ref
	case *hint.Optional:
		return Optional
	}
	switch h {
	case hint.NoneHint:
		return NoneType
	case hint.SelfHint:
		return Self
	}
	return Invalid
}

// Args returns the subscripted child hints of a hint, in positional order.
// Hints without children return nil.
func Args(h hint.Hint) []hint.Hint {
	switch x := h.(type) {
	case *hint.Union:
		return x.Members
	case *hint.Container:
		return []hint.Hint{x.Elem}
	case *hint.FixedTuple:
		return x.Elems
	case *hint.MapOf:
		return []hint.Hint{x.Key, x.Val}
	case *hint.Annotated:
		return []hint.Hint{x.Base}
	case *hint.SubclassOf:
		return []hint.Hint{x.Arg}
	case *hint.Subscripted:
		return x.Args
	case *hint.Optional:
		return []hint.Hint{x.Elem}
	}
	return nil
}

// Origin returns the class used for a hint's shallow isinstance check, or
// nil when the hint has no single origin (unions, literals, refs).
func Origin(h hint.Hint) *hint.Class {
	switch x := h.(type) {
	case *hint.Class:
		return x
	case *hint.Container:
		return x.Origin
	case *hint.FixedTuple:
		return hint.Tuple
	case *hint.MapOf:
		return x.Origin
	case *hint.SubclassOf:
		return hint.Type
	case *hint.Generic:
		return x.Class
	case *hint.Subscripted:
		return x.Generic.Class
	}
	if h == hint.NoneHint {
		return hint.NoneType
	}
	return nil
}
