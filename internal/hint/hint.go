// Package hint defines the type-hint object model: one immutable value type
// per hint family, a registry of named classes and aliases, validators for
// annotated metahints, and a parser for the textual hint syntax.
//
// Hints are opaque to everything downstream of classification: the reducer
// and generator only ever inspect them through the sign package's adapters.
package hint

import (
	"fmt"
	"strings"

	"hintcheck/internal/pith"
)

// Hint is a type annotation value. All implementations are immutable after
// construction and safe for concurrent use.
type Hint interface {
	// String returns the canonical textual form of the hint. Two hints with
	// equal strings are structurally equal unless either is anonymous.
	String() string
	isHint()
}

// Sampling classifies how a container's exemplar item may be obtained for
// deep-checking. The three behaviors are deliberately distinct: sequences
// support random indexing, reiterables support one cheap arbitrary access,
// and unsafe iterables must not be consumed at all.
type Sampling int

const (
	// SampleNone for classes that are not containers.
	SampleNone Sampling = iota
	// SampleSequence for randomly-indexable sequences (list, tuple, str).
	SampleSequence
	// SampleReiterable for containers that can be cheaply peeked without
	// disturbing later iteration (set, frozenset, dict).
	SampleReiterable
	// SampleUnsafe for one-shot iterables whose items must be assumed to
	// satisfy the element hint.
	SampleUnsafe
)

// Class is a named runtime type usable in shallow isinstance checks. A Class
// with an empty Name is anonymous and therefore unkeyable: it is exempt from
// override substitution, recursion guarding, and memoization.
type Class struct {
	Name     string
	Bases    []*Class
	Instance func(any) bool
	Sampling Sampling
}

func (c *Class) String() string { return c.Name }
func (c *Class) isHint()        {}

// InstanceOf reports whether v is an instance of this class.
func (c *Class) InstanceOf(v any) bool {
	if c.Instance == nil {
		return false
	}
	return c.Instance(v)
}

// IsSubclassOf reports whether c is o or transitively derives from o.
func (c *Class) IsSubclassOf(o *Class) bool {
	if c == o || o == Object {
		return true
	}
	for _, base := range c.Bases {
		if base.IsSubclassOf(o) {
			return true
		}
	}
	return false
}

// ClassTuple is a tuple of classes usable wherever a single class is: in
// isinstance pre-filters for literal hints and in issubclass checks for
// union-of-classes subclass hints. A value matches if any member matches.
type ClassTuple []*Class

// InstanceOf reports whether v is an instance of any member class.
func (t ClassTuple) InstanceOf(v any) bool {
	for _, c := range t {
		if c.InstanceOf(v) {
			return true
		}
	}
	return false
}

// Union matches a value satisfying any member hint.
type Union struct {
	Members []Hint
}

func (u *Union) String() string { return joinHints(u.Members, " | ") }
func (u *Union) isHint()        {}

// Container is a single-argument container hint: list[T], set[T],
// Sequence[T], Iterable[T], or the variadic tuple[T, ...].
type Container struct {
	Origin *Class
	Elem   Hint
}

func (c *Container) String() string {
	if c.Origin == Tuple {
		return fmt.Sprintf("tuple[%s, ...]", c.Elem)
	}
	return fmt.Sprintf("%s[%s]", c.Origin.Name, c.Elem)
}
func (c *Container) isHint() {}

// FixedTuple is a fixed-length heterogeneous tuple hint. Zero elements
// denotes the empty-tuple hint tuple[()].
type FixedTuple struct {
	Elems []Hint
}

func (t *FixedTuple) String() string {
	if len(t.Elems) == 0 {
		return "tuple[()]"
	}
	return fmt.Sprintf("tuple[%s]", joinHints(t.Elems, ", "))
}
func (t *FixedTuple) isHint() {}

// MapOf is a two-argument mapping hint: dict[K, V] or Mapping[K, V].
type MapOf struct {
	Origin *Class
	Key    Hint
	Val    Hint
}

func (m *MapOf) String() string {
	return fmt.Sprintf("%s[%s, %s]", m.Origin.Name, m.Key, m.Val)
}
func (m *MapOf) isHint() {}

// Lit matches any of a fixed set of literal values (nil, bool, int64,
// string).
type Lit struct {
	Values []any
}

func (l *Lit) String() string {
	parts := make([]string, len(l.Values))
	for i, v := range l.Values {
		parts[i] = pith.Repr(v)
	}
	return "Literal[" + strings.Join(parts, ", ") + "]"
}
func (l *Lit) isHint() {}

// Annotated attaches metadata to a base hint. Metadata entries that are
// *Validator values deepen the check; all other metadata is hintcheck-
// agnostic, and an Annotated carrying none reduces to its base.
type Annotated struct {
	Base Hint
	Meta []any
}

func (a *Annotated) String() string {
	parts := make([]string, 0, len(a.Meta)+1)
	parts = append(parts, a.Base.String())
	for _, m := range a.Meta {
		if v, ok := m.(*Validator); ok {
			parts = append(parts, v.Name)
		} else {
			parts = append(parts, fmt.Sprintf("%v", m))
		}
	}
	return "Annotated[" + strings.Join(parts, ", ") + "]"
}
func (a *Annotated) isHint() {}

// Validators returns the subset of metadata entries that are validators.
func (a *Annotated) Validators() []*Validator {
	var vs []*Validator
	for _, m := range a.Meta {
		if v, ok := m.(*Validator); ok {
			vs = append(vs, v)
		}
	}
	return vs
}

// SubclassOf is the type[X] hint: matches classes that subclass X.
type SubclassOf struct {
	Arg Hint
}

func (s *SubclassOf) String() string { return fmt.Sprintf("type[%s]", s.Arg) }
func (s *SubclassOf) isHint()        {}

// TypeVar is a type parameter. A TypeVar with no contextual binding and no
// declared bound matches anything.
type TypeVar struct {
	Name  string
	Bound Hint
}

func (t *TypeVar) String() string { return "~" + t.Name }
func (t *TypeVar) isHint()        {}

// NewTypeOf is a named distinct alias of a base hint; at runtime it imposes
// exactly the base's constraint.
type NewTypeOf struct {
	Name string
	Base Hint
}

func (n *NewTypeOf) String() string { return n.Name }
func (n *NewTypeOf) isHint()        {}

// Alias is a named type alias. Aliases may be recursive: the target may
// reference the alias itself (directly or through a Ref). Deprecated, if
// non-empty, names the preferred replacement form and triggers a warning
// diagnostic on every distinct reduction.
type Alias struct {
	Name       string
	Deprecated string

	target Hint
}

// NewAlias creates an alias with no target yet; recursive aliases call
// SetTarget after constructing the self-referential target hint.
func NewAlias(name string) *Alias { return &Alias{Name: name} }

// SetTarget fixes the alias target. May be called exactly once.
func (a *Alias) SetTarget(t Hint) *Alias {
	if a.target != nil {
		panic("hint: alias target already set: " + a.Name)
	}
	a.target = t
	return a
}

// Target returns the alias target, or nil if unset.
func (a *Alias) Target() Hint { return a.target }

func (a *Alias) String() string { return a.Name }
func (a *Alias) isHint()        {}

// Ref is a forward reference to a class or alias by name. A Ref whose name
// carries no package qualifier is relative: it can only be resolved inside
// a durable lexical scope (an enclosing-class stack).
type Ref struct {
	Name string
}

func (r *Ref) String() string { return fmt.Sprintf("%q", r.Name) }
func (r *Ref) isHint()        {}

// Relative reports whether the reference lacks a package qualifier.
func (r *Ref) Relative() bool { return !strings.Contains(r.Name, ".") }

// Basename returns the unqualified trailing name.
func (r *Ref) Basename() string {
	if i := strings.LastIndexByte(r.Name, '.'); i >= 0 {
		return r.Name[i+1:]
	}
	return r.Name
}

// Generic is an unsubscripted user generic or protocol. Bases is the
// original, pre-type-erasure pseudo-superclass list: entries may be plain
// classes, container hints over the generic's own type parameters, or other
// generics (which are transparent: they contribute only their own bases).
type Generic struct {
	Class    *Class
	Params   []*TypeVar
	Bases    []Hint
	Protocol bool
}

func (g *Generic) String() string { return g.Class.Name }
func (g *Generic) isHint()        {}

// Subscripted is a generic applied to concrete arguments, e.g. Pair[int,
// str]. It reduces to its unsubscripted generic plus typevar bindings.
type Subscripted struct {
	Generic *Generic
	Args    []Hint
}

func (s *Subscripted) String() string {
	return fmt.Sprintf("%s[%s]", s.Generic.Class.Name, joinHints(s.Args, ", "))
}
func (s *Subscripted) isHint() {}

// Optional is sugar for Union[X, None].
type Optional struct {
	Elem Hint
}

func (o *Optional) String() string { return fmt.Sprintf("Optional[%s]", o.Elem) }
func (o *Optional) isHint()        {}

// noneHint is the literal None hint, reducing to the NoneType class.
type noneHint struct{}

func (noneHint) String() string { return "None" }
func (noneHint) isHint()        {}

// NoneHint is the singleton literal null hint.
var NoneHint Hint = noneHint{}

// selfHint resolves to the innermost enclosing class during reduction.
type selfHint struct{}

func (selfHint) String() string { return "Self" }
func (selfHint) isHint()        {}

// SelfHint is the singleton self-type hint.
var SelfHint Hint = selfHint{}

func joinHints(hs []Hint, sep string) string {
	parts := make([]string, len(hs))
	for i, h := range hs {
		parts[i] = h.String()
	}
	return strings.Join(parts, sep)
}

// Convenience constructors mirroring the subscription syntax.

// List returns the hint list[elem].
func List(elem Hint) *Container { return &Container{Origin: ListClass, Elem: elem} }

// SetOf returns the hint set[elem].
func SetOf(elem Hint) *Container { return &Container{Origin: SetClass, Elem: elem} }

// FrozenSetOf returns the hint frozenset[elem].
func FrozenSetOf(elem Hint) *Container { return &Container{Origin: FrozenSet, Elem: elem} }

// SequenceOf returns the hint Sequence[elem].
func SequenceOf(elem Hint) *Container { return &Container{Origin: Sequence, Elem: elem} }

// IterableOf returns the hint Iterable[elem].
func IterableOf(elem Hint) *Container { return &Container{Origin: Iterable, Elem: elem} }

// VariadicTuple returns the hint tuple[elem, ...].
func VariadicTuple(elem Hint) *Container { return &Container{Origin: Tuple, Elem: elem} }

// TupleOf returns the fixed-length tuple hint tuple[elems...]; no arguments
// yields the empty-tuple hint.
func TupleOf(elems ...Hint) *FixedTuple { return &FixedTuple{Elems: elems} }

// Dict returns the hint dict[key, val].
func Dict(key, val Hint) *MapOf { return &MapOf{Origin: DictClass, Key: key, Val: val} }

// MappingOf returns the hint Mapping[key, val].
func MappingOf(key, val Hint) *MapOf { return &MapOf{Origin: Mapping, Key: key, Val: val} }

// UnionOf returns the union of its member hints.
func UnionOf(members ...Hint) *Union { return &Union{Members: members} }

// Literal returns a literal-set hint.
func Literal(values ...any) *Lit { return &Lit{Values: values} }

// Annotate attaches metadata to a base hint.
func Annotate(base Hint, meta ...any) *Annotated { return &Annotated{Base: base, Meta: meta} }

// TypeOf returns the subclass hint type[arg].
func TypeOf(arg Hint) *SubclassOf { return &SubclassOf{Arg: arg} }

// OptionalOf returns Optional[elem].
func OptionalOf(elem Hint) *Optional { return &Optional{Elem: elem} }

// NewType declares a distinct named alias of base.
func NewType(name string, base Hint) *NewTypeOf { return &NewTypeOf{Name: name, Base: base} }
