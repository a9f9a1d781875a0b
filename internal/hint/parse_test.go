package hint

import (
	"testing"

	"hintcheck/internal/errors"
)

func TestParseRoundTrip(t *testing.T) {
	reg := NewRegistry()

	// Parsed hints render back to a canonical form of the input.
	tests := []struct {
		src  string
		want string
	}{
		{"int", "int"},
		{"None", "None"},
		{"int | str", "int | str"},
		{"int|str|None", "int | str | None"},
		{"list[int]", "list[int]"},
		{"list[int | None]", "list[int | None]"},
		{"set[str]", "set[str]"},
		{"frozenset[int]", "frozenset[int]"},
		{"Sequence[int]", "Sequence[int]"},
		{"Iterable[str]", "Iterable[str]"},
		{"tuple[int, str]", "tuple[int, str]"},
		{"tuple[()]", "tuple[()]"},
		{"tuple[int, ...]", "tuple[int, ...]"},
		{"dict[str, int]", "dict[str, int]"},
		{"Mapping[str, list[int]]", "Mapping[str, list[int]]"},
		{"type[int]", "type[int]"},
		{"Optional[int]", "Optional[int]"},
		{"Union[int, str]", "int | str"},
		{`Literal[1, "a", True, None]`, `Literal[1, "a", True, None]`},
		{`"SomeClass"`, `"SomeClass"`},
		{"pkg.SomeClass", `"pkg.SomeClass"`},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			h, err := Parse(tt.src, reg)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.src, err)
			}
			if got := h.String(); got != tt.want {
				t.Errorf("Parse(%q).String() = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestParseShapes(t *testing.T) {
	reg := NewRegistry()

	h, err := Parse("list[int]", reg)
	if err != nil {
		t.Fatal(err)
	}
	c, ok := h.(*Container)
	if !ok {
		t.Fatalf("list[int] parsed to %T, want *Container", h)
	}
	if c.Origin != ListClass || c.Elem != Int {
		t.Errorf("list[int] = %v over %v", c.Origin, c.Elem)
	}

	h, err = Parse("tuple[int, ...]", reg)
	if err != nil {
		t.Fatal(err)
	}
	if vc, ok := h.(*Container); !ok || vc.Origin != Tuple {
		t.Errorf("tuple[int, ...] parsed to %T with origin %v", h, h)
	}

	h, err = Parse("bare_name", reg)
	if err != nil {
		t.Fatal(err)
	}
	ref, ok := h.(*Ref)
	if !ok {
		t.Fatalf("unknown name parsed to %T, want *Ref", h)
	}
	if !ref.Relative() {
		t.Error("unqualified ref should be relative")
	}
	qual, err := Parse("pkg.Name", reg)
	if err != nil {
		t.Fatal(err)
	}
	if qual.(*Ref).Relative() {
		t.Error("qualified ref should not be relative")
	}
}

func TestParseErrors(t *testing.T) {
	reg := NewRegistry()
	tests := []struct {
		name string
		src  string
		code errors.ErrorCode
	}{
		{"trailing garbage", "int]", errors.ParseFailed},
		{"empty", "", errors.ParseFailed},
		{"unterminated string", `"abc`, errors.ParseFailed},
		{"bad literal", "Literal[foo]", errors.ParseFailed},
		{"list arity", "list[int, str]", errors.ArityWrong},
		{"dict arity", "dict[str]", errors.ArityWrong},
		{"variadic arity", "tuple[int, str, ...]", errors.ArityWrong},
		{"unknown validator", "Annotated[int, nope]", errors.ParseFailed},
		{"unsubscriptable", "foo[int]", errors.ParseFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src, reg)
			if err == nil {
				t.Fatalf("Parse(%q) should fail", tt.src)
			}
			if got := errors.CodeOf(err); got != tt.code {
				t.Errorf("Parse(%q) code = %v, want %v", tt.src, got, tt.code)
			}
		})
	}
}

func TestParseAnnotatedValidator(t *testing.T) {
	reg := NewRegistry()
	pos := Is("positive", func(v any) bool {
		n, ok := v.(int64)
		return ok && n > 0
	})
	if err := reg.RegisterValidator(pos); err != nil {
		t.Fatal(err)
	}

	h, err := Parse("Annotated[int, positive]", reg)
	if err != nil {
		t.Fatal(err)
	}
	a, ok := h.(*Annotated)
	if !ok {
		t.Fatalf("parsed to %T, want *Annotated", h)
	}
	vs := a.Validators()
	if len(vs) != 1 || vs[0] != pos {
		t.Errorf("Validators() = %v, want the registered validator", vs)
	}
}

func TestParseSubscriptedGeneric(t *testing.T) {
	reg := NewRegistry()
	pairT := &TypeVar{Name: "T"}
	pairU := &TypeVar{Name: "U"}
	pair := &Generic{
		Class:  &Class{Name: "Pair", Instance: func(v any) bool { _, ok := v.(Tuple2); return ok }},
		Params: []*TypeVar{pairT, pairU},
	}
	if err := reg.Register("Pair", pair); err != nil {
		t.Fatal(err)
	}

	h, err := Parse("Pair[int, str]", reg)
	if err != nil {
		t.Fatal(err)
	}
	s, ok := h.(*Subscripted)
	if !ok {
		t.Fatalf("parsed to %T, want *Subscripted", h)
	}
	if s.Generic != pair || len(s.Args) != 2 {
		t.Errorf("Subscripted = %v args %v", s.Generic, s.Args)
	}

	if _, err := Parse("Pair[int]", reg); errors.CodeOf(err) != errors.ArityWrong {
		t.Errorf("Pair[int] code = %v, want ArityWrong", errors.CodeOf(err))
	}
}

// Tuple2 is a stand-in runtime representation for the Pair generic above.
type Tuple2 struct{ A, B any }
