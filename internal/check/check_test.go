package check

import (
	"strings"
	"testing"

	"hintcheck/internal/codegen"
	"hintcheck/internal/conf"
	"hintcheck/internal/errors"
	"hintcheck/internal/hint"
	"hintcheck/internal/pith"
	"hintcheck/internal/reduce"
)

// newFactory builds a factory whose sequence sampler always picks index
// zero, so container tests are deterministic.
func newFactory() (*Factory, *hint.Registry) {
	reg := hint.NewRegistry()
	red := reduce.New(reg, nil, nil)
	gen := codegen.NewGenerator(codegen.Options{
		Registry: reg,
		Reducer:  red,
		RandInt:  func() int64 { return 0 },
	})
	return NewFactory(Options{Registry: reg, Reducer: red, Generator: gen}), reg
}

func mustChecker(t *testing.T, f *Factory, reg *hint.Registry, src string) *Checker {
	t.Helper()
	h, err := hint.Parse(src, reg)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", src, err)
	}
	c, err := f.Checker(h, nil)
	if err != nil {
		t.Fatalf("Checker(%q) error = %v", src, err)
	}
	return c
}

func assertCheck(t *testing.T, c *Checker, v any, want bool) {
	t.Helper()
	got, err := c.Check(v)
	if err != nil {
		t.Fatalf("Check(%s) error = %v", pith.Repr(v), err)
	}
	if got != want {
		t.Errorf("Check(%s) = %v, want %v", pith.Repr(v), got, want)
	}
}

func TestCheckerListInt(t *testing.T) {
	f, reg := newFactory()
	c := mustChecker(t, f, reg, "list[int]")

	assertCheck(t, c, []any{int64(1), int64(2)}, true)
	assertCheck(t, c, []any{}, true) // emptiness shortcut
	assertCheck(t, c, []any{"a", int64(1)}, false)
	assertCheck(t, c, "not a list", false)
	assertCheck(t, c, pith.Tuple{int64(1)}, false)
}

func TestCheckerDictStrInt(t *testing.T) {
	f, reg := newFactory()
	c := mustChecker(t, f, reg, "dict[str, int]")

	assertCheck(t, c, map[string]any{"a": int64(1)}, true)
	assertCheck(t, c, map[string]any{}, true)
	assertCheck(t, c, map[string]any{"a": "b"}, false)
	assertCheck(t, c, []any{}, false)
}

func TestCheckerDictSharedPair(t *testing.T) {
	f, reg := newFactory()
	c := mustChecker(t, f, reg, "dict[int, str]")

	assertCheck(t, c, map[any]any{int64(1): "a"}, true)
	assertCheck(t, c, map[any]any{}, true)
	assertCheck(t, c, map[any]any{"a": "b"}, false)
	assertCheck(t, c, map[any]any{int64(1): int64(2)}, false)
}

func TestCheckerAnnotatedValidators(t *testing.T) {
	f, _ := newFactory()
	positive := hint.Is("positive", func(v any) bool {
		n, ok := v.(int64)
		return ok && n > 0
	})

	// The wide base imposes nothing; the validator alone decides.
	h := hint.List(hint.Annotate(hint.Object, positive))
	c, err := f.Checker(h, nil)
	if err != nil {
		t.Fatal(err)
	}
	assertCheck(t, c, []any{int64(3)}, true)
	assertCheck(t, c, []any{int64(-3)}, false)
	assertCheck(t, c, []any{}, true)

	// A constrained base keeps its own conjunct alongside the validator.
	narrow, err := f.Checker(hint.List(hint.Annotate(hint.Int, positive)), nil)
	if err != nil {
		t.Fatal(err)
	}
	assertCheck(t, narrow, []any{int64(3)}, true)
	assertCheck(t, narrow, []any{1.5}, false)
}

func TestCheckerFixedTuple(t *testing.T) {
	f, reg := newFactory()
	c := mustChecker(t, f, reg, "tuple[int, str]")

	assertCheck(t, c, pith.Tuple{int64(1), "a"}, true)
	assertCheck(t, c, pith.Tuple{int64(1), int64(2)}, false)
	assertCheck(t, c, pith.Tuple{int64(1)}, false)
	assertCheck(t, c, pith.Tuple{int64(1), "a", "b"}, false)
	assertCheck(t, c, []any{int64(1), "a"}, false) // a list of the right shape is not a tuple
}

func TestCheckerUnion(t *testing.T) {
	f, reg := newFactory()
	c := mustChecker(t, f, reg, "int | str | None")

	assertCheck(t, c, int64(3), true)
	assertCheck(t, c, "x", true)
	assertCheck(t, c, nil, true)
	assertCheck(t, c, 1.5, false)
	assertCheck(t, c, []any{}, false)
}

func TestCheckerLiteral(t *testing.T) {
	f, reg := newFactory()
	c := mustChecker(t, f, reg, `Literal["red", "green", 3]`)

	assertCheck(t, c, "red", true)
	assertCheck(t, c, "green", true)
	assertCheck(t, c, int64(3), true)
	assertCheck(t, c, "blue", false)
	assertCheck(t, c, 3.0, false) // float 3.0 is not the int literal 3
}

func TestCheckerSubclass(t *testing.T) {
	f, reg := newFactory()
	c := mustChecker(t, f, reg, "type[int]")

	assertCheck(t, c, hint.Bool, true)
	assertCheck(t, c, hint.Int, true)
	assertCheck(t, c, hint.Str, false)
	assertCheck(t, c, int64(1), false) // an instance is not a class
}

func TestCheckerNestedContainers(t *testing.T) {
	f, reg := newFactory()
	c := mustChecker(t, f, reg, "list[list[int]]")

	assertCheck(t, c, []any{[]any{int64(1)}}, true)
	assertCheck(t, c, []any{[]any{}}, true)
	assertCheck(t, c, []any{[]any{"a"}}, false)
	assertCheck(t, c, []any{int64(1)}, false)
}

func TestCheckerRecursiveAlias(t *testing.T) {
	f, reg := newFactory()

	alias := hint.NewAlias("Json")
	if err := reg.Register("Json", alias); err != nil {
		t.Fatal(err)
	}
	target, err := hint.Parse(`None | int | str | list["Json"]`, reg)
	if err != nil {
		t.Fatal(err)
	}
	alias.SetTarget(target)

	c, err := f.Checker(alias, nil)
	if err != nil {
		t.Fatal(err)
	}

	assertCheck(t, c, nil, true)
	assertCheck(t, c, int64(1), true)
	assertCheck(t, c, []any{int64(1), "a"}, true)
	// Past the cycle cut the inner list is only shallow-checked.
	assertCheck(t, c, []any{[]any{1.5}}, true)
	assertCheck(t, c, 1.5, false)
}

func TestCheckerTrivial(t *testing.T) {
	f, reg := newFactory()
	c := mustChecker(t, f, reg, "Any")

	if !c.Trivial() {
		t.Fatal("Any should yield a trivial checker")
	}
	if c.Code() != "" {
		t.Errorf("trivial checker has code %q", c.Code())
	}
	assertCheck(t, c, int64(1), true)
	assertCheck(t, c, nil, true)
	if err := c.Die(struct{}{}); err != nil {
		t.Errorf("trivial Die = %v", err)
	}
}

func TestCheckerMemoization(t *testing.T) {
	f, reg := newFactory()

	a := mustChecker(t, f, reg, "list[int]")
	b := mustChecker(t, f, reg, "list[int]")
	if a != b {
		t.Error("equal keyable hints under one configuration must share a checker")
	}

	h, err := hint.Parse("list[int]", reg)
	if err != nil {
		t.Fatal(err)
	}
	shallow := conf.New(conf.Options{Strategy: conf.StrategyShallow})
	c, err := f.Checker(h, &Request{Conf: shallow})
	if err != nil {
		t.Fatal(err)
	}
	if c == a {
		t.Error("a different configuration must build a different checker")
	}
	if !strings.HasPrefix(a.Name(), "hc_checker_") {
		t.Errorf("checker name = %q", a.Name())
	}
	if a.Name() == c.Name() {
		t.Error("distinct checkers must have distinct names")
	}
}

func TestCheckerClassStackDistinguishes(t *testing.T) {
	f, _ := newFactory()
	a := &hint.Class{Name: "A", Instance: func(v any) bool {
		_, ok := v.(string)
		return ok
	}}
	b := &hint.Class{Name: "B", Instance: func(v any) bool {
		_, ok := v.(int64)
		return ok
	}}

	// Self resolves against the stack, so each stack gets its own checker.
	ca, err := f.Checker(hint.SelfHint, &Request{ClassStack: []*hint.Class{a}})
	if err != nil {
		t.Fatal(err)
	}
	cb, err := f.Checker(hint.SelfHint, &Request{ClassStack: []*hint.Class{b}})
	if err != nil {
		t.Fatal(err)
	}
	if ca == cb {
		t.Fatal("different class stacks must not share a checker")
	}
	assertCheck(t, ca, "x", true)
	assertCheck(t, cb, "x", false)
	assertCheck(t, cb, int64(1), true)

	again, err := f.Checker(hint.SelfHint, &Request{ClassStack: []*hint.Class{a}})
	if err != nil {
		t.Fatal(err)
	}
	if again != ca {
		t.Error("equal stacks under one configuration should share a checker")
	}
}

func TestCheckerUnkeyableUncached(t *testing.T) {
	f, _ := newFactory()

	anon := &hint.Class{Instance: func(v any) bool { _, ok := v.(int64); return ok }}
	a, err := f.Checker(anon, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.Checker(anon, nil)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("unkeyable hints must be compiled fresh each call")
	}
	assertCheck(t, a, int64(1), true)
	assertCheck(t, a, "x", false)
}

func TestCheckerRelativeRefRejected(t *testing.T) {
	f, reg := newFactory()

	h, err := hint.Parse(`list["Node"]`, reg)
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.Checker(h, nil)
	if errors.CodeOf(err) != errors.RefUnresolvable {
		t.Errorf("code = %v, want RefUnresolvable", errors.CodeOf(err))
	}
}

func TestDie(t *testing.T) {
	f, reg := newFactory()
	c := mustChecker(t, f, reg, "list[int]")

	if err := c.Die([]any{int64(1)}); err != nil {
		t.Fatalf("satisfying value should not die: %v", err)
	}

	err := Die(c, "oops", "Function f() parameter x=")
	if err == nil {
		t.Fatal("violating value should die")
	}
	if errors.CodeOf(err) != errors.PithViolation {
		t.Errorf("code = %v, want PithViolation", errors.CodeOf(err))
	}
	msg := err.Error()
	if !strings.Contains(msg, "Function f() parameter x=") {
		t.Errorf("message lacks the prefix: %q", msg)
	}
	if !strings.Contains(msg, `"oops"`) {
		t.Errorf("message lacks the value repr: %q", msg)
	}
	if !strings.Contains(msg, "list[int]") {
		t.Errorf("message lacks the hint: %q", msg)
	}
}

func TestDieTruncatesLongRepr(t *testing.T) {
	f, reg := newFactory()
	c := mustChecker(t, f, reg, "int")

	err := c.Die(strings.Repeat("x", 2000))
	if err == nil {
		t.Fatal("a long string is not an int")
	}
	if !strings.Contains(err.Error(), "...") {
		t.Error("long value reprs should be truncated")
	}
	if len(err.Error()) > 600 {
		t.Errorf("message length = %d, want bounded", len(err.Error()))
	}
}

func TestCheckerGeneratedCodeSurface(t *testing.T) {
	f, reg := newFactory()
	c := mustChecker(t, f, reg, "list[int]")

	if !strings.Contains(c.Code(), "isinstance") {
		t.Errorf("code = %q", c.Code())
	}
	if c.Scope()["hc_cls_list"] != hint.ListClass {
		t.Error("scope should expose the origin class")
	}
}
