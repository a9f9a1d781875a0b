package eval

import (
	"strings"
	"testing"

	"hintcheck/internal/codegen"
	"hintcheck/internal/errors"
	"hintcheck/internal/hint"
	"hintcheck/internal/pith"
)

func mustCompile(t *testing.T, code string, scope map[string]any) *Program {
	t.Helper()
	p, err := Compile(code, scope)
	if err != nil {
		t.Fatalf("Compile(%q) error = %v", code, err)
	}
	return p
}

func check(t *testing.T, p *Program, v any) bool {
	t.Helper()
	ok, err := p.Check(v)
	if err != nil {
		t.Fatalf("Check(%v) error = %v", v, err)
	}
	return ok
}

func TestCheckIsinstance(t *testing.T) {
	p := mustCompile(t, "isinstance(pith, hc_cls_int)",
		map[string]any{"hc_cls_int": hint.Int})

	if !check(t, p, int64(7)) {
		t.Error("7 should satisfy int")
	}
	if check(t, p, "7") {
		t.Error("a string should not satisfy int")
	}
}

func TestCheckBooleanOperators(t *testing.T) {
	scope := map[string]any{
		"hc_cls_int": hint.Int,
		"hc_cls_str": hint.Str,
		"hc_lit":     int64(4),
	}
	tests := []struct {
		code string
		v    any
		want bool
	}{
		{"isinstance(pith, hc_cls_int) || isinstance(pith, hc_cls_str)", int64(1), true},
		{"isinstance(pith, hc_cls_int) || isinstance(pith, hc_cls_str)", "x", true},
		{"isinstance(pith, hc_cls_int) || isinstance(pith, hc_cls_str)", 1.5, false},
		{"isinstance(pith, hc_cls_int) && isinstance(pith, hc_cls_str)", int64(1), false},
		{"isinstance(pith, hc_cls_int) && pith == hc_lit", int64(3), false},
		{"isinstance(pith, hc_cls_int) && pith == hc_lit", int64(4), true},
	}
	for _, tt := range tests {
		p := mustCompile(t, tt.code, scope)
		if got := check(t, p, tt.v); got != tt.want {
			t.Errorf("%q on %v = %v, want %v", tt.code, tt.v, got, tt.want)
		}
	}
}

func TestCheckShortCircuit(t *testing.T) {
	// The right operand would error if it ever ran.
	calls := 0
	scope := map[string]any{
		"hc_cls_int": hint.Int,
		"boom": func(any) (bool, error) {
			calls++
			return false, errors.New(errors.InternalError, "must not run")
		},
	}

	p := mustCompile(t, "isinstance(pith, hc_cls_int) || boom(pith)", scope)
	if !check(t, p, int64(1)) {
		t.Error("left disjunct should satisfy")
	}
	p = mustCompile(t, "isinstance(pith, hc_cls_int) && boom(pith)", scope)
	if check(t, p, "not an int") {
		t.Error("left conjunct should fail")
	}
	if calls != 0 {
		t.Errorf("short-circuited operand ran %d times", calls)
	}
}

func TestCheckEquality(t *testing.T) {
	scope := map[string]any{
		"hc_lit_1": int64(1),
		"hc_lit_2": "a",
	}
	p := mustCompile(t, "pith == hc_lit_1 || pith == hc_lit_2", scope)
	if !check(t, p, int64(1)) || !check(t, p, "a") {
		t.Error("literal members should satisfy")
	}
	if check(t, p, 1.0) {
		t.Error("float 1.0 must not equal int 1")
	}

	p = mustCompile(t, "pith != hc_lit_1", scope)
	if check(t, p, int64(1)) {
		t.Error("1 != 1 should be false")
	}
	if !check(t, p, int64(2)) {
		t.Error("2 != 1 should be true")
	}
}

func TestCheckWalrusBinding(t *testing.T) {
	// The binding form evaluates its expression once; the bare local then
	// refers to the bound value.
	p := mustCompile(t, "(pith1 := pith[0]) == hc_a || pith1 == hc_b",
		map[string]any{"hc_a": int64(5), "hc_b": int64(6)})

	if !check(t, p, []any{int64(6)}) {
		t.Error("bound element should reach the second disjunct")
	}

	// Locals are fresh per invocation.
	if check(t, p, []any{int64(7)}) {
		t.Error("a non-member should fail on a later invocation")
	}
}

func TestCheckIndexingAndMod(t *testing.T) {
	p := mustCompile(t, "pith[hc_i % len(pith)] == hc_want",
		map[string]any{"hc_i": int64(7), "hc_want": "b"})

	if !check(t, p, []any{"a", "b", "c"}) {
		t.Error("7 % 3 should index element 1")
	}
}

func TestCheckKeyedLookup(t *testing.T) {
	// Dicts index by key rather than by position, so the value check can
	// examine the same pair the key check sampled.
	p := mustCompile(t,
		"isinstance((k := firstkey(pith)), hc_cls_str) && isinstance(pith[k], hc_cls_int)",
		map[string]any{"hc_cls_str": hint.Str, "hc_cls_int": hint.Int})

	if !check(t, p, map[string]any{"a": int64(1)}) {
		t.Error("str-to-int pair should satisfy")
	}
	if check(t, p, map[string]any{"a": "b"}) {
		t.Error("the value under the sampled key should fail")
	}

	p = mustCompile(t, "pith[hc_k] == hc_want",
		map[string]any{"hc_k": int64(7), "hc_want": "v"})
	if !check(t, p, map[any]any{int64(7): "v"}) {
		t.Error("non-string keys should look up in any-keyed dicts")
	}
}

func TestCheckRandIntDrawnOncePerCheck(t *testing.T) {
	calls := 0
	scope := map[string]any{
		"hc_cls_list": hint.ListClass,
		codegen.RandKey: func() int64 {
			calls++
			return 1
		},
	}
	// rand_int appears twice but the generator is consulted once per
	// invocation.
	p := mustCompile(t,
		"isinstance(pith, hc_cls_list) && (len(pith) == 0 || pith[rand_int % len(pith)] == pith[rand_int % len(pith)])",
		scope)

	if !check(t, p, []any{int64(1), int64(2)}) {
		t.Error("self-comparison should hold")
	}
	if calls != 1 {
		t.Errorf("generator drawn %d times, want 1", calls)
	}
	check(t, p, []any{int64(1)})
	if calls != 2 {
		t.Errorf("generator drawn %d times over two checks, want 2", calls)
	}
}

func TestCheckBuiltins(t *testing.T) {
	t.Run("len", func(t *testing.T) {
		p := mustCompile(t, "len(pith) == hc_n", map[string]any{"hc_n": int64(2)})
		if !check(t, p, []any{int64(1), int64(2)}) {
			t.Error("list of two")
		}
		if check(t, p, pith.Tuple{int64(1)}) {
			t.Error("tuple of one")
		}
	})

	t.Run("first", func(t *testing.T) {
		p := mustCompile(t, "isinstance(first(pith), hc_cls_int)",
			map[string]any{"hc_cls_int": hint.Int})
		if !check(t, p, pith.NewSet(int64(3))) {
			t.Error("singleton int set")
		}
		if check(t, p, pith.NewSet("x")) {
			t.Error("singleton str set")
		}
	})

	t.Run("firstkey and firstval", func(t *testing.T) {
		p := mustCompile(t,
			"isinstance(firstkey(pith), hc_cls_str) && isinstance(firstval(pith), hc_cls_int)",
			map[string]any{"hc_cls_str": hint.Str, "hc_cls_int": hint.Int})
		if !check(t, p, map[string]any{"a": int64(1)}) {
			t.Error("str-to-int dict")
		}
		if check(t, p, map[string]any{"a": "b"}) {
			t.Error("str-to-str dict")
		}
	})
}

func TestCheckIssubclass(t *testing.T) {
	p := mustCompile(t, "issubclass(pith, hc_cls_int)",
		map[string]any{"hc_cls_int": hint.Int})

	if !check(t, p, hint.Bool) {
		t.Error("bool subclasses int")
	}
	if !check(t, p, hint.Int) {
		t.Error("a class subclasses itself")
	}
	if check(t, p, hint.Str) {
		t.Error("str does not subclass int")
	}
}

func TestCheckScopePredicates(t *testing.T) {
	scope := map[string]any{
		"positive": func(v any) bool {
			n, ok := v.(int64)
			return ok && n > 0
		},
		"always": func(v any) any { return true },
	}
	p := mustCompile(t, "positive(pith) && always(pith)", scope)
	if !check(t, p, int64(3)) {
		t.Error("3 is positive")
	}
	if check(t, p, int64(-3)) {
		t.Error("-3 is not positive")
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"trailing tokens", "pith pith"},
		{"unclosed paren", "(pith == pith"},
		{"dangling operator", "pith =="},
		{"empty", ""},
		{"stray byte", "pith @ pith"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compile(tt.code, nil); err == nil {
				t.Errorf("Compile(%q) should fail", tt.code)
			}
		})
	}
}

func TestCheckRuntimeErrors(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		scope map[string]any
		v     any
	}{
		{"unknown name", "pith == missing", nil, int64(1)},
		{"non-bool result", "len(pith)", nil, []any{}},
		{"len of unsized", "len(pith) == len(pith)", nil, int64(1)},
		{"index out of range", "pith[hc_i] == hc_i", map[string]any{"hc_i": int64(9)}, []any{int64(1)}},
		{"missing dict key", "pith[hc_k] == hc_k", map[string]any{"hc_k": "nope"}, map[string]any{"a": int64(1)}},
		{"mod by zero", "pith[hc_i % len(pith)] == hc_i", map[string]any{"hc_i": int64(1)}, []any{}},
		{"isinstance non-class", "isinstance(pith, hc_x)", map[string]any{"hc_x": "oops"}, int64(1)},
		{"issubclass of instance", "issubclass(pith, hc_cls_int)", map[string]any{"hc_cls_int": hint.Int}, int64(1)},
		{"first of unsampleable", "first(pith) == first(pith)", nil, int64(1)},
		{"uncallable scope entry", "hc_fn(pith)", map[string]any{"hc_fn": 42}, int64(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope := tt.scope
			if scope == nil {
				scope = map[string]any{}
			}
			p, err := Compile(tt.code, scope)
			if err != nil {
				t.Fatalf("Compile error = %v", err)
			}
			if _, err = p.Check(tt.v); err == nil {
				t.Fatal("Check should fail")
			} else if !errors.IsInternal(errors.CodeOf(err)) {
				t.Errorf("code = %v, want an internal code", errors.CodeOf(err))
			}
		})
	}
}

func TestCheckResultMustBeBool(t *testing.T) {
	p := mustCompile(t, "pith", nil)
	_, err := p.Check(int64(1))
	if err == nil || !strings.Contains(err.Error(), "bool") {
		t.Errorf("non-boolean program result should fail: %v", err)
	}
}
