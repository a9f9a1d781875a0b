package hint

import (
	"os"
	"path/filepath"
	"testing"

	"hintcheck/internal/errors"
)

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()

	// Builtins resolve out of the box.
	if h, ok := reg.Lookup("int"); !ok || h != Int {
		t.Errorf("Lookup(int) = %v, %v", h, ok)
	}
	// Qualified names fall back to their basename.
	if h, ok := reg.Lookup("builtins.int"); !ok || h != Int {
		t.Errorf("Lookup(builtins.int) = %v, %v", h, ok)
	}
	if _, ok := reg.Lookup("nope"); ok {
		t.Error("Lookup(nope) should miss")
	}
}

func TestRegistryRegisterConflict(t *testing.T) {
	reg := NewRegistry()
	a := &Class{Name: "Thing", Instance: func(any) bool { return false }}
	b := &Class{Name: "Thing", Instance: func(any) bool { return false }}

	if err := reg.Register("Thing", a); err != nil {
		t.Fatal(err)
	}
	// Re-registering the identical hint is a no-op.
	if err := reg.Register("Thing", a); err != nil {
		t.Errorf("idempotent re-register failed: %v", err)
	}
	err := reg.Register("Thing", b)
	if errors.CodeOf(err) != errors.RegistryConflict {
		t.Errorf("conflicting register code = %v, want RegistryConflict", errors.CodeOf(err))
	}
}

func TestRefProxy(t *testing.T) {
	reg := NewRegistry()
	proxy := &RefProxy{Name: "Late", Registry: reg}

	// Unresolved: matches nothing, Resolve errors.
	if proxy.InstanceOf(int64(1)) {
		t.Error("unresolved proxy should match nothing")
	}
	if _, err := proxy.Resolve(); errors.CodeOf(err) != errors.RefUnresolvable {
		t.Errorf("Resolve code = %v, want RefUnresolvable", errors.CodeOf(err))
	}

	late := &Class{Name: "Late", Instance: func(v any) bool {
		_, ok := v.(string)
		return ok
	}}
	if err := reg.Register("Late", late); err != nil {
		t.Fatal(err)
	}

	// Registration after proxy construction is visible.
	if !proxy.InstanceOf("now") {
		t.Error("proxy should resolve after registration")
	}
	if proxy.InstanceOf(int64(1)) {
		t.Error("proxy should delegate the instance predicate")
	}
}

func TestKey(t *testing.T) {
	reg := NewRegistry()

	h, err := Parse("dict[str, list[int | None]]", reg)
	if err != nil {
		t.Fatal(err)
	}
	key, err := Key(h)
	if err != nil {
		t.Fatal(err)
	}
	again, err := Parse("dict[str, list[int | None]]", reg)
	if err != nil {
		t.Fatal(err)
	}
	key2, err := Key(again)
	if err != nil {
		t.Fatal(err)
	}
	if key != key2 {
		t.Errorf("equal hints should share a key: %q vs %q", key, key2)
	}

	anon := List(&Class{Instance: func(any) bool { return true }})
	if _, err := Key(anon); errors.CodeOf(err) != errors.HintInvalid {
		t.Errorf("anonymous class key code = %v, want HintInvalid", errors.CodeOf(err))
	}
	if Keyable(anon) {
		t.Error("anonymous class should be unkeyable")
	}
}

func TestSame(t *testing.T) {
	reg := NewRegistry()
	a, _ := Parse("list[int]", reg)
	b, _ := Parse("list[int]", reg)
	c, _ := Parse("list[str]", reg)

	if !Same(a, a) {
		t.Error("identical hints are the same")
	}
	if !Same(a, b) {
		t.Error("structurally equal hints are the same")
	}
	if Same(a, c) {
		t.Error("different hints are not the same")
	}

	anonA := List(&Class{Instance: func(any) bool { return true }})
	anonB := List(&Class{Instance: func(any) bool { return true }})
	if !Same(anonA, anonA) {
		t.Error("an unkeyable hint is the same as itself")
	}
	if Same(anonA, anonB) {
		t.Error("distinct unkeyable hints are never the same")
	}
}

func TestClassSubclass(t *testing.T) {
	if !Bool.IsSubclassOf(Int) {
		t.Error("bool subclasses int")
	}
	if !Bool.IsSubclassOf(Object) {
		t.Error("every class subclasses object")
	}
	if Int.IsSubclassOf(Bool) {
		t.Error("int does not subclass bool")
	}
	if !Int.InstanceOf(true) {
		t.Error("a bool pith is an int instance")
	}
	if Bool.InstanceOf(int64(1)) {
		t.Error("an int pith is not a bool instance")
	}
}

func TestLoadDeclsTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "types.toml")
	src := `
[classes]
UserId = "int"

[aliases]
Json = 'None | bool | int | float | str | list["Json"] | dict[str, "Json"]'

[deprecated]
OldJson = { target = '"Json"', use = "Json" }
`
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry()
	if err := reg.LoadDecls(path); err != nil {
		t.Fatalf("LoadDecls() error = %v", err)
	}

	cls, ok := reg.LookupClass("UserId")
	if !ok {
		t.Fatal("UserId should be registered")
	}
	if !cls.IsSubclassOf(Int) {
		t.Error("UserId should subclass int")
	}
	if !cls.InstanceOf(int64(7)) {
		t.Error("UserId should inherit int's instance predicate")
	}

	h, ok := reg.Lookup("Json")
	if !ok {
		t.Fatal("Json should be registered")
	}
	alias, ok := h.(*Alias)
	if !ok {
		t.Fatalf("Json resolved to %T, want *Alias", h)
	}
	if alias.Target() == nil {
		t.Error("alias target should be set")
	}

	old, ok := reg.Lookup("OldJson")
	if !ok {
		t.Fatal("OldJson should be registered")
	}
	if old.(*Alias).Deprecated != "Json" {
		t.Errorf("OldJson.Deprecated = %q, want Json", old.(*Alias).Deprecated)
	}
}

func TestLoadDeclsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "types.yaml")
	src := `
classes:
  Email: str
aliases:
  IntList: list[int]
`
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry()
	if err := reg.LoadDecls(path); err != nil {
		t.Fatalf("LoadDecls() error = %v", err)
	}
	if _, ok := reg.LookupClass("Email"); !ok {
		t.Error("Email should be registered")
	}
	h, _ := reg.Lookup("IntList")
	if h.(*Alias).Target().String() != "list[int]" {
		t.Errorf("IntList target = %v", h.(*Alias).Target())
	}
}

func TestLoadDeclsErrors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.toml")
	os.WriteFile(bad, []byte("[classes]\nX = \"unknownbase\"\n"), 0644)
	reg := NewRegistry()
	if err := reg.LoadDecls(bad); errors.CodeOf(err) != errors.ParseFailed {
		t.Errorf("unknown base code = %v, want ParseFailed", errors.CodeOf(err))
	}

	if err := reg.LoadDecls(filepath.Join(dir, "x.json")); errors.CodeOf(err) != errors.ParseFailed {
		t.Errorf("unsupported extension code = %v, want ParseFailed", errors.CodeOf(err))
	}
}
