package hint

import (
	"sort"
	"sync"

	"hintcheck/internal/errors"
)

// Registry maps names to classes, aliases, generics, and validators. A
// registry is the scope against which forward references resolve. Safe for
// concurrent use; registration is append-only.
type Registry struct {
	mu         sync.RWMutex
	names      map[string]Hint
	validators map[string]*Validator
}

// NewRegistry returns a registry pre-seeded with the builtin classes.
func NewRegistry() *Registry {
	r := &Registry{
		names:      make(map[string]Hint, len(builtinClasses)),
		validators: make(map[string]*Validator),
	}
	for _, c := range builtinClasses {
		r.names[c.Name] = c
	}
	return r
}

// Register binds a name to a class, alias, or generic. Re-registering the
// identical hint is a no-op; a different hint under an existing name is a
// conflict.
func (r *Registry) Register(name string, h Hint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.names[name]; ok {
		if prev == h {
			return nil
		}
		return errors.New(errors.RegistryConflict, "name %q is already registered", name)
	}
	r.names[name] = h
	return nil
}

// RegisterValidator binds a named validator for use in textual
// Annotated[...] hints.
func (r *Registry) RegisterValidator(v *Validator) error {
	if v.Name == "" {
		return errors.New(errors.HintInvalid, "validator has no name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.validators[v.Name]; ok && prev != v {
		return errors.New(errors.RegistryConflict, "validator %q is already registered", v.Name)
	}
	r.validators[v.Name] = v
	return nil
}

// Lookup resolves a name, trying the full name first and then its
// unqualified basename.
func (r *Registry) Lookup(name string) (Hint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.names[name]; ok {
		return h, true
	}
	if i := lastDot(name); i >= 0 {
		if h, ok := r.names[name[i+1:]]; ok {
			return h, true
		}
	}
	return nil, false
}

// LookupClass resolves a name to a class, unwrapping generics.
func (r *Registry) LookupClass(name string) (*Class, bool) {
	h, ok := r.Lookup(name)
	if !ok {
		return nil, false
	}
	switch x := h.(type) {
	case *Class:
		return x, true
	case *Generic:
		return x.Class, true
	}
	return nil, false
}

// LookupValidator resolves a registered validator by name.
func (r *Registry) LookupValidator(name string) (*Validator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.validators[name]
	return v, ok
}

// Names returns all registered names, excluding builtins seeded at
// construction.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	builtin := make(map[string]bool, len(builtinClasses))
	for _, c := range builtinClasses {
		builtin[c.Name] = true
	}
	var out []string
	for name := range r.names {
		if !builtin[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

// RefProxy stands in for a forward-referenced class inside a generated
// checker's scope. Resolution is deferred to check time so that checkers may
// be built before the referenced class is registered.
type RefProxy struct {
	Name     string
	Registry *Registry
}

// Resolve looks the reference up, failing if it is still unregistered.
func (p *RefProxy) Resolve() (*Class, error) {
	if c, ok := p.Registry.LookupClass(p.Name); ok {
		return c, nil
	}
	return nil, errors.New(errors.RefUnresolvable,
		"%sforward reference %q is not registered", errors.PrefixPlaceholder, p.Name)
}

// InstanceOf reports whether v is an instance of the referenced class. An
// unresolvable reference matches nothing.
func (p *RefProxy) InstanceOf(v any) bool {
	c, err := p.Resolve()
	if err != nil {
		return false
	}
	return c.InstanceOf(v)
}

// SubclassTarget returns the referenced class for issubclass checks.
func (p *RefProxy) SubclassTarget() (*Class, error) { return p.Resolve() }
