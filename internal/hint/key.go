package hint

import (
	"hintcheck/internal/errors"
)

// Key returns a stable structural cache key for a hint, or an error if the
// hint is unkeyable (it contains an anonymous class or anonymous validator).
// Unkeyable hints are the analogue of unhashable annotations: they are
// silently exempted from override substitution, recursion guarding, and
// memoization rather than rejected.
func Key(h Hint) (string, error) {
	if err := checkKeyable(h); err != nil {
		return "", err
	}
	return h.String(), nil
}

// Keyable reports whether Key would succeed.
func Keyable(h Hint) bool {
	return checkKeyable(h) == nil
}

func checkKeyable(h Hint) error {
	switch x := h.(type) {
	case *Class:
		if x.Name == "" {
			return errors.New(errors.HintInvalid, "anonymous class is unkeyable")
		}
	case *Union:
		return checkKeyableAll(x.Members)
	case *Container:
		return checkKeyable(x.Elem)
	case *FixedTuple:
		return checkKeyableAll(x.Elems)
	case *MapOf:
		if err := checkKeyable(x.Key); err != nil {
			return err
		}
		return checkKeyable(x.Val)
	case *Annotated:
		for _, v := range x.Validators() {
			if v.Name == "" {
				return errors.New(errors.HintInvalid, "anonymous validator is unkeyable")
			}
		}
		return checkKeyable(x.Base)
	case *SubclassOf:
		return checkKeyable(x.Arg)
	case *Optional:
		return checkKeyable(x.Elem)
	case *NewTypeOf:
		return checkKeyable(x.Base)
	case *Subscripted:
		return checkKeyableAll(x.Args)
	}
	// Aliases, refs, generics, typevars, and singletons key by name.
	return nil
}

func checkKeyableAll(hs []Hint) error {
	for _, h := range hs {
		if err := checkKeyable(h); err != nil {
			return err
		}
	}
	return nil
}

// Same reports whether two hints are the same canonical hint: identical, or
// keyable with equal keys. Used by the reducer's fixed-point test.
func Same(a, b Hint) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	ka, errA := Key(a)
	kb, errB := Key(b)
	if errA != nil || errB != nil {
		return false
	}
	return ka == kb
}
