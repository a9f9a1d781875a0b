package hint

// ObjPlaceholder is the substitution point inside a validator's code
// fragment for the expression yielding the current value.
const ObjPlaceholder = "{obj}"

// Validator is a predicate attached to an Annotated hint. The Code fragment
// is spliced verbatim into the generated check expression with {obj}
// replaced by the current pith expression; Locals supplies every object the
// fragment references by name.
type Validator struct {
	Name   string
	Code   string
	Locals map[string]any
}

// Is builds the common validator shape: a single named predicate call.
func Is(name string, fn func(any) bool) *Validator {
	return &Validator{
		Name:   name,
		Code:   name + "(" + ObjPlaceholder + ")",
		Locals: map[string]any{name: fn},
	}
}
