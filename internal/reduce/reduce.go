// Package reduce implements the hint sanitizer: the bounded, confluent
// rewrite pipeline that normalizes an arbitrary hint into the canonical
// sanified form the code generator consumes.
//
// Each sanitize call runs a fixed-point loop of at most reductionCap
// rounds. A round applies, in order: the shallow-ignorability test, the
// user-override table, the contextual rewriters (whose results depend on
// caller state and are never memoized), and the cacheable rewriters
// (memoized on hint, configuration, and exception prefix). The loop exits
// as soon as a round leaves the hint unchanged.
package reduce

import (
	"hintcheck/internal/cache"
	"hintcheck/internal/conf"
	"hintcheck/internal/errors"
	"hintcheck/internal/hint"
	"hintcheck/internal/logging"
	"hintcheck/internal/sane"
	"hintcheck/internal/sign"
)

// reductionCap bounds the fixed-point loop. Exceeding it means a rewriter
// oscillates, which is a bug in hintcheck, never a user error.
const reductionCap = 64

// shallowIgnorable lists the textual forms that match everything. Tested
// first because it dominates cost in the common case.
var shallowIgnorable = map[string]bool{
	"Any":             true,
	"object":          true,
	"typing.Any":      true,
	"builtins.object": true,
	"Optional":        true,
	"Union":           true,
}

// Reducer owns the cacheable-phase memo table. Construct one per isolated
// pipeline; all methods are safe for concurrent use.
type Reducer struct {
	registry *hint.Registry
	memo     *cache.Map
	logger   *logging.Logger
}

// New creates a reducer over a registry. A nil memo or logger gets an
// isolated table or a no-op logger.
func New(registry *hint.Registry, memo *cache.Map, logger *logging.Logger) *Reducer {
	if memo == nil {
		memo = cache.New()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Reducer{
		registry: registry,
		memo:     memo,
		logger:   logger.WithComponent("reduce"),
	}
}

// Context bundles the caller-specific state threaded through one reduction
// chain. Contexts are cheap values; derive child contexts rather than
// mutating shared ones.
type Context struct {
	Conf *conf.Conf

	// ClassStack is the stack of enclosing classes, innermost last. Used to
	// resolve Self and relative forward references.
	ClassStack []*hint.Class

	// DurableScope is true when the caller owns a lexical scope that can
	// resolve relative forward references after the fact (the decorator
	// path). One-off checkers built outside any class or function body must
	// leave it false.
	DurableScope bool

	// TypeVars is the type-variable table active at this hint.
	TypeVars *sane.TypeVars

	// Parent carries the recursion guard accumulated above this hint.
	Parent *sane.Sane

	// Overridden guards the user-override table against self-referential
	// overrides: each override key fires at most once per reduction chain.
	Overridden map[string]bool

	// ExcPrefix is a human-readable exception prefix used only in error
	// messages, never in semantics.
	ExcPrefix string
}

func (ctx *Context) conf() *conf.Conf {
	if ctx.Conf == nil {
		return conf.Default
	}
	return ctx.Conf
}

func (ctx *Context) prefix() string {
	if ctx.ExcPrefix == "" {
		return errors.PrefixPlaceholder
	}
	return ctx.ExcPrefix
}

// Root sanifies a top-level hint.
func (r *Reducer) Root(h hint.Hint, ctx *Context) (*sane.Sane, error) {
	if ctx == nil {
		ctx = &Context{}
	}
	if ctx.Overridden == nil {
		ctx.Overridden = make(map[string]bool)
	}
	return r.sanitize(h, ctx)
}

// Child sanifies a child hint, folding the parent's type-variable table and
// recursion guard into the child's context.
func (r *Reducer) Child(h hint.Hint, parent *sane.Sane, ctx *Context) (*sane.Sane, error) {
	if ctx == nil {
		ctx = &Context{}
	}
	child := *ctx
	child.Parent = parent
	if parent != nil && parent != sane.Ignorable {
		child.TypeVars = ctx.TypeVars.Merge(parent.TypeVarMap())
	}
	if child.Overridden == nil {
		child.Overridden = make(map[string]bool)
	}
	return r.sanitize(h, &child)
}

// reduction is the outcome of one rewriter: the replacement hint plus any
// supplementary context to fold forward.
type reduction struct {
	hint      hint.Hint
	typeVars  *sane.TypeVars // bindings to merge, child wins
	guardKey  string         // recursion-guard key to arm, if any
	ignorable bool
}

func unchanged(h hint.Hint) reduction { return reduction{hint: h} }

func (r *Reducer) sanitize(h hint.Hint, ctx *Context) (*sane.Sane, error) {
	if h == nil {
		return nil, errors.New(errors.HintInvalid, "%snil hint", ctx.prefix())
	}

	cur := h
	guard := guardOf(ctx.Parent)
	tvars := ctx.TypeVars

	for round := 0; ; round++ {
		if round >= reductionCap {
			return nil, errors.New(errors.ReductionCapExceeded,
				"hint %q failed to reach a fixed point after %d rounds", h, reductionCap)
		}

		if shallowIgnorable[cur.String()] {
			return sane.Ignorable, nil
		}

		if next, ok := r.applyOverride(cur, ctx); ok {
			cur = next
			continue
		}

		red, err := r.reduceContextual(cur, ctx, guard, tvars)
		if err != nil {
			return nil, err
		}
		if red.ignorable {
			return sane.Ignorable, nil
		}
		if red.hint == nil || hint.Same(red.hint, cur) {
			// Contextual phase settled; try the cacheable phase.
			red, err = r.reduceCacheable(cur, ctx)
			if err != nil {
				return nil, err
			}
			if red.ignorable {
				return sane.Ignorable, nil
			}
		}
		if red.guardKey != "" {
			guard = extendGuard(guard, red.guardKey)
		}
		if red.typeVars != nil {
			tvars = tvars.Merge(red.typeVars)
		}
		if red.hint == nil || hint.Same(red.hint, cur) {
			break
		}
		cur = red.hint
	}

	return wrap(cur, guard, tvars), nil
}

// applyOverride runs the user-override phase. Unkeyable hints silently skip
// it; each override key fires at most once per chain.
func (r *Reducer) applyOverride(cur hint.Hint, ctx *Context) (hint.Hint, bool) {
	c := ctx.conf()
	if c.NumOverrides() == 0 {
		return nil, false
	}
	key, err := hint.Key(cur)
	if err != nil {
		return nil, false
	}
	if ctx.Overridden[key] {
		return nil, false
	}
	to, ok := c.Override(key)
	if !ok {
		return nil, false
	}
	ctx.Overridden[key] = true
	return to, true
}

// reduceContextual dispatches to the rewriters whose result depends on
// caller-specific state: the enclosing-class stack, the type-variable
// table, and the recursion guard. Never memoized.
func (r *Reducer) reduceContextual(cur hint.Hint, ctx *Context, guard map[string]bool, tvars *sane.TypeVars) (reduction, error) {
	switch sign.Of(cur) {
	case sign.Union:
		return r.reduceUnion(cur, ctx, guard, tvars)

	case sign.TypeVar:
		tv := cur.(*hint.TypeVar)
		if bound, ok := tvars.Get(tv.Name); ok {
			return reduction{hint: bound}, nil
		}
		if tv.Bound != nil {
			return reduction{hint: tv.Bound}, nil
		}
		// An unbound, boundless type variable matches anything. Known
		// simplification: deep typevar checking is out of scope.
		return reduction{ignorable: true}, nil

	case sign.Alias:
		return r.reduceAlias(cur.(*hint.Alias), ctx, guard)

	case sign.Ref:
		return r.reduceRef(cur.(*hint.Ref), ctx)

	case sign.Self:
		if len(ctx.ClassStack) == 0 {
			return reduction{}, errors.New(errors.HintInvalid,
				"%sSelf hint outside any enclosing class", ctx.prefix())
		}
		return reduction{hint: ctx.ClassStack[len(ctx.ClassStack)-1]}, nil

	case sign.Invalid:
		return reduction{}, errors.New(errors.HintInvalid,
			"%svalue %q is neither a known hint nor a class", ctx.prefix(), cur)
	}
	return unchanged(cur), nil
}

// reduceUnion decides a union's ignorability: a union is only as wide as
// its widest member, so each member is recursively reduced first. This
// rewriter must call back into the full reducer (including the contextual
// phases) for every member, which is why unions are excluded from the
// cacheable phase.
func (r *Reducer) reduceUnion(u hint.Hint, ctx *Context, guard map[string]bool, tvars *sane.TypeVars) (reduction, error) {
	members := sign.Args(u)
	if len(members) == 0 {
		return reduction{}, errors.New(errors.HintInvalid, "%sempty union", ctx.prefix())
	}
	parent := wrap(u, guard, tvars)
	for _, m := range members {
		ms, err := r.Child(m, parent, ctx)
		if err != nil {
			return reduction{}, err
		}
		if ms == sane.Ignorable {
			return reduction{ignorable: true}, nil
		}
	}
	return unchanged(u), nil
}

// reduceAlias unwraps a type alias, arming the recursion guard so that a
// self-referential alias is cut off at its second occurrence.
func (r *Reducer) reduceAlias(a *hint.Alias, ctx *Context, guard map[string]bool) (reduction, error) {
	if sane.IsRecursive(a, guardedParent(guard)) {
		// Cycle point: the checker stays intentionally shallow here.
		return reduction{ignorable: true}, nil
	}
	target := a.Target()
	if target == nil {
		return reduction{}, errors.New(errors.HintInvalid,
			"%salias %q has no target", ctx.prefix(), a.Name)
	}
	if a.Deprecated != "" && ctx.conf().WarnDeprecated {
		// Deliberately not memoized: the diagnostic surfaces once per
		// genuinely distinct reduction site.
		r.logger.Warn("deprecated hint form", map[string]interface{}{
			"hint": a.Name,
			"use":  a.Deprecated,
		})
	}
	key, err := hint.Key(a)
	if err != nil {
		return reduction{hint: target}, nil
	}
	return reduction{hint: target, guardKey: key}, nil
}

// reduceRef resolves a forward reference against the registry and the
// enclosing-class stack. A relative reference that resolves nowhere is a
// hard error outside a durable scope: without a lexical scope to patch
// later there is nothing to defer resolution to.
func (r *Reducer) reduceRef(ref *hint.Ref, ctx *Context) (reduction, error) {
	for i := len(ctx.ClassStack) - 1; i >= 0; i-- {
		if ctx.ClassStack[i].Name == ref.Name {
			return reduction{hint: ctx.ClassStack[i]}, nil
		}
	}
	if h, ok := r.registry.Lookup(ref.Name); ok {
		return reduction{hint: h}, nil
	}
	if ref.Relative() && !ctx.DurableScope {
		return reduction{}, errors.New(errors.RefUnresolvable,
			"%srelative forward reference %q is unresolvable outside a durable scope",
			ctx.prefix(), ref.Name)
	}
	// Unresolved but deferrable: the generator emits a lazy proxy and
	// reports the basename for later resolution.
	return unchanged(ref), nil
}

// reduceCacheable dispatches to the pure rewriters, memoized on the hint,
// the configuration, and the exception prefix.
func (r *Reducer) reduceCacheable(cur hint.Hint, ctx *Context) (reduction, error) {
	key, err := hint.Key(cur)
	if err != nil {
		// Unkeyable hints reduce uncached.
		return r.rewriteCacheable(cur, ctx)
	}
	memoKey := key + "\x00" + ctx.conf().Digest() + "\x00" + ctx.ExcPrefix
	v, err := r.memo.GetOrCompute(memoKey, func() (any, error) {
		red, err := r.rewriteCacheable(cur, ctx)
		if err != nil {
			return nil, err
		}
		return red, nil
	})
	if err != nil {
		return reduction{}, err
	}
	return v.(reduction), nil
}

func (r *Reducer) rewriteCacheable(cur hint.Hint, ctx *Context) (reduction, error) {
	switch sign.Of(cur) {
	case sign.NoneType:
		return reduction{hint: hint.NoneType}, nil

	case sign.Optional:
		o := cur.(*hint.Optional)
		return reduction{hint: hint.UnionOf(o.Elem, hint.NoneHint)}, nil

	case sign.NewType:
		return reduction{hint: cur.(*hint.NewTypeOf).Base}, nil

	case sign.Subclass:
		s := cur.(*hint.SubclassOf)
		if shallowIgnorable[s.Arg.String()] {
			// type[Any] constrains nothing beyond classness.
			return reduction{hint: hint.Type}, nil
		}
		return unchanged(cur), nil

	case sign.Annotated:
		a := cur.(*hint.Annotated)
		if len(a.Validators()) == 0 {
			// hintcheck-agnostic metadata deepens nothing.
			return reduction{hint: a.Base}, nil
		}
		return unchanged(cur), nil

	case sign.SubscriptedGeneric:
		sub := cur.(*hint.Subscripted)
		if len(sub.Args) != len(sub.Generic.Params) {
			return reduction{}, errors.New(errors.ArityWrong,
				"%sgeneric %q takes %d type arguments, got %d",
				ctx.prefix(), sub.Generic, len(sub.Generic.Params), len(sub.Args))
		}
		bindings := make(map[string]hint.Hint, len(sub.Args))
		for i, p := range sub.Generic.Params {
			bindings[p.Name] = sub.Args[i]
		}
		return reduction{hint: sub.Generic, typeVars: sane.NewTypeVars(bindings)}, nil
	}
	return unchanged(cur), nil
}

func guardOf(parent *sane.Sane) map[string]bool {
	if parent == nil || parent == sane.Ignorable {
		return nil
	}
	return parent.Recursable()
}

func extendGuard(guard map[string]bool, key string) map[string]bool {
	out := make(map[string]bool, len(guard)+1)
	for k := range guard {
		out[k] = true
	}
	out[key] = true
	return out
}

// wrap assembles the final sanified value from the loop state.
func wrap(h hint.Hint, guard map[string]bool, tvars *sane.TypeVars) *sane.Sane {
	s := sane.New(h)
	if len(guard) > 0 || tvars.Len() > 0 {
		s = s.Permute(sane.Overrides{Recursable: guard, TypeVars: tvars})
	}
	return s
}

// guardedParent rebuilds a parent value carrying only the guard, for
// IsRecursive probes mid-loop.
func guardedParent(guard map[string]bool) *sane.Sane {
	if len(guard) == 0 {
		return nil
	}
	return sane.New(hint.Object).Permute(sane.Overrides{Recursable: guard})
}
