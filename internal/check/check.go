// Package check assembles sanified hints and generated code into callable
// checkers, memoized so that equivalent hint and configuration pairs share
// one compiled checker.
package check

import (
	"strings"

	"github.com/google/uuid"

	"hintcheck/internal/cache"
	"hintcheck/internal/codegen"
	"hintcheck/internal/conf"
	"hintcheck/internal/errors"
	"hintcheck/internal/eval"
	"hintcheck/internal/hint"
	"hintcheck/internal/logging"
	"hintcheck/internal/pith"
	"hintcheck/internal/reduce"
	"hintcheck/internal/sane"
)

// Factory builds checkers. All collaborators are injected; a zero Options
// yields a factory with isolated caches over a fresh builtin registry.
type Factory struct {
	registry *hint.Registry
	reducer  *reduce.Reducer
	gen      *codegen.Generator
	memo     *cache.Map
	logger   *logging.Logger
}

type Options struct {
	Registry  *hint.Registry
	Reducer   *reduce.Reducer
	Generator *codegen.Generator
	Memo      *cache.Map
	Logger    *logging.Logger
}

func NewFactory(opts Options) *Factory {
	f := &Factory{
		registry: opts.Registry,
		reducer:  opts.Reducer,
		gen:      opts.Generator,
		memo:     opts.Memo,
		logger:   opts.Logger,
	}
	if f.registry == nil {
		f.registry = hint.NewRegistry()
	}
	if f.logger == nil {
		f.logger = logging.Nop()
	}
	f.logger = f.logger.WithComponent("check")
	if f.reducer == nil {
		f.reducer = reduce.New(f.registry, nil, f.logger)
	}
	if f.gen == nil {
		f.gen = codegen.NewGenerator(codegen.Options{
			Registry: f.registry,
			Reducer:  f.reducer,
			Logger:   f.logger,
		})
	}
	if f.memo == nil {
		f.memo = cache.New()
	}
	return f
}

// Request carries the caller-specific context a checker is built under.
type Request struct {
	Conf *conf.Conf

	// ClassStack is the stack of enclosing classes, innermost last.
	ClassStack []*hint.Class

	// ExcPrefix prefixes violation messages, e.g. "Function f() parameter x=".
	ExcPrefix string
}

func (r *Request) conf() *conf.Conf {
	if r == nil || r.Conf == nil {
		return conf.Default
	}
	return r.Conf
}

// Checker is a compiled runtime type-checker for a single hint.
type Checker struct {
	name    string
	hint    hint.Hint
	code    string
	scope   map[string]any
	prog    *eval.Program
	trivial bool
}

// Name is the unique wrapper name of this checker.
func (c *Checker) Name() string { return c.name }

// Code is the generated expression text, empty for trivially true checkers.
func (c *Checker) Code() string { return c.code }

// Scope is the wrapper scope the code closes over. Callers must not mutate it.
func (c *Checker) Scope() map[string]any { return c.scope }

// Hint is the original, unreduced hint this checker was built for.
func (c *Checker) Hint() hint.Hint { return c.hint }

// Trivial reports whether the hint reduced to the ignorable singleton, in
// which case Check accepts every value.
func (c *Checker) Trivial() bool { return c.trivial }

// Check reports whether v satisfies the hint.
func (c *Checker) Check(v any) (bool, error) {
	if c.trivial {
		return true, nil
	}
	return c.prog.Check(v)
}

// Die returns nil when v satisfies the hint and a violation error otherwise.
func Die(c *Checker, v any, excPrefix string) error {
	ok, err := c.Check(v)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	prefix := excPrefix
	if prefix == "" {
		prefix = errors.PrefixPlaceholder
	}
	return errors.New(errors.PithViolation, "%svalue %s violates type hint %s",
		prefix, truncateRepr(pith.Repr(v)), c.hint).WithDetails(map[string]any{
		"hint":    c.hint.String(),
		"checker": c.name,
	})
}

// Die is shorthand for the package-level Die with the checker's own prefix
// left to the placeholder.
func (c *Checker) Die(v any) error { return Die(c, v, "") }

// maxReprLen bounds the rendered value inside violation messages.
const maxReprLen = 256

func truncateRepr(s string) string {
	if len(s) <= maxReprLen {
		return s
	}
	return s[:maxReprLen-3] + "..."
}

// Checker returns a checker for h, building one on first use. Checkers are
// memoized on the hint's structural key, the configuration digest, and the
// enclosing-class stack; unkeyable hints (and hints under a stack holding
// an unkeyable class) are compiled fresh each call and never cached.
func (f *Factory) Checker(h hint.Hint, req *Request) (*Checker, error) {
	key, err := hint.Key(h)
	if err != nil {
		// Anonymous classes and validators have no stable key. Build
		// without caching.
		return f.build(h, req)
	}
	memoKey := key + "\x00" + req.conf().Digest()
	// Self and relative forward references resolve against the stack, so
	// checkers built under different stacks must not share a cache line.
	for _, cls := range req.classStack() {
		ck, err := hint.Key(cls)
		if err != nil {
			return f.build(h, req)
		}
		memoKey += "\x00" + ck
	}
	v, err := f.memo.GetOrCompute(memoKey, func() (any, error) {
		return f.build(h, req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Checker), nil
}

func (f *Factory) build(h hint.Hint, req *Request) (*Checker, error) {
	c := req.conf()
	root, err := f.reducer.Root(h, &reduce.Context{
		Conf:         c,
		ClassStack:   req.classStack(),
		DurableScope: true,
		ExcPrefix:    req.prefix(),
	})
	if err != nil {
		return nil, err
	}

	name := checkerName()
	if root == sane.Ignorable {
		f.logger.Debug("hint is ignorable, emitting trivial checker", map[string]interface{}{
			"hint": h.String(),
		})
		return &Checker{name: name, hint: h, trivial: true}, nil
	}

	res, err := f.gen.Expr(root, c)
	if err != nil {
		return nil, err
	}
	if len(res.RelRefNames) > 0 {
		return nil, errors.New(errors.RefUnresolvable,
			"%shint %s holds relative forward reference(s) %s resolvable only inside a class body",
			req.prefix(), h, strings.Join(res.RelRefNames, ", "))
	}

	prog, err := eval.Compile(res.Code, res.Scope)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("compiled checker", map[string]interface{}{
		"hint":     h.String(),
		"checker":  name,
		"code_len": len(res.Code),
	})
	return &Checker{
		name:  name,
		hint:  h,
		code:  res.Code,
		scope: res.Scope,
		prog:  prog,
	}, nil
}

func (r *Request) classStack() []*hint.Class {
	if r == nil {
		return nil
	}
	return r.ClassStack
}

func (r *Request) prefix() string {
	if r == nil || r.ExcPrefix == "" {
		return errors.PrefixPlaceholder
	}
	return r.ExcPrefix
}

func checkerName() string {
	id := uuid.New()
	return "hc_checker_" + strings.ReplaceAll(id.String(), "-", "_")
}
