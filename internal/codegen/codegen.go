// Package codegen implements the breadth-first expression code generator:
// given a sanified root hint, it emits a single short-circuit boolean
// expression checking an arbitrary runtime value against the hint, together
// with the scope of runtime objects the expression references by name.
//
// The traversal is iterative, never recursive: a pooled queue of node
// metadata is drained front to back, and each dequeued node's shape handler
// splices its fragment into the accumulating code buffer over the node's
// unique placeholder token. Handlers requiring recursion instead enqueue
// their children, sanifying each child on the way in.
package codegen

import (
	"fmt"
	"strings"

	"hintcheck/internal/cache"
	"hintcheck/internal/conf"
	"hintcheck/internal/errors"
	"hintcheck/internal/hint"
	"hintcheck/internal/logging"
	"hintcheck/internal/reduce"
	"hintcheck/internal/sane"
	"hintcheck/internal/sign"
)

// Reserved identifiers in generated code. Placeholder tokens use the
// @[call~slot]! scheme; user-supplied text never reaches the code buffer
// (literal values are threaded through the scope), so tokens cannot
// collide with anything user-controlled.
const (
	// RootPith is the identifier the checker binds the checked value to.
	RootPith = "pith"
	// RandKey is the scope key of the random-integer generator, injected
	// lazily when a sequence sampler is emitted.
	RandKey = "hc_rand"
	// RandLocal is the per-invocation local holding one shared random
	// integer, bound once per whole check.
	RandLocal = "rand_int"
)

// Result is one generation outcome: the code string, the wrapper scope of
// runtime objects it references, and the basenames of any relative forward
// references collected along the way. Results are cached and shared; never
// mutate one.
type Result struct {
	Code        string
	Scope       map[string]any
	RelRefNames []string
}

// Generator drives code generation. All fields are injected so tests can
// hold isolated instances; all methods are safe for concurrent use.
type Generator struct {
	registry *hint.Registry
	reducer  *reduce.Reducer
	pool     *Pool
	memo     *cache.Map
	logger   *logging.Logger
	randInt  func() int64
}

// Options configures NewGenerator. Zero-valued fields get isolated
// defaults.
type Options struct {
	Registry *hint.Registry
	Reducer  *reduce.Reducer
	Pool     *Pool
	Memo     *cache.Map
	Logger   *logging.Logger
	// RandInt yields the shared pseudo-random integer consumed once per
	// check invocation by sequence samplers.
	RandInt func() int64
}

// NewGenerator creates a generator.
func NewGenerator(opts Options) *Generator {
	g := &Generator{
		registry: opts.Registry,
		reducer:  opts.Reducer,
		pool:     opts.Pool,
		memo:     opts.Memo,
		logger:   opts.Logger,
		randInt:  opts.RandInt,
	}
	if g.registry == nil {
		g.registry = hint.NewRegistry()
	}
	if g.reducer == nil {
		g.reducer = reduce.New(g.registry, nil, opts.Logger)
	}
	if g.pool == nil {
		g.pool = NewPool()
	}
	if g.memo == nil {
		g.memo = cache.New()
	}
	if g.logger == nil {
		g.logger = logging.Nop()
	}
	g.logger = g.logger.WithComponent("codegen")
	if g.randInt == nil {
		g.randInt = defaultRandInt()
	}
	return g
}

// Expr generates the check expression for a sanified root hint. Memoized
// on (root, configuration): equal inputs return the identical *Result. A
// failed generation caches nothing.
func (g *Generator) Expr(root *sane.Sane, c *conf.Conf) (*Result, error) {
	if root == sane.Ignorable {
		return nil, errors.New(errors.InternalError, "generation requested for the ignorable hint")
	}
	if c == nil {
		c = conf.Default
	}
	key := root.Digest() + "|" + c.Digest()
	v, err := g.memo.GetOrCompute(key, func() (any, error) {
		return g.generate(root, c)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (g *Generator) generate(root *sane.Sane, c *conf.Conf) (*Result, error) {
	q := g.pool.Acquire()
	defer g.pool.Release(q)
	q.reinit()

	seed := q.enqueue(root, RootPith, 0, 1)
	q.code = seed

	for q.cur <= q.last {
		n := q.nodes[q.cur]
		frag, err := g.emit(q, &n, c)
		if err != nil {
			return nil, err
		}
		if !strings.Contains(q.code, n.placeholder) {
			return nil, errors.New(errors.InternalError,
				"placeholder %q vanished from the code buffer", n.placeholder)
		}
		q.code = strings.Replace(q.code, n.placeholder, frag, 1)
		q.cur++
	}

	if q.code == seed {
		return nil, errors.New(errors.CodegenEmpty,
			"traversal of hint %q produced no code", root.Hint)
	}
	if q.needsRand {
		q.addScope(RandKey, g.randInt)
	}

	res := &Result{
		Code:  q.code,
		Scope: make(map[string]any, len(q.scope)),
	}
	for k, v := range q.scope {
		res.Scope[k] = v
	}
	if len(q.relRefs) > 0 {
		res.RelRefNames = append([]string(nil), q.relRefs...)
	}
	return res, nil
}

// emit dispatches one dequeued node to its shape handler. The dispatch is
// a closed switch over the node's sign: every sign reaching this point is
// either handled or an upstream invariant was violated.
func (g *Generator) emit(q *Queue, n *node, c *conf.Conf) (string, error) {
	h := n.sane.Hint
	p := newPithAccess(n)

	switch s := sign.Of(h); s {
	case sign.None:
		return g.emitClass(q, n, p, h.(*hint.Class))
	case sign.Ref:
		return g.emitRef(q, n, p, h.(*hint.Ref))
	case sign.Union:
		return g.emitUnion(q, n, p, h.(*hint.Union), c)
	case sign.Container:
		return g.emitContainer(q, n, p, h.(*hint.Container), c)
	case sign.TupleFixed:
		return g.emitFixedTuple(q, n, p, h.(*hint.FixedTuple), c)
	case sign.Mapping:
		return g.emitMapping(q, n, p, h.(*hint.MapOf), c)
	case sign.Annotated:
		return g.emitAnnotated(q, n, p, h.(*hint.Annotated), c)
	case sign.Subclass:
		return g.emitSubclass(q, n, p, h.(*hint.SubclassOf))
	case sign.Generic:
		return g.emitGeneric(q, n, p, h.(*hint.Generic), c)
	case sign.Literal:
		return g.emitLiteral(q, n, p, h.(*hint.Lit))
	case sign.Invalid:
		return "", errors.New(errors.HintInvalid,
			"%svalue %q is neither a known hint nor a class", errors.PrefixPlaceholder, h)
	default:
		// Aliases, typevars, optionals, and the rest reduce away before
		// generation; meeting one here is a bug.
		return "", errors.New(errors.InternalError,
			"unreduced %s hint %q reached the code generator", s, h)
	}
}

// enqueueChild sanifies a child hint in the current node's context and
// enqueues it for later dispatch. Returns the placeholder token to splice
// into the parent's fragment, or ignorable=true when the child imposes no
// constraint and the parent should omit its conjunct entirely.
func (g *Generator) enqueueChild(q *Queue, parent *node, child hint.Hint, pithExpr string, c *conf.Conf) (ph string, ignorable bool, err error) {
	return g.enqueueChildAt(q, parent, child, pithExpr, c, parent.pithVarIdx+1)
}

// enqueueChildAt is enqueueChild with an explicit pith local index, for
// handlers whose sibling fragments must not share a local.
func (g *Generator) enqueueChildAt(q *Queue, parent *node, child hint.Hint, pithExpr string, c *conf.Conf, pithVarIdx int) (ph string, ignorable bool, err error) {
	cs, err := g.reducer.Child(child, parent.sane, &reduce.Context{
		Conf:         c,
		DurableScope: true,
	})
	if err != nil {
		return "", false, err
	}
	if cs == sane.Ignorable {
		return "", true, nil
	}
	ph = q.enqueue(cs, pithExpr, parent.indent+1, pithVarIdx)
	return ph, false, nil
}

// pithAccess threads one node's pith expression through its fragment,
// binding it to a uniquely-indexed local via an assignment expression the
// first time it is referenced whenever it is not already a bare
// identifier. Purely a performance optimization: results are semantically
// identical with or without the binding.
type pithAccess struct {
	expr    string
	varName string
	bound   bool
}

func newPithAccess(n *node) *pithAccess {
	if isBareIdent(n.pithExpr) {
		return &pithAccess{expr: n.pithExpr, varName: n.pithExpr, bound: true}
	}
	return &pithAccess{
		expr:    n.pithExpr,
		varName: fmt.Sprintf("%s%d", RootPith, n.pithVarIdx),
	}
}

// use returns the expression for the next reference to the pith: the
// binding form first, the bare local afterwards.
func (p *pithAccess) use() string {
	s := p.peek()
	p.bound = true
	return s
}

// peek previews what the next use would return without consuming the
// binding. A handler whose first reference may be discarded along with an
// ignorable child must peek, then commit only when the fragment is kept,
// so the binding lands in the first kept conjunct instead of vanishing.
func (p *pithAccess) peek() string {
	if p.bound {
		return p.varName
	}
	return fmt.Sprintf("(%s := %s)", p.varName, p.expr)
}

func (p *pithAccess) commit() { p.bound = true }

func isBareIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isAlpha := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isAlpha && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// ind returns the line break and indentation preceding a nested conjunct.
func ind(level int) string {
	return "\n" + strings.Repeat("    ", level)
}
