package codegen

import (
	"fmt"
	mathrand "math/rand/v2"
	"strings"

	"hintcheck/internal/conf"
	"hintcheck/internal/errors"
	"hintcheck/internal/hint"
	"hintcheck/internal/pith"
	"hintcheck/internal/sign"
)

// shallowCheck renders the origin-class membership conjunct every
// subscripted shape opens with, dispatching through the classifier's
// origin accessor.
func (g *Generator) shallowCheck(q *Queue, p *pithAccess, h hint.Hint) string {
	return fmt.Sprintf("isinstance(%s, %s)", p.use(), q.addClass(sign.Origin(h)))
}

func defaultRandInt() func() int64 {
	return func() int64 { return int64(mathrand.Uint64() >> 1) }
}

// emitClass handles unclassified isinstance-able classes: the shallow
// fallback and by far the most common shape.
func (g *Generator) emitClass(q *Queue, n *node, p *pithAccess, cls *hint.Class) (string, error) {
	if cls.Name == "" {
		return fmt.Sprintf("isinstance(%s, %s)", p.use(), q.addAnonClass(cls)), nil
	}
	return fmt.Sprintf("isinstance(%s, %s)", p.use(), q.addClass(cls)), nil
}

// emitRef handles forward references: an isinstance check against a lazy
// proxy, resolution deferred to check time. Relative basenames are
// collected for the caller to resolve or reject.
func (g *Generator) emitRef(q *Queue, n *node, p *pithAccess, ref *hint.Ref) (string, error) {
	proxy := &hint.RefProxy{Name: ref.Name, Registry: g.registry}
	name := q.addScope("hc_ref_"+identSafe(ref.Name), proxy)
	if ref.Relative() {
		q.relRefs = append(q.relRefs, ref.Basename())
	}
	return fmt.Sprintf("isinstance(%s, %s)", p.use(), name), nil
}

// emitUnion ORs each non-ignorable member's check. Sanification has
// already collapsed any union with an ignorable member, so every member
// contributes a conjunct; the skip below is defensive only.
func (g *Generator) emitUnion(q *Queue, n *node, p *pithAccess, u *hint.Union, c *conf.Conf) (string, error) {
	parts := make([]string, 0, len(u.Members))
	for _, m := range u.Members {
		ph, ignorable, err := g.enqueueChild(q, n, m, p.peek(), c)
		if err != nil {
			return "", err
		}
		if ignorable {
			continue
		}
		p.commit()
		parts = append(parts, ph)
	}
	if len(parts) == 0 {
		return "", errors.New(errors.InternalError,
			"union %q with no checkable members reached the code generator", u)
	}
	sep := " ||" + ind(n.indent+1)
	return "(" + strings.Join(parts, sep) + ")", nil
}

// emitContainer handles single-argument containers. The exemplar item
// sampled for deep-checking depends on the origin's sampling class: a
// pseudo-random index for sequences, one arbitrary element for
// reiterables, and nothing at all for one-shot iterables.
func (g *Generator) emitContainer(q *Queue, n *node, p *pithAccess, ct *hint.Container, c *conf.Conf) (string, error) {
	shallow := g.shallowCheck(q, p, ct)
	if c.Strategy == conf.StrategyShallow || ct.Origin.Sampling == hint.SampleUnsafe {
		// One-shot iterables must not be consumed: their items are assumed
		// to satisfy the element hint.
		return shallow, nil
	}

	var itemExpr string
	switch ct.Origin.Sampling {
	case hint.SampleSequence:
		q.needsRand = true
		itemExpr = fmt.Sprintf("%s[%s %% len(%s)]", p.use(), RandLocal, p.use())
	case hint.SampleReiterable:
		itemExpr = fmt.Sprintf("first(%s)", p.use())
	default:
		return "", errors.New(errors.InternalError,
			"container origin %q has no sampling class", ct.Origin)
	}

	ph, ignorable, err := g.enqueueChild(q, n, ct.Elem, itemExpr, c)
	if err != nil {
		return "", err
	}
	if ignorable {
		return shallow, nil
	}
	return fmt.Sprintf("(%s &&%s(len(%s) == 0 ||%s%s))",
		shallow, ind(n.indent+1), p.use(), ind(n.indent+2), ph), nil
}

// emitFixedTuple emits a length check plus one conjunct per non-ignorable
// position. The empty-tuple hint is a distinct zero-length check.
func (g *Generator) emitFixedTuple(q *Queue, n *node, p *pithAccess, t *hint.FixedTuple, c *conf.Conf) (string, error) {
	shallow := g.shallowCheck(q, p, t)
	if len(t.Elems) == 0 {
		return fmt.Sprintf("(%s && len(%s) == 0)", shallow, p.use()), nil
	}

	parts := []string{shallow, fmt.Sprintf("len(%s) == %d", p.use(), len(t.Elems))}
	for i, elem := range t.Elems {
		ph, ignorable, err := g.enqueueChild(q, n, elem, fmt.Sprintf("%s[%d]", p.use(), i), c)
		if err != nil {
			return "", err
		}
		if ignorable {
			continue
		}
		parts = append(parts, ph)
	}
	sep := " &&" + ind(n.indent+1)
	return "(" + strings.Join(parts, sep) + ")", nil
}

// emitMapping emits an emptiness-or-first-pair check, omitting the key
// check, the value check, or neither depending on which child hints are
// ignorable. When both sides are checked they examine the same sampled
// pair: the value is looked up under the key local the key fragment binds.
func (g *Generator) emitMapping(q *Queue, n *node, p *pithAccess, m *hint.MapOf, c *conf.Conf) (string, error) {
	shallow := g.shallowCheck(q, p, m)
	if c.Strategy == conf.StrategyShallow {
		return shallow, nil
	}

	keyPh, keyIgnorable, err := g.enqueueChild(q, n, m.Key, fmt.Sprintf("firstkey(%s)", p.use()), c)
	if err != nil {
		return "", err
	}
	valExpr := fmt.Sprintf("firstval(%s)", p.use())
	if !keyIgnorable {
		valExpr = fmt.Sprintf("%s[%s%d]", p.use(), RootPith, n.pithVarIdx+1)
	}
	valPh, valIgnorable, err := g.enqueueChildAt(q, n, m.Val, valExpr, c, n.pithVarIdx+2)
	if err != nil {
		return "", err
	}

	var deep string
	switch {
	case keyIgnorable && valIgnorable:
		return shallow, nil
	case keyIgnorable:
		deep = valPh
	case valIgnorable:
		deep = keyPh
	default:
		deep = fmt.Sprintf("(%s && %s)", keyPh, valPh)
	}
	return fmt.Sprintf("(%s &&%s(len(%s) == 0 ||%s%s))",
		shallow, ind(n.indent+1), p.use(), ind(n.indent+2), deep), nil
}

// emitAnnotated ANDs the underlying hint's check with each validator's
// pre-supplied predicate fragment, splicing the current pith expression
// into the fragment's substitution point and threading the fragment's
// locals into the wrapper scope.
func (g *Generator) emitAnnotated(q *Queue, n *node, p *pithAccess, a *hint.Annotated, c *conf.Conf) (string, error) {
	var parts []string
	// The base may reduce to nothing: peek so that a discarded base child
	// does not take the walrus binding down with it.
	ph, ignorable, err := g.enqueueChild(q, n, a.Base, p.peek(), c)
	if err != nil {
		return "", err
	}
	if !ignorable {
		p.commit()
		parts = append(parts, ph)
	}
	for _, v := range a.Validators() {
		parts = append(parts, strings.ReplaceAll(v.Code, hint.ObjPlaceholder, p.use()))
		for name, obj := range v.Locals {
			q.addScope(name, obj)
		}
	}
	if len(parts) == 0 {
		return "", errors.New(errors.InternalError,
			"annotated hint %q with neither base nor validators reached the code generator", a)
	}
	sep := " &&" + ind(n.indent+1)
	return "(" + strings.Join(parts, sep) + ")", nil
}

// emitSubclass handles type[X]: classness plus an issubclass test against
// the subscripted argument, which sanification has reduced to a class, a
// union of classes, or a forward reference.
func (g *Generator) emitSubclass(q *Queue, n *node, p *pithAccess, s *hint.SubclassOf) (string, error) {
	typeCls := q.addClass(sign.Origin(s))
	target, err := g.subclassTarget(q, s.Arg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(isinstance(%s, %s) && issubclass(%s, %s))",
		p.use(), typeCls, p.use(), target), nil
}

func (g *Generator) subclassTarget(q *Queue, arg hint.Hint) (string, error) {
	switch x := arg.(type) {
	case *hint.Class:
		return q.addClass(x), nil
	case *hint.Ref:
		proxy := &hint.RefProxy{Name: x.Name, Registry: g.registry}
		if x.Relative() {
			q.relRefs = append(q.relRefs, x.Basename())
		}
		return q.addScope("hc_ref_"+identSafe(x.Name), proxy), nil
	case *hint.Union:
		classes := make(hint.ClassTuple, 0, len(x.Members))
		names := make([]string, 0, len(x.Members))
		for _, m := range x.Members {
			cls, ok := m.(*hint.Class)
			if !ok {
				return "", errors.New(errors.HintUnsupported,
					"%ssubclass hint argument %q is not a union of classes",
					errors.PrefixPlaceholder, x)
			}
			classes = append(classes, cls)
			names = append(names, identSafe(cls.Name))
		}
		return q.addScope("hc_clss_"+strings.Join(names, "_"), classes), nil
	}
	return "", errors.New(errors.HintUnsupported,
		"%ssubclass hint argument %q is unsupported", errors.PrefixPlaceholder, arg)
}

// emitGeneric handles unsubscripted generics and protocols: an isinstance
// check against the generic's own class ANDed with a deep check against
// every non-ignorable unerased pseudo-superclass. The pseudo-superclass
// walk is a separate nested breadth-first search over the original base
// tuples: transparent bases (other user generics, which contribute no
// isinstance-checkable semantics of their own) are spliced into the nested
// queue instead of being yielded.
func (g *Generator) emitGeneric(q *Queue, n *node, p *pithAccess, gen *hint.Generic, c *conf.Conf) (string, error) {
	parts := []string{fmt.Sprintf("isinstance(%s, %s)", p.use(), q.addClass(gen.Class))}

	bases := append([]hint.Hint(nil), gen.Bases...)
	for len(bases) > 0 {
		base := bases[0]
		bases = bases[1:]
		if sub, ok := base.(*hint.Generic); ok {
			bases = append(bases, sub.Bases...)
			continue
		}
		ph, ignorable, err := g.enqueueChild(q, n, base, p.use(), c)
		if err != nil {
			return "", err
		}
		if ignorable {
			continue
		}
		parts = append(parts, ph)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	sep := " &&" + ind(n.indent+1)
	return "(" + strings.Join(parts, sep) + ")", nil
}

// emitLiteral emits an isinstance pre-filter over the literals' classes
// followed by one equality disjunct per literal value. Values reach the
// generated code through the scope, never as inline source text.
func (g *Generator) emitLiteral(q *Queue, n *node, p *pithAccess, l *hint.Lit) (string, error) {
	if len(l.Values) == 0 {
		return "", errors.New(errors.HintInvalid,
			"%sempty literal hint", errors.PrefixPlaceholder)
	}
	var classes hint.ClassTuple
	seen := make(map[*hint.Class]bool)
	for _, v := range l.Values {
		cls := classOfLiteral(v)
		if cls == nil {
			return "", errors.New(errors.HintUnsupported,
				"%sliteral value %s has no literal-capable class",
				errors.PrefixPlaceholder, pith.Repr(v))
		}
		if !seen[cls] {
			seen[cls] = true
			classes = append(classes, cls)
		}
	}
	typesName := q.addScope(fmt.Sprintf("hc_types_%d", q.litSeq), classes)

	eqs := make([]string, len(l.Values))
	for i, v := range l.Values {
		litName := q.addScope(fmt.Sprintf("hc_lit_%d", q.litSeq+i+1), v)
		eqs[i] = fmt.Sprintf("%s == %s", p.use(), litName)
	}
	q.litSeq += len(l.Values) + 1

	return fmt.Sprintf("(isinstance(%s, %s) && (%s))",
		p.use(), typesName, strings.Join(eqs, " || ")), nil
}

func classOfLiteral(v any) *hint.Class {
	switch v.(type) {
	case nil:
		return hint.NoneType
	case bool:
		return hint.Bool
	case int64:
		return hint.Int
	case float64:
		return hint.Float
	case string:
		return hint.Str
	}
	return nil
}

// addClass injects a named class into the scope.
func (q *Queue) addClass(c *hint.Class) string {
	return q.addScope("hc_cls_"+identSafe(c.Name), c)
}

// addAnonClass injects an anonymous class under a slot-derived name.
func (q *Queue) addAnonClass(c *hint.Class) string {
	name := fmt.Sprintf("hc_anon_%d", q.cur)
	return q.addScope(name, c)
}
